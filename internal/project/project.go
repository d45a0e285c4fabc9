// Package project models the subprojects of an Android workspace: their
// descriptors, the Android extension selected by their plugins, and the
// per-project values the configuration pass assigns.
package project

import (
	"fmt"
	"path/filepath"

	"github.com/kingrea/droidcfg/internal/graph"
	"github.com/kingrea/droidcfg/internal/namespace"
	"github.com/kingrea/droidcfg/internal/repository"
)

// Project is a named build unit inside the workspace.
type Project struct {
	Name       string
	Dir        string
	Descriptor string
	Plugins    []string
	DependsOn  []string

	// Repositories are the project's own declarations; the configuration pass
	// prepends the workspace ones.
	Repositories []repository.Declaration

	// Android is nil until an Android plugin is applied.
	Android Extension

	// Values assigned during configuration.
	BuildDir         string
	ResolvedRepos    []repository.Declaration
	NamespaceOutcome namespace.Outcome

	declared AndroidBlock
}

// New builds a project rooted at dir from a parsed descriptor.
func New(dir string, desc Descriptor) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", dir, err)
	}
	name := desc.Name
	if name == "" {
		name = filepath.Base(abs)
	}
	p := &Project{
		Name:         name,
		Dir:          abs,
		Plugins:      append([]string(nil), desc.Plugins...),
		Repositories: append([]repository.Declaration(nil), desc.Repositories...),
		declared:     desc.Android,
	}
	for _, dep := range desc.EvaluationDependsOn {
		p.DependsOn = append(p.DependsOn, graph.NormalizePath(dep))
	}
	return p, nil
}

// Path returns the project's colon-prefixed path, e.g. ":app".
func (p *Project) Path() string {
	return graph.NormalizePath(p.Name)
}

// Kind reports the kind of the applied Android extension.
func (p *Project) Kind() Kind {
	if p == nil || p.Android == nil {
		return KindNone
	}
	return p.Android.Kind()
}

// Library returns the project's library extension, creating it from the
// descriptor's android block on first use.
func (p *Project) Library() (*LibraryConfig, error) {
	switch ext := p.Android.(type) {
	case nil:
		lib := newLibraryConfig(p.declared)
		p.Android = lib
		return lib, nil
	case *LibraryConfig:
		return ext, nil
	default:
		return nil, fmt.Errorf("project %s: already configured as %s", p.Path(), ext.Kind())
	}
}

// Application returns the project's application extension, creating it from
// the descriptor's android block on first use.
func (p *Project) Application() (*ApplicationConfig, error) {
	switch ext := p.Android.(type) {
	case nil:
		app := newApplicationConfig(p.declared)
		p.Android = app
		return app, nil
	case *ApplicationConfig:
		return ext, nil
	default:
		return nil, fmt.Errorf("project %s: already configured as %s", p.Path(), ext.Kind())
	}
}

// Namespace implements namespace.Target. A nil project has no namespace.
func (p *Project) Namespace() (string, bool) {
	if p == nil || p.Android == nil {
		return "", false
	}
	ns := p.Android.common().Namespace
	if ns == nil {
		return "", false
	}
	return *ns, true
}

// SetNamespace implements namespace.Target. Projects without an Android
// extension have nowhere to store a namespace and ignore the call.
func (p *Project) SetNamespace(value string) {
	if p == nil || p.Android == nil {
		return
	}
	p.Android.common().Namespace = &value
}

// File resolves rel against the project root. A nil project resolves nothing.
func (p *Project) File(rel string) string {
	if p == nil {
		return ""
	}
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// CompileSdk returns the compile SDK of the Android extension, or zero.
func (p *Project) CompileSdk() int {
	if p == nil || p.Android == nil {
		return 0
	}
	return p.Android.common().CompileSdk
}

// BuildToolsVersion returns the pinned build tools of library projects.
func (p *Project) BuildToolsVersion() string {
	if lib, ok := p.Android.(*LibraryConfig); ok {
		return lib.BuildToolsVersion
	}
	return ""
}
