package configure

import (
	"time"

	"github.com/kingrea/droidcfg/internal/project"
	"github.com/kingrea/droidcfg/internal/repository"
)

// Report is the resolved model of one configuration pass.
type Report struct {
	RunID        string                   `json:"run_id"`
	Workspace    string                   `json:"workspace"`
	BuildRoot    string                   `json:"build_root"`
	Primary      string                   `json:"primary"`
	Repositories []repository.Declaration `json:"repositories"`
	Projects     []ProjectReport          `json:"projects"`
	DryRun       bool                     `json:"dry_run,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
}

// ProjectReport is the resolved configuration of one project, in evaluation order.
type ProjectReport struct {
	Name            string   `json:"name"`
	Path            string   `json:"path"`
	Dir             string   `json:"dir"`
	Kind            string   `json:"kind"`
	Plugins         []string `json:"plugins,omitempty"`
	UnknownPlugins  []string `json:"unknown_plugins,omitempty"`
	DependsOn       []string `json:"depends_on,omitempty"`
	BuildDir        string   `json:"build_dir"`
	Namespace       string   `json:"namespace,omitempty"`
	NamespaceSet    bool     `json:"namespace_set"`
	NamespaceSource string   `json:"namespace_source,omitempty"`
	CompileSdk      int      `json:"compile_sdk,omitempty"`
	BuildTools      string   `json:"build_tools,omitempty"`
	Repositories    []string `json:"repositories"`
}

// Project returns the report entry for a project path.
func (r *Report) Project(path string) (ProjectReport, bool) {
	if r == nil {
		return ProjectReport{}, false
	}
	for _, p := range r.Projects {
		if p.Path == path || p.Name == path {
			return p, true
		}
	}
	return ProjectReport{}, false
}

// Missing returns the Android projects that finished without a namespace.
// The build tool will reject or default these.
func (r *Report) Missing() []ProjectReport {
	if r == nil {
		return nil
	}
	var out []ProjectReport
	for _, p := range r.Projects {
		if p.Kind != string(project.KindNone) && !p.NamespaceSet {
			out = append(out, p)
		}
	}
	return out
}

func newProjectReport(p *project.Project, deps []string, unknown []string) ProjectReport {
	ns, set := p.Namespace()
	return ProjectReport{
		Name:            p.Name,
		Path:            p.Path(),
		Dir:             p.Dir,
		Kind:            string(p.Kind()),
		Plugins:         append([]string(nil), p.Plugins...),
		UnknownPlugins:  unknown,
		DependsOn:       deps,
		BuildDir:        p.BuildDir,
		Namespace:       ns,
		NamespaceSet:    set,
		NamespaceSource: string(p.NamespaceOutcome),
		CompileSdk:      p.CompileSdk(),
		BuildTools:      p.BuildToolsVersion(),
		Repositories:    repository.URLs(p.ResolvedRepos),
	}
}
