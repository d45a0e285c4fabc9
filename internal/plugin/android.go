package plugin

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/droidcfg/internal/namespace"
	"github.com/kingrea/droidcfg/internal/project"
)

// Android plugin identifiers.
const (
	AndroidLibrary     = "com.android.library"
	AndroidApplication = "com.android.application"
)

// Pinned defaults applied to library projects.
const (
	DefaultCompileSdk = 34
	DefaultBuildTools = "34.0.0"
)

// NewAndroidRegistry returns a registry with the Android library and
// application appliers installed.
func NewAndroidRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister(AndroidLibrary, ApplyLibrary)
	reg.MustRegister(AndroidApplication, ApplyApplication)
	return reg
}

// ApplyLibrary pins the compile SDK and build tools, then backfills the
// namespace. The pin happens whatever the namespace state is.
func ApplyLibrary(ctx *Context, p *project.Project) error {
	lib, err := p.Library()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConflictingPlugins, err)
	}
	compileSdk, buildTools := DefaultCompileSdk, DefaultBuildTools
	if ctx != nil && ctx.CompileSdk > 0 {
		compileSdk = ctx.CompileSdk
	}
	if ctx != nil && ctx.BuildTools != "" {
		buildTools = ctx.BuildTools
	}
	lib.CompileSdk = compileSdk
	lib.BuildToolsVersion = buildTools
	backfill(ctx, p)
	return nil
}

// ApplyApplication backfills the namespace of application projects.
func ApplyApplication(ctx *Context, p *project.Project) error {
	if _, err := p.Application(); err != nil {
		return fmt.Errorf("%w: %v", ErrConflictingPlugins, err)
	}
	backfill(ctx, p)
	return nil
}

func backfill(ctx *Context, p *project.Project) {
	p.NamespaceOutcome = namespace.Backfill(p)
	ns, _ := p.Namespace()
	ctx.logger().Debug("namespace resolved",
		zap.String("project", p.Path()),
		zap.String("outcome", string(p.NamespaceOutcome)),
		zap.String("namespace", ns),
	)
}
