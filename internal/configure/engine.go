package configure

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/droidcfg/internal/artifact"
	"github.com/kingrea/droidcfg/internal/config"
	"github.com/kingrea/droidcfg/internal/graph"
	"github.com/kingrea/droidcfg/internal/layout"
	"github.com/kingrea/droidcfg/internal/logbook"
	"github.com/kingrea/droidcfg/internal/namespace"
	"github.com/kingrea/droidcfg/internal/plugin"
	"github.com/kingrea/droidcfg/internal/project"
	"github.com/kingrea/droidcfg/internal/repository"
)

// Options configures an Engine.
type Options struct {
	Config *config.Config
	// Registry defaults to plugin.NewAndroidRegistry().
	Registry *plugin.Registry
	Logger   *zap.Logger
	Logbook  *logbook.Logbook
	// DryRun skips every write: no markers, no artifact, no history.
	DryRun  bool
	Version string
	Now     func() time.Time
	RunID   func() string
}

// Engine runs the configuration pass over one workspace.
type Engine struct {
	cfg      *config.Config
	registry *plugin.Registry
	logger   *zap.Logger
	logbook  *logbook.Logbook
	layout   layout.Layout
	store    *artifact.Store
	dryRun   bool
	version  string
	now      func() time.Time
	runID    func() string
}

// New validates options and computes the workspace layout once.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("configure: config is required")
	}
	l, err := layout.New(opts.Config.Root, opts.Config.Settings.BuildDir)
	if err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	e := &Engine{
		cfg:      opts.Config,
		registry: opts.Registry,
		logger:   opts.Logger,
		logbook:  opts.Logbook,
		layout:   l,
		dryRun:   opts.DryRun,
		version:  opts.Version,
		now:      opts.Now,
		runID:    opts.RunID,
	}
	if e.registry == nil {
		e.registry = plugin.NewAndroidRegistry()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.version == "" {
		e.version = "dev"
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.runID == nil {
		e.runID = func() string { return uuid.New().String() }
	}
	e.store = artifact.NewStore(l, artifact.WithClock(e.now))
	return e, nil
}

// Layout returns the workspace layout shared by every project.
func (e *Engine) Layout() layout.Layout {
	return e.layout
}

// Plan discovers the workspace projects and returns them in evaluation order.
func (e *Engine) Plan() ([]*project.Project, *graph.Graph, error) {
	projects, err := project.Discover(e.cfg.Root, project.DiscoverOptions{
		Skip: func(path string) bool {
			return e.layout.Contains(path)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure: %w", err)
	}
	paths := make([]string, 0, len(projects))
	deps := graph.Dependencies{}
	byPath := make(map[string]*project.Project, len(projects))
	for _, p := range projects {
		paths = append(paths, p.Path())
		byPath[p.Path()] = p
		if len(p.DependsOn) > 0 {
			deps[p.Path()] = p.DependsOn
		}
	}
	g, err := graph.New(paths, deps, e.cfg.Settings.Primary)
	if err != nil {
		return nil, nil, fmt.Errorf("configure: %w", err)
	}
	order, err := g.Order()
	if err != nil {
		return nil, nil, fmt.Errorf("configure: %w", err)
	}
	ordered := make([]*project.Project, 0, len(order))
	for _, path := range order {
		ordered = append(ordered, byPath[path])
	}
	return ordered, g, nil
}

// Run performs one configuration pass. Projects are configured one at a time
// in evaluation order; ctx is checked between projects.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	projects, g, err := e.Plan()
	if err != nil {
		return nil, err
	}
	settings := e.cfg.Settings
	report := &Report{
		RunID:        e.runID(),
		Workspace:    e.cfg.Root,
		BuildRoot:    e.layout.Root(),
		Primary:      graph.NormalizePath(settings.Primary),
		Repositories: repository.Merge(settings.Repositories),
		DryRun:       e.dryRun,
		CreatedAt:    e.now().UTC(),
	}
	log := e.logger.With(zap.String("run", report.RunID))
	pctx := &plugin.Context{
		CompileSdk: settings.Android.CompileSdk,
		BuildTools: settings.Android.BuildTools,
		Logger:     log,
	}

	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("configure: %w", err)
		}
		p.BuildDir = e.layout.ProjectDir(p.Name)
		p.ResolvedRepos = repository.Merge(settings.Repositories, p.Repositories)
		outcome, err := e.registry.Apply(pctx, p)
		if err != nil {
			return nil, fmt.Errorf("configure: %w", err)
		}
		var deps []string
		if node, ok := g.Node(p.Path()); ok {
			deps = node.Dependencies
		}
		entry := newProjectReport(p, deps, outcome.Unknown)
		report.Projects = append(report.Projects, entry)
		log.Info("project configured",
			zap.String("project", entry.Path),
			zap.String("kind", entry.Kind),
			zap.String("namespace", entry.Namespace),
			zap.String("namespace_source", entry.NamespaceSource),
			zap.String("build_dir", entry.BuildDir),
		)
		if entry.Kind != string(project.KindNone) && !entry.NamespaceSet {
			log.Warn("project has no namespace", zap.String("project", entry.Path),
				zap.String("manifest", p.File(namespace.ManifestPath)))
		}
	}

	if e.dryRun {
		return report, nil
	}
	if err := e.persist(report); err != nil {
		return nil, err
	}
	return report, nil
}

// Clean deletes the shared build root.
func (e *Engine) Clean() error {
	if err := e.layout.Clean(); err != nil {
		return err
	}
	e.logger.Info("build root removed", zap.String("path", e.layout.Root()))
	if !e.dryRun {
		if err := e.logbook.Append(logbook.Entry{Message: "clean " + e.layout.Root()}); err != nil {
			e.logger.Warn("history not recorded", zap.Error(err))
		}
	}
	return nil
}

// LastReport loads the report persisted by the most recent non-dry run.
func (e *Engine) LastReport() (*Report, error) {
	res, err := e.store.Check(artifact.ResolvedConfig)
	if err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	if res.State == artifact.StateMissing {
		return nil, nil
	}
	var report Report
	if _, err := e.store.ReadJSON(artifact.ResolvedConfig, &report); err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	return &report, nil
}

// WatchPaths lists the directories whose changes can alter the next pass:
// the workspace root, every project root and every project's src/main.
func (e *Engine) WatchPaths() ([]string, error) {
	projects, err := project.Discover(e.cfg.Root, project.DiscoverOptions{
		Skip: func(path string) bool { return e.layout.Contains(path) },
	})
	if err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	paths := []string{e.cfg.Root}
	for _, p := range projects {
		paths = append(paths, p.Dir, filepath.Dir(p.File(namespace.ManifestPath)))
	}
	return paths, nil
}

func (e *Engine) persist(report *Report) error {
	for _, p := range report.Projects {
		if err := e.store.Write(artifact.ConfiguredMarker.ForProject(p.Name), nil, artifact.Metadata{}); err != nil {
			return fmt.Errorf("configure: mark %s: %w", p.Path, err)
		}
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("configure: encode report: %w", err)
	}
	meta := artifact.Metadata{RunID: report.RunID, Version: e.version, CreatedAt: report.CreatedAt}
	if err := e.store.Write(artifact.ResolvedConfig, body, meta); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	entries := make([]logbook.Entry, 0, len(report.Projects)+1)
	for _, p := range report.Projects {
		level := logbook.LevelInfo
		msg := fmt.Sprintf("%s namespace=%s (%s)", p.Kind, p.Namespace, p.NamespaceSource)
		if p.Kind == string(project.KindNone) {
			msg = "no android plugin"
		} else if !p.NamespaceSet {
			level = logbook.LevelWarn
			msg = fmt.Sprintf("%s without namespace (%s)", p.Kind, p.NamespaceSource)
		}
		entries = append(entries, logbook.Entry{Time: report.CreatedAt, Level: level, RunID: report.RunID, Project: p.Path, Message: msg})
	}
	entries = append(entries, logbook.Entry{
		Time:    report.CreatedAt,
		RunID:   report.RunID,
		Message: fmt.Sprintf("configured %d project(s) into %s", len(report.Projects), report.BuildRoot),
	})
	if err := e.logbook.Append(entries...); err != nil {
		e.logger.Warn("history not recorded", zap.Error(err))
	}
	return nil
}
