// Package plugin maps plugin identifiers to the configuration they apply to a
// project, mirroring a build tool's "when plugin X is applied" hooks.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/droidcfg/internal/project"
)

// ErrConflictingPlugins is returned when a project applies plugins whose
// extensions cannot coexist.
var ErrConflictingPlugins = errors.New("plugin: conflicting plugins")

// Context carries the workspace-level values appliers need.
type Context struct {
	// CompileSdk and BuildTools are pinned on every library project.
	CompileSdk int
	BuildTools string
	Logger     *zap.Logger
}

func (c *Context) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Applier configures a project that applied a plugin.
type Applier func(ctx *Context, p *project.Project) error

// Registry maintains known plugin appliers.
type Registry struct {
	mu       sync.RWMutex
	appliers map[string]Applier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{appliers: map[string]Applier{}}
}

// Register installs an applier. Returns an error if the id already exists.
func (r *Registry) Register(id string, applier Applier) error {
	if id == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if applier == nil {
		return fmt.Errorf("plugin: applier is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.appliers[id]; exists {
		return fmt.Errorf("plugin: %s already registered", id)
	}
	r.appliers[id] = applier
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, applier Applier) {
	if err := r.Register(id, applier); err != nil {
		panic(err)
	}
}

// IDs returns a sorted list of registered plugin identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.appliers))
	for id := range r.appliers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Outcome lists what Apply did with a project's plugin ids.
type Outcome struct {
	Applied []string
	Unknown []string
}

// Apply runs the applier of every plugin the project declares, in declaration
// order. Plugins without an applier are reported as unknown and skipped.
func (r *Registry) Apply(ctx *Context, p *project.Project) (Outcome, error) {
	var out Outcome
	if p == nil {
		return out, nil
	}
	seen := make(map[string]struct{}, len(p.Plugins))
	for _, id := range p.Plugins {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r.mu.RLock()
		applier, ok := r.appliers[id]
		r.mu.RUnlock()
		if !ok {
			ctx.logger().Debug("plugin not handled", zap.String("project", p.Path()), zap.String("plugin", id))
			out.Unknown = append(out.Unknown, id)
			continue
		}
		if err := applier(ctx, p); err != nil {
			return out, fmt.Errorf("plugin %s on %s: %w", id, p.Path(), err)
		}
		out.Applied = append(out.Applied, id)
	}
	return out, nil
}
