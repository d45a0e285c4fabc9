// Package artifact defines the files droidcfg writes into the shared build
// root. Each artifact has a stable identifier, a kind, and a resolver that
// maps it to a path under the workspace layout.

package artifact

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kingrea/droidcfg/internal/layout"
)

// Kind captures the storage shape of an artifact.
type Kind string

const (
	// KindJSON is a JSON document enriched with a _droidcfg metadata block.
	KindJSON Kind = "json"
	// KindMarker is an empty file used as a flag.
	KindMarker Kind = "marker"
)

// MetadataKey is the JSON key holding artifact metadata.
const MetadataKey = "_droidcfg"

// StateDir holds workspace-wide artifacts under the build root. Project names
// cannot start with a dot, so it never collides with a project build dir.
const StateDir = ".droidcfg"

// PathResolver returns the fully-qualified path of an artifact for a layout.
type PathResolver func(layout.Layout) string

// ArtifactRef declares a stable identifier and metadata for an artifact.
type ArtifactRef struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	path        PathResolver
}

// Path resolves the artifact path for the provided layout.
func (r ArtifactRef) Path(l layout.Layout) string {
	if r.path == nil || l.Root() == "" {
		return ""
	}
	return filepath.Clean(r.path(l))
}

// Metadata captures provenance stored in the artifact's metadata block.
type Metadata struct {
	ArtifactID string    `json:"artifact"`
	RunID      string    `json:"run"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created"`
	Checksum   string    `json:"checksum,omitempty"`
}

// WithDefaults ensures metadata carries the artifact ID and a UTC timestamp.
func (m Metadata) WithDefaults(ref ArtifactRef, now time.Time) Metadata {
	clone := m
	if clone.ArtifactID == "" {
		clone.ArtifactID = ref.ID
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	} else {
		clone.CreatedAt = clone.CreatedAt.UTC()
	}
	return clone
}

// ValidateFor ensures metadata matches the artifact contract.
func (m Metadata) ValidateFor(ref ArtifactRef) error {
	if m.ArtifactID != ref.ID {
		return fmt.Errorf("artifact: metadata id %s does not match ref %s", m.ArtifactID, ref.ID)
	}
	if m.RunID == "" {
		return fmt.Errorf("artifact: run id is required for %s", ref.ID)
	}
	if m.Version == "" {
		return fmt.Errorf("artifact: version is required for %s", ref.ID)
	}
	return nil
}

// State captures the readiness of an artifact on disk.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateInvalid State = "invalid"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Ref      ArtifactRef
	Path     string
	State    State
	Metadata *Metadata
	Err      error
}

// Canonical artifact references.
var (
	ResolvedConfig = ArtifactRef{
		ID:          "resolved-config",
		Name:        "Resolved Configuration",
		Description: "resolved.json with the per-project result of the last configuration pass",
		Kind:        KindJSON,
		path: func(l layout.Layout) string {
			return filepath.Join(l.Root(), StateDir, "resolved.json")
		},
	}
	ConfiguredMarker = ArtifactRef{
		ID:          "configured",
		Name:        "Configured Marker",
		Description: "Marker written into every project build dir after a successful pass",
		Kind:        KindMarker,
	}
)

// ForProject returns a marker reference placed inside a project's build dir.
func (r ArtifactRef) ForProject(name string) ArtifactRef {
	clone := r
	clone.ID = r.ID + ":" + name
	clone.path = func(l layout.Layout) string {
		return filepath.Join(l.ProjectDir(name), ".droidcfg-"+r.ID)
	}
	return clone
}
