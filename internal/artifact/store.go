package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kingrea/droidcfg/internal/layout"
)

// Store manages artifact IO rooted at the shared build root.
type Store struct {
	layout layout.Layout
	now    func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a store for a workspace layout.
func NewStore(l layout.Layout, opts ...StoreOption) *Store {
	store := &Store{
		layout: l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Check inspects the artifact on disk and returns its status and metadata.
func (s *Store) Check(ref ArtifactRef) (CheckResult, error) {
	path := ref.Path(s.layout)
	if path == "" {
		err := fmt.Errorf("artifact: %s path could not be resolved", ref.ID)
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Ref: ref, Path: path, State: StateMissing}, nil
		}
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	switch ref.Kind {
	case KindMarker:
		if info.IsDir() {
			return invalidResult(ref, path, fmt.Errorf("artifact: expected marker file got directory"))
		}
		return CheckResult{Ref: ref, Path: path, State: StateReady}, nil
	case KindJSON:
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return CheckResult{Ref: ref, Path: path, State: StateError, Err: readErr}, readErr
		}
		meta, _, metaErr := splitJSON(data)
		if metaErr != nil {
			return invalidResult(ref, path, metaErr)
		}
		if meta.ArtifactID != ref.ID {
			return invalidResult(ref, path, fmt.Errorf("artifact: metadata id %s does not match %s", meta.ArtifactID, ref.ID))
		}
		return CheckResult{Ref: ref, Path: path, State: StateReady, Metadata: &meta}, nil
	default:
		err := fmt.Errorf("artifact: unsupported kind %q for %s", ref.Kind, ref.ID)
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
}

// Write persists the artifact contents and metadata based on its kind.
func (s *Store) Write(ref ArtifactRef, body []byte, meta Metadata) error {
	path := ref.Path(s.layout)
	if path == "" {
		return fmt.Errorf("artifact: %s path could not be resolved", ref.ID)
	}
	switch ref.Kind {
	case KindMarker:
		return ensureMarker(path)
	case KindJSON:
		return s.writeJSON(path, ref, body, meta)
	default:
		return fmt.Errorf("artifact: unsupported kind %q for %s", ref.Kind, ref.ID)
	}
}

// ReadJSON decodes a JSON artifact into v and returns its metadata. The
// metadata block is stripped before decoding.
func (s *Store) ReadJSON(ref ArtifactRef, v any) (Metadata, error) {
	path := ref.Path(s.layout)
	if path == "" {
		return Metadata{}, fmt.Errorf("artifact: %s path could not be resolved", ref.ID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("artifact: read %s: %w", ref.ID, err)
	}
	meta, body, err := splitJSON(data)
	if err != nil {
		return Metadata{}, err
	}
	if meta.Checksum != "" && meta.Checksum != checksum(body) {
		return meta, fmt.Errorf("artifact: %s checksum mismatch", ref.ID)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return meta, fmt.Errorf("artifact: decode %s: %w", ref.ID, err)
	}
	return meta, nil
}

func (s *Store) writeJSON(path string, ref ArtifactRef, body []byte, meta Metadata) error {
	if body == nil {
		body = []byte("{}")
	}
	prepared := meta.WithDefaults(ref, s.now())
	if err := prepared.ValidateFor(ref); err != nil {
		return err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("artifact: invalid json body for %s: %w", ref.ID, err)
	}
	if payload == nil {
		return fmt.Errorf("artifact: json body for %s must be an object", ref.ID)
	}
	canonical, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("artifact: encode json for %s: %w", ref.ID, err)
	}
	prepared.Checksum = checksum(canonical)
	rawMeta, err := json.Marshal(prepared)
	if err != nil {
		return fmt.Errorf("artifact: encode metadata for %s: %w", ref.ID, err)
	}
	payload[MetadataKey] = rawMeta
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode json for %s: %w", ref.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

// splitJSON separates the metadata block from the body. The returned body is
// re-encoded canonically so checksums are stable across indentation.
func splitJSON(data []byte) (Metadata, []byte, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: parse json metadata: %w", err)
	}
	raw, ok := payload[MetadataKey]
	if !ok {
		return Metadata{}, nil, fmt.Errorf("artifact: missing %s metadata", MetadataKey)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: invalid %s metadata structure: %w", MetadataKey, err)
	}
	if meta.ArtifactID == "" || meta.RunID == "" || meta.Version == "" {
		return Metadata{}, nil, fmt.Errorf("artifact: incomplete metadata")
	}
	if meta.CreatedAt.IsZero() {
		return Metadata{}, nil, fmt.Errorf("artifact: metadata missing created timestamp")
	}
	delete(payload, MetadataKey)
	body, err := json.Marshal(payload)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: encode body: %w", err)
	}
	return meta, body, nil
}

func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func ensureMarker(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte{}, 0o644)
}

func invalidResult(ref ArtifactRef, path string, err error) (CheckResult, error) {
	return CheckResult{Ref: ref, Path: path, State: StateInvalid, Err: err}, err
}
