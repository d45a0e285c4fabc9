package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/droidcfg/internal/layout"
)

func newTestStore(t *testing.T) (*Store, layout.Layout) {
	t.Helper()
	workspace := filepath.Join(t.TempDir(), "android")
	l, err := layout.New(workspace, "../../build")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	clock := func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return NewStore(l, WithClock(clock)), l
}

func TestStoreJSONRoundTrip(t *testing.T) {
	store, l := newTestStore(t)

	res, err := store.Check(ResolvedConfig)
	if err != nil || res.State != StateMissing {
		t.Fatalf("expected missing artifact, got %s (%v)", res.State, err)
	}

	body := []byte(`{"primary":":app","projects":[{"name":"app"}]}`)
	if err := store.Write(ResolvedConfig, body, Metadata{RunID: "run-1", Version: "dev"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	wantPath := filepath.Join(l.Root(), ".droidcfg", "resolved.json")
	if _, err := os.Stat(wantPath); err != nil {
		t.Fatalf("artifact not at %s: %v", wantPath, err)
	}

	res, err = store.Check(ResolvedConfig)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.State != StateReady || res.Metadata == nil || res.Metadata.RunID != "run-1" {
		t.Fatalf("unexpected check result: %+v", res)
	}

	var decoded struct {
		Primary  string `json:"primary"`
		Projects []struct {
			Name string `json:"name"`
		} `json:"projects"`
	}
	meta, err := store.ReadJSON(ResolvedConfig, &decoded)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if decoded.Primary != ":app" || len(decoded.Projects) != 1 {
		t.Fatalf("unexpected body: %+v", decoded)
	}
	if !meta.CreatedAt.Equal(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected created time %s", meta.CreatedAt)
	}
	if meta.Checksum == "" {
		t.Fatalf("expected checksum to be recorded")
	}
}

func TestStoreDetectsTampering(t *testing.T) {
	store, l := newTestStore(t)
	if err := store.Write(ResolvedConfig, []byte(`{"primary":":app"}`), Metadata{RunID: "run-1", Version: "dev"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	path := ResolvedConfig.Path(l)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `":app"`, `":other"`, 1)
	if err := os.WriteFile(path, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if _, err := store.ReadJSON(ResolvedConfig, &out); err == nil {
		t.Fatalf("expected checksum mismatch")
	}
}

func TestStoreRejectsMissingMetadata(t *testing.T) {
	store, l := newTestStore(t)
	path := ResolvedConfig.Path(l)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"primary":":app"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := store.Check(ResolvedConfig)
	if err == nil || res.State != StateInvalid {
		t.Fatalf("expected invalid state, got %s (%v)", res.State, err)
	}
}

func TestStoreWriteValidatesMetadata(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Write(ResolvedConfig, []byte(`{}`), Metadata{Version: "dev"}); err == nil {
		t.Fatalf("expected error without run id")
	}
	if err := store.Write(ResolvedConfig, []byte(`[]`), Metadata{RunID: "r", Version: "dev"}); err == nil {
		t.Fatalf("expected error for non-object body")
	}
}

func TestProjectMarker(t *testing.T) {
	store, l := newTestStore(t)
	ref := ConfiguredMarker.ForProject("camera")
	if err := store.Write(ref, nil, Metadata{}); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	if want := filepath.Join(l.ProjectDir("camera"), ".droidcfg-configured"); ref.Path(l) != want {
		t.Fatalf("marker path %s, want %s", ref.Path(l), want)
	}
	res, err := store.Check(ref)
	if err != nil || res.State != StateReady {
		t.Fatalf("expected ready marker, got %s (%v)", res.State, err)
	}
}

func TestResolvedConfigOutsideProjectBuildDirs(t *testing.T) {
	store, l := newTestStore(t)
	if err := store.Write(ResolvedConfig, []byte(`{}`), Metadata{RunID: "run-1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// A project named after the tool must not share a directory with the
	// resolved configuration.
	path := ResolvedConfig.Path(l)
	if dir := l.ProjectDir("droidcfg"); strings.HasPrefix(path, dir+string(filepath.Separator)) {
		t.Fatalf("resolved config %s lives inside project build dir %s", path, dir)
	}
	if err := os.RemoveAll(l.ProjectDir("droidcfg")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res, err := store.Check(ResolvedConfig); err != nil || res.State != StateReady {
		t.Fatalf("resolved config lost with project dir: %s (%v)", res.State, err)
	}
}
