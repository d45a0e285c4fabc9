package configure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kingrea/droidcfg/internal/config"
	"github.com/kingrea/droidcfg/internal/graph"
	"github.com/kingrea/droidcfg/internal/logbook"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

// newWorkspace lays out a three project workspace under <tmp>/android.
func newWorkspace(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "android")
	writeFile(t, filepath.Join(root, "app", "project.yaml"), "plugins:\n  - com.android.application\n")
	writeFile(t, filepath.Join(root, "app", "src", "main", "AndroidManifest.xml"),
		`<manifest package="com.example.app"></manifest>`)
	writeFile(t, filepath.Join(root, "camera", "project.yaml"), "plugins:\n  - com.android.library\n")
	writeFile(t, filepath.Join(root, "camera", "src", "main", "AndroidManifest.xml"),
		`<manifest package="com.example.camera" />`)
	writeFile(t, filepath.Join(root, "legacy", "project.yaml"),
		"plugins:\n  - com.android.library\n  - org.jetbrains.kotlin.android\nandroid:\n  namespace: org.legacy\n  compile_sdk: 28\n")
	writeFile(t, filepath.Join(root, "tools", "project.yaml"), "evaluation_depends_on:\n  - camera\n")
	return root
}

func newEngine(t *testing.T, root string, dryRun bool) (*Engine, *config.Config) {
	t.Helper()
	cfg, err := config.Load(root)
	require.NoError(t, err)
	book, err := logbook.New(cfg.HistoryPath())
	require.NoError(t, err)
	engine, err := New(Options{
		Config:  cfg,
		Logger:  zaptest.NewLogger(t),
		Logbook: book,
		DryRun:  dryRun,
		Version: "test",
		Now:     func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
		RunID:   func() string { return "0f2a6c1e-run" },
	})
	require.NoError(t, err)
	return engine, cfg
}

func TestRunConfiguresWorkspace(t *testing.T) {
	root := newWorkspace(t)
	engine, _ := newEngine(t, root, false)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	var order []string
	for _, p := range report.Projects {
		order = append(order, p.Path)
	}
	if diff := cmp.Diff([]string{":app", ":camera", ":legacy", ":tools"}, order); diff != "" {
		t.Fatalf("evaluation order mismatch (-want +got):\n%s", diff)
	}

	shared := filepath.Join(filepath.Dir(root), "build")
	assert.Equal(t, shared, report.BuildRoot)

	app, ok := report.Project(":app")
	require.True(t, ok)
	assert.Equal(t, "application", app.Kind)
	assert.Equal(t, "com.example.app", app.Namespace)
	assert.Equal(t, "manifest", app.NamespaceSource)
	assert.Equal(t, 0, app.CompileSdk)
	assert.Equal(t, filepath.Join(shared, "app"), app.BuildDir)

	camera, ok := report.Project("camera")
	require.True(t, ok)
	assert.Equal(t, "library", camera.Kind)
	assert.Equal(t, "com.example.camera", camera.Namespace)
	assert.Equal(t, 34, camera.CompileSdk)
	assert.Equal(t, "34.0.0", camera.BuildTools)
	assert.Equal(t, []string{":app"}, camera.DependsOn)

	legacy, ok := report.Project(":legacy")
	require.True(t, ok)
	assert.Equal(t, "org.legacy", legacy.Namespace)
	assert.Equal(t, "declared", legacy.NamespaceSource)
	assert.Equal(t, 34, legacy.CompileSdk, "library pin overrides the declared compile sdk")
	assert.Equal(t, []string{"org.jetbrains.kotlin.android"}, legacy.UnknownPlugins)

	tools, ok := report.Project(":tools")
	require.True(t, ok)
	assert.Equal(t, "none", tools.Kind)
	assert.False(t, tools.NamespaceSet)
	assert.Equal(t, []string{":app", ":camera"}, tools.DependsOn)
	assert.Equal(t, []string{
		"https://dl.google.com/dl/android/maven2/",
		"https://repo.maven.apache.org/maven2/",
	}, tools.Repositories)

	assert.Empty(t, report.Missing())
}

func TestRunPersistsReportAndHistory(t *testing.T) {
	root := newWorkspace(t)
	engine, cfg := newEngine(t, root, false)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)

	last, err := engine.LastReport()
	require.NoError(t, err)
	require.NotNil(t, last)
	if diff := cmp.Diff(report, last); diff != "" {
		t.Fatalf("persisted report mismatch (-run +disk):\n%s", diff)
	}

	for _, name := range []string{"app", "camera", "legacy", "tools"} {
		_, err := os.Stat(filepath.Join(engine.Layout().ProjectDir(name), ".droidcfg-configured"))
		assert.NoError(t, err, "marker for %s", name)
	}

	book, err := logbook.New(cfg.HistoryPath())
	require.NoError(t, err)
	lines := book.Tail(10)
	require.Len(t, lines, 5)
	assert.Contains(t, lines[1], ":camera library namespace=com.example.camera (manifest)")
	assert.True(t, strings.HasSuffix(lines[4], "configured 4 project(s) into "+report.BuildRoot))
}

func TestDryRunWritesNothing(t *testing.T) {
	root := newWorkspace(t)
	engine, cfg := newEngine(t, root, true)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.DryRun)

	_, err = os.Stat(report.BuildRoot)
	assert.True(t, errors.Is(err, os.ErrNotExist), "build root should not exist after a dry run")
	_, err = os.Stat(cfg.HistoryPath())
	assert.True(t, errors.Is(err, os.ErrNotExist))

	last, err := engine.LastReport()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunReportsMissingNamespace(t *testing.T) {
	root := newWorkspace(t)
	writeFile(t, filepath.Join(root, "maps", "project.yaml"), "plugins: [com.android.library]\n")
	writeFile(t, filepath.Join(root, "maps", "src", "main", "AndroidManifest.xml"), `<manifest package="broken>`)
	engine, _ := newEngine(t, root, true)

	report, err := engine.Run(context.Background())
	require.NoError(t, err)
	missing := report.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, ":maps", missing[0].Path)
	assert.Equal(t, "no-match", missing[0].NamespaceSource)
	assert.Equal(t, 34, missing[0].CompileSdk)
}

func TestRunRejectsCycles(t *testing.T) {
	root := newWorkspace(t)
	writeFile(t, filepath.Join(root, "camera", "project.yaml"),
		"plugins: [com.android.library]\nevaluation_depends_on: [tools]\n")
	engine, _ := newEngine(t, root, true)

	_, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrCycle)
}

func TestRunRequiresPrimaryProject(t *testing.T) {
	root := newWorkspace(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "app")))
	engine, _ := newEngine(t, root, true)

	_, err := engine.Run(context.Background())
	assert.ErrorIs(t, err, graph.ErrUnknownProject)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	root := newWorkspace(t)
	engine, _ := newEngine(t, root, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatchPathsCoverManifests(t *testing.T) {
	root := newWorkspace(t)
	engine, _ := newEngine(t, root, true)

	paths, err := engine.WatchPaths()
	require.NoError(t, err)
	assert.Contains(t, paths, root)
	assert.Contains(t, paths, filepath.Join(root, "camera"))
	assert.Contains(t, paths, filepath.Join(root, "camera", "src", "main"))
}

func TestCleanRemovesSharedBuildRoot(t *testing.T) {
	root := newWorkspace(t)
	engine, _ := newEngine(t, root, false)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, engine.Clean())
	_, err = os.Stat(engine.Layout().Root())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCleanRecordsHistory(t *testing.T) {
	root := newWorkspace(t)
	engine, cfg := newEngine(t, root, false)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, engine.Clean())
	book, err := logbook.New(cfg.HistoryPath())
	require.NoError(t, err)
	lines := book.Tail(1)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "clean "+engine.Layout().Root()))
}

func TestCleanWarnsWhenHistoryFails(t *testing.T) {
	root := newWorkspace(t)
	cfg, err := config.Load(root)
	require.NoError(t, err)
	// A directory where the history file should be makes every append fail.
	require.NoError(t, os.MkdirAll(cfg.HistoryPath(), 0o755))
	book, err := logbook.New(cfg.HistoryPath())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	engine, err := New(Options{Config: cfg, Logger: zap.New(core), Logbook: book})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(engine.Layout().Root(), 0o755))

	require.NoError(t, engine.Clean(), "history failures must not fail the clean")
	_, err = os.Stat(engine.Layout().Root())
	assert.True(t, errors.Is(err, os.ErrNotExist))
	warned := logs.FilterMessage("history not recorded").All()
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0].ContextMap(), "error")
}
