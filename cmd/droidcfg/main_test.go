package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/droidcfg/internal/configure"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "android")
	writeFile(t, filepath.Join(root, "app", "project.yaml"), "plugins: [com.android.application]\n")
	writeFile(t, filepath.Join(root, "app", "src", "main", "AndroidManifest.xml"), `<manifest package="com.example.app"/>`)
	writeFile(t, filepath.Join(root, "camera", "project.yaml"), "plugins: [com.android.library]\n")
	writeFile(t, filepath.Join(root, "camera", "src", "main", "AndroidManifest.xml"), `<manifest package="com.example.camera"/>`)
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"init", "configure", "projects", "report", "clean", "watch"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("root"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestInitWritesSettings(t *testing.T) {
	root := newWorkspace(t)

	out, err := execute(t, "--root", root, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, filepath.Join(root, "droidcfg.yaml"))
	assert.DirExists(t, filepath.Join(root, ".droidcfg", "logs"))

	out, err = execute(t, "--root", root, "init", "--build-dir", "../../out")
	require.NoError(t, err)
	assert.Contains(t, out, "Using existing")
	assert.Contains(t, out, "build dir ../../out")
}

func TestConfigureJSONAndReport(t *testing.T) {
	root := newWorkspace(t)
	_, err := execute(t, "--root", root, "init")
	require.NoError(t, err)

	out, err := execute(t, "--root", root, "configure", "--json")
	require.NoError(t, err)
	var report configure.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	camera, ok := report.Project(":camera")
	require.True(t, ok)
	assert.Equal(t, "com.example.camera", camera.Namespace)
	assert.Equal(t, 34, camera.CompileSdk)
	assert.FileExists(t, filepath.Join(filepath.Dir(root), "build", ".droidcfg", "resolved.json"))
	assert.FileExists(t, filepath.Join(root, ".droidcfg", "logs", "droidcfg.log"))

	out, err = execute(t, "--root", root, "report", "--json")
	require.NoError(t, err)
	var recorded configure.Report
	require.NoError(t, json.Unmarshal([]byte(out), &recorded))
	assert.Equal(t, report.RunID, recorded.RunID)

	out, err = execute(t, "--root", root, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "com.example.app")
	assert.Contains(t, out, "2 project(s), primary :app")
}

func TestConfigureDryRunWritesNothing(t *testing.T) {
	root := newWorkspace(t)
	out, err := execute(t, "--root", root, "configure", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.NoDirExists(t, filepath.Join(filepath.Dir(root), "build"))
	assert.NoDirExists(t, filepath.Join(root, ".droidcfg"))
}

func TestProjectsListsEvaluationOrder(t *testing.T) {
	root := newWorkspace(t)
	out, err := execute(t, "--root", root, "projects")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], ":app "))
	assert.True(t, strings.HasSuffix(lines[1], "after :app"))
}

func TestCleanRemovesBuildRoot(t *testing.T) {
	root := newWorkspace(t)
	_, err := execute(t, "--root", root, "configure")
	require.NoError(t, err)
	shared := filepath.Join(filepath.Dir(root), "build")
	require.DirExists(t, shared)

	out, err := execute(t, "--root", root, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+shared)
	assert.NoDirExists(t, shared)
}

func TestCleanLeavesUninitializedWorkspaceAlone(t *testing.T) {
	root := newWorkspace(t)
	shared := filepath.Join(filepath.Dir(root), "build")
	require.NoError(t, os.MkdirAll(filepath.Join(shared, "app"), 0o755))

	out, err := execute(t, "--root", root, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+shared)
	assert.NoDirExists(t, shared)
	assert.NoDirExists(t, filepath.Join(root, ".droidcfg"))
}

func TestCleanRecordsHistoryAfterInit(t *testing.T) {
	root := newWorkspace(t)
	_, err := execute(t, "--root", root, "init")
	require.NoError(t, err)

	_, err = execute(t, "--root", root, "clean")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, ".droidcfg", "logs", "history.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "clean "+filepath.Join(filepath.Dir(root), "build"))
}

func TestConfigureFailsWithoutPrimary(t *testing.T) {
	root := newWorkspace(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "app")))
	_, err := execute(t, "--root", root, "configure", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":app")
}

func TestInvalidLogLevel(t *testing.T) {
	root := newWorkspace(t)
	_, err := execute(t, "--root", root, "--log-level", "loud", "projects")
	assert.Error(t, err)
}
