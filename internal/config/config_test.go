package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSettings(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, SettingsFile), []byte(strings.TrimSpace(content)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	root := t.TempDir()
	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	s := c.Settings
	if s.Version != 1 || s.Primary != "app" || s.BuildDir != "../../build" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.Android.CompileSdk != 34 || s.Android.BuildTools != "34.0.0" {
		t.Fatalf("unexpected android defaults: %+v", s.Android)
	}
	if len(s.Repositories) != 2 || s.Repositories[0].Name != "google" || s.Repositories[1].Name != "mavenCentral" {
		t.Fatalf("unexpected default repositories: %+v", s.Repositories)
	}
	if c.StateDir != filepath.Join(root, StateDir) {
		t.Fatalf("unexpected state dir %s", c.StateDir)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
version: 1
primary: ":runner"
build_dir: out
repositories:
  - name: google
  - name: jitpack
    url: https://jitpack.io
android:
  compile_sdk: 35
  build_tools: 35.0.1
`)
	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	s := c.Settings
	if s.Primary != "runner" {
		t.Fatalf("expected primary without colon, got %q", s.Primary)
	}
	if s.BuildDir != "out" {
		t.Fatalf("unexpected build dir %q", s.BuildDir)
	}
	if len(s.Repositories) != 2 || s.Repositories[1].URL != "https://jitpack.io/" {
		t.Fatalf("unexpected repositories %+v", s.Repositories)
	}
	if s.Android.CompileSdk != 35 || s.Android.BuildTools != "35.0.1" {
		t.Fatalf("unexpected android settings %+v", s.Android)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
version: 1
primary: app
android:
  compile_sdk: 33
`)
	t.Setenv("DROIDCFG_PRIMARY", "runner")
	t.Setenv("DROIDCFG_ANDROID_COMPILE_SDK", "35")
	t.Setenv("DROIDCFG_ANDROID_BUILD_TOOLS", "35.0.0")
	t.Setenv("DROIDCFG_UNKNOWN_KEY", "ignored")

	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Settings.Primary != "runner" {
		t.Fatalf("env override for primary ignored: %q", c.Settings.Primary)
	}
	if c.Settings.Android.CompileSdk != 35 || c.Settings.Android.BuildTools != "35.0.0" {
		t.Fatalf("env override for android ignored: %+v", c.Settings.Android)
	}
}

func TestLoadValidation(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
version: 1
repositories:
  - name: private-without-url
`)
	if _, err := Load(root); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestLoadRejectsNestedPrimary(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "primary: plugins:camera\n")
	if _, err := Load(root); err == nil {
		t.Fatalf("expected validation error for nested primary path")
	}
}

func TestInitWorkspaceWritesTemplateOnce(t *testing.T) {
	root := t.TempDir()
	created, err := InitWorkspace(root)
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	if !created {
		t.Fatalf("expected settings to be created")
	}
	if _, err := os.Stat(filepath.Join(root, StateDir, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	c, err := Load(root)
	if err != nil {
		t.Fatalf("template must load cleanly: %v", err)
	}
	if c.Settings.Primary != DefaultSettings().Primary {
		t.Fatalf("template primary %q differs from defaults", c.Settings.Primary)
	}
	created, err = InitWorkspace(root)
	if err != nil || created {
		t.Fatalf("second init should keep the file, created=%v err=%v", created, err)
	}
}

func TestSetPrimaryPersists(t *testing.T) {
	root := t.TempDir()
	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.SetPrimary(":runner"); err != nil {
		t.Fatalf("SetPrimary: %v", err)
	}
	if err := c.SetBuildDir("out"); err != nil {
		t.Fatalf("SetBuildDir: %v", err)
	}
	reloaded, err := Load(root)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Settings.Primary != "runner" || reloaded.Settings.BuildDir != "out" {
		t.Fatalf("settings not persisted: %+v", reloaded.Settings)
	}
	if err := c.SetPrimary("  "); err == nil {
		t.Fatalf("expected error for empty primary")
	}
}
