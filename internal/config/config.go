// internal/config/config.go
//
// This package handles the workspace settings file (droidcfg.yaml) and the
// .droidcfg state directory. Every workspace configured by droidcfg gets a
// .droidcfg/ folder in its root for logs and run history.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/droidcfg/internal/repository"
)

const (
	// StateDir is the name of the directory we create in each workspace.
	StateDir = ".droidcfg"
	// SettingsFile is the workspace settings file at the workspace root.
	SettingsFile = "droidcfg.yaml"
	// EnvPrefix prefixes environment overrides, e.g. DROIDCFG_PRIMARY.
	EnvPrefix = "DROIDCFG_"

	defaultPrimary    = "app"
	defaultBuildDir   = "../../build"
	defaultCompileSdk = 34
	defaultBuildTools = "34.0.0"
)

const defaultSettingsYAML = `# droidcfg workspace settings
version: 1

# Every other project is evaluated after this one.
primary: app

# Shared build output root, relative to <workspace>/build.
# "../../build" puts outputs in a build/ directory next to the workspace.
build_dir: ../../build

# Repositories declared for every project. Known aliases: google,
# mavenCentral, gradlePluginPortal. Anything else needs a url.
repositories:
  - name: google
  - name: mavenCentral

# Pinned on every com.android.library project.
android:
  compile_sdk: 34
  build_tools: 34.0.0
`

// envKeys maps lower-cased environment suffixes to settings keys.
var envKeys = map[string]string{
	"primary":             "primary",
	"build_dir":           "build_dir",
	"android_compile_sdk": "android.compile_sdk",
	"android_build_tools": "android.build_tools",
}

// AndroidSettings are the values pinned on library projects.
type AndroidSettings struct {
	CompileSdk int    `yaml:"compile_sdk" koanf:"compile_sdk"`
	BuildTools string `yaml:"build_tools" koanf:"build_tools"`
}

// Settings models droidcfg.yaml.
type Settings struct {
	Version      int                      `yaml:"version" koanf:"version"`
	Primary      string                   `yaml:"primary" koanf:"primary"`
	BuildDir     string                   `yaml:"build_dir" koanf:"build_dir"`
	Repositories []repository.Declaration `yaml:"repositories" koanf:"repositories"`
	Android      AndroidSettings          `yaml:"android" koanf:"android"`
}

// Config holds the runtime configuration for one workspace.
type Config struct {
	// Root is the workspace directory droidcfg was pointed at.
	Root string

	// StateDir is Root/.droidcfg
	StateDir string

	Settings Settings
}

// InitWorkspace creates the .droidcfg directory structure and writes the
// default settings file when none exists. It reports whether the settings
// file was created.
//
// Structure created:
// .droidcfg/
// └── logs/     <- droidcfg.log (zap) and history.log (logbook)
func InitWorkspace(root string) (bool, error) {
	dirs := []string{
		filepath.Join(root, StateDir),
		filepath.Join(root, StateDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureSettings(filepath.Join(root, SettingsFile))
}

// Load reads droidcfg.yaml from root (if present), applies DROIDCFG_*
// environment overrides and fills defaults for anything left unset.
func Load(root string) (*Config, error) {
	abs, err := filepath.Abs(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", root, err)
	}
	cfg := &Config{
		Root:     abs,
		StateDir: filepath.Join(abs, StateDir),
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SettingsPath returns the on-disk location of droidcfg.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Root, SettingsFile)
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// LogPath returns the structured log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.LogsDir(), "droidcfg.log")
}

// HistoryPath returns the run history (logbook) location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.LogsDir(), "history.log")
}

// SetPrimary updates the primary project and persists the settings file.
func (c *Config) SetPrimary(name string) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), ":")
	if name == "" {
		return fmt.Errorf("config: primary project is required")
	}
	c.Settings.Primary = name
	return c.save()
}

// SetBuildDir updates the shared build directory and persists the settings file.
func (c *Config) SetBuildDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("config: build dir is required")
	}
	c.Settings.BuildDir = dir
	return c.save()
}

func (c *Config) load() error {
	k := koanf.New(".")
	path := c.SettingsPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(data), koanfyaml.Parser()); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("config: load environment: %w", err)
	}

	var parsed Settings
	if err := k.Unmarshal("", &parsed); err != nil {
		return fmt.Errorf("config: decode settings: %w", err)
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Settings = parsed
	return nil
}

// envKey maps DROIDCFG_ANDROID_COMPILE_SDK to android.compile_sdk. Unknown
// variables map to "" and are skipped.
func envKey(name string) string {
	suffix := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return envKeys[suffix]
}

// DefaultSettings returns the settings used when droidcfg.yaml is absent.
func DefaultSettings() Settings {
	s := Settings{}
	s.applyDefaults()
	s.normalize()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if strings.TrimSpace(s.Primary) == "" {
		s.Primary = defaultPrimary
	}
	if strings.TrimSpace(s.BuildDir) == "" {
		s.BuildDir = defaultBuildDir
	}
	if len(s.Repositories) == 0 {
		s.Repositories = repository.Defaults()
	}
	if s.Android.CompileSdk == 0 {
		s.Android.CompileSdk = defaultCompileSdk
	}
	if strings.TrimSpace(s.Android.BuildTools) == "" {
		s.Android.BuildTools = defaultBuildTools
	}
}

func (s *Settings) normalize() {
	s.Primary = strings.TrimPrefix(strings.TrimSpace(s.Primary), ":")
	s.BuildDir = strings.TrimSpace(s.BuildDir)
	s.Android.BuildTools = strings.TrimSpace(s.Android.BuildTools)
	for i := range s.Repositories {
		s.Repositories[i] = s.Repositories[i].Normalized()
	}
}

func (s *Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("settings version must be >= 1")
	}
	if s.Primary == "" {
		return fmt.Errorf("primary is required")
	}
	if strings.Contains(s.Primary, ":") {
		return fmt.Errorf("primary %q must be a single project name", s.Primary)
	}
	if s.Android.CompileSdk < 1 {
		return fmt.Errorf("android.compile_sdk must be >= 1")
	}
	for i, repo := range s.Repositories {
		if err := repo.Validate(); err != nil {
			return fmt.Errorf("repositories[%d]: %w", i, err)
		}
	}
	return nil
}

func ensureSettings(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(defaultSettingsYAML), 0o644); err != nil {
		return false, fmt.Errorf("config: write %s: %w", path, err)
	}
	return true, nil
}

func (c *Config) save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Settings.applyDefaults()
	c.Settings.normalize()
	if err := c.Settings.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("config: encode settings: %w", err)
	}
	if err := os.WriteFile(c.SettingsPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write settings: %w", err)
	}
	return nil
}
