// Package layout computes where project build outputs go. All projects share
// one root outside the workspace tree, keyed by project name.
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ConventionalDir is the build directory a project would use without
// redirection, relative to its own root.
const ConventionalDir = "build"

// Layout is computed once per workspace and handed to every project setup.
type Layout struct {
	workspace string
	root      string
}

// New resolves the shared build root. buildDir is interpreted relative to the
// workspace's conventional build directory, so "../../build" lands one level
// above the workspace. Absolute values are used as-is.
func New(workspace, buildDir string) (Layout, error) {
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return Layout{}, fmt.Errorf("layout: workspace root is required")
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return Layout{}, fmt.Errorf("layout: resolve %s: %w", workspace, err)
	}
	buildDir = strings.TrimSpace(buildDir)
	var root string
	switch {
	case buildDir == "":
		root = filepath.Join(abs, ConventionalDir)
	case filepath.IsAbs(buildDir):
		root = filepath.Clean(buildDir)
	default:
		root = filepath.Join(abs, ConventionalDir, buildDir)
	}
	return Layout{workspace: abs, root: root}, nil
}

// Root returns the shared build root.
func (l Layout) Root() string {
	return l.root
}

// Workspace returns the absolute workspace root the layout was built for.
func (l Layout) Workspace() string {
	return l.workspace
}

// ProjectDir returns the build directory for the named project.
func (l Layout) ProjectDir(name string) string {
	return filepath.Join(l.root, name)
}

// Contains reports whether path sits at or below the shared build root.
func (l Layout) Contains(path string) bool {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Clean recursively deletes the shared build root. A missing root is not an
// error. Roots that would take the workspace with them are refused.
func (l Layout) Clean() error {
	if l.root == "" {
		return fmt.Errorf("layout: build root is not set")
	}
	if l.root == filepath.Dir(l.root) {
		return fmt.Errorf("layout: refusing to delete filesystem root %s", l.root)
	}
	if rel, err := filepath.Rel(l.root, l.workspace); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("layout: refusing to delete %s, it contains the workspace", l.root)
	}
	if _, err := os.Lstat(l.root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("layout: stat %s: %w", l.root, err)
	}
	if err := os.RemoveAll(l.root); err != nil {
		return fmt.Errorf("layout: remove %s: %w", l.root, err)
	}
	return nil
}
