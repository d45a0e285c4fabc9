package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverOptions tunes the directory walk.
type DiscoverOptions struct {
	// Skip reports directories that must not be descended into, in addition
	// to hidden directories and conventional build directories.
	Skip func(path string) bool
}

// Discover walks root and loads every subproject that carries a descriptor.
// The root directory itself is the workspace, never a subproject. Projects
// are returned sorted by path; duplicate names are an error.
func Discover(root string, opts DiscoverOptions) ([]*Project, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, fmt.Errorf("project: workspace root is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("project: resolve %s: %w", trimmed, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project: stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project: %s is not a directory", abs)
	}

	var projects []*Project
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) && path != abs {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == abs {
			return nil
		}
		if skipDir(d.Name()) || (opts.Skip != nil && opts.Skip(path)) {
			return fs.SkipDir
		}
		descriptor, ok := FindDescriptor(path)
		if !ok {
			return nil
		}
		desc, err := LoadDescriptorFile(descriptor)
		if err != nil {
			return err
		}
		p, err := New(path, desc)
		if err != nil {
			return err
		}
		p.Descriptor = descriptor
		projects = append(projects, p)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Path() < projects[j].Path() })
	seen := make(map[string]string, len(projects))
	for _, p := range projects {
		if existing, ok := seen[p.Path()]; ok {
			return nil, fmt.Errorf("project: duplicate project %s (%s and %s)", p.Path(), existing, p.Dir)
		}
		seen[p.Path()] = p.Dir
	}
	return projects, nil
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "build", "src", "node_modules":
		return true
	}
	return false
}
