// Package graph orders project evaluation. Every project is evaluated after
// the projects it depends on; the workspace's primary project is an implicit
// dependency of every other project.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownProject is returned when an edge references an undeclared project.
	ErrUnknownProject = errors.New("graph: unknown project")
	// ErrCycle is returned when evaluation dependencies loop.
	ErrCycle = errors.New("graph: evaluation dependency cycle")
)

// Dependencies maps a project path to the project paths it must evaluate after.
type Dependencies map[string][]string

// Node is one project in the evaluation graph.
type Node struct {
	Path         string
	Dependencies []string
	Dependents   []string
}

// Graph is an immutable evaluation graph.
type Graph struct {
	nodes map[string]*Node
	paths []string
}

// New builds a graph from declared project paths plus explicit edges. When
// primary is non-empty every other project gains an edge to it.
func New(paths []string, deps Dependencies, primary string) (*Graph, error) {
	nodes := make(map[string]*Node, len(paths))
	ordered := make([]string, 0, len(paths))
	for _, raw := range paths {
		path := NormalizePath(raw)
		if path == "" {
			return nil, fmt.Errorf("graph: empty project path")
		}
		if _, exists := nodes[path]; exists {
			return nil, fmt.Errorf("graph: duplicate project %s", path)
		}
		nodes[path] = &Node{Path: path}
		ordered = append(ordered, path)
	}
	sort.Strings(ordered)

	normalized := make(Dependencies, len(deps))
	for key, list := range deps {
		key = NormalizePath(key)
		if _, ok := nodes[key]; !ok {
			return nil, fmt.Errorf("%w: %s has dependencies but is not declared", ErrUnknownProject, key)
		}
		normalized[key] = append(normalized[key], list...)
	}

	primary = NormalizePath(primary)
	if primary != "" {
		if _, ok := nodes[primary]; !ok {
			return nil, fmt.Errorf("%w: project %s not found", ErrUnknownProject, primary)
		}
	}
	for _, path := range ordered {
		node := nodes[path]
		var edges []string
		if primary != "" && path != primary {
			edges = append(edges, primary)
		}
		for _, dep := range normalized[path] {
			edges = append(edges, NormalizePath(dep))
		}
		node.Dependencies = mergeDependencies(nil, edges)
		for _, depPath := range node.Dependencies {
			dep, ok := nodes[depPath]
			if !ok {
				return nil, fmt.Errorf("%w: %s referenced by %s", ErrUnknownProject, depPath, path)
			}
			if depPath == path {
				return nil, fmt.Errorf("%w: %s depends on itself", ErrCycle, path)
			}
			dep.Dependents = append(dep.Dependents, path)
		}
	}
	for _, node := range nodes {
		if len(node.Dependents) > 1 {
			sort.Strings(node.Dependents)
		}
	}
	return &Graph{nodes: nodes, paths: ordered}, nil
}

// Node returns the node registered for path.
func (g *Graph) Node(path string) (*Node, bool) {
	node, ok := g.nodes[NormalizePath(path)]
	return node, ok
}

// Paths returns every project path in sorted order.
func (g *Graph) Paths() []string {
	return append([]string(nil), g.paths...)
}

// Order returns the evaluation order required by targets. With no targets
// every project is ordered. Dependencies come before dependents; unrelated
// projects keep sorted-path order.
func (g *Graph) Order(targets ...string) ([]string, error) {
	if len(targets) == 0 {
		targets = g.paths
	}
	const (
		_ = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))
	ordered := make([]string, 0, len(g.nodes))
	var stack []string
	var visit func(string) error
	visit = func(path string) error {
		switch state[path] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCycle, describeCycle(stack, path))
		}
		node, ok := g.nodes[path]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProject, path)
		}
		state[path] = visiting
		stack = append(stack, path)
		for _, dep := range node.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[path] = done
		ordered = append(ordered, path)
		return nil
	}
	for _, target := range targets {
		if err := visit(NormalizePath(target)); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// NormalizePath turns "app" or ":app" into ":app".
func NormalizePath(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == ":" {
		return ""
	}
	if !strings.HasPrefix(trimmed, ":") {
		trimmed = ":" + trimmed
	}
	return trimmed
}

func describeCycle(stack []string, repeat string) string {
	start := 0
	for i, path := range stack {
		if path == repeat {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), stack[start:]...), repeat)
	return strings.Join(cycle, " -> ")
}

func mergeDependencies(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(additions))
	var out []string
	for _, list := range [][]string{existing, additions} {
		for _, dep := range list {
			if dep == "" {
				continue
			}
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			out = append(out, dep)
		}
	}
	return out
}
