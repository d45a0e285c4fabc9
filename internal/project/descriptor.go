package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/droidcfg/internal/repository"
)

// Descriptor file names recognised inside a project directory, in lookup order.
var descriptorNames = []string{"project.yaml", "project.yml", "project.go"}

// Descriptor models project.yaml.
type Descriptor struct {
	Name                string                   `yaml:"name,omitempty"`
	Plugins             []string                 `yaml:"plugins,omitempty"`
	Android             AndroidBlock             `yaml:"android,omitempty"`
	EvaluationDependsOn []string                 `yaml:"evaluation_depends_on,omitempty"`
	Repositories        []repository.Declaration `yaml:"repositories,omitempty"`
}

// AndroidBlock is the android section of a descriptor. A nil Namespace means
// the key was absent; an explicit empty string is kept as declared.
type AndroidBlock struct {
	Namespace     *string `yaml:"namespace,omitempty"`
	CompileSdk    int     `yaml:"compile_sdk,omitempty"`
	BuildTools    string  `yaml:"build_tools,omitempty"`
	ApplicationID string  `yaml:"application_id,omitempty"`
}

// Validate checks the descriptor for values the configuration pass cannot use.
func (d Descriptor) Validate() error {
	if strings.ContainsAny(d.Name, `:/\`) {
		return fmt.Errorf("project: name %q must not contain ':' or path separators", d.Name)
	}
	if strings.HasPrefix(strings.TrimSpace(d.Name), ".") {
		return fmt.Errorf("project: name %q must not start with '.'", d.Name)
	}
	for i, id := range d.Plugins {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("project: plugins[%d] is empty", i)
		}
	}
	if d.Android.CompileSdk < 0 {
		return fmt.Errorf("project: android.compile_sdk must be >= 0")
	}
	for i, repo := range d.Repositories {
		if err := repo.Validate(); err != nil {
			return fmt.Errorf("project: repositories[%d]: %w", i, err)
		}
	}
	return nil
}

// Normalized returns a trimmed copy of the descriptor.
func (d Descriptor) Normalized() Descriptor {
	out := Descriptor{
		Name:    strings.TrimSpace(d.Name),
		Android: d.Android,
	}
	for _, id := range d.Plugins {
		out.Plugins = append(out.Plugins, strings.TrimSpace(id))
	}
	for _, dep := range d.EvaluationDependsOn {
		if trimmed := strings.TrimSpace(dep); trimmed != "" {
			out.EvaluationDependsOn = append(out.EvaluationDependsOn, trimmed)
		}
	}
	for _, repo := range d.Repositories {
		out.Repositories = append(out.Repositories, repo.Normalized())
	}
	out.Android.BuildTools = strings.TrimSpace(out.Android.BuildTools)
	out.Android.ApplicationID = strings.TrimSpace(out.Android.ApplicationID)
	return out
}

// ParseDescriptorYAML decodes and validates a project descriptor payload. An
// empty payload is a project with no plugins.
func ParseDescriptorYAML(data []byte) (Descriptor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Descriptor{}, nil
	}
	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return Descriptor{}, fmt.Errorf("project: decode descriptor: %w", err)
	}
	desc = desc.Normalized()
	if err := desc.Validate(); err != nil {
		return Descriptor{}, err
	}
	return desc, nil
}

// LoadDescriptorFile reads a project.yaml/project.yml or project.go file.
func LoadDescriptorFile(path string) (Descriptor, error) {
	if filepath.Ext(path) == ".go" {
		return loadGoDescriptor(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: read %s: %w", path, err)
	}
	desc, err := ParseDescriptorYAML(data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("project: %s: %w", path, err)
	}
	return desc, nil
}

// FindDescriptor returns the descriptor file inside dir, if any.
func FindDescriptor(dir string) (string, bool) {
	for _, name := range descriptorNames {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// IsDescriptorName reports whether base is a recognised descriptor file name.
func IsDescriptorName(base string) bool {
	for _, name := range descriptorNames {
		if base == name {
			return true
		}
	}
	return false
}
