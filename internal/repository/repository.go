// Package repository models the package repositories declared for every
// project in a workspace.
package repository

import (
	"fmt"
	"strings"
)

// Well-known repository aliases.
const (
	Google             = "google"
	MavenCentral       = "mavenCentral"
	GradlePluginPortal = "gradlePluginPortal"
)

var knownURLs = map[string]string{
	strings.ToLower(Google):             "https://dl.google.com/dl/android/maven2/",
	strings.ToLower(MavenCentral):       "https://repo.maven.apache.org/maven2/",
	strings.ToLower(GradlePluginPortal): "https://plugins.gradle.org/m2/",
}

// Declaration is one repository entry from droidcfg.yaml or a project descriptor.
type Declaration struct {
	Name string `yaml:"name" koanf:"name" json:"name"`
	URL  string `yaml:"url,omitempty" koanf:"url" json:"url,omitempty"`
}

// Defaults returns the repositories every workspace gets when none are configured.
func Defaults() []Declaration {
	return []Declaration{{Name: Google}, {Name: MavenCentral}}
}

// Normalized trims the declaration and fills the URL of known aliases.
func (d Declaration) Normalized() Declaration {
	out := Declaration{
		Name: strings.TrimSpace(d.Name),
		URL:  strings.TrimSpace(d.URL),
	}
	if out.URL == "" {
		out.URL = knownURLs[strings.ToLower(out.Name)]
	}
	if out.URL != "" && !strings.HasSuffix(out.URL, "/") {
		out.URL += "/"
	}
	return out
}

// Validate reports whether the declaration can be resolved to a URL.
func (d Declaration) Validate() error {
	n := d.Normalized()
	if n.Name == "" && n.URL == "" {
		return fmt.Errorf("repository: name or url is required")
	}
	if n.URL == "" {
		return fmt.Errorf("repository: %s is not a known alias and has no url", n.Name)
	}
	if !strings.HasPrefix(n.URL, "https://") && !strings.HasPrefix(n.URL, "http://") && !strings.HasPrefix(n.URL, "file://") {
		return fmt.Errorf("repository: %s url %q must be http(s) or file", n.Name, n.URL)
	}
	return nil
}

// Merge concatenates repository lists in order, dropping entries whose URL was
// already seen. Invalid entries are skipped; callers validate beforehand.
func Merge(lists ...[]Declaration) []Declaration {
	seen := make(map[string]struct{})
	var out []Declaration
	for _, list := range lists {
		for _, decl := range list {
			n := decl.Normalized()
			if n.URL == "" {
				continue
			}
			if _, ok := seen[n.URL]; ok {
				continue
			}
			seen[n.URL] = struct{}{}
			if n.Name == "" {
				n.Name = n.URL
			}
			out = append(out, n)
		}
	}
	return out
}

// URLs returns the URLs of the provided declarations.
func URLs(decls []Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.Normalized().URL)
	}
	return out
}
