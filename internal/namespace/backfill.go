// Package namespace backfills the namespace of legacy Android projects that do
// not declare one, using the package attribute of their source manifest.
//
// The manifest is never parsed as XML. A literal package="..." match is the
// whole contract, so malformed manifests simply fail to match.
package namespace

import (
	"os"
	"regexp"
)

// ManifestPath is the manifest location relative to a project root.
const ManifestPath = "src/main/AndroidManifest.xml"

var packagePattern = regexp.MustCompile(`package="([^"]+)"`)

// Target is the project surface the backfiller needs.
type Target interface {
	// Namespace returns the current namespace and whether one is set. A set
	// but empty namespace still counts as set.
	Namespace() (string, bool)
	SetNamespace(value string)
	// File resolves a path relative to the project root.
	File(rel string) string
}

// Outcome records what Backfill did for a target.
type Outcome string

const (
	OutcomeDeclared   Outcome = "declared"
	OutcomeManifest   Outcome = "manifest"
	OutcomeNoManifest Outcome = "no-manifest"
	OutcomeNoMatch    Outcome = "no-match"
)

// Backfill sets the target's namespace from its manifest when none is set.
// Missing manifests and missing matches leave the namespace untouched.
func Backfill(t Target) Outcome {
	if t == nil {
		return OutcomeNoManifest
	}
	if _, ok := t.Namespace(); ok {
		return OutcomeDeclared
	}
	data, err := os.ReadFile(t.File(ManifestPath))
	if err != nil {
		return OutcomeNoManifest
	}
	value, ok := ExtractPackage(data)
	if !ok {
		return OutcomeNoMatch
	}
	t.SetNamespace(value)
	return OutcomeManifest
}

// ExtractPackage returns the first package="..." value in content.
func ExtractPackage(content []byte) (string, bool) {
	match := packagePattern.FindSubmatch(content)
	if match == nil {
		return "", false
	}
	return string(match[1]), true
}
