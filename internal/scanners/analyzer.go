// Package scanners adapts external security tools to the normalized finding model.
package scanners

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Kind tells whether an analyzer inspects source code or dependency manifests.
type Kind string

const (
	KindCode       Kind = "code"
	KindDependency Kind = "dependency"
)

// Category maps a Kind onto the finding category it produces.
func (k Kind) Category() schema.Category {
	if k == KindDependency {
		return schema.CategoryDependency
	}
	return schema.CategoryCode
}

// Analyzer is one external tool.
type Analyzer interface {
	Name() string
	Kind() Kind
	// Available returns a *schema.AnalyzerUnavailableError when the tool cannot run.
	Available(ctx context.Context) error
	// Run scans target. An empty or clean target yields no findings and no error.
	Run(ctx context.Context, target Target) ([]schema.Finding, error)
}

// Target describes what to scan.
type Target struct {
	Root         string
	Exclude      Matcher
	ChangedOnly  bool
	Files        []string // root-relative, slash separated; consulted only with ChangedOnly
	ManifestHint string
}

// Keep reports whether a code finding at rel survives exclusion and the
// changed-file restriction.
func (t Target) Keep(rel string) bool {
	if rel != "" && t.Exclude.Match(rel) {
		return false
	}
	if !t.ChangedOnly {
		return true
	}
	for _, f := range t.Files {
		if f == rel {
			return true
		}
	}
	return false
}

// ChangedPaths returns the changed files with one of exts that are not
// excluded, as absolute paths.
func (t Target) ChangedPaths(exts ...string) []string {
	var out []string
	for _, f := range t.Files {
		if t.Exclude.Match(f) {
			continue
		}
		if len(exts) > 0 && !hasExt(f, exts) {
			continue
		}
		out = append(out, filepath.Join(t.Root, filepath.FromSlash(f)))
	}
	return out
}

// Rel normalizes a tool-reported path to be root-relative with forward slashes.
func (t Target) Rel(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		if r, err := filepath.Rel(t.Root, p); err == nil && !strings.HasPrefix(r, "..") {
			p = r
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}

func hasExt(p string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Registry lists every known analyzer in run order.
func Registry() []Analyzer {
	return []Analyzer{
		NewBandit(),
		NewSemgrep(),
		NewGitleaks(),
		NewSafety(),
		NewTrivy(),
	}
}

// Enabled filters the registry by the name->enabled toggles, keeping order.
func Enabled(toggles map[string]bool) []Analyzer {
	var out []Analyzer
	for _, a := range Registry() {
		if toggles[a.Name()] {
			out = append(out, a)
		}
	}
	return out
}

// ByName looks up a registered analyzer.
func ByName(name string) (Analyzer, bool) {
	for _, a := range Registry() {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}
