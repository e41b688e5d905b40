package schema

import "time"

// Category separates source-code findings from dependency advisories.
type Category string

const (
	CategoryCode       Category = "code"
	CategoryDependency Category = "dependency"
)

// Finding is a normalized analyzer finding
type Finding struct {
	Source     string   `json:"source"`
	Category   Category `json:"category"`
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	Confidence string   `json:"confidence,omitempty"`
	FilePath   string   `json:"file_path,omitempty"`
	Line       int      `json:"line,omitempty"`
	Message    string   `json:"message"`
	CWE        int      `json:"cwe,omitempty"`

	// Dependency advisories only.
	Package          string `json:"package,omitempty"`
	InstalledVersion string `json:"installed_version,omitempty"`
	AdvisoryID       string `json:"advisory_id,omitempty"`
	CVE              string `json:"cve,omitempty"`
	VulnerableSpec   string `json:"vulnerable_spec,omitempty"`
	FixVersion       string `json:"fix_version,omitempty"`
	Manifest         string `json:"manifest,omitempty"`
}

// IsDependency reports whether f describes a vulnerable package rather than a code location.
func (f Finding) IsDependency() bool {
	return f.Category == CategoryDependency
}

// Identity is the location part of a finding's fingerprint: the file path for
// code findings, the package coordinate for dependency findings.
func (f Finding) Identity() string {
	if f.IsDependency() {
		return "pkg:" + f.Package + "@" + f.InstalledVersion
	}
	return f.FilePath
}

// RunResult groups everything one audit run produced
type RunResult struct {
	RunID        string               `json:"run_id"`
	Root         string               `json:"root"`
	Timestamp    time.Time            `json:"timestamp"`
	Analyzers    []string             `json:"analyzers"`
	Skipped      []string             `json:"skipped,omitempty"`
	Findings     map[string][]Finding `json:"findings"`
	Suppressed   map[string][]Finding `json:"suppressed,omitempty"`
	Reports      []string             `json:"reports,omitempty"`
	SnapshotPath string               `json:"snapshot,omitempty"`
	ExitCode     int                  `json:"exit_code"`
}

// Code returns kept code findings in analyzer order.
func (r RunResult) Code() []Finding {
	return r.byCategory(CategoryCode)
}

// Dependencies returns kept dependency findings in analyzer order.
func (r RunResult) Dependencies() []Finding {
	return r.byCategory(CategoryDependency)
}

// All returns every kept finding in analyzer order.
func (r RunResult) All() []Finding {
	var out []Finding
	for _, name := range r.Analyzers {
		out = append(out, r.Findings[name]...)
	}
	return out
}

// SuppressedCount is the number of findings removed by inline comments or the baseline.
func (r RunResult) SuppressedCount() int {
	n := 0
	for _, fs := range r.Suppressed {
		n += len(fs)
	}
	return n
}

func (r RunResult) byCategory(c Category) []Finding {
	var out []Finding
	for _, f := range r.All() {
		if f.Category == c {
			out = append(out, f)
		}
	}
	return out
}
