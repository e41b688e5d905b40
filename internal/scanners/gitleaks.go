package scanners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Gitleaks scans the working tree for hardcoded secrets.
type Gitleaks struct {
	Bin string
}

func NewGitleaks() *Gitleaks { return &Gitleaks{Bin: "gitleaks"} }

func (g *Gitleaks) Name() string { return "gitleaks" }
func (g *Gitleaks) Kind() Kind   { return KindCode }

func (g *Gitleaks) Available(_ context.Context) error {
	return checkTool(g.Name(), g.Bin, "brew install gitleaks (or download a release binary)")
}

type gitleaksFinding struct {
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	RuleID      string `json:"RuleID"`
}

const leaksExitCode = 2

// errEmptyReport means gitleaks exited without writing its report. A clean
// scan still writes "[]".
var errEmptyReport = errors.New("gitleaks wrote an empty report")

func (g *Gitleaks) Run(ctx context.Context, t Target) ([]schema.Finding, error) {
	if t.ChangedOnly && len(t.ChangedPaths()) == 0 {
		return nil, nil
	}

	reportFile, err := os.CreateTemp("", "gitleaks-report-*.json")
	if err != nil {
		return nil, &schema.AnalyzerExecutionError{Analyzer: g.Name(), Err: fmt.Errorf("create temp report: %w", err)}
	}
	reportPath := reportFile.Name()
	reportFile.Close()
	defer os.Remove(reportPath)

	// gitleaks exits 1 on its own failures, so leaks get exit 2
	_, err = invoke(ctx, g.Name(), t.Root, []int{0, leaksExitCode}, g.Bin,
		"detect", "--no-git", "--no-banner", "--source", t.Root,
		"--report-format", "json", "--report-path", reportPath, "--exit-code", fmt.Sprint(leaksExitCode))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, &schema.AnalyzerExecutionError{Analyzer: g.Name(), Err: fmt.Errorf("read report: %w", err)}
	}
	findings, err := parseGitleaks(data, t)
	if err != nil {
		return nil, parseError(g.Name(), err)
	}
	return findings, nil
}

// parseGitleaks never copies the matched secret into the finding.
func parseGitleaks(data []byte, t Target) ([]schema.Finding, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyReport
	}
	var leaks []gitleaksFinding
	if err := json.Unmarshal(data, &leaks); err != nil {
		return nil, err
	}
	var out []schema.Finding
	for _, l := range leaks {
		rel := t.Rel(l.File)
		if !t.Keep(rel) {
			continue
		}
		msg := strings.TrimSpace(l.Description)
		if msg == "" {
			msg = "Hardcoded secret"
		}
		out = append(out, schema.Finding{
			Source:     "gitleaks",
			Category:   schema.CategoryCode,
			RuleID:     l.RuleID,
			Severity:   schema.SeverityHigh,
			Confidence: "HIGH",
			FilePath:   rel,
			Line:       l.StartLine,
			Message:    msg + " (secret redacted)",
			CWE:        798,
		})
	}
	return out, nil
}
