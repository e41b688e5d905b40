package scanners

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Bandit runs the Python AST security linter.
type Bandit struct {
	Bin string
}

func NewBandit() *Bandit { return &Bandit{Bin: "bandit"} }

func (b *Bandit) Name() string { return "bandit" }
func (b *Bandit) Kind() Kind   { return KindCode }

func (b *Bandit) Available(_ context.Context) error {
	return checkTool(b.Name(), b.Bin, "pip install bandit")
}

// directories bandit never descends into
var banditSkipDirs = []string{".venv", "venv", ".tox", "build", "dist", "__pycache__"}

type banditJSON struct {
	Results []struct {
		Filename        string `json:"filename"`
		LineNumber      int    `json:"line_number"`
		TestID          string `json:"test_id"`
		TestName        string `json:"test_name"`
		IssueSeverity   string `json:"issue_severity"`
		IssueConfidence string `json:"issue_confidence"`
		IssueText       string `json:"issue_text"`
		IssueCWE        struct {
			ID int `json:"id"`
		} `json:"issue_cwe"`
	} `json:"results"`
}

func (b *Bandit) Run(ctx context.Context, t Target) ([]schema.Finding, error) {
	args := []string{"-f", "json", "-q"}
	if t.ChangedOnly {
		paths := t.ChangedPaths(".py")
		if len(paths) == 0 {
			return nil, nil
		}
		args = append(args, paths...)
	} else {
		skip := make([]string, 0, len(banditSkipDirs))
		for _, d := range banditSkipDirs {
			skip = append(skip, "./"+d)
		}
		args = append(args, "-r", ".", "-x", strings.Join(skip, ","))
	}

	res, err := invoke(ctx, b.Name(), t.Root, []int{0, 1}, b.Bin, args...)
	if err != nil {
		return nil, err
	}
	findings, err := parseBandit(res.Stdout, t)
	if err != nil {
		return nil, parseError(b.Name(), err)
	}
	return findings, nil
}

func parseBandit(data []byte, t Target) ([]schema.Finding, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc banditJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var out []schema.Finding
	for _, r := range doc.Results {
		rel := t.Rel(r.Filename)
		if !t.Keep(rel) {
			continue
		}
		out = append(out, schema.Finding{
			Source:     "bandit",
			Category:   schema.CategoryCode,
			RuleID:     r.TestID,
			Severity:   schema.ParseSeverity(r.IssueSeverity),
			Confidence: strings.ToUpper(r.IssueConfidence),
			FilePath:   rel,
			Line:       r.LineNumber,
			Message:    strings.TrimSpace(r.IssueText),
			CWE:        r.IssueCWE.ID,
		})
	}
	return out, nil
}
