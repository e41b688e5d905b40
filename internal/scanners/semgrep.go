package scanners

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Semgrep runs semgrep with a rule config (registry "auto" by default).
type Semgrep struct {
	Bin    string
	Config string
}

func NewSemgrep() *Semgrep { return &Semgrep{Bin: "semgrep", Config: "auto"} }

func (s *Semgrep) Name() string { return "semgrep" }
func (s *Semgrep) Kind() Kind   { return KindCode }

func (s *Semgrep) Available(_ context.Context) error {
	return checkTool(s.Name(), s.Bin, "pip install semgrep (or brew install semgrep)")
}

type semgrepJSON struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"` // INFO|WARNING|ERROR
			Metadata struct {
				CWE        interface{} `json:"cwe"` // string | []string | null
				Confidence string      `json:"confidence"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
}

func (s *Semgrep) Run(ctx context.Context, t Target) ([]schema.Finding, error) {
	args := []string{"scan", "--config", s.Config, "--json", "--quiet", "--metrics", "off"}
	if t.ChangedOnly {
		paths := t.ChangedPaths()
		if len(paths) == 0 {
			return nil, nil
		}
		args = append(args, paths...)
	} else {
		args = append(args, ".")
	}

	res, err := invoke(ctx, s.Name(), t.Root, []int{0, 1}, s.Bin, args...)
	if err != nil {
		return nil, err
	}
	findings, err := parseSemgrep(res.Stdout, t)
	if err != nil {
		return nil, parseError(s.Name(), err)
	}
	return findings, nil
}

func parseSemgrep(data []byte, t Target) ([]schema.Finding, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc semgrepJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out := make([]schema.Finding, 0, len(doc.Results))
	for _, r := range doc.Results {
		rel := t.Rel(r.Path)
		if !t.Keep(rel) {
			continue
		}
		out = append(out, schema.Finding{
			Source:     "semgrep",
			Category:   schema.CategoryCode,
			RuleID:     r.CheckID,
			Severity:   schema.ParseSeverity(r.Extra.Severity),
			Confidence: strings.ToUpper(r.Extra.Metadata.Confidence),
			FilePath:   rel,
			Line:       r.Start.Line,
			Message:    strings.TrimSpace(r.Extra.Message),
			CWE:        firstCWE(r.Extra.Metadata.CWE),
		})
	}
	return out, nil
}

var cweRE = regexp.MustCompile(`CWE-(\d+)`)

// firstCWE extracts the numeric id from "CWE-79: ..." style metadata.
func firstCWE(v interface{}) int {
	var candidates []string
	switch t := v.(type) {
	case string:
		candidates = []string{t}
	case []interface{}:
		for _, e := range t {
			if s, ok := e.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}
	for _, c := range candidates {
		if m := cweRE.FindStringSubmatch(c); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
