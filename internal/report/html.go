package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

//go:embed templates/report.html.tmpl
var reportHTMLTemplate string

var reportTmpl = template.Must(template.New("report").Parse(reportHTMLTemplate))

// RenderHTML renders the HTML report. All finding text is escaped by html/template.
func RenderHTML(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, buildViewModel(in)); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func WriteHTML(in Input, path string) error {
	data, err := RenderHTML(in)
	if err != nil {
		return err
	}
	return utils.WriteFile(path, data)
}

// ---------- View Model & helpers ----------

type viewModel struct {
	Root          string
	TotalFindings int
	Counts        []severityCount
	Score         int
	Grade         string
	Groups        []severityGroup
	Generator     string
	GeneratedAt   string
	Year          int
}

type severityCount struct {
	Severity string
	Class    string
	Count    int
}

type severityGroup struct {
	Severity     string
	Class        string
	Code         []codeRow
	Dependencies []dependencyRow
}

type codeRow struct {
	RuleID     string
	Source     string
	Location   string
	Message    string
	Confidence string
	CWE        string
}

type dependencyRow struct {
	RuleID    string
	Source    string
	Package   string
	Installed string
	Affected  string
	Fix       string
	CVE       string
	Message   string
}

func buildViewModel(in Input) viewModel {
	now := in.generatedAt()
	sevWeight := map[schema.Severity]int{
		schema.SeverityCritical: 4, schema.SeverityHigh: 3, schema.SeverityMedium: 2, schema.SeverityLow: 1,
	}

	groups := map[schema.Severity]*severityGroup{}
	for _, s := range schema.Severities {
		groups[s] = &severityGroup{Severity: string(s), Class: strings.ToLower(string(s))}
	}

	for _, f := range in.Code {
		g := groups[schema.ParseSeverity(string(f.Severity))]
		g.Code = append(g.Code, codeRow{
			RuleID:     emptyFallback(f.RuleID, "N/A"),
			Source:     f.Source,
			Location:   location(f),
			Message:    trimTo(f.Message, 500),
			Confidence: emptyFallback(f.Confidence, "-"),
			CWE:        cweLabel(f.CWE),
		})
	}
	for _, f := range in.Dependencies {
		g := groups[schema.ParseSeverity(string(f.Severity))]
		g.Dependencies = append(g.Dependencies, dependencyRow{
			RuleID:    emptyFallback(f.RuleID, "N/A"),
			Source:    f.Source,
			Package:   f.Package,
			Installed: emptyFallback(f.InstalledVersion, "-"),
			Affected:  emptyFallback(f.VulnerableSpec, "-"),
			Fix:       emptyFallback(f.FixVersion, "-"),
			CVE:       emptyFallback(f.CVE, "-"),
			Message:   trimTo(f.Message, 500),
		})
	}

	var (
		counts   []severityCount
		ordered  []severityGroup
		total    int
		weighted int
	)
	for _, s := range schema.Severities {
		g := groups[s]
		sortRows(g)
		n := len(g.Code) + len(g.Dependencies)
		counts = append(counts, severityCount{Severity: string(s), Class: g.Class, Count: n})
		total += n
		weighted += sevWeight[s] * n
		if n > 0 {
			ordered = append(ordered, *g)
		}
	}

	score := 100
	if total > 0 {
		// more high/critical lowers the score
		penalty := min(100, (weighted*100)/(total*4))
		score = 100 - penalty
	}

	return viewModel{
		Root:          in.Root,
		TotalFindings: total,
		Counts:        counts,
		Score:         score,
		Grade:         scoreToGrade(score),
		Groups:        ordered,
		Generator:     in.tool(),
		GeneratedAt:   now.Format(time.RFC3339),
		Year:          now.Year(),
	}
}

func sortRows(g *severityGroup) {
	sort.SliceStable(g.Code, func(i, j int) bool {
		if g.Code[i].Location != g.Code[j].Location {
			return g.Code[i].Location < g.Code[j].Location
		}
		return g.Code[i].RuleID < g.Code[j].RuleID
	})
	sort.SliceStable(g.Dependencies, func(i, j int) bool {
		if g.Dependencies[i].Package != g.Dependencies[j].Package {
			return g.Dependencies[i].Package < g.Dependencies[j].Package
		}
		return g.Dependencies[i].RuleID < g.Dependencies[j].RuleID
	})
}

func location(f schema.Finding) string {
	p := emptyFallback(f.FilePath, "unknown")
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", p, f.Line)
	}
	return p
}

func cweLabel(cwe int) string {
	if cwe <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("CWE-%d", cwe)
}

func scoreToGrade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func trimTo(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func emptyFallback(s, fb string) string {
	if strings.TrimSpace(s) == "" {
		return fb
	}
	return s
}
