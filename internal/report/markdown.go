package report

import (
	"fmt"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

// RenderMarkdown renders one section per finding, code first.
func RenderMarkdown(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Security report\n\nFindings: %d\n\n", in.Total())
	for _, f := range in.Code {
		fmt.Fprintf(&b, "## %s - %s\n", emptyFallback(f.RuleID, "UNKNOWN"), f.Severity)
		fmt.Fprintf(&b, "- File: `%s:%d`\n", emptyFallback(f.FilePath, "unknown"), f.Line)
		fmt.Fprintf(&b, "- Message: %s\n", oneLine(f.Message))
		fmt.Fprintf(&b, "- Confidence: %s\n", emptyFallback(f.Confidence, "UNKNOWN"))
		fmt.Fprintf(&b, "- CWE: %s\n", cweLabel(f.CWE))
		fmt.Fprintf(&b, "- Analyzer: %s\n\n", f.Source)
	}
	if len(in.Dependencies) > 0 {
		b.WriteString("# Dependencies\n\n")
	}
	for _, f := range in.Dependencies {
		fmt.Fprintf(&b, "## %s - %s\n", emptyFallback(f.RuleID, "UNKNOWN"), f.Severity)
		fmt.Fprintf(&b, "- Package: `%s` %s\n", f.Package, emptyFallback(f.InstalledVersion, "unknown"))
		fmt.Fprintf(&b, "- Affected: %s\n", emptyFallback(f.VulnerableSpec, "N/A"))
		fmt.Fprintf(&b, "- Fix: %s\n", emptyFallback(f.FixVersion, "N/A"))
		fmt.Fprintf(&b, "- CVE: %s\n", emptyFallback(f.CVE, "N/A"))
		fmt.Fprintf(&b, "- Message: %s\n", oneLine(f.Message))
		fmt.Fprintf(&b, "- Analyzer: %s\n\n", f.Source)
	}
	return b.String()
}

func WriteMarkdown(in Input, path string) error {
	return utils.WriteFile(path, []byte(RenderMarkdown(in)))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SeverityLine is the one-line count summary, e.g. "0 CRITICAL, 2 HIGH, 1 MEDIUM, 0 LOW".
func SeverityLine(findings []schema.Finding) string {
	counts := map[schema.Severity]int{}
	for _, f := range findings {
		counts[schema.ParseSeverity(string(f.Severity))]++
	}
	parts := make([]string, 0, len(schema.Severities))
	for _, s := range schema.Severities {
		parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
	}
	return strings.Join(parts, ", ")
}
