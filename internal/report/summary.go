package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// WriteSummary prints a per-analyzer severity table for the terminal.
func WriteSummary(w io.Writer, res schema.RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANALYZER\tCRITICAL\tHIGH\tMEDIUM\tLOW\tSUPPRESSED")
	totals := map[schema.Severity]int{}
	suppressed := 0
	for _, name := range res.Analyzers {
		counts := map[schema.Severity]int{}
		for _, f := range res.Findings[name] {
			sev := schema.ParseSeverity(string(f.Severity))
			counts[sev]++
			totals[sev]++
		}
		s := len(res.Suppressed[name])
		suppressed += s
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", name,
			counts[schema.SeverityCritical], counts[schema.SeverityHigh], counts[schema.SeverityMedium], counts[schema.SeverityLow], s)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\t%d\n",
		totals[schema.SeverityCritical], totals[schema.SeverityHigh], totals[schema.SeverityMedium], totals[schema.SeverityLow], suppressed)
	for _, name := range res.Skipped {
		fmt.Fprintf(tw, "%s\t-\t-\t-\t-\tskipped (unavailable)\n", name)
	}
	return tw.Flush()
}
