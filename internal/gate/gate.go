// Package gate turns findings into a pass/fail process exit code.
package gate

import (
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Gate returns 1 when any finding is at or above threshold, otherwise 0.
func Gate(findings []schema.Finding, threshold schema.Severity) int {
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			return schema.ExitFindings
		}
	}
	return schema.ExitOK
}

// ParseAndGate gates on a threshold string; unknown thresholds fall back to HIGH.
func ParseAndGate(findings []schema.Finding, threshold string) int {
	sev, err := schema.ParseThreshold(threshold)
	if err != nil {
		sev = schema.SeverityHigh
	}
	return Gate(findings, sev)
}

// Combine ORs per-set gate results: the run fails if any set failed.
func Combine(codes ...int) int {
	out := schema.ExitOK
	for _, c := range codes {
		if c > out {
			out = c
		}
	}
	return out
}

// Counts tallies findings per severity, with every level present.
func Counts(findings []schema.Finding) map[schema.Severity]int {
	out := make(map[schema.Severity]int, len(schema.Severities))
	for _, s := range schema.Severities {
		out[s] = 0
	}
	for _, f := range findings {
		out[schema.ParseSeverity(string(f.Severity))]++
	}
	return out
}
