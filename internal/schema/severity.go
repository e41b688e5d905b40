package schema

import (
	"fmt"
	"strings"
)

// Severity is the closed four-level scale every analyzer output is mapped onto.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists the scale from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities; LOW is 1 and CRITICAL is 4. Unknown values rank as MEDIUM.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityLow:
		return 1
	default:
		return 2
	}
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

func (s Severity) String() string { return string(s) }

// ParseSeverity maps an engine-native severity label onto the scale.
// Unrecognized labels become MEDIUM.
func ParseSeverity(raw string) Severity {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH", "ERROR":
		return SeverityHigh
	case "MEDIUM", "MODERATE", "WARNING", "WARN":
		return SeverityMedium
	case "LOW", "INFO", "NOTE", "NEGLIGIBLE":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// ParseThreshold accepts only the four scale names, case-insensitively.
func ParseThreshold(raw string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return s, nil
	}
	return "", fmt.Errorf("invalid severity %q (want LOW, MEDIUM, HIGH or CRITICAL)", raw)
}
