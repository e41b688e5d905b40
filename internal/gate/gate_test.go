package gate

import (
	"testing"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

func findings(sevs ...schema.Severity) []schema.Finding {
	out := make([]schema.Finding, 0, len(sevs))
	for _, s := range sevs {
		out = append(out, schema.Finding{Severity: s})
	}
	return out
}

func TestGate(t *testing.T) {
	cases := []struct {
		name      string
		in        []schema.Finding
		threshold schema.Severity
		want      int
	}{
		{"empty", nil, schema.SeverityLow, 0},
		{"medium below high", findings(schema.SeverityMedium), schema.SeverityHigh, 0},
		{"medium at medium", findings(schema.SeverityMedium), schema.SeverityMedium, 1},
		{"critical counts for high", findings(schema.SeverityLow, schema.SeverityCritical), schema.SeverityHigh, 1},
		{"high below critical", findings(schema.SeverityHigh), schema.SeverityCritical, 0},
		{"low at low", findings(schema.SeverityLow), schema.SeverityLow, 1},
	}
	for _, tc := range cases {
		if got := Gate(tc.in, tc.threshold); got != tc.want {
			t.Errorf("%s: Gate = %d, want %d", tc.name, got, tc.want)
		}
	}
}

// Lowering the threshold can only keep or raise the result.
func TestGate_Monotonic(t *testing.T) {
	in := findings(schema.SeverityMedium)
	prev := 0
	order := []schema.Severity{schema.SeverityCritical, schema.SeverityHigh, schema.SeverityMedium, schema.SeverityLow}
	for _, th := range order {
		got := Gate(in, th)
		if got < prev {
			t.Fatalf("threshold %s lowered the result", th)
		}
		prev = got
	}
}

func TestParseAndGate_CaseInsensitive(t *testing.T) {
	in := findings(schema.SeverityMedium)
	if ParseAndGate(in, "medium") != 1 || ParseAndGate(in, "MEDIUM") != 1 {
		t.Fatal("threshold must be case-insensitive")
	}
	if ParseAndGate(in, "nonsense") != 0 {
		t.Fatal("unknown threshold should fall back to HIGH")
	}
}

// Code passes, dependencies fail: the combined result fails.
func TestCombine(t *testing.T) {
	code := Gate(findings(schema.SeverityLow), schema.SeverityHigh)
	deps := Gate(findings(schema.SeverityHigh), schema.SeverityHigh)
	if Combine(code, deps) != 1 {
		t.Fatal("combined gate must fail when any set fails")
	}
	if Combine() != 0 || Combine(0, 0) != 0 {
		t.Fatal("combine of passes must pass")
	}
}

func TestCounts(t *testing.T) {
	c := Counts(findings(schema.SeverityHigh, schema.SeverityHigh, schema.SeverityLow))
	if c[schema.SeverityHigh] != 2 || c[schema.SeverityLow] != 1 || c[schema.SeverityCritical] != 0 {
		t.Fatalf("counts = %v", c)
	}
}
