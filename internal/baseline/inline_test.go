package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

const sample = `import subprocess
password = "hunter2"  # yoro: ignore=B105 reason=test fixture
# yoro: ignore-line
assert user.is_admin
subprocess.call(cmd, shell=True)
# yoro: ignore=B101,B102
exec(code)
`

func writeSample(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "app.py")
	if err := os.WriteFile(p, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, p
}

func TestCheckInline(t *testing.T) {
	_, p := writeSample(t)
	cases := []struct {
		line   int
		rule   string
		want   bool
		reason string
	}{
		{2, "B105", true, "test fixture"},
		{2, "B106", false, ""},
		{4, "B101", true, InlineReason},
		{5, "B602", false, ""},
		{7, "B102", true, InlineReason},
		{7, "B10", false, ""},
		{0, "B101", false, ""},
		{99, "B101", false, ""},
	}
	for _, tc := range cases {
		reason, ok := CheckInline(p, tc.line, tc.rule)
		if ok != tc.want || reason != tc.reason {
			t.Errorf("line %d rule %s: got (%q, %v), want (%q, %v)", tc.line, tc.rule, reason, ok, tc.reason, tc.want)
		}
	}
	if _, ok := CheckInline(filepath.Join(t.TempDir(), "missing.py"), 1, "B101"); ok {
		t.Fatal("missing file must not suppress")
	}
}

func TestInlineChecker_Filter(t *testing.T) {
	dir, _ := writeSample(t)
	c := NewInlineChecker(dir)
	findings := []schema.Finding{
		{Category: schema.CategoryCode, FilePath: "app.py", Line: 4, RuleID: "B101"},
		{Category: schema.CategoryCode, FilePath: "app.py", Line: 5, RuleID: "B602"},
		{Category: schema.CategoryDependency, FilePath: "app.py", Line: 4, RuleID: "B101"},
	}
	kept, suppressed := c.Filter(findings)
	if len(suppressed) != 1 || suppressed[0].Line != 4 || suppressed[0].IsDependency() {
		t.Fatalf("suppressed = %+v", suppressed)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %+v", kept)
	}
}

func TestMatchDirective_IDList(t *testing.T) {
	cases := []struct {
		text   string
		rule   string
		ok     bool
		reason string
	}{
		{"x = 1  # yoro: ignore=B101, B102 reason=ok", "B102", true, "ok"},
		{"x = 1  # yoro: ignore=B101 ,B102", "B102", true, InlineReason},
		{"x = 1  # yoro: ignore=B101,B102 reason=legacy code", "B101", true, "legacy code"},
		{"x = 1  # yoro: ignore=B101, B102", "B1", false, ""},
		{"x = 1  # yoro: ignore=B101 reason=B102", "B102", false, ""},
	}
	for _, tc := range cases {
		reason, ok := matchDirective(tc.text, tc.rule)
		if ok != tc.ok || reason != tc.reason {
			t.Errorf("matchDirective(%q, %q) = (%q, %v), want (%q, %v)", tc.text, tc.rule, reason, ok, tc.reason, tc.ok)
		}
	}
}
