package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestResolve_DefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _, err := Resolve(dir, "", Layer{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Analysis.FailOn != schema.SeverityHigh || !cfg.Analysis.RespectBaseline {
		t.Fatalf("unexpected defaults: %+v", cfg.Analysis)
	}
	if cfg.Output.Format != FormatSARIF || cfg.Analysis.Timeout != 10*time.Minute {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Output, cfg.Analysis)
	}
	if !cfg.Analyzers.Bandit || !cfg.Analyzers.Safety || cfg.Analyzers.Trivy {
		t.Fatalf("unexpected analyzer toggles: %+v", cfg.Analyzers)
	}
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, FileName, `
[analysis]
fail_on = "medium"
strict = true
timeout = "90s"

[analyzers]
semgrep = true

[exclude]
paths = ["tests/**"]
`)
	l, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if l.Analysis.FailOn == nil || *l.Analysis.FailOn != "medium" {
		t.Fatalf("expected fail_on=medium, got %#v", l.Analysis.FailOn)
	}
	if l.Analysis.Strict == nil || !*l.Analysis.Strict {
		t.Fatal("expected strict=true")
	}
	if l.Analyzers.Bandit != nil {
		t.Fatal("bandit was not in the file and must stay unset")
	}
	if len(l.Exclude.Paths) != 1 || l.Exclude.Paths[0] != "tests/**" {
		t.Fatalf("exclude paths: %#v", l.Exclude.Paths)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, FileName, "[analysis\nfail_on = ")
	_, err := LoadFile(p)
	var ce *schema.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Path != p || ce.Hint() == "" {
		t.Fatalf("config error should carry path and hint: %+v", ce)
	}
}

func TestFindFile_WalksParents(t *testing.T) {
	dir := t.TempDir()
	want := writeTemp(t, dir, FileName, "[analysis]\nstrict = true\n")
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FindFile(nested); got != want {
		t.Fatalf("FindFile = %q, want %q", got, want)
	}
}

// Scenario: file says MEDIUM, environment says CRITICAL; environment wins.
func TestResolve_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, FileName, "[analysis]\nfail_on = \"MEDIUM\"\n")
	t.Setenv("YORO_AUDIT_FAIL_ON", "CRITICAL")

	cfg, _, err := Resolve(dir, "", Layer{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Analysis.FailOn != schema.SeverityCritical {
		t.Fatalf("fail_on = %s, want CRITICAL", cfg.Analysis.FailOn)
	}
}

func TestResolve_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("YORO_AUDIT_FAIL_ON", "CRITICAL")
	t.Setenv("YORO_AUDIT_FORMAT", "html")
	flags := Layer{Analysis: AnalysisLayer{FailOn: ptr("low")}}

	cfg, _, err := Resolve(dir, "", flags)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Analysis.FailOn != schema.SeverityLow {
		t.Fatalf("fail_on = %s, want LOW", cfg.Analysis.FailOn)
	}
	if cfg.Output.Format != FormatHTML {
		t.Fatalf("format = %s, want html from env", cfg.Output.Format)
	}
}

func TestEnvLayer_Truthy(t *testing.T) {
	for _, tc := range []struct {
		val  string
		want bool
	}{
		{"1", true}, {"true", true}, {"YES", true}, {"on", true},
		{"0", false}, {"no", false}, {"enabled", false},
	} {
		t.Setenv("YORO_AUDIT_STRICT", tc.val)
		l := EnvLayer()
		if l.Analysis.Strict == nil || *l.Analysis.Strict != tc.want {
			t.Fatalf("YORO_AUDIT_STRICT=%q: got %v, want %v", tc.val, l.Analysis.Strict, tc.want)
		}
	}
}

func TestEnvLayer_ExcludeList(t *testing.T) {
	t.Setenv("YORO_AUDIT_EXCLUDE", "tests/**, ,docs/**")
	l := EnvLayer()
	if len(l.Exclude.Paths) != 2 || l.Exclude.Paths[1] != "docs/**" {
		t.Fatalf("exclude = %#v", l.Exclude.Paths)
	}
	if l.Analysis.FailOn != nil {
		t.Fatal("unset variables must leave the layer unset")
	}
}

func TestResolve_ExplicitMissingFile(t *testing.T) {
	_, _, err := Resolve(t.TempDir(), filepath.Join(t.TempDir(), "nope.toml"), Layer{})
	var ce *schema.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestResolve_InvalidFileValueNamesFile(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, FileName, "[analysis]\nfail_on = \"urgent\"\n")
	_, _, err := Resolve(dir, "", Layer{})
	var ce *schema.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Path != p {
		t.Fatalf("path = %q, want %q", ce.Path, p)
	}
	if !strings.Contains(err.Error(), p) {
		t.Fatalf("message does not name the file: %v", err)
	}
}

func TestFinalize_InvalidValues(t *testing.T) {
	for name, l := range map[string]Layer{
		"fail_on": {Analysis: AnalysisLayer{FailOn: ptr("urgent")}},
		"timeout": {Analysis: AnalysisLayer{Timeout: ptr("soon")}},
		"format":  {Output: OutputLayer{Format: ptr("docx")}},
	} {
		if _, err := Finalize(l); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMerge_LaterWins(t *testing.T) {
	a := Layer{Output: OutputLayer{Format: ptr("html"), Directory: ptr("a")}}
	b := Layer{Output: OutputLayer{Format: ptr("json")}}
	m := Merge(a, b)
	if *m.Output.Format != "json" || *m.Output.Directory != "a" {
		t.Fatalf("merge result: %s %s", *m.Output.Format, *m.Output.Directory)
	}
	*m.Output.Directory = "changed"
	if *a.Output.Directory != "a" {
		t.Fatal("Merge must not alias input layers")
	}
}

func TestDefaultFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefault(dir, false)
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if _, err := WriteDefault(dir, false); !errors.Is(err, ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}
	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	cfg, err := Finalize(l)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	def, _ := Finalize(Defaults())
	if cfg.Analysis != def.Analysis || cfg.Output != def.Output || cfg.Baseline != def.Baseline {
		t.Fatalf("round trip changed config: %+v vs %+v", cfg, def)
	}
	if len(cfg.Exclude) != len(def.Exclude) {
		t.Fatalf("exclude changed: %v", cfg.Exclude)
	}
}

func TestConfigPaths(t *testing.T) {
	cfg, _ := Finalize(Defaults())
	if got := cfg.OutputDir("/repo"); got != filepath.Join("/repo", ".yoro", "analysis") {
		t.Fatalf("OutputDir = %s", got)
	}
	cfg.Baseline.File = "/abs/base.json"
	if got := cfg.BaselinePath("/repo"); got != "/abs/base.json" {
		t.Fatalf("BaselinePath = %s", got)
	}
}

func TestNormalizeFormat(t *testing.T) {
	cases := map[string]string{"SARIF": "sarif", " md ": "markdown", "Html": "html", "pdf": "pdf"}
	for in, want := range cases {
		if got := NormalizeFormat(in); got != want {
			t.Errorf("NormalizeFormat(%q) = %q, want %q", in, got, want)
		}
	}
}
