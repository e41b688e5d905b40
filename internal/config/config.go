// Package config resolves the effective audit configuration from built-in
// defaults, the project config file, environment variables and CLI flags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// FileName is the project configuration file looked up from the target directory upwards.
const FileName = ".yoro-audit.toml"

// Output formats understood by the report writers.
const (
	FormatSARIF    = "sarif"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

var Formats = []string{FormatSARIF, FormatHTML, FormatJSON, FormatMarkdown, FormatPDF}

// Config is the fully resolved configuration. Every field is defined.
type Config struct {
	Analysis  Analysis
	Output    Output
	Analyzers Analyzers
	Exclude   []string
	Baseline  Baseline
}

type Analysis struct {
	FailOn          schema.Severity
	RespectBaseline bool
	ChangedOnly     bool
	Strict          bool
	Parallel        bool
	Timeout         time.Duration
}

type Output struct {
	Format    string
	Directory string
}

type Analyzers struct {
	Bandit   bool
	Safety   bool
	Semgrep  bool
	Gitleaks bool
	Trivy    bool
}

// Toggles maps analyzer names to their enabled state.
func (a Analyzers) Toggles() map[string]bool {
	return map[string]bool{
		"bandit":   a.Bandit,
		"safety":   a.Safety,
		"semgrep":  a.Semgrep,
		"gitleaks": a.Gitleaks,
		"trivy":    a.Trivy,
	}
}

type Baseline struct {
	File                string
	IncludeDependencies bool
	InlineSuppressions  bool
	RedisURL            string
	RedisKey            string
}

// OutputDir returns the report directory, anchored at root when relative.
func (c Config) OutputDir(root string) string {
	return anchor(root, c.Output.Directory)
}

// BaselinePath returns the baseline file, anchored at root when relative.
func (c Config) BaselinePath(root string) string {
	return anchor(root, c.Baseline.File)
}

func anchor(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Layer holds one configuration source. Nil fields are unset and leave lower
// layers untouched when merged.
type Layer struct {
	Analysis  AnalysisLayer  `mapstructure:"analysis" toml:"analysis" yaml:"analysis"`
	Output    OutputLayer    `mapstructure:"output" toml:"output" yaml:"output"`
	Analyzers AnalyzersLayer `mapstructure:"analyzers" toml:"analyzers" yaml:"analyzers"`
	Exclude   ExcludeLayer   `mapstructure:"exclude" toml:"exclude" yaml:"exclude"`
	Baseline  BaselineLayer  `mapstructure:"baseline" toml:"baseline" yaml:"baseline"`
}

type AnalysisLayer struct {
	FailOn          *string `mapstructure:"fail_on" toml:"fail_on,omitempty" yaml:"fail_on,omitempty"`
	RespectBaseline *bool   `mapstructure:"respect_baseline" toml:"respect_baseline,omitempty" yaml:"respect_baseline,omitempty"`
	ChangedOnly     *bool   `mapstructure:"changed_only" toml:"changed_only,omitempty" yaml:"changed_only,omitempty"`
	Strict          *bool   `mapstructure:"strict" toml:"strict,omitempty" yaml:"strict,omitempty"`
	Parallel        *bool   `mapstructure:"parallel" toml:"parallel,omitempty" yaml:"parallel,omitempty"`
	Timeout         *string `mapstructure:"timeout" toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type OutputLayer struct {
	Format    *string `mapstructure:"format" toml:"format,omitempty" yaml:"format,omitempty"`
	Directory *string `mapstructure:"directory" toml:"directory,omitempty" yaml:"directory,omitempty"`
}

type AnalyzersLayer struct {
	Bandit   *bool `mapstructure:"bandit" toml:"bandit,omitempty" yaml:"bandit,omitempty"`
	Safety   *bool `mapstructure:"safety" toml:"safety,omitempty" yaml:"safety,omitempty"`
	Semgrep  *bool `mapstructure:"semgrep" toml:"semgrep,omitempty" yaml:"semgrep,omitempty"`
	Gitleaks *bool `mapstructure:"gitleaks" toml:"gitleaks,omitempty" yaml:"gitleaks,omitempty"`
	Trivy    *bool `mapstructure:"trivy" toml:"trivy,omitempty" yaml:"trivy,omitempty"`
}

type ExcludeLayer struct {
	Paths []string `mapstructure:"paths" toml:"paths,omitempty" yaml:"paths,omitempty"`
}

type BaselineLayer struct {
	File                *string `mapstructure:"file" toml:"file,omitempty" yaml:"file,omitempty"`
	IncludeDependencies *bool   `mapstructure:"include_dependencies" toml:"include_dependencies,omitempty" yaml:"include_dependencies,omitempty"`
	InlineSuppressions  *bool   `mapstructure:"inline_suppressions" toml:"inline_suppressions,omitempty" yaml:"inline_suppressions,omitempty"`
	RedisURL            *string `mapstructure:"redis_url" toml:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	RedisKey            *string `mapstructure:"redis_key" toml:"redis_key,omitempty" yaml:"redis_key,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// Defaults is the complete built-in layer.
func Defaults() Layer {
	return Layer{
		Analysis: AnalysisLayer{
			FailOn:          ptr("HIGH"),
			RespectBaseline: ptr(true),
			ChangedOnly:     ptr(false),
			Strict:          ptr(false),
			Parallel:        ptr(false),
			Timeout:         ptr("10m"),
		},
		Output: OutputLayer{
			Format:    ptr(FormatSARIF),
			Directory: ptr(".yoro/analysis"),
		},
		Analyzers: AnalyzersLayer{
			Bandit:   ptr(true),
			Safety:   ptr(true),
			Semgrep:  ptr(false),
			Gitleaks: ptr(false),
			Trivy:    ptr(false),
		},
		Exclude: ExcludeLayer{
			Paths: []string{".venv/**", "venv/**", "node_modules/**", ".git/**", "build/**", "dist/**"},
		},
		Baseline: BaselineLayer{
			File:                ptr(".yoro/baseline.json"),
			IncludeDependencies: ptr(false),
			InlineSuppressions:  ptr(true),
			RedisURL:            ptr(""),
			RedisKey:            ptr("yoro-audit:baseline"),
		},
	}
}

// Merge folds layers left to right; a set field in a later layer wins.
func Merge(layers ...Layer) Layer {
	var out Layer
	for _, l := range layers {
		pick(&out.Analysis.FailOn, l.Analysis.FailOn)
		pick(&out.Analysis.RespectBaseline, l.Analysis.RespectBaseline)
		pick(&out.Analysis.ChangedOnly, l.Analysis.ChangedOnly)
		pick(&out.Analysis.Strict, l.Analysis.Strict)
		pick(&out.Analysis.Parallel, l.Analysis.Parallel)
		pick(&out.Analysis.Timeout, l.Analysis.Timeout)

		pick(&out.Output.Format, l.Output.Format)
		pick(&out.Output.Directory, l.Output.Directory)

		pick(&out.Analyzers.Bandit, l.Analyzers.Bandit)
		pick(&out.Analyzers.Safety, l.Analyzers.Safety)
		pick(&out.Analyzers.Semgrep, l.Analyzers.Semgrep)
		pick(&out.Analyzers.Gitleaks, l.Analyzers.Gitleaks)
		pick(&out.Analyzers.Trivy, l.Analyzers.Trivy)

		if l.Exclude.Paths != nil {
			out.Exclude.Paths = append([]string(nil), l.Exclude.Paths...)
		}

		pick(&out.Baseline.File, l.Baseline.File)
		pick(&out.Baseline.IncludeDependencies, l.Baseline.IncludeDependencies)
		pick(&out.Baseline.InlineSuppressions, l.Baseline.InlineSuppressions)
		pick(&out.Baseline.RedisURL, l.Baseline.RedisURL)
		pick(&out.Baseline.RedisKey, l.Baseline.RedisKey)
	}
	return out
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Finalize validates a merged layer and produces the effective configuration.
// Unset fields fall back to the built-in defaults.
func Finalize(l Layer) (Config, error) {
	l = Merge(Defaults(), l)

	failOn, err := schema.ParseThreshold(*l.Analysis.FailOn)
	if err != nil {
		return Config{}, &schema.ConfigError{Err: fmt.Errorf("analysis.fail_on: %w", err)}
	}
	timeout, err := time.ParseDuration(strings.TrimSpace(*l.Analysis.Timeout))
	if err != nil || timeout <= 0 {
		return Config{}, &schema.ConfigError{
			Err:    fmt.Errorf("analysis.timeout: invalid duration %q", *l.Analysis.Timeout),
			Remedy: "use a Go duration such as 90s or 10m",
		}
	}
	format := NormalizeFormat(*l.Output.Format)
	if !validFormat(format) {
		return Config{}, &schema.ConfigError{
			Err:    fmt.Errorf("output.format: unknown format %q", *l.Output.Format),
			Remedy: "choose one of " + strings.Join(Formats, ", "),
		}
	}

	return Config{
		Analysis: Analysis{
			FailOn:          failOn,
			RespectBaseline: *l.Analysis.RespectBaseline,
			ChangedOnly:     *l.Analysis.ChangedOnly,
			Strict:          *l.Analysis.Strict,
			Parallel:        *l.Analysis.Parallel,
			Timeout:         timeout,
		},
		Output: Output{
			Format:    format,
			Directory: *l.Output.Directory,
		},
		Analyzers: Analyzers{
			Bandit:   *l.Analyzers.Bandit,
			Safety:   *l.Analyzers.Safety,
			Semgrep:  *l.Analyzers.Semgrep,
			Gitleaks: *l.Analyzers.Gitleaks,
			Trivy:    *l.Analyzers.Trivy,
		},
		Exclude: l.Exclude.Paths,
		Baseline: Baseline{
			File:                *l.Baseline.File,
			IncludeDependencies: *l.Baseline.IncludeDependencies,
			InlineSuppressions:  *l.Baseline.InlineSuppressions,
			RedisURL:            *l.Baseline.RedisURL,
			RedisKey:            *l.Baseline.RedisKey,
		},
	}, nil
}

// Layer converts c back into a fully populated layer, e.g. for display.
func (c Config) Layer() Layer {
	return Layer{
		Analysis: AnalysisLayer{
			FailOn:          ptr(string(c.Analysis.FailOn)),
			RespectBaseline: ptr(c.Analysis.RespectBaseline),
			ChangedOnly:     ptr(c.Analysis.ChangedOnly),
			Strict:          ptr(c.Analysis.Strict),
			Parallel:        ptr(c.Analysis.Parallel),
			Timeout:         ptr(c.Analysis.Timeout.String()),
		},
		Output: OutputLayer{
			Format:    ptr(c.Output.Format),
			Directory: ptr(c.Output.Directory),
		},
		Analyzers: AnalyzersLayer{
			Bandit:   ptr(c.Analyzers.Bandit),
			Safety:   ptr(c.Analyzers.Safety),
			Semgrep:  ptr(c.Analyzers.Semgrep),
			Gitleaks: ptr(c.Analyzers.Gitleaks),
			Trivy:    ptr(c.Analyzers.Trivy),
		},
		Exclude: ExcludeLayer{Paths: append([]string{}, c.Exclude...)},
		Baseline: BaselineLayer{
			File:                ptr(c.Baseline.File),
			IncludeDependencies: ptr(c.Baseline.IncludeDependencies),
			InlineSuppressions:  ptr(c.Baseline.InlineSuppressions),
			RedisURL:            ptr(c.Baseline.RedisURL),
			RedisKey:            ptr(c.Baseline.RedisKey),
		},
	}
}

// NormalizeFormat lowercases a format name and resolves the "md" alias.
func NormalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimSpace(f))
	if f == "md" {
		return FormatMarkdown
	}
	return f
}

func validFormat(f string) bool {
	for _, x := range Formats {
		if x == f {
			return true
		}
	}
	return false
}
