package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "YORO_AUDIT_"

var envBindings = map[string]string{
	"analysis.fail_on":              "FAIL_ON",
	"analysis.respect_baseline":     "RESPECT_BASELINE",
	"analysis.changed_only":         "CHANGED_ONLY",
	"analysis.strict":               "STRICT",
	"analysis.parallel":             "PARALLEL",
	"analysis.timeout":              "TIMEOUT",
	"output.format":                 "FORMAT",
	"output.directory":              "OUT_DIR",
	"analyzers.bandit":              "BANDIT",
	"analyzers.safety":              "SAFETY",
	"analyzers.semgrep":             "SEMGREP",
	"analyzers.gitleaks":            "GITLEAKS",
	"analyzers.trivy":               "TRIVY",
	"exclude.paths":                 "EXCLUDE",
	"baseline.file":                 "BASELINE_FILE",
	"baseline.include_dependencies": "BASELINE_DEPENDENCIES",
	"baseline.inline_suppressions":  "INLINE_SUPPRESSIONS",
	"baseline.redis_url":            "REDIS_URL",
	"baseline.redis_key":            "REDIS_KEY",
}

// EnvName returns the environment variable overriding a config key.
func EnvName(key string) string {
	if suffix, ok := envBindings[key]; ok {
		return EnvPrefix + suffix
	}
	return ""
}

// Truthy parses an environment boolean: 1, true, yes and on are true, anything else false.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// EnvLayer reads the YORO_AUDIT_* variables that are set.
func EnvLayer() Layer {
	v := viper.New()
	for key, suffix := range envBindings {
		_ = v.BindEnv(key, EnvPrefix+suffix)
	}
	str := func(key string) *string {
		if !v.IsSet(key) {
			return nil
		}
		s := v.GetString(key)
		return &s
	}
	boolean := func(key string) *bool {
		s := str(key)
		if s == nil {
			return nil
		}
		b := Truthy(*s)
		return &b
	}

	var l Layer
	l.Analysis.FailOn = str("analysis.fail_on")
	l.Analysis.RespectBaseline = boolean("analysis.respect_baseline")
	l.Analysis.ChangedOnly = boolean("analysis.changed_only")
	l.Analysis.Strict = boolean("analysis.strict")
	l.Analysis.Parallel = boolean("analysis.parallel")
	l.Analysis.Timeout = str("analysis.timeout")
	l.Output.Format = str("output.format")
	l.Output.Directory = str("output.directory")
	l.Analyzers.Bandit = boolean("analyzers.bandit")
	l.Analyzers.Safety = boolean("analyzers.safety")
	l.Analyzers.Semgrep = boolean("analyzers.semgrep")
	l.Analyzers.Gitleaks = boolean("analyzers.gitleaks")
	l.Analyzers.Trivy = boolean("analyzers.trivy")
	if s := str("exclude.paths"); s != nil {
		l.Exclude.Paths = SplitList(*s)
	}
	l.Baseline.File = str("baseline.file")
	l.Baseline.IncludeDependencies = boolean("baseline.include_dependencies")
	l.Baseline.InlineSuppressions = boolean("baseline.inline_suppressions")
	l.Baseline.RedisURL = str("baseline.redis_url")
	l.Baseline.RedisKey = str("baseline.redis_key")
	return l
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
