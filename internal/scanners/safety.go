package scanners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// SafetyManifests is the order in which dependency manifests are preferred.
var SafetyManifests = []string{
	"requirements.txt",
	"requirements-dev.txt",
	"requirements.in",
	"poetry.lock",
	"Pipfile.lock",
	"pyproject.toml",
}

// Safety checks Python dependencies against the Safety advisory database.
type Safety struct {
	Bin string
}

func NewSafety() *Safety { return &Safety{Bin: "safety"} }

func (s *Safety) Name() string { return "safety" }
func (s *Safety) Kind() Kind   { return KindDependency }

func (s *Safety) Available(_ context.Context) error {
	return checkTool(s.Name(), s.Bin, "pip install safety")
}

// ChooseManifest returns the root-relative manifest to scan, or "" to scan
// the active Python environment.
func ChooseManifest(t Target) string {
	if t.ManifestHint != "" && exists(filepath.Join(t.Root, t.ManifestHint)) {
		return t.ManifestHint
	}
	for _, name := range SafetyManifests {
		if exists(filepath.Join(t.Root, name)) {
			return name
		}
	}
	return ""
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func (s *Safety) Run(ctx context.Context, t Target) ([]schema.Finding, error) {
	manifest := ChooseManifest(t)

	vulns, err := s.runJSON(ctx, t, "scan", manifest)
	if err != nil {
		var unavailable *schema.AnalyzerUnavailableError
		if errors.As(err, &unavailable) || ctx.Err() != nil {
			return nil, err
		}
		// older releases only understand `check`
		vulns, err = s.runJSON(ctx, t, "check", manifest)
		if err != nil {
			return nil, err
		}
	}
	return safetyFindings(vulns, manifest), nil
}

func (s *Safety) runJSON(ctx context.Context, t Target, sub, manifest string) ([]interface{}, error) {
	args := []string{sub, "--json"}
	if manifest != "" {
		args = append(args, "--file", manifest)
	}
	// 1 and 64 mean vulnerabilities were found
	res, err := invoke(ctx, s.Name(), t.Root, []int{0, 1, 64}, s.Bin, args...)
	if err != nil {
		return nil, err
	}
	vulns, err := parseSafety(res.Stdout)
	if err != nil {
		return nil, parseError(s.Name(), err)
	}
	return vulns, nil
}

// parseSafety accepts both the {"vulnerabilities": [...]} document and the
// legacy bare list.
func parseSafety(data []byte) ([]interface{}, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	var doc interface{}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, err
	}
	switch v := doc.(type) {
	case map[string]interface{}:
		list, _ := v["vulnerabilities"].([]interface{})
		return list, nil
	case []interface{}:
		return v, nil
	}
	return nil, fmt.Errorf("unexpected safety output shape %T", doc)
}

func safetyFindings(vulns []interface{}, manifest string) []schema.Finding {
	var out []schema.Finding
	for _, raw := range vulns {
		var f schema.Finding
		switch v := raw.(type) {
		case map[string]interface{}:
			f = safetyFromObject(v)
		case []interface{}:
			f = safetyFromRow(v)
		default:
			continue
		}
		f.Source = "safety"
		f.Category = schema.CategoryDependency
		f.RuleID = "SAFETY-" + f.AdvisoryID
		f.Manifest = manifest
		f.Message = dependencyMessage(f)
		out = append(out, f)
	}
	return out
}

func safetyFromObject(v map[string]interface{}) schema.Finding {
	f := schema.Finding{
		Package:          firstString(v, "package_name", "package", "name"),
		InstalledVersion: firstString(v, "analyzed_version", "installed_version", "version"),
		AdvisoryID:       firstString(v, "vulnerability_id", "id", "advisory_id"),
		CVE:              firstString(v, "CVE", "cve"),
		VulnerableSpec:   firstString(v, "vulnerable_spec", "affected_versions", "spec"),
		Severity:         safetySeverity(v["severity"]),
	}
	if fixes, ok := v["fixed_versions"].([]interface{}); ok && len(fixes) > 0 {
		f.FixVersion = fmt.Sprint(fixes[0])
	} else if fixes, ok := v["fix_versions"].([]interface{}); ok && len(fixes) > 0 {
		f.FixVersion = fmt.Sprint(fixes[0])
	} else {
		f.FixVersion = firstString(v, "fixed_version")
	}
	return f
}

// legacy rows: [package, spec, installed, advisory, id, ...]
func safetyFromRow(row []interface{}) schema.Finding {
	at := func(i int) string {
		if i < len(row) && row[i] != nil {
			return fmt.Sprint(row[i])
		}
		return ""
	}
	return schema.Finding{
		Package:          at(0),
		VulnerableSpec:   at(1),
		InstalledVersion: at(2),
		AdvisoryID:       at(4),
		Severity:         schema.SeverityMedium,
	}
}

func safetySeverity(v interface{}) schema.Severity {
	switch s := v.(type) {
	case string:
		return schema.ParseSeverity(s)
	case map[string]interface{}:
		for _, k := range []string{"cvssv3", "cvssv2"} {
			if m, ok := s[k].(map[string]interface{}); ok {
				if label, ok := m["base_severity"].(string); ok {
					return schema.ParseSeverity(label)
				}
			}
		}
	}
	return schema.SeverityMedium
}

func firstString(v map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch x := v[k].(type) {
		case string:
			if x != "" {
				return x
			}
		case float64:
			return fmt.Sprintf("%.0f", x)
		}
	}
	return ""
}

func dependencyMessage(f schema.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s is vulnerable", f.Package, f.InstalledVersion)
	if f.AdvisoryID != "" {
		fmt.Fprintf(&b, " (advisory %s", f.AdvisoryID)
		if f.CVE != "" {
			fmt.Fprintf(&b, ", %s", f.CVE)
		}
		b.WriteString(")")
	}
	if f.VulnerableSpec != "" {
		fmt.Fprintf(&b, "; affected %s", f.VulnerableSpec)
	}
	if f.FixVersion != "" {
		fmt.Fprintf(&b, "; fixed in %s", f.FixVersion)
	}
	return b.String()
}
