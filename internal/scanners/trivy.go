package scanners

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Trivy scans lockfiles and manifests of any ecosystem for known vulnerabilities.
type Trivy struct {
	Bin string
}

func NewTrivy() *Trivy { return &Trivy{Bin: "trivy"} }

func (tr *Trivy) Name() string { return "trivy" }
func (tr *Trivy) Kind() Kind   { return KindDependency }

func (tr *Trivy) Available(_ context.Context) error {
	return checkTool(tr.Name(), tr.Bin, "brew install trivy (see aquasecurity.github.io/trivy)")
}

type trivyJSON struct {
	Results []struct {
		Target          string `json:"Target"`
		Vulnerabilities []struct {
			VulnerabilityID  string `json:"VulnerabilityID"`
			PkgName          string `json:"PkgName"`
			InstalledVersion string `json:"InstalledVersion"`
			FixedVersion     string `json:"FixedVersion"`
			Severity         string `json:"Severity"`
			Title            string `json:"Title"`
		} `json:"Vulnerabilities"`
	} `json:"Results"`
}

func (tr *Trivy) Run(ctx context.Context, t Target) ([]schema.Finding, error) {
	res, err := invoke(ctx, tr.Name(), t.Root, []int{0}, tr.Bin,
		"fs", "--scanners", "vuln", "--format", "json", "--quiet", "--exit-code", "0", ".")
	if err != nil {
		return nil, err
	}
	findings, err := parseTrivy(res.Stdout, t)
	if err != nil {
		return nil, parseError(tr.Name(), err)
	}
	return findings, nil
}

func parseTrivy(data []byte, t Target) ([]schema.Finding, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc trivyJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	var out []schema.Finding
	for _, r := range doc.Results {
		manifest := t.Rel(r.Target)
		if t.Exclude.Match(manifest) {
			continue
		}
		for _, v := range r.Vulnerabilities {
			f := schema.Finding{
				Source:           "trivy",
				Category:         schema.CategoryDependency,
				RuleID:           v.VulnerabilityID,
				Severity:         schema.ParseSeverity(v.Severity),
				Package:          v.PkgName,
				InstalledVersion: v.InstalledVersion,
				AdvisoryID:       v.VulnerabilityID,
				FixVersion:       v.FixedVersion,
				Manifest:         manifest,
			}
			if strings.HasPrefix(v.VulnerabilityID, "CVE-") {
				f.CVE = v.VulnerabilityID
			}
			f.Message = dependencyMessage(f)
			if v.Title != "" {
				f.Message += ": " + v.Title
			}
			out = append(out, f)
		}
	}
	return out, nil
}
