package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

const sarifSchema = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

// ManifestFallbacks are tried in order when a dependency finding carries no
// usable manifest path.
var ManifestFallbacks = []string{
	"requirements.txt",
	"requirements-dev.txt",
	"requirements.in",
	"poetry.lock",
	"Pipfile.lock",
	"pyproject.toml",
	"go.mod",
	"package-lock.json",
}

type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []Run  `json:"runs"`
}

type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name           string `json:"name"`
	Version        string `json:"version,omitempty"`
	InformationURI string `json:"informationUri,omitempty"`
	Rules          []Rule `json:"rules"`
}

type Rule struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name,omitempty"`
	ShortDescription     Message        `json:"shortDescription"`
	Help                 Message        `json:"help"`
	DefaultConfiguration RuleConfig     `json:"defaultConfiguration"`
	Properties           RuleProperties `json:"properties"`
}

type RuleConfig struct {
	Level string `json:"level"`
}

type RuleProperties struct {
	Tags      []string `json:"tags"`
	Precision string   `json:"precision,omitempty"`
	CWE       string   `json:"cwe,omitempty"`
}

type Result struct {
	RuleID       string            `json:"ruleId"`
	Level        string            `json:"level"` // error, warning, note
	Message      Message           `json:"message"`
	Locations    []Location        `json:"locations"`
	Fingerprints map[string]string `json:"fingerprints"`
}

type Message struct {
	Text string `json:"text"`
}

type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           *Region          `json:"region,omitempty"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

type Region struct {
	StartLine int `json:"startLine"`
}

// BuildSARIF converts findings into a single-run SARIF 2.1.0 log. The first
// finding seen for a rule id defines that rule's description and level.
func BuildSARIF(in Input) Log {
	var (
		rules   []Rule
		seen    = map[string]bool{}
		results = make([]Result, 0, in.Total())
	)
	addRule := func(f schema.Finding) {
		if seen[f.RuleID] {
			return
		}
		seen[f.RuleID] = true
		rules = append(rules, ruleFor(f))
	}

	for _, f := range in.Code {
		addRule(f)
		uri := toURI(f.FilePath)
		loc := Location{PhysicalLocation: PhysicalLocation{ArtifactLocation: ArtifactLocation{URI: uri}}}
		if f.Line > 0 {
			loc.PhysicalLocation.Region = &Region{StartLine: f.Line}
		}
		results = append(results, Result{
			RuleID:       f.RuleID,
			Level:        sevToLevel(f.Severity),
			Message:      Message{Text: strings.TrimSpace(f.Message)},
			Locations:    []Location{loc},
			Fingerprints: map[string]string{"primaryLocationLineHash": shortHash(fmt.Sprintf("%s:%d:%s", uri, f.Line, f.RuleID))},
		})
	}

	for _, f := range in.Dependencies {
		addRule(f)
		locs := []Location{}
		if m := resolveManifest(in.Root, f.Manifest, in.ManifestHint); m != "" {
			locs = append(locs, Location{PhysicalLocation: PhysicalLocation{ArtifactLocation: ArtifactLocation{URI: m}}})
		}
		results = append(results, Result{
			RuleID:       f.RuleID,
			Level:        sevToLevel(f.Severity),
			Message:      Message{Text: strings.TrimSpace(f.Message)},
			Locations:    locs,
			Fingerprints: map[string]string{"primaryLocationLineHash": shortHash(fmt.Sprintf("%s:%s:%s", f.Package, f.InstalledVersion, f.AdvisoryID))},
		})
	}

	if rules == nil {
		rules = []Rule{}
	}
	return Log{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs: []Run{{
			Tool: Tool{Driver: Driver{
				Name:    in.tool(),
				Version: in.Version,
				Rules:   rules,
			}},
			Results: results,
		}},
	}
}

// WriteSARIF writes BuildSARIF(in) to path.
func WriteSARIF(in Input, path string) error {
	return utils.WriteJSON(path, BuildSARIF(in))
}

func ruleFor(f schema.Finding) Rule {
	tags := []string{"security"}
	if f.IsDependency() {
		tags = append(tags, "dependency")
	}
	r := Rule{
		ID:                   f.RuleID,
		ShortDescription:     Message{Text: fmt.Sprintf("%s %s", titleCase(f.Source), f.RuleID)},
		Help:                 Message{Text: strings.TrimSpace(f.Message)},
		DefaultConfiguration: RuleConfig{Level: sevToLevel(f.Severity)},
		Properties:           RuleProperties{Tags: tags, Precision: strings.ToLower(f.Confidence)},
	}
	if f.CWE > 0 {
		r.Properties.CWE = fmt.Sprintf("CWE-%d", f.CWE)
	}
	return r
}

// resolveManifest picks the first existing candidate: the finding's own
// manifest, the run hint, then ManifestFallbacks.
func resolveManifest(root string, hints ...string) string {
	candidates := append(append([]string{}, hints...), ManifestFallbacks...)
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		p := c
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if _, err := os.Stat(p); err == nil {
			if rel, err := filepath.Rel(root, p); err == nil {
				return toURI(rel)
			}
			return toURI(c)
		}
	}
	return ""
}

func sevToLevel(s schema.Severity) string {
	switch s {
	case schema.SeverityCritical, schema.SeverityHigh:
		return "error"
	case schema.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func toURI(p string) string {
	p = strings.TrimSpace(p)
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.TrimPrefix(p, "./")
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
