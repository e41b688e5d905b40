package baseline

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// InlineReason is reported for a blanket `yoro: ignore-line` comment.
const InlineReason = "inline suppression"

// yoro: ignore-line
// yoro: ignore=B101,B102 reason=fixture credentials
var directiveRE = regexp.MustCompile(`yoro:\s*ignore(?:(-line)\b|=([^\s,]+(?:\s*,\s*[^\s,]+)*)(?:\s+reason=(.*))?)`)

// CheckInline reports whether the source line (or the line above it) carries a
// suppression comment covering ruleID. Unreadable files and out-of-range lines
// are never suppressed.
func CheckInline(path string, line int, ruleID string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return matchLines(strings.Split(string(data), "\n"), line, ruleID)
}

func matchLines(lines []string, line int, ruleID string) (string, bool) {
	if line < 1 || line > len(lines) {
		return "", false
	}
	for _, idx := range []int{line - 1, line - 2} {
		if idx < 0 {
			continue
		}
		if reason, ok := matchDirective(lines[idx], ruleID); ok {
			return reason, true
		}
	}
	return "", false
}

func matchDirective(text, ruleID string) (string, bool) {
	m := directiveRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return InlineReason, true
	}
	for _, id := range strings.Split(m[2], ",") {
		if strings.TrimSpace(id) == ruleID {
			reason := strings.TrimSpace(m[3])
			if reason == "" {
				reason = InlineReason
			}
			return reason, true
		}
	}
	return "", false
}

// InlineChecker resolves finding paths against a root and caches file contents
// across lookups within one run.
type InlineChecker struct {
	root  string
	files map[string][]string
}

func NewInlineChecker(root string) *InlineChecker {
	return &InlineChecker{root: root, files: map[string][]string{}}
}

// Check applies CheckInline to a code finding. Dependency findings and
// findings without a line are never suppressed inline.
func (c *InlineChecker) Check(f schema.Finding) (string, bool) {
	if f.IsDependency() || f.FilePath == "" || f.Line < 1 {
		return "", false
	}
	path := f.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.root, path)
	}
	lines, ok := c.files[path]
	if !ok {
		data, err := os.ReadFile(path)
		if err == nil {
			lines = strings.Split(string(data), "\n")
		}
		c.files[path] = lines
	}
	return matchLines(lines, f.Line, f.RuleID)
}

// Filter splits findings into those without and with an inline suppression.
func (c *InlineChecker) Filter(findings []schema.Finding) (kept, suppressed []schema.Finding) {
	for _, f := range findings {
		if _, ok := c.Check(f); ok {
			suppressed = append(suppressed, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}
