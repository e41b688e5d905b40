package scanners

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Matcher applies gitignore-style exclusion globs to root-relative paths.
type Matcher struct {
	m gitignore.Matcher
}

// NewMatcher compiles patterns; blanks and # comments are ignored.
func NewMatcher(patterns []string) Matcher {
	var ps []gitignore.Pattern
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	if len(ps) == 0 {
		return Matcher{}
	}
	return Matcher{m: gitignore.NewMatcher(ps)}
}

// Match reports whether the slash-separated path p is excluded.
func (m Matcher) Match(p string) bool {
	if m.m == nil || p == "" {
		return false
	}
	return m.m.Match(strings.Split(strings.TrimPrefix(p, "./"), "/"), false)
}
