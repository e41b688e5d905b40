// Package baseline fingerprints findings and keeps the set of accepted ones
// that later runs suppress.
package baseline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/pkg/utils"
)

// Version is written into every saved baseline document.
const Version = "1.0"

const (
	DefaultReason = "baselined"
	DefaultActor  = "unknown"
)

// Fingerprint is the stable identity of a finding: sha256 over identity, line,
// rule id and message.
func Fingerprint(f schema.Finding) string {
	key := strings.Join([]string{f.Identity(), strconv.Itoa(f.Line), f.RuleID, f.Message}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Entry is one accepted finding.
type Entry struct {
	Finding   schema.Finding `json:"finding"`
	Reason    string         `json:"reason"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy string         `json:"created_by"`
}

// Baseline is the in-memory set of accepted findings keyed by fingerprint.
type Baseline struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Entries   map[string]Entry

	now func() time.Time
}

type document struct {
	Version      string           `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	FindingCount int              `json:"finding_count"`
	Findings     map[string]Entry `json:"findings"`
}

// New returns an empty baseline.
func New() *Baseline {
	return &Baseline{Entries: map[string]Entry{}, now: time.Now}
}

// Load reads the baseline at path. A missing or unreadable file yields an
// empty baseline; use LoadStrict to surface corruption.
func Load(path string) *Baseline {
	b, err := LoadStrict(path)
	if err != nil {
		return New()
	}
	return b
}

// LoadStrict reads the baseline at path. A missing file yields an empty
// baseline; a corrupt one is a *schema.ConfigError.
func LoadStrict(path string) (*Baseline, error) {
	return LoadFrom(context.Background(), FileStore{Path: path}, true)
}

// LoadFrom reads a baseline from any store. With strict off, every failure
// degrades to an empty baseline.
func LoadFrom(ctx context.Context, s Store, strict bool) (*Baseline, error) {
	data, err := s.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return New(), nil
	}
	if err != nil {
		if !strict {
			return New(), nil
		}
		return nil, &schema.ConfigError{Path: s.Location(), Err: err, Remedy: "check access to the baseline store"}
	}
	b, err := decode(data)
	if err != nil {
		if !strict {
			return New(), nil
		}
		return nil, &schema.ConfigError{
			Path:   s.Location(),
			Err:    err,
			Remedy: "remove the baseline file or recreate it with `yoro-audit baseline create`",
		}
	}
	return b, nil
}

func decode(data []byte) (*Baseline, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	b := New()
	b.CreatedAt = doc.CreatedAt
	b.UpdatedAt = doc.UpdatedAt
	for k, e := range doc.Findings {
		b.Entries[k] = e
	}
	return b, nil
}

// Len is the number of accepted findings.
func (b *Baseline) Len() int { return len(b.Entries) }

// Fingerprints returns the stored keys in sorted order.
func (b *Baseline) Fingerprints() []string {
	keys := make([]string, 0, len(b.Entries))
	for k := range b.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Add accepts f, overwriting any earlier entry for the same fingerprint.
func (b *Baseline) Add(f schema.Finding, reason, actor string) string {
	if reason == "" {
		reason = DefaultReason
	}
	if actor == "" {
		actor = DefaultActor
	}
	fp := Fingerprint(f)
	b.Entries[fp] = Entry{Finding: f, Reason: reason, CreatedAt: b.now().UTC(), CreatedBy: actor}
	return fp
}

// Remove drops f from the baseline and reports whether it was present.
func (b *Baseline) Remove(f schema.Finding) bool {
	fp := Fingerprint(f)
	if _, ok := b.Entries[fp]; !ok {
		return false
	}
	delete(b.Entries, fp)
	return true
}

// RemoveFingerprint drops an entry by key.
func (b *Baseline) RemoveFingerprint(fp string) bool {
	if _, ok := b.Entries[fp]; !ok {
		return false
	}
	delete(b.Entries, fp)
	return true
}

// IsSuppressed reports whether f is accepted.
func (b *Baseline) IsSuppressed(f schema.Finding) bool {
	_, ok := b.Entries[Fingerprint(f)]
	return ok
}

// Filter splits findings into kept and suppressed. With respect off no
// fingerprint is computed and everything is kept.
func (b *Baseline) Filter(findings []schema.Finding, respect bool) (kept, suppressed []schema.Finding) {
	if !respect || b == nil {
		return findings, nil
	}
	for _, f := range findings {
		if b.IsSuppressed(f) {
			suppressed = append(suppressed, f)
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}

// Save writes the whole document to path, creating parent directories.
func (b *Baseline) Save(path string) error {
	return b.SaveTo(context.Background(), FileStore{Path: path})
}

// SaveTo writes the whole document to s.
func (b *Baseline) SaveTo(ctx context.Context, s Store) error {
	now := b.now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	data, err := utils.MarshalIndent(document{
		Version:      Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		FindingCount: len(b.Entries),
		Findings:     b.Entries,
	})
	if err != nil {
		return err
	}
	if err := s.Put(ctx, data); err != nil {
		return fmt.Errorf("save baseline to %s: %w", s.Location(), err)
	}
	return nil
}

// Stats summarizes a baseline.
type Stats struct {
	Total          int            `json:"total" yaml:"total"`
	SeverityCounts map[string]int `json:"severity_counts" yaml:"severity_counts"`
	RuleCounts     map[string]int `json:"rule_counts" yaml:"rule_counts"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"updated_at"`
}

func (b *Baseline) Stats() Stats {
	st := Stats{
		Total:          len(b.Entries),
		SeverityCounts: map[string]int{},
		RuleCounts:     map[string]int{},
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
	for _, e := range b.Entries {
		st.SeverityCounts[string(e.Finding.Severity)]++
		st.RuleCounts[e.Finding.RuleID]++
	}
	return st
}
