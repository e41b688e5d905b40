package runner

import (
	"context"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/baseline"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/logging"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/scanners"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// OpenStore returns the baseline store for cfg: Redis when a URL is
// configured, otherwise the baseline file under root. The returned func
// releases the store.
func OpenStore(root string, cfg config.Config, opts Options) (baseline.Store, func(), error) {
	if opts.Store != nil {
		return opts.Store, func() {}, nil
	}
	if cfg.Baseline.RedisURL != "" {
		rs, err := baseline.OpenRedisStore(cfg.Baseline.RedisURL, cfg.Baseline.RedisKey)
		if err != nil {
			return nil, nil, &schema.ConfigError{Err: err, Remedy: "set baseline.redis_url to a redis:// URL"}
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return baseline.FileStore{Path: cfg.BaselinePath(root)}, func() {}, nil
}

// CreateBaseline runs the enabled analyzers and records every current
// finding as accepted, replacing the stored baseline. Dependency findings are
// recorded only when the config includes them.
func CreateBaseline(ctx context.Context, root string, cfg config.Config, reason, actor string, opts Options) (*baseline.Baseline, string, error) {
	log := logging.OrNop(opts.Logger)

	candidates := opts.Analyzers
	if candidates == nil {
		candidates = scanners.Enabled(cfg.Analyzers.Toggles())
	}
	ready, _, err := selectAvailable(ctx, candidates, cfg.Analysis.Strict, log)
	if err != nil {
		return nil, "", err
	}
	outputs, err := analyze(ctx, ready, buildTarget(root, cfg, opts, log), cfg, log)
	if err != nil {
		return nil, "", err
	}

	store, closeStore, err := OpenStore(root, cfg, opts)
	if err != nil {
		return nil, "", err
	}
	defer closeStore()

	b := baseline.New()
	if prev, err := baseline.LoadFrom(ctx, store, false); err == nil && !prev.CreatedAt.IsZero() {
		b.CreatedAt = prev.CreatedAt
	}
	for _, out := range outputs {
		if out.kind == scanners.KindDependency && !cfg.Baseline.IncludeDependencies {
			continue
		}
		for _, f := range out.findings {
			b.Add(f, reason, actor)
		}
	}
	if err := b.SaveTo(ctx, store); err != nil {
		return nil, "", err
	}
	log.Infow("baseline written", "location", store.Location(), "entries", b.Len())
	return b, store.Location(), nil
}

// LoadBaseline reads the configured baseline strictly so corruption surfaces.
func LoadBaseline(ctx context.Context, root string, cfg config.Config, opts Options) (*baseline.Baseline, string, error) {
	store, closeStore, err := OpenStore(root, cfg, opts)
	if err != nil {
		return nil, "", err
	}
	defer closeStore()
	b, err := baseline.LoadFrom(ctx, store, true)
	return b, store.Location(), err
}

// RemoveFromBaseline drops entries by fingerprint and saves the result. It
// returns the fingerprints that were actually present.
func RemoveFromBaseline(ctx context.Context, root string, cfg config.Config, fingerprints []string, opts Options) ([]string, error) {
	store, closeStore, err := OpenStore(root, cfg, opts)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	b, err := baseline.LoadFrom(ctx, store, true)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, fp := range fingerprints {
		if b.RemoveFingerprint(fp) {
			removed = append(removed, fp)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	return removed, b.SaveTo(ctx, store)
}
