// Package runner drives one audit: analyzers, suppression, reports and the
// final gate decision.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/baseline"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/gate"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/gitutil"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/logging"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/report"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/scanners"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Options carries collaborators; every field is optional.
type Options struct {
	Logger *zap.SugaredLogger
	// Analyzers overrides the registry selection driven by the config toggles.
	Analyzers []scanners.Analyzer
	// Summary receives the terminal summary table.
	Summary io.Writer
	// Store overrides the baseline store derived from the config.
	Store        baseline.Store
	ChangedFiles func(root string) ([]string, error)
	Now          func() time.Time
	Version      string
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Audit resolves the configuration for root and runs it.
func Audit(ctx context.Context, root, configPath string, flags config.Layer, opts Options) (schema.RunResult, error) {
	log := logging.OrNop(opts.Logger)
	cfg, used, err := config.Resolve(root, configPath, flags)
	if err != nil {
		return schema.RunResult{ExitCode: schema.ExitFatal}, err
	}
	if used != "" {
		log.Debugw("loaded config file", "path", used)
	}
	return Run(ctx, root, cfg, opts)
}

type analyzerOutput struct {
	index    int
	name     string
	kind     scanners.Kind
	findings []schema.Finding
}

// Run executes one audit of root with a resolved configuration. On a fatal
// error no report artifacts are written and the returned result carries the
// exit code for that error.
func Run(ctx context.Context, root string, cfg config.Config, opts Options) (schema.RunResult, error) {
	log := logging.OrNop(opts.Logger)
	abs, err := filepath.Abs(root)
	if err != nil {
		return schema.RunResult{ExitCode: schema.ExitFatal}, fmt.Errorf("resolve %s: %w", root, err)
	}
	root = abs

	res := schema.RunResult{
		RunID:      report.NewRunID(),
		Root:       root,
		Timestamp:  opts.now().UTC(),
		Findings:   map[string][]schema.Finding{},
		Suppressed: map[string][]schema.Finding{},
	}
	fail := func(err error) (schema.RunResult, error) {
		res.ExitCode = schema.ExitCodeFor(err)
		return res, err
	}

	candidates := opts.Analyzers
	if candidates == nil {
		candidates = scanners.Enabled(cfg.Analyzers.Toggles())
	}
	ready, skipped, err := selectAvailable(ctx, candidates, cfg.Analysis.Strict, log)
	if err != nil {
		return fail(err)
	}
	res.Skipped = skipped

	target := buildTarget(root, cfg, opts, log)
	outputs, err := analyze(ctx, ready, target, cfg, log)
	if err != nil {
		return fail(err)
	}

	if err := suppress(ctx, root, cfg, opts, outputs, &res, log); err != nil {
		return fail(err)
	}

	hasCode, hasDeps := false, false
	for _, a := range ready {
		if a.Kind() == scanners.KindDependency {
			hasDeps = true
		} else {
			hasCode = true
		}
	}
	in := report.Input{
		Root:         root,
		Code:         res.Code(),
		Dependencies: res.Dependencies(),
		Partitioned:  hasCode && hasDeps,
		ManifestHint: target.ManifestHint,
		Version:      opts.Version,
		GeneratedAt:  res.Timestamp,
	}
	outDir := cfg.OutputDir(root)
	written, err := report.Write(ctx, cfg.Output.Format, in, outDir)
	if err != nil {
		return fail(err)
	}
	res.Reports = written
	snap, err := report.WriteSnapshot(in, res.RunID, outDir)
	if err != nil {
		return fail(err)
	}
	res.SnapshotPath = snap

	res.ExitCode = gate.Combine(
		gate.Gate(in.Code, cfg.Analysis.FailOn),
		gate.Gate(in.Dependencies, cfg.Analysis.FailOn),
	)
	log.Infow("audit complete",
		"run_id", res.RunID,
		"findings", len(in.Code)+len(in.Dependencies),
		"suppressed", res.SuppressedCount(),
		"fail_on", cfg.Analysis.FailOn,
		"exit_code", res.ExitCode)

	if opts.Summary != nil {
		if err := report.WriteSummary(opts.Summary, res); err != nil {
			log.Warnw("failed to print summary", "error", err)
		}
	}
	return res, nil
}

// selectAvailable drops analyzers whose tool is missing, or fails on the
// first one in strict mode.
func selectAvailable(ctx context.Context, list []scanners.Analyzer, strict bool, log *zap.SugaredLogger) ([]scanners.Analyzer, []string, error) {
	var (
		ready   []scanners.Analyzer
		skipped []string
	)
	for _, a := range list {
		err := a.Available(ctx)
		if err == nil {
			ready = append(ready, a)
			continue
		}
		var ue *schema.AnalyzerUnavailableError
		if !errors.As(err, &ue) {
			ue = &schema.AnalyzerUnavailableError{Analyzer: a.Name(), Err: err}
		}
		if strict {
			return nil, nil, ue
		}
		log.Warnw("analyzer unavailable, skipping", "analyzer", a.Name(), "hint", ue.Hint())
		skipped = append(skipped, a.Name())
	}
	return ready, skipped, nil
}

func buildTarget(root string, cfg config.Config, opts Options, log *zap.SugaredLogger) scanners.Target {
	t := scanners.Target{Root: root, Exclude: scanners.NewMatcher(cfg.Exclude)}
	t.ManifestHint = scanners.ChooseManifest(t)
	if !cfg.Analysis.ChangedOnly {
		return t
	}
	changed := opts.ChangedFiles
	if changed == nil {
		changed = gitutil.ChangedFiles
	}
	files, err := changed(root)
	if err != nil {
		log.Warnw("changed-only requested but changes could not be listed; scanning everything", "error", err)
		return t
	}
	t.ChangedOnly = true
	t.Files = files
	log.Debugw("restricting scan to changed files", "count", len(files))
	return t
}

// analyze runs the analyzers sequentially, or on a conc pool when parallel
// is set. Outputs are always returned in analyzer order.
func analyze(ctx context.Context, list []scanners.Analyzer, t scanners.Target, cfg config.Config, log *zap.SugaredLogger) ([]analyzerOutput, error) {
	runOne := func(ctx context.Context, i int, a scanners.Analyzer) (analyzerOutput, error) {
		start := time.Now()
		log.Infow("running analyzer", "analyzer", a.Name(), "kind", a.Kind())
		fs, err := runWithTimeout(ctx, a, t, cfg.Analysis.Timeout)
		if err != nil {
			return analyzerOutput{}, err
		}
		category := a.Kind().Category()
		for j := range fs {
			if fs[j].Category == "" {
				fs[j].Category = category
			}
		}
		log.Infow("analyzer finished", "analyzer", a.Name(), "findings", len(fs), "elapsed", time.Since(start).Round(time.Millisecond))
		return analyzerOutput{index: i, name: a.Name(), kind: a.Kind(), findings: fs}, nil
	}

	if !cfg.Analysis.Parallel || len(list) < 2 {
		outs := make([]analyzerOutput, 0, len(list))
		for i, a := range list {
			out, err := runOne(ctx, i, a)
			if err != nil {
				return nil, err
			}
			outs = append(outs, out)
		}
		return outs, nil
	}

	p := pool.NewWithResults[analyzerOutput]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(len(list))
	for i, a := range list {
		i, a := i, a
		p.Go(func(ctx context.Context) (analyzerOutput, error) {
			return runOne(ctx, i, a)
		})
	}
	outs, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i].index < outs[j].index })
	return outs, nil
}

type runResult struct {
	findings []schema.Finding
	err      error
}

// runWithTimeout bounds a.Run even when the analyzer ignores its context.
func runWithTimeout(ctx context.Context, a scanners.Analyzer, t scanners.Target, timeout time.Duration) ([]schema.Finding, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan runResult, 1)
	go func() {
		fs, err := a.Run(actx, t)
		done <- runResult{findings: fs, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, classify(a.Name(), r.err)
		}
		return r.findings, nil
	case <-actx.Done():
		err := actx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return nil, &schema.AnalyzerExecutionError{Analyzer: a.Name(), Err: err}
	}
}

func classify(name string, err error) error {
	var ue *schema.AnalyzerUnavailableError
	var ee *schema.AnalyzerExecutionError
	if errors.As(err, &ue) || errors.As(err, &ee) {
		return err
	}
	return &schema.AnalyzerExecutionError{Analyzer: name, Err: err}
}

// suppress applies inline comments and the baseline, filling res.Findings
// and res.Suppressed.
func suppress(ctx context.Context, root string, cfg config.Config, opts Options, outputs []analyzerOutput, res *schema.RunResult, log *zap.SugaredLogger) error {
	var inline *baseline.InlineChecker
	if cfg.Baseline.InlineSuppressions {
		inline = baseline.NewInlineChecker(root)
	}

	var base *baseline.Baseline
	if cfg.Analysis.RespectBaseline {
		store, closeStore, err := OpenStore(root, cfg, opts)
		if err != nil {
			return err
		}
		defer closeStore()
		base, _ = baseline.LoadFrom(ctx, store, false)
		log.Debugw("baseline loaded", "location", store.Location(), "entries", base.Len())
	}

	for _, out := range outputs {
		res.Analyzers = append(res.Analyzers, out.name)
		kept := out.findings
		var suppressed []schema.Finding

		if inline != nil && out.kind == scanners.KindCode {
			var s []schema.Finding
			kept, s = inline.Filter(kept)
			suppressed = append(suppressed, s...)
		}
		if base != nil && (out.kind == scanners.KindCode || cfg.Baseline.IncludeDependencies) {
			var s []schema.Finding
			kept, s = base.Filter(kept, cfg.Analysis.RespectBaseline)
			suppressed = append(suppressed, s...)
		}

		if kept == nil {
			kept = []schema.Finding{}
		}
		res.Findings[out.name] = kept
		if len(suppressed) > 0 {
			res.Suppressed[out.name] = suppressed
			log.Infow("suppressed findings", "analyzer", out.name, "count", len(suppressed))
		}
	}
	return nil
}
