// Package report renders audit findings into the supported output formats.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

// Artifact file names inside the output directory.
const (
	SARIFFile    = "report.sarif"
	HTMLFile     = "report.html"
	PDFFile      = "report.pdf"
	JSONFile     = "analysis.json"
	MarkdownFile = "security-report.md"
	SnapshotFile = "last_run.json"
)

// Input is everything a report needs.
type Input struct {
	Root         string
	Code         []schema.Finding
	Dependencies []schema.Finding
	// Partitioned is set when both code and dependency analyzers ran.
	Partitioned  bool
	ManifestHint string
	Tool         string
	Version      string
	GeneratedAt  time.Time
}

// Total is the number of findings in the report.
func (in Input) Total() int { return len(in.Code) + len(in.Dependencies) }

// All returns code findings followed by dependency findings.
func (in Input) All() []schema.Finding {
	out := make([]schema.Finding, 0, in.Total())
	out = append(out, in.Code...)
	return append(out, in.Dependencies...)
}

func (in Input) tool() string {
	if in.Tool == "" {
		return "yoro-audit"
	}
	return in.Tool
}

func (in Input) generatedAt() time.Time {
	if in.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return in.GeneratedAt.UTC()
}

// Write renders one format into outDir and returns the files written.
// Failures are *schema.ReportWriteError.
func Write(ctx context.Context, format string, in Input, outDir string) ([]string, error) {
	switch format {
	case "sarif":
		p := filepath.Join(outDir, SARIFFile)
		return []string{p}, wrap(p, WriteSARIF(in, p))
	case "html":
		p := filepath.Join(outDir, HTMLFile)
		return []string{p}, wrap(p, WriteHTML(in, p))
	case "json":
		p := filepath.Join(outDir, JSONFile)
		return []string{p}, wrap(p, WriteJSON(in, p))
	case "markdown", "md":
		p := filepath.Join(outDir, MarkdownFile)
		return []string{p}, wrap(p, WriteMarkdown(in, p))
	case "pdf":
		htmlPath := filepath.Join(outDir, HTMLFile)
		if err := WriteHTML(in, htmlPath); err != nil {
			return nil, wrap(htmlPath, err)
		}
		pdfPath := filepath.Join(outDir, PDFFile)
		if err := WritePDF(ctx, htmlPath, pdfPath); err != nil {
			return []string{htmlPath}, wrap(pdfPath, err)
		}
		return []string{htmlPath, pdfPath}, nil
	}
	return nil, &schema.ReportWriteError{Path: outDir, Err: fmt.Errorf("unknown format %q", format)}
}

// WriteAll renders every format, continuing past failures, and returns the
// files written together with the combined error.
func WriteAll(ctx context.Context, formats []string, in Input, outDir string) ([]string, error) {
	var (
		written []string
		errs    error
	)
	for _, f := range formats {
		paths, err := Write(ctx, f, in, outDir)
		if err == nil {
			written = append(written, paths...)
		}
		errs = multierr.Append(errs, err)
	}
	return written, errs
}

func wrap(path string, err error) error {
	if err == nil {
		return nil
	}
	return &schema.ReportWriteError{Path: path, Err: err}
}
