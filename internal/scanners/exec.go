package scanners

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

type commandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// runCommand executes an external tool; tests replace it.
var runCommand = func(ctx context.Context, dir, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// lookPath resolves tool binaries; tests replace it.
var lookPath = exec.LookPath

func checkTool(analyzer, bin, install string) error {
	if _, err := lookPath(bin); err != nil {
		return &schema.AnalyzerUnavailableError{Analyzer: analyzer, Err: err, Install: install}
	}
	return nil
}

// invoke runs a tool and classifies failures: missing binaries are
// unavailable, deadlines and unexpected exit codes are execution failures.
func invoke(ctx context.Context, analyzer, dir string, okCodes []int, bin string, args ...string) (commandResult, error) {
	res, err := runCommand(ctx, dir, bin, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			ctxErr = fmt.Errorf("timed out: %w", ctxErr)
		}
		return res, &schema.AnalyzerExecutionError{Analyzer: analyzer, Err: ctxErr}
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return res, &schema.AnalyzerUnavailableError{Analyzer: analyzer, Err: err}
		}
		return res, &schema.AnalyzerExecutionError{Analyzer: analyzer, Err: err}
	}
	for _, c := range okCodes {
		if res.ExitCode == c {
			return res, nil
		}
	}
	return res, &schema.AnalyzerExecutionError{
		Analyzer: analyzer,
		Err:      fmt.Errorf("exit status %d", res.ExitCode),
		Stderr:   tail(string(res.Stderr), 400),
	}
}

func parseError(analyzer string, err error) error {
	return &schema.AnalyzerExecutionError{Analyzer: analyzer, Err: fmt.Errorf("parse output: %w", err)}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
