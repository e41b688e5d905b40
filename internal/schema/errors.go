package schema

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFindings    = 1
	ExitUnavailable = 2
	ExitFatal       = 3
)

// ConfigError is returned for unreadable or invalid configuration and baseline files.
type ConfigError struct {
	Path   string
	Err    error
	Remedy string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Hint() string {
	if e.Remedy != "" {
		return e.Remedy
	}
	return "run `yoro-audit config init` to write a default configuration"
}

// AnalyzerUnavailableError means the analyzer's tool is not installed or not runnable.
type AnalyzerUnavailableError struct {
	Analyzer string
	Err      error
	Install  string
}

func (e *AnalyzerUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analyzer %s is not available", e.Analyzer)
	}
	return fmt.Sprintf("analyzer %s is not available: %v", e.Analyzer, e.Err)
}

func (e *AnalyzerUnavailableError) Unwrap() error { return e.Err }

func (e *AnalyzerUnavailableError) Hint() string {
	if e.Install != "" {
		return e.Install
	}
	return fmt.Sprintf("install %s or disable it in the configuration", e.Analyzer)
}

// AnalyzerExecutionError means the tool ran but failed or produced unusable output.
type AnalyzerExecutionError struct {
	Analyzer string
	Err      error
	Stderr   string
}

func (e *AnalyzerExecutionError) Error() string {
	return fmt.Sprintf("analyzer %s failed: %v", e.Analyzer, e.Err)
}

func (e *AnalyzerExecutionError) Unwrap() error { return e.Err }

func (e *AnalyzerExecutionError) Hint() string {
	if e.Stderr != "" {
		return "analyzer output: " + e.Stderr
	}
	return "re-run with --debug for details"
}

// ReportWriteError wraps I/O failures while writing report artifacts.
type ReportWriteError struct {
	Path string
	Err  error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *ReportWriteError) Unwrap() error { return e.Err }

func (e *ReportWriteError) Hint() string {
	return "check that the output directory is writable"
}

// ExitCodeFor maps a fatal run error to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var unavailable *AnalyzerUnavailableError
	if errors.As(err, &unavailable) {
		return ExitUnavailable
	}
	return ExitFatal
}

// HintFor returns the remedy attached to err, if any.
func HintFor(err error) string {
	var h interface{ Hint() string }
	if errors.As(err, &h) {
		return h.Hint()
	}
	return ""
}
