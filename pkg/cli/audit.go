package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/runner"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/scanners"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "audit",
		Short:   "Run the enabled analyzers and gate on severity",
		Example: "yoro-audit audit --path ./service --fail-on MEDIUM -o html",
		Args:    cobra.NoArgs,
		RunE:    runAudit,
	}

	f := cmd.Flags()
	f.String("path", ".", "Project root to audit")
	f.StringP("output", "o", "", "Report format: "+strings.Join(config.Formats, ", "))
	f.String("out-dir", "", "Report directory (relative to --path)")
	f.String("fail-on", "", "Lowest severity that fails the run (LOW, MEDIUM, HIGH, CRITICAL)")
	f.Bool("respect-baseline", true, "Suppress findings recorded in the baseline")
	f.Bool("changed-only", false, "Only scan files changed in the git working tree")
	f.Bool("strict", false, "Fail when an enabled analyzer is not installed")
	f.String("timeout", "", "Per-analyzer timeout, e.g. 5m")
	f.Bool("parallel", false, "Run analyzers concurrently")
	f.StringSlice("exclude", nil, "Gitignore-style exclude patterns, replacing the configured list")
	for _, a := range scanners.Registry() {
		f.Bool(a.Name(), false, "Enable the "+a.Name()+" analyzer")
	}
	return cmd
}

func runAudit(cmd *cobra.Command, _ []string) error {
	flags, err := flagLayer(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("path")

	res, err := runner.Audit(cmd.Context(), path, viper.GetString("config"), flags, runner.Options{
		Logger:  sugar(),
		Summary: cmd.OutOrStdout(),
		Version: Version,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range res.Reports {
		fmt.Fprintf(out, "📝 Report: %s\n", p)
	}
	if res.ExitCode == schema.ExitFindings {
		fmt.Fprintln(out, "❌ Findings at or above the failure threshold")
		return errThresholdExceeded
	}
	fmt.Fprintln(out, "✅ No findings at or above the failure threshold")
	return nil
}

// flagLayer turns the flags the user actually set into the top config layer.
func flagLayer(cmd *cobra.Command) (config.Layer, error) {
	var l config.Layer
	f := cmd.Flags()

	str := func(name string, dst **string) {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			*dst = &v
		}
	}
	boolean := func(name string, dst **bool) {
		if f.Changed(name) {
			v, _ := f.GetBool(name)
			*dst = &v
		}
	}

	str("output", &l.Output.Format)
	str("out-dir", &l.Output.Directory)
	str("fail-on", &l.Analysis.FailOn)
	str("timeout", &l.Analysis.Timeout)
	boolean("respect-baseline", &l.Analysis.RespectBaseline)
	boolean("changed-only", &l.Analysis.ChangedOnly)
	boolean("strict", &l.Analysis.Strict)
	boolean("parallel", &l.Analysis.Parallel)
	boolean("bandit", &l.Analyzers.Bandit)
	boolean("safety", &l.Analyzers.Safety)
	boolean("semgrep", &l.Analyzers.Semgrep)
	boolean("gitleaks", &l.Analyzers.Gitleaks)
	boolean("trivy", &l.Analyzers.Trivy)

	if f.Changed("exclude") {
		extra, err := f.GetStringSlice("exclude")
		if err != nil {
			return l, err
		}
		l.Exclude.Paths = extra
	}
	return l, nil
}
