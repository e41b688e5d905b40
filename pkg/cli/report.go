package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
	reportpkg "github.com/yorozuya-cybersecurity/yoro-audit/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Re-render reports from the last run",
		Example: "yoro-audit report --from .yoro/analysis --format html,pdf",
		Args:    cobra.NoArgs,
		RunE:    runReport,
	}

	cmd.Flags().String("from", "", "Output directory of a previous audit (must contain "+reportpkg.SnapshotFile+")")
	cmd.Flags().StringSlice("format", []string{config.FormatHTML}, "Output formats: sarif,html,json,markdown,pdf")
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	from, _ := cmd.Flags().GetString("from")
	if from == "" {
		return errors.New("please provide --from pointing to an audit output directory")
	}
	formats, _ := cmd.Flags().GetStringSlice("format")

	in, snap, err := reportpkg.LoadSnapshot(from)
	if err != nil {
		return err
	}
	in.Version = Version
	sugar().Debugw("loaded snapshot", "run_id", snap.RunID, "findings", in.Total())

	written, err := reportpkg.WriteAll(cmd.Context(), normalizeFormats(formats), in, from)
	for _, p := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "📝 Report: %s\n", p)
	}
	return err
}

func normalizeFormats(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range in {
		f = config.NormalizeFormat(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
