package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/scanners"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check which analyzers are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ANALYZER\tKIND\tSTATUS\tHINT")
			for _, a := range scanners.Registry() {
				status, hint := "ok", ""
				if err := a.Available(cmd.Context()); err != nil {
					status, hint = "missing", schema.HintFor(err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Name(), a.Kind(), status, hint)
			}
			return tw.Flush()
		},
	}
}
