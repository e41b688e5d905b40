package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, s := range info.Settings {
					if s.Key == "vcs.revision" && len(s.Value) >= 7 {
						fmt.Fprintf(out, "yoro-audit %s (commit %s)\n", Version, s.Value[:7])
						return
					}
				}
			}
			fmt.Fprintf(out, "yoro-audit %s\n", Version)
		},
	}
}
