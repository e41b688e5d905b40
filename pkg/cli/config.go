package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect " + config.FileName,
	}

	initCmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write the default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.WriteDefault(dir, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, _ := cmd.Flags().GetString("path")
			cfg, used, err := config.Resolve(root, viper.GetString("config"), config.Layer{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if used != "" {
				fmt.Fprintf(out, "# from %s\n", used)
			} else {
				fmt.Fprintln(out, "# built-in defaults")
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Layer())
		},
	}
	show.Flags().String("path", ".", "Project root")

	cmd.AddCommand(initCmd, show)
	return cmd
}
