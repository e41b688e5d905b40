package cli

import (
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/baseline"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/runner"
)

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage accepted findings",
	}
	cmd.PersistentFlags().String("path", ".", "Project root")

	create := &cobra.Command{
		Use:   "create",
		Short: "Record every current finding as accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, cfg, err := resolveFor(cmd)
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			actor, _ := cmd.Flags().GetString("actor")
			if actor == "" {
				actor = currentUser()
			}
			b, loc, err := runner.CreateBaseline(cmd.Context(), root, cfg, reason, actor, runner.Options{Logger: sugar()})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Baseline with %d entries saved to %s\n", b.Len(), loc)
			return nil
		},
	}
	create.Flags().String("reason", baseline.DefaultReason, "Why these findings are accepted")
	create.Flags().String("actor", "", "Who accepted them (default: current user)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, cfg, err := resolveFor(cmd)
			if err != nil {
				return err
			}
			b, loc, err := runner.LoadBaseline(cmd.Context(), root, cfg, runner.Options{Logger: sugar()})
			if err != nil {
				return err
			}
			sugar().Debugw("baseline loaded", "location", loc)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(b.Stats())
		},
	}

	remove := &cobra.Command{
		Use:   "remove FINGERPRINT...",
		Short: "Drop entries from the baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := resolveFor(cmd)
			if err != nil {
				return err
			}
			removed, err := runner.RemoveFromBaseline(cmd.Context(), root, cfg, args, runner.Options{Logger: sugar()})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d entries\n", len(removed), len(args))
			return nil
		},
	}

	cmd.AddCommand(create, stats, remove)
	return cmd
}

// resolveFor resolves the configuration for a subcommand's --path.
func resolveFor(cmd *cobra.Command) (string, config.Config, error) {
	root, _ := cmd.Flags().GetString("path")
	cfg, used, err := config.Resolve(root, viper.GetString("config"), config.Layer{})
	if err != nil {
		return root, cfg, err
	}
	if used != "" {
		sugar().Debugw("loaded config file", "path", used)
	}
	return root, cfg, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return baseline.DefaultActor
}
