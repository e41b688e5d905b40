package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/yoro-audit/internal/config"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/logging"
	"github.com/yorozuya-cybersecurity/yoro-audit/internal/schema"
)

var (
	Version = "0.1.0"
	rootCmd *cobra.Command
	logger  *zap.SugaredLogger
)

// errThresholdExceeded ends a run that completed but found issues at or above
// fail_on. It is reported through the exit code only.
var errThresholdExceeded = errors.New("findings at or above the failure threshold")

func init() {
	rootCmd = newRootCmd()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "yoro-audit",
		Short:         "Security audit gate for Python projects",
		Long:          "yoro-audit runs static analyzers over a project, suppresses accepted findings, writes reports and fails the build above a severity threshold.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l, err := logging.New(viper.GetBool("debug"))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger = l
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().Bool("debug", false, "Verbose logging")
	cmd.PersistentFlags().String("config", "", "Config file (default: nearest "+config.FileName+")")
	_ = viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	// YORO_AUDIT_DEBUG, YORO_AUDIT_CONFIG
	viper.SetEnvPrefix("YORO_AUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newBaselineCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI and exits with the audit's exit code.
func Execute() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps a command error onto the process exit code, printing the
// error and its remedy to w.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return schema.ExitOK
	}
	if errors.Is(err, errThresholdExceeded) {
		return schema.ExitFindings
	}
	fmt.Fprintf(w, "error: %v\n", err)
	if hint := schema.HintFor(err); hint != "" {
		fmt.Fprintf(w, "hint: %s\n", hint)
	}
	return schema.ExitCodeFor(err)
}

func sugar() *zap.SugaredLogger {
	return logging.OrNop(logger)
}
