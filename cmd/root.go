package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/config"
	"github.com/fakeyudi/wtg/internal/logging"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// env holds the WTG_* environment of this invocation.
var env config.Env

// logger writes diagnostics to stderr at the configured level.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "wtg",
	Short: "Record a shell session and ask a model about the last command's output",
	Long: `wtg records everything a shell prints to a log file, marking where each
command's output starts and ends. Inside a recorded session, ` + "`wtg query`" + `
and ` + "`wtg chat`" + ` send the output of the last finished command to a model.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, env, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = logging.ForCLI(cfg.LogLevel)
		logger.Debug("configuration loaded",
			zap.String("model", cfg.Model),
			zap.String("log_dir", cfg.LogDir),
			zap.Bool("in_session", env.Session != ""))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// exitError carries a status that wtg exits with without printing anything,
// such as the exit status of a recorded shell.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command. Errors are printed to stderr and exit with
// code 1; an exitError exits with its own code.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}
