package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/segment"
)

var watchLog string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print each command's output as it finishes",
	Long: `Follow a session log, for example from another terminal, and print the
output of every command that finishes until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := logPath(watchLog)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch(ctx, path, cmd)
	},
}

func watch(ctx context.Context, path string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	logger.Debug("watching log", zap.String("log", path))
	return segment.Watch(ctx, path, func(s segment.Segment) {
		fmt.Fprintf(out, "==> command %d <==\n", s.Seq)
		out.Write(s.Content)
		if n := len(s.Content); n > 0 && s.Content[n-1] != '\n' {
			fmt.Fprintln(out)
		}
	})
}

func init() {
	watchCmd.Flags().StringVarP(&watchLog, "logfile", "l", "", "session log to follow (default $WTG_LOG)")
	rootCmd.AddCommand(watchCmd)
}
