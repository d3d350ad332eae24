package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded sessions that are running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}

		pruned, err := store.Prune()
		if err != nil {
			return err
		}
		for _, r := range pruned {
			logger.Info("removed stale session", zap.String("session", r.ID), zap.Int("pid", r.PID))
		}

		if env.Session != "" {
			cmd.Printf("In session %s\n", env.Session)
			cmd.Printf("Log: %s\n", env.Log)
		} else {
			cmd.Println("Not in a recorded session")
		}

		records, err := store.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmd.Println("No running sessions")
			return nil
		}
		cmd.Printf("Running sessions: %d\n", len(records))
		for _, r := range records {
			cmd.Printf("  %s  pid %d  %s  up %s\n    %s\n",
				r.ID, r.PID, r.Shell,
				time.Since(r.StartTime).Round(time.Second).String(),
				r.LogPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
