package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/logging"
	"github.com/fakeyudi/wtg/internal/recorder"
	"github.com/fakeyudi/wtg/internal/session"
)

// errNestedSession is returned by start inside a recorded shell.
var errNestedSession = errors.New("already inside a wtg session")

var startCmd = &cobra.Command{
	Use:     "start [logfile]",
	Aliases: []string{"s"},
	Short:   "Start a recorded shell session",
	Long: `Start a shell whose output is recorded to logfile, or to a new file in the
log directory. Commands in the shell can be queried with ` + "`wtg query`" + `.
wtg exits with the shell's exit status.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if env.Session != "" {
			return fmt.Errorf("%w %s (log %s); exit it first", errNestedSession, env.Session, env.Log)
		}

		id := uuid.NewString()
		path, err := sessionLogPath(args, id)
		if err != nil {
			return err
		}

		store, err := session.NewStore()
		if err != nil {
			return err
		}
		recLogger, err := logging.ForRecorder(cfg.DebugLog, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer recLogger.Sync()

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Recording to %s\n", path)
		fmt.Fprintln(out, "Starting wtg session. Type 'exit' to quit.")

		s, err := recorder.Start(cmd.Context(), recorder.Options{
			LogPath:   path,
			Shell:     cfg.Shell,
			Dir:       cwd,
			Stdin:     cmd.InOrStdin(),
			Stdout:    out,
			Logger:    recLogger,
			RawLog:    !cfg.Normalize(),
			SessionID: id,
		})
		if err != nil {
			return err
		}

		record := &session.Record{
			ID:        s.ID(),
			LogPath:   s.LogPath(),
			Shell:     s.Shell(),
			PID:       s.PID(),
			StartTime: time.Now(),
			WorkDir:   cwd,
			Hooks:     s.Hooks(),
		}
		if err := store.Save(record); err != nil {
			recLogger.Warn("could not register session", zap.Error(err))
		}

		code, err := s.Wait()
		if derr := store.Delete(record.ID); derr != nil {
			logger.Warn("could not unregister session", zap.Error(derr))
		}
		if err != nil {
			return fmt.Errorf("recording session: %w", err)
		}
		fmt.Fprintf(out, "wtg session ended. Log: %s\n", s.LogPath())
		if code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

// sessionLogPath returns the log named on the command line, or a new file
// named after id in the configured log directory.
func sessionLogPath(args []string, id string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}
	return filepath.Join(cfg.LogDir, "session-"+id+".log"), nil
}

func init() {
	rootCmd.AddCommand(startCmd)
}
