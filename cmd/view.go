package cmd

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/wtg/internal/report"
	"github.com/fakeyudi/wtg/internal/tui"
)

var (
	viewLog      string
	plainOutput  bool
	followOutput bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the commands of a session log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadReport(viewLog)
		if err != nil {
			return err
		}
		if plainOutput || !isTerminal(cmd) {
			data, err := report.TextRenderer{}.Render(r)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return tui.Run(cmd.Context(), r, r.Log, followOutput)
	},
}

// isTerminal reports whether cmd writes to a terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func init() {
	viewCmd.Flags().StringVarP(&viewLog, "logfile", "l", "", "session log to read (default $WTG_LOG)")
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	viewCmd.Flags().BoolVarP(&followOutput, "follow", "f", false, "add commands to the TUI as they finish")
	rootCmd.AddCommand(viewCmd)
}
