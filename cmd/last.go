package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/wtg/internal/segment"
)

var lastLog string

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the output of the last finished command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := logPath(lastLog)
		if err != nil {
			return err
		}
		output, err := segment.ExtractLast(path)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(output)
		return err
	},
}

func init() {
	lastCmd.Flags().StringVarP(&lastLog, "logfile", "l", "", "session log to read (default $WTG_LOG)")
	rootCmd.AddCommand(lastCmd)
}
