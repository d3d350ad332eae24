package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/wtg/internal/report"
	"github.com/fakeyudi/wtg/internal/segment"
)

var (
	segmentsLog    string
	segmentsFormat string
)

var segmentsCmd = &cobra.Command{
	Use:     "segments",
	Aliases: []string{"ls"},
	Short:   "List every command recorded in a session log",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := report.RendererFor(segmentsFormat)
		if err != nil {
			return err
		}
		r, err := loadReport(segmentsLog)
		if err != nil {
			return err
		}
		data, err := renderer.Render(r)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// loadReport scans the resolved log.
func loadReport(path string) (*report.Report, error) {
	path, err := logPath(path)
	if err != nil {
		return nil, err
	}
	segs, err := segment.Scan(path)
	if err != nil {
		return nil, err
	}
	return report.New(path, segs), nil
}

func init() {
	segmentsCmd.Flags().StringVarP(&segmentsLog, "logfile", "l", "", "session log to read (default $WTG_LOG)")
	segmentsCmd.Flags().StringVar(&segmentsFormat, "format", "text", "output format: text, json or markdown")
	rootCmd.AddCommand(segmentsCmd)
}
