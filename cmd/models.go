package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/wtg/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the supported models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, _ := llm.ParseModel(cfg.Model)
		for _, m := range llm.Models() {
			mark := " "
			if m == current {
				mark = "*"
			}
			cmd.Printf("%s %s\n", mark, m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
