package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/llm"
	"github.com/fakeyudi/wtg/internal/resolve"
)

var (
	queryLog    string
	queryPrompt string
	queryModel  string
)

var queryCmd = &cobra.Command{
	Use:     "query",
	Aliases: []string{"q"},
	Short:   "Ask a model about the last command's output",
	Long: `Ask a model about the output of the last finished command in the session
log. Output piped into wtg is used instead of the log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := resolve.Context(source(cmd, queryLog, true))
		if err != nil {
			return err
		}
		client, err := newClient(queryModel)
		if err != nil {
			return err
		}
		prompt := queryPrompt
		if prompt == "" {
			prompt = cfg.Prompt
		}
		logger.Debug("querying model", zap.Int("context_bytes", len(output)))

		out := cmd.OutOrStdout()
		if _, err := llm.NewConversation(output).Ask(cmd.Context(), client, prompt, out); err != nil {
			return fmt.Errorf("querying model: %w", err)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryLog, "logfile", "l", "", "session log to read (default $WTG_LOG)")
	queryCmd.Flags().StringVarP(&queryPrompt, "prompt", "p", "", "question to ask (default: explain or summarize the output)")
	queryCmd.Flags().StringVarP(&queryModel, "model", "m", "", "model to use (see `wtg models`)")
	rootCmd.AddCommand(queryCmd)
}
