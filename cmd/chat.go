package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/wtg/internal/llm"
	"github.com/fakeyudi/wtg/internal/resolve"
)

var (
	chatLog   string
	chatModel string
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"c"},
	Short:   "Chat with a model about the last command's output",
	Long: `Start a chat about the output of the last finished command. Every question
and answer is added to the context of the next question.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := resolve.ForChat(source(cmd, chatLog, false))
		if err != nil {
			return err
		}
		client, err := newClient(chatModel)
		if err != nil {
			return err
		}
		return chat(cmd.Context(), llm.NewConversation(output), client,
			cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

// chat reads questions from in until an exit word or end of input. A failed
// question is reported on errOut and the chat goes on.
func chat(ctx context.Context, conv *llm.Conversation, client llm.Client, in io.Reader, out, errOut io.Writer) error {
	fmt.Fprintln(out, "(type 'exit' ('e') or 'quit' ('q') to end chat)")
	lines := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "user> ")
		if !lines.Scan() {
			fmt.Fprintln(out)
			return lines.Err()
		}
		prompt := strings.TrimSpace(lines.Text())
		switch strings.ToLower(prompt) {
		case "exit", "e", "quit", "q":
			return nil
		case "":
			continue
		}
		if _, err := conv.Ask(ctx, client, prompt, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(errOut, "Error querying model:", err)
			continue
		}
		fmt.Fprintln(out)
	}
}

func init() {
	chatCmd.Flags().StringVarP(&chatLog, "logfile", "l", "", "session log to read (default $WTG_LOG)")
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to use (see `wtg models`)")
	rootCmd.AddCommand(chatCmd)
}
