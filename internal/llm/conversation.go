package llm

import (
	"context"
	"io"
)

// SystemPrompt introduces the captured output to the model.
const SystemPrompt = "You are a helpful assistant. The user has run a command and received the following output: "

// Conversation is a question-and-answer exchange about one command's output.
// Every turn is folded back into the context of the next one.
type Conversation struct {
	context string
}

// NewConversation starts a conversation about output.
func NewConversation(output []byte) *Conversation {
	return &Conversation{context: string(output)}
}

// Messages returns the request for asking prompt.
func (c *Conversation) Messages(prompt string) []Message {
	return []Message{
		{Role: "system", Content: SystemPrompt + c.context},
		{Role: "user", Content: prompt},
	}
}

// Ask sends prompt, streams the reply to w and records the turn.
func (c *Conversation) Ask(ctx context.Context, client Client, prompt string, w io.Writer) (string, error) {
	reply, err := client.Complete(ctx, c.Messages(prompt), w)
	if err != nil {
		return "", err
	}
	c.context += "\nuser: " + prompt + "\nassistant: " + reply
	return reply, nil
}

// Context returns the accumulated context.
func (c *Conversation) Context() string {
	return c.context
}
