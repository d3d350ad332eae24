// Package llm asks an OpenAI-compatible chat completions endpoint about
// captured command output.
package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrNoAPIKey is returned when WTG_OPENAI_KEY is not set.
	ErrNoAPIKey = errors.New("WTG_OPENAI_KEY is not set")
	// ErrUnsupportedModel is returned for model names wtg does not know.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrAPI is returned when the endpoint answers with an error status.
	ErrAPI = errors.New("chat completions request failed")
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client completes a conversation.
type Client interface {
	// Complete streams the reply to w as it arrives (w may be nil) and
	// returns the full reply.
	Complete(ctx context.Context, msgs []Message, w io.Writer) (string, error)
}

// Options configures an OpenAI client.
type Options struct {
	APIKey  string
	BaseURL string // e.g. https://api.openai.com/v1
	Model   Model
	Timeout time.Duration
}

// OpenAI is a Client for the chat completions API.
type OpenAI struct {
	resty *resty.Client
	model Model
}

type chatRequest struct {
	Model    Model     `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAI returns a client for opts.Model.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetAuthToken(opts.APIKey).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "wtg").
		SetHeader("Accept", "text/event-stream")
	return &OpenAI{resty: client, model: opts.Model}, nil
}

// Complete sends msgs and streams the reply.
func (c *OpenAI) Complete(ctx context.Context, msgs []Message, w io.Writer) (string, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: msgs, Stream: true}).
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("sending chat request: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return "", readAPIError(resp.StatusCode(), body)
	}
	return readStream(body, w)
}

// readStream collects the content deltas of a server-sent event stream.
func readStream(r io.Reader, w io.Writer) (string, error) {
	var reply strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return reply.String(), fmt.Errorf("decoding stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		reply.WriteString(delta)
		if w != nil && delta != "" {
			if _, err := io.WriteString(w, delta); err != nil {
				return reply.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return reply.String(), fmt.Errorf("reading stream: %w", err)
	}
	return reply.String(), nil
}

func readAPIError(status int, body io.Reader) error {
	data, _ := io.ReadAll(io.LimitReader(body, 64*1024))
	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%w (%d): %s", ErrAPI, status, apiErr.Error.Message)
	}
	return fmt.Errorf("%w (%d): %s", ErrAPI, status, strings.TrimSpace(string(data)))
}
