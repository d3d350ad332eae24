package llm

import (
	"fmt"
	"strings"
)

// Model is a supported chat model.
type Model string

const (
	GPT4o     Model = "gpt-4o"
	GPT4oMini Model = "gpt-4o-mini"
	O3Mini    Model = "o3-mini"
)

// DefaultModel is used when neither a flag nor the config names one.
const DefaultModel = GPT4o

// Models lists the supported models.
func Models() []Model {
	return []Model{GPT4o, GPT4oMini, O3Mini}
}

// ParseModel accepts a model name case-insensitively, with or without the
// dash after "gpt".
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gpt-4o", "gpt4o":
		return GPT4o, nil
	case "gpt-4o-mini", "gpt4o-mini":
		return GPT4oMini, nil
	case "o3-mini", "o3mini":
		return O3Mini, nil
	}
	names := make([]string, 0, len(Models()))
	for _, m := range Models() {
		names = append(names, string(m))
	}
	return "", fmt.Errorf("%w: %q (choose from %s)", ErrUnsupportedModel, s, strings.Join(names, ", "))
}
