package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/wtg/internal/llm"
	"github.com/fakeyudi/wtg/internal/resolve"
)

// source describes where cmd can take its context from. Input that is not
// an *os.File (tests, embedding) counts as piped.
func source(cmd *cobra.Command, logPath string, allowStdin bool) resolve.Source {
	in := cmd.InOrStdin()
	piped := true
	if f, ok := in.(*os.File); ok {
		piped = resolve.Piped(f)
	}
	return resolve.Source{
		LogPath:    logPath,
		EnvLogPath: env.Log,
		Stdin:      in,
		StdinPiped: piped,
		AllowStdin: allowStdin,
	}
}

// logPath resolves the log for commands that only read logs.
func logPath(path string) (string, error) {
	return resolve.LogPath(resolve.Source{LogPath: path, EnvLogPath: env.Log})
}

// newClient builds the model client from config, the environment and the
// --model flag, which wins when set.
func newClient(model string) (llm.Client, error) {
	if model == "" {
		model = cfg.Model
	}
	m, err := llm.ParseModel(model)
	if err != nil {
		return nil, err
	}
	return llm.NewOpenAI(llm.Options{
		APIKey:  env.APIKey,
		BaseURL: cfg.APIBaseURL,
		Model:   m,
	})
}
