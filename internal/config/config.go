// Package config loads wtg settings from the global config file, an optional
// project file and WTG_* environment variables, in increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// DefaultPrompt is asked when a query gives no prompt of its own.
const DefaultPrompt = "Here is the program output. If there was an error, concisely explain how it can be fixed.\n" +
	"If there was no error, concisely summarize the output."

// Config holds all configurable wtg settings.
type Config struct {
	Shell             string `json:"shell"`        // empty: $SHELL
	Model             string `json:"model"`        // gpt-4o | gpt-4o-mini | o3-mini
	Prompt            string `json:"prompt"`       // default query prompt
	APIBaseURL        string `json:"api_base_url"` // OpenAI-compatible endpoint
	LogDir            string `json:"log_dir"`      // where `wtg start` puts unnamed logs
	LogLevel          string `json:"log_level"`
	DebugLog          string `json:"debug_log"` // recorder diagnostics; empty: discarded
	NormalizeNewlines *bool  `json:"normalize_newlines,omitempty"`
}

// Normalize reports whether logs should store "\r\n" as "\n". It does
// unless normalize_newlines is set to false.
func (c Config) Normalize() bool {
	return c.NormalizeNewlines == nil || *c.NormalizeNewlines
}

// Env is the environment of a wtg invocation. WTG_LOG and WTG_SESSION are set
// by `wtg start` for the recorded shell; the rest override config files.
type Env struct {
	Log     string `envconfig:"WTG_LOG"`
	Session string `envconfig:"WTG_SESSION"`
	APIKey  string `envconfig:"WTG_OPENAI_KEY"`

	Model             string `envconfig:"WTG_LLM"`
	Prompt            string `envconfig:"WTG_PROMPT"`
	APIBaseURL        string `envconfig:"WTG_API_BASE"`
	Shell             string `envconfig:"WTG_SHELL"`
	LogDir            string `envconfig:"WTG_LOG_DIR"`
	LogLevel          string `envconfig:"WTG_LOG_LEVEL"`
	DebugLog          string `envconfig:"WTG_DEBUG_LOG"`
	NormalizeNewlines *bool  `envconfig:"WTG_NORMALIZE_NEWLINES"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Model:      "gpt-4o",
		Prompt:     DefaultPrompt,
		APIBaseURL: "https://api.openai.com/v1",
		LogDir:     filepath.Join(DataDir(), "logs"),
		LogLevel:   "warn",
	}
}

// DataDir returns $XDG_DATA_HOME/wtg, falling back to ~/.local/share/wtg.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "wtg")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "wtg")
	}
	return filepath.Join(home, ".local", "share", "wtg")
}

// LoadGlobal reads ~/.config/wtg/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "wtg", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .wtgconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".wtgconfig", false)
}

// LoadEnv reads the WTG_* environment variables.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("failed to load environment: %w", err)
	}
	return env, nil
}

// Load returns the effective configuration and the environment it was
// resolved with.
func Load() (Config, Env, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, Env{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, Env{}, err
	}
	env, err := LoadEnv()
	if err != nil {
		return Config{}, Env{}, err
	}
	return env.Apply(Merge(global, project)), env, nil
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer != nil {
			result = overlay(result, *layer)
		}
	}
	return result
}

// Apply returns cfg with every set environment variable taking precedence.
func (e Env) Apply(cfg Config) Config {
	return overlay(cfg, Config{
		Shell:             e.Shell,
		Model:             e.Model,
		Prompt:            e.Prompt,
		APIBaseURL:        e.APIBaseURL,
		LogDir:            e.LogDir,
		LogLevel:          e.LogLevel,
		DebugLog:          e.DebugLog,
		NormalizeNewlines: e.NormalizeNewlines,
	})
}

// overlay copies every non-empty field of top over base.
func overlay(base, top Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.Shell, top.Shell)
	set(&base.Model, top.Model)
	set(&base.Prompt, top.Prompt)
	set(&base.APIBaseURL, top.APIBaseURL)
	set(&base.LogDir, top.LogDir)
	set(&base.LogLevel, top.LogLevel)
	set(&base.DebugLog, top.DebugLog)
	if top.NormalizeNewlines != nil {
		v := *top.NormalizeNewlines
		base.NormalizeNewlines = &v
	}
	return base
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
