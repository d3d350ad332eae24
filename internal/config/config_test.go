package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// Feature: wtg, Property 10: Config precedence env > project > global > defaults
func TestConfigPrecedence(t *testing.T) {
	// Generator for a non-empty string field value.
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	// Generator for a Config with all string fields either empty or non-empty.
	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasModel") {
			cfg.Model = nonEmptyString.Draw(t, "model")
		}
		if rapid.Bool().Draw(t, "hasLogDir") {
			cfg.LogDir = nonEmptyString.Draw(t, "logDir")
		}
		if rapid.Bool().Draw(t, "hasShell") {
			cfg.Shell = nonEmptyString.Draw(t, "shell")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")
		fromEnv := configGen.Draw(t, "env")
		env := Env{Model: fromEnv.Model, LogDir: fromEnv.LogDir, Shell: fromEnv.Shell}

		merged := env.Apply(Merge(global, project))
		defaults := Defaults()

		checkStringField(t, "Model",
			env.Model, project.Model, global.Model, defaults.Model, merged.Model)
		checkStringField(t, "LogDir",
			env.LogDir, project.LogDir, global.LogDir, defaults.LogDir, merged.LogDir)
		checkStringField(t, "Shell",
			env.Shell, project.Shell, global.Shell, defaults.Shell, merged.Shell)
	})
}

// checkStringField asserts the precedence rule for a single string field:
// the first non-empty value of env, project and global wins, else the default.
func checkStringField(t *rapid.T, name, envVal, projectVal, globalVal, defaultVal, mergedVal string) {
	t.Helper()
	want := defaultVal
	for _, v := range []string{globalVal, projectVal, envVal} {
		if v != "" {
			want = v
		}
	}
	if mergedVal != want {
		t.Fatalf("%s: env=%q project=%q global=%q, expected %q, got %q",
			name, envVal, projectVal, globalVal, want, mergedVal)
	}
}

func TestDefaultsValues(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	d := Defaults()
	if d.Model != "gpt-4o" {
		t.Errorf("Model: want %q, got %q", "gpt-4o", d.Model)
	}
	if d.Prompt != DefaultPrompt {
		t.Errorf("Prompt: want the default prompt, got %q", d.Prompt)
	}
	if d.LogDir != "/data/wtg/logs" {
		t.Errorf("LogDir: want %q, got %q", "/data/wtg/logs", d.LogDir)
	}
	if d.LogLevel != "warn" {
		t.Errorf("LogLevel: want %q, got %q", "warn", d.LogLevel)
	}
	if !d.Normalize() {
		t.Error("Normalize: want true by default")
	}
	off := false
	d.NormalizeNewlines = &off
	if d.Normalize() {
		t.Error("Normalize: want false when normalize_newlines is false")
	}
}

func TestDataDirFallsBackToHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", tmp)
	if got, want := DataDir(), filepath.Join(tmp, ".local", "share", "wtg"); got != want {
		t.Errorf("DataDir: want %q, got %q", want, got)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	defaults := Defaults()
	if cfg.Model != defaults.Model {
		t.Errorf("Model: want %q, got %q", defaults.Model, cfg.Model)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	// Write an invalid JSON file where LoadGlobal expects it.
	cfgDir := filepath.Join(tmp, ".config", "wtg")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	if err == nil {
		t.Fatal("expected an error for invalid JSON, got nil")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *ParseError, got %T: %v", err, err)
	}
}

func TestLoadLayersFilesAndEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgDir := filepath.Join(home, ".config", "wtg")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	global := `{"model": "o3-mini", "log_dir": "/global/logs", "normalize_newlines": true}`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(global), 0o644); err != nil {
		t.Fatal(err)
	}
	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ".wtgconfig"), []byte(`{"log_dir": "logs"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	chdir(t, project)
	t.Setenv("WTG_LLM", "gpt-4o-mini")
	t.Setenv("WTG_LOG", "/tmp/session.log")
	t.Setenv("WTG_OPENAI_KEY", "sk-test")

	cfg, env, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model: want env value, got %q", cfg.Model)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("LogDir: want project value, got %q", cfg.LogDir)
	}
	if !cfg.Normalize() {
		t.Error("Normalize: want global value true")
	}
	if env.Log != "/tmp/session.log" || env.APIKey != "sk-test" {
		t.Errorf("env: got %+v", env)
	}
}

func TestLoadEnvRejectsBadBool(t *testing.T) {
	t.Setenv("WTG_NORMALIZE_NEWLINES", "maybe")
	if _, err := LoadEnv(); err == nil {
		t.Fatal("expected an error for a malformed boolean")
	}
}
