// Package shell prepares the nested shell of a recorded session so that it
// reports command boundaries on the terminal.
//
// Supported shells print a private OSC sequence before each command runs and
// before each prompt is drawn. The recorder strips the sequences from the
// log and writes marker lines in their place.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
)

// Hook sequences are ESC ] 6973 ; <code> BEL.
const (
	HookPrefix           = "\x1b]6973;"
	HookPreexec     byte = 'A'
	HookPrecmd      byte = 'B'
	HookTerminator  byte = '\a'
	HookSequenceLen      = len(HookPrefix) + 2
)

// Integration describes how to launch a shell for recording.
type Integration struct {
	Args  []string // arguments after the shell path
	Env   []string // extra KEY=VALUE entries for the shell's environment
	Hooks bool     // whether the shell reports command boundaries
}

// Kind returns "bash" or "zsh" for shells with boundary hooks, else "".
func Kind(shellPath string) string {
	switch filepath.Base(shellPath) {
	case "bash":
		return "bash"
	case "zsh":
		return "zsh"
	default:
		return ""
	}
}

// Prepare writes the integration files for shellPath into dir, which must
// exist and outlive the shell's startup.
func Prepare(shellPath, dir string) (Integration, error) {
	switch Kind(shellPath) {
	case "bash":
		rc := filepath.Join(dir, "bashrc")
		if err := os.WriteFile(rc, []byte(BashRC), 0o600); err != nil {
			return Integration{}, fmt.Errorf("writing bash integration: %w", err)
		}
		return Integration{Args: []string{"--rcfile", rc, "-i"}, Hooks: true}, nil

	case "zsh":
		for name, content := range map[string]string{".zshenv": ZshEnv, ".zshrc": ZshRC} {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
				return Integration{}, fmt.Errorf("writing zsh integration: %w", err)
			}
		}
		env := []string{"ZDOTDIR=" + dir}
		if orig := os.Getenv("ZDOTDIR"); orig != "" {
			env = append(env, "WTG_ORIG_ZDOTDIR="+orig)
		}
		return Integration{Args: []string{"-i"}, Env: env, Hooks: true}, nil

	default:
		// No hooks: the recorder falls back to splitting on typed newlines.
		return Integration{Args: []string{"-i"}}, nil
	}
}
