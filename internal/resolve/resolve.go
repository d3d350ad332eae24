// Package resolve assembles the context for a query or chat.
package resolve

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"

	"github.com/fakeyudi/wtg/internal/segment"
)

var (
	// ErrNoLogSource is returned when neither a log path nor WTG_LOG is set.
	ErrNoLogSource = errors.New("no log file given: pass --logfile or run inside `wtg start`")
	// ErrChatNotTTY is returned when a chat is started with piped input.
	ErrChatNotTTY = errors.New("chat needs an interactive terminal; pipe input into `wtg query` instead")
)

// Source lists the places context can come from.
type Source struct {
	LogPath    string    // explicit --logfile argument
	EnvLogPath string    // value of WTG_LOG
	Stdin      io.Reader // read only when StdinPiped and AllowStdin
	StdinPiped bool
	AllowStdin bool // false for chats, which always read a log
}

// Context returns piped standard input when it is allowed and non-empty,
// otherwise the last finished command of the resolved log. Errors from the
// segment package are returned unchanged.
func Context(src Source) ([]byte, error) {
	if src.AllowStdin && src.StdinPiped && src.Stdin != nil {
		data, err := io.ReadAll(src.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading piped input: %w", err)
		}
		if len(data) > 0 {
			return data, nil
		}
	}
	path, err := LogPath(src)
	if err != nil {
		return nil, err
	}
	return segment.ExtractLast(path)
}

// ForChat checks that the chat runs on a terminal and returns the context
// of its first turn.
func ForChat(src Source) ([]byte, error) {
	if src.StdinPiped {
		return nil, ErrChatNotTTY
	}
	src.AllowStdin = false
	return Context(src)
}

// LogPath applies the fallback chain: explicit path, then WTG_LOG.
func LogPath(src Source) (string, error) {
	switch {
	case src.LogPath != "":
		return src.LogPath, nil
	case src.EnvLogPath != "":
		return src.EnvLogPath, nil
	}
	return "", ErrNoLogSource
}

// Piped reports whether f is something other than a terminal.
func Piped(f *os.File) bool {
	return !term.IsTerminal(f.Fd())
}
