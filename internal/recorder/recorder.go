// Package recorder runs an interactive shell inside a pseudo-terminal and
// records its output into a session log, bracketing each command with
// marker lines.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/muesli/cancelreader"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/marker"
	"github.com/fakeyudi/wtg/internal/shell"
)

var (
	// ErrPtyAllocation is returned when no pseudo-terminal could be opened.
	ErrPtyAllocation = errors.New("could not allocate a pseudo-terminal")
	// ErrShellSpawn is returned when the shell could not be started.
	ErrShellSpawn = errors.New("could not start the shell")
	// ErrLogOpen is returned when the log file could not be opened for appending.
	ErrLogOpen = errors.New("could not open the log file for appending")
)

// Environment variables set in the recorded shell.
const (
	EnvLog     = "WTG_LOG"
	EnvSession = "WTG_SESSION"
)

// drainGrace is how long Wait lets the output loop run after the shell exits.
// Background jobs may keep the pty open; their output past this point is
// dropped.
const drainGrace = 500 * time.Millisecond

// Options configures a recorded session.
type Options struct {
	LogPath   string
	Shell     string    // defaults to $SHELL, then /bin/sh
	Env       []string  // defaults to os.Environ()
	Dir       string    // working directory of the shell
	Stdin     io.Reader // defaults to os.Stdin
	Stdout    io.Writer // defaults to os.Stdout
	Logger    *zap.Logger
	RawLog    bool   // keep the pty's "\r\n" in the log instead of "\n"
	SessionID string // defaults to a new UUID
}

// Session is a running recorded shell.
type Session struct {
	id      string
	logPath string
	shell   string
	hooks   bool
	logger  *zap.Logger

	cmd     *exec.Cmd
	ptmx    *os.File
	logFile *os.File
	tempDir string
	input   cancelreader.CancelReader
	relay   *relay

	restore func() // undoes raw mode and signal forwarding

	outputDone chan error
	inputDone  chan struct{}

	waitOnce sync.Once
	code     int
	err      error
}

// Run starts a session and waits for the shell to exit.
func Run(ctx context.Context, opts Options) (int, error) {
	s, err := Start(ctx, opts)
	if err != nil {
		return -1, err
	}
	return s.Wait()
}

// Start spawns the shell and begins recording. When stdin is a terminal it
// is switched to raw mode until Wait returns. On error everything acquired
// so far is released and the terminal is left as it was.
func Start(ctx context.Context, opts Options) (_ *Session, err error) {
	opts = withDefaults(opts)
	logger := opts.Logger

	var cleanup []func()
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				cleanup[i]()
			}
		}
	}()

	logPath, err := filepath.Abs(opts.LogPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogOpen, err)
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogOpen, err)
	}
	cleanup = append(cleanup, func() { logFile.Close() })
	info, err := logFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogOpen, err)
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPtyAllocation, err)
	}
	cleanup = append(cleanup, func() { ptmx.Close() })
	defer tty.Close() // the shell holds its own copy once started

	stdinFile, _ := opts.Stdin.(*os.File)
	interactive := stdinFile != nil && term.IsTerminal(stdinFile.Fd())
	if interactive {
		if err := pty.InheritSize(stdinFile, ptmx); err != nil {
			logger.Debug("could not copy window size", zap.Error(err))
		}
	}

	tempDir, err := os.MkdirTemp("", "wtg-shell-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShellSpawn, err)
	}
	cleanup = append(cleanup, func() { os.RemoveAll(tempDir) })
	integration, err := shell.Prepare(opts.Shell, tempDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShellSpawn, err)
	}

	input, err := cancelreader.NewReader(opts.Stdin)
	if err != nil {
		// Regular files cannot be polled; read them without cancellation.
		logger.Debug("stdin is not pollable", zap.Error(err))
		if input, err = cancelreader.NewReader(struct{ io.Reader }{opts.Stdin}); err != nil {
			return nil, fmt.Errorf("reading terminal input: %w", err)
		}
	}
	cleanup = append(cleanup, func() { input.Close() })

	restore := func() {}
	if interactive {
		restore, err = enterRaw(stdinFile, ptmx, logger)
		if err != nil {
			return nil, err
		}
		cleanup = append(cleanup, restore)
	}

	cmd := exec.CommandContext(ctx, opts.Shell, integration.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = shellEnv(opts.Env, integration.Env, EnvLog+"="+logPath, EnvSession+"="+opts.SessionID)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = tty, tty, tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGHUP) }
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrShellSpawn, opts.Shell, err)
	}

	log := marker.NewWriter(logFile, opts.SessionID, info.Size(), !opts.RawLog)
	s := &Session{
		id:         opts.SessionID,
		logPath:    logPath,
		shell:      opts.Shell,
		hooks:      integration.Hooks,
		logger:     logger,
		cmd:        cmd,
		ptmx:       ptmx,
		logFile:    logFile,
		tempDir:    tempDir,
		input:      input,
		relay:      newRelay(log, integration.Hooks, logger),
		restore:    restore,
		outputDone: make(chan error, 1),
		inputDone:  make(chan struct{}),
	}
	logger.Info("session started",
		zap.String("session", s.id),
		zap.String("log", logPath),
		zap.String("shell", opts.Shell),
		zap.Int("pid", cmd.Process.Pid),
		zap.Bool("hooks", integration.Hooks))

	go func() {
		s.outputDone <- s.relay.output(ptmx, opts.Stdout)
	}()
	go func() {
		defer close(s.inputDone)
		if err := s.relay.input(input, ptmx); err != nil {
			logger.Debug("input relay stopped", zap.Error(err))
		}
	}()
	return s, nil
}

// ID returns the session identifier used in marker lines.
func (s *Session) ID() string { return s.id }

// LogPath returns the absolute path of the session log.
func (s *Session) LogPath() string { return s.logPath }

// Shell returns the path of the recorded shell.
func (s *Session) Shell() string { return s.shell }

// Hooks reports whether command boundaries come from shell hooks rather than
// typed newlines.
func (s *Session) Hooks() bool { return s.hooks }

// PID returns the process id of the shell.
func (s *Session) PID() int { return s.cmd.Process.Pid }

// Wait blocks until the shell exits, finishes the log and restores the
// terminal. It returns the shell's exit status; a shell killed by a signal
// reports 128 plus the signal number. The error reports failures of the
// recording itself, not a non-zero exit.
func (s *Session) Wait() (int, error) {
	s.waitOnce.Do(func() { s.code, s.err = s.wait() })
	return s.code, s.err
}

func (s *Session) wait() (int, error) {
	var errs []error
	waitErr := s.cmd.Wait()
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		errs = append(errs, fmt.Errorf("waiting for shell: %w", waitErr))
	}

	errs = append(errs, s.drain())

	if s.input.Cancel() {
		<-s.inputDone
	}
	s.input.Close()

	if err := s.relay.finish(); err != nil {
		errs = append(errs, fmt.Errorf("writing %s: %w", s.logPath, err))
	}
	if err := s.logFile.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing %s: %w", s.logPath, err))
	}
	s.restore()
	s.ptmx.Close()
	if err := os.RemoveAll(s.tempDir); err != nil {
		s.logger.Debug("could not remove shell integration files", zap.Error(err))
	}

	code := exitCode(s.cmd.ProcessState)
	s.logger.Info("session ended", zap.String("session", s.id), zap.Int("status", code))
	return code, errors.Join(errs...)
}

// drain waits for the output loop to see the pty close. If background
// processes keep it open, the read is interrupted after drainGrace.
func (s *Session) drain() error {
	select {
	case err := <-s.outputDone:
		return err
	case <-time.After(drainGrace):
	}
	if err := s.ptmx.SetReadDeadline(time.Now()); err != nil {
		s.logger.Debug("pty does not support deadlines", zap.Error(err))
		s.ptmx.Close()
	}
	select {
	case err := <-s.outputDone:
		return err
	case <-time.After(drainGrace):
		s.logger.Warn("output relay did not stop")
		return nil
	}
}

func withDefaults(opts Options) Options {
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
	}
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	return opts
}

// enterRaw switches the terminal to raw mode and keeps the pty's window size
// in step with it. The returned func undoes both.
func enterRaw(stdin, ptmx *os.File, logger *zap.Logger) (func(), error) {
	state, err := term.MakeRaw(stdin.Fd())
	if err != nil {
		return nil, fmt.Errorf("setting terminal to raw mode: %w", err)
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range winch {
			if err := pty.InheritSize(stdin, ptmx); err != nil {
				logger.Debug("could not resize pty", zap.Error(err))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(winch)
			close(winch)
			<-done
			if err := term.Restore(stdin.Fd(), state); err != nil {
				logger.Warn("could not restore terminal", zap.Error(err))
			}
		})
	}, nil
}

// shellEnv returns base with the given KEY=VALUE entries replacing any
// existing ones.
func shellEnv(base, extra []string, set ...string) []string {
	override := append(append([]string(nil), extra...), set...)
	keys := make(map[string]bool, len(override))
	for _, kv := range override {
		key, _, _ := strings.Cut(kv, "=")
		keys[key] = true
	}
	env := make([]string, 0, len(base)+len(override))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if !keys[key] {
			env = append(env, kv)
		}
	}
	return append(env, override...)
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
