package recorder_test

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/wtg/internal/recorder"
	"github.com/fakeyudi/wtg/internal/segment"
)

// userTerminal opens a pty pair standing in for the user's terminal: the
// test types into ctrl and the recorder reads and writes tty.
func userTerminal(t *testing.T) (ctrl, tty *os.File) {
	t.Helper()
	ctrl, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pseudo-terminal available: %v", err)
	}
	t.Cleanup(func() {
		tty.Close()
		ctrl.Close()
	})
	require.NoError(t, pty.Setsize(ctrl, &pty.Winsize{Rows: 24, Cols: 80}))
	go io.Copy(io.Discard, ctrl)
	return ctrl, tty
}

func bashEnv(t *testing.T) []string {
	t.Helper()
	home := t.TempDir()
	inputrc := filepath.Join(home, ".inputrc")
	require.NoError(t, os.WriteFile(inputrc, []byte("set enable-bracketed-paste off\n"), 0o644))
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + home,
		"TERM=dumb",
		"INPUTRC=" + inputrc,
		"PS1=$ ",
	}
}

func completed(path string) int {
	segs, err := segment.Scan(path)
	if err != nil {
		return 0
	}
	n := 0
	for _, s := range segs {
		if s.Complete {
			n++
		}
	}
	return n
}

func TestRecordsCommandsOfABashSession(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not installed")
	}
	ctrl, tty := userTerminal(t)
	before, err := term.GetState(tty.Fd())
	require.NoError(t, err)

	logPath := filepath.Join(t.TempDir(), "session.log")
	require.NoError(t, os.WriteFile(logPath, []byte("earlier session\n"), 0o644))

	sess, err := recorder.Start(context.Background(), recorder.Options{
		LogPath: logPath,
		Shell:   bash,
		Env:     bashEnv(t),
		Stdin:   tty,
		Stdout:  tty,
	})
	require.NoError(t, err)
	assert.Equal(t, logPath, sess.LogPath())
	assert.NotEmpty(t, sess.ID())

	_, err = ctrl.Write([]byte("echo A\r"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return completed(logPath) == 1 }, 10*time.Second, 50*time.Millisecond)

	_, err = ctrl.Write([]byte("echo \"$WTG_LOG\"\r"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return completed(logPath) == 2 }, 10*time.Second, 50*time.Millisecond)

	_, err = ctrl.Write([]byte("exit 3\r"))
	require.NoError(t, err)

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := sess.Wait()
		done <- result{code, err}
	}()
	var res result
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shell did not exit")
	}
	require.NoError(t, res.err)
	assert.Equal(t, 3, res.code)

	last, err := segment.ExtractLast(logPath)
	require.NoError(t, err)
	assert.Equal(t, logPath+"\n", string(last))

	segs, err := segment.Scan(logPath)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(segs), 2)
	assert.Equal(t, "A\n", string(segs[0].Content))

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, len(data) > len("earlier session\n"))
	assert.Equal(t, "earlier session\n", string(data[:len("earlier session\n")]))

	after, err := term.GetState(tty.Fd())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// recordBash runs each line in a recorded bash, waiting for it to finish,
// then exits and returns the log path.
func recordBash(t *testing.T, rawLog bool, lines ...string) string {
	t.Helper()
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not installed")
	}
	ctrl, tty := userTerminal(t)
	logPath := filepath.Join(t.TempDir(), "session.log")

	sess, err := recorder.Start(context.Background(), recorder.Options{
		LogPath: logPath,
		Shell:   bash,
		Env:     bashEnv(t),
		Stdin:   tty,
		Stdout:  tty,
		RawLog:  rawLog,
	})
	require.NoError(t, err)

	for i, line := range lines {
		_, err = ctrl.Write([]byte(line + "\r"))
		require.NoError(t, err)
		want := i + 1
		require.Eventually(t, func() bool { return completed(logPath) == want }, 10*time.Second, 50*time.Millisecond)
	}
	_, err = ctrl.Write([]byte("exit\r"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := sess.Wait()
		done <- err
	}()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("shell did not exit")
	}
	return logPath
}

func TestExtractLastAfterTwoEchoes(t *testing.T) {
	logPath := recordBash(t, false, "echo A", "echo B")

	last, err := segment.ExtractLast(logPath)
	require.NoError(t, err)
	assert.Equal(t, "B\n", string(last))
}

func TestRawLogKeepsTerminalLineEndings(t *testing.T) {
	logPath := recordBash(t, true, "echo A", "echo B")

	last, err := segment.ExtractLast(logPath)
	require.NoError(t, err)
	assert.Equal(t, "B\r\n", string(last))
}

func TestStartFailsForMissingShell(t *testing.T) {
	_, tty := userTerminal(t)
	before, err := term.GetState(tty.Fd())
	require.NoError(t, err)

	_, err = recorder.Start(context.Background(), recorder.Options{
		LogPath: filepath.Join(t.TempDir(), "session.log"),
		Shell:   "/nonexistent/wtg-shell",
		Env:     []string{},
		Stdin:   tty,
		Stdout:  tty,
	})
	assert.ErrorIs(t, err, recorder.ErrShellSpawn)

	after, err := term.GetState(tty.Fd())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStartFailsForUnwritableLog(t *testing.T) {
	_, tty := userTerminal(t)

	_, err := recorder.Start(context.Background(), recorder.Options{
		LogPath: filepath.Join(t.TempDir(), "missing", "session.log"),
		Shell:   "/bin/sh",
		Stdin:   tty,
		Stdout:  tty,
	})
	assert.ErrorIs(t, err, recorder.ErrLogOpen)
}
