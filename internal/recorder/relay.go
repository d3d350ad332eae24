package recorder

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/muesli/cancelreader"
	"go.uber.org/zap"

	"github.com/fakeyudi/wtg/internal/marker"
)

// maxRetries bounds consecutive retries of a transiently failing read.
const maxRetries = 3

// relay moves bytes between the user's terminal and the shell's pty and
// records the shell's output.
type relay struct {
	log    *marker.Writer
	hooked bool // the shell reports boundaries itself
	logger *zap.Logger

	mu     sync.Mutex
	hooks  hookFilter
	logErr error // first log failure; recording stops after it
}

func newRelay(log *marker.Writer, hooked bool, logger *zap.Logger) *relay {
	return &relay{log: log, hooked: hooked, logger: logger}
}

// output copies the shell's output to the terminal and the log until the
// pty reports that the shell is gone.
func (r *relay) output(src io.Reader, dst io.Writer) error {
	buf := make([]byte, 32*1024)
	retries := 0
	for {
		n, err := src.Read(buf)
		if n > 0 {
			retries = 0
			if _, werr := dst.Write(buf[:n]); werr != nil {
				r.logger.Debug("terminal write failed", zap.Error(werr))
			}
			r.record(buf[:n])
		}
		if err == nil {
			continue
		}
		if transient(err) && retries < maxRetries {
			retries++
			continue
		}
		if outputDone(err) {
			return nil
		}
		return err
	}
}

// input copies keystrokes to the shell. Without shell hooks a typed line
// ending closes the open segment and opens the next one before the
// keystroke reaches the shell.
func (r *relay) input(src io.Reader, dst io.Writer) error {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := r.forward(buf[:n], dst); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, cancelreader.ErrCanceled) {
				return nil
			}
			return err
		}
	}
}

func (r *relay) forward(p []byte, dst io.Writer) error {
	if r.hooked {
		_, err := dst.Write(p)
		return err
	}
	for len(p) > 0 {
		i := indexLineEnd(p)
		if i < 0 {
			_, err := dst.Write(p)
			return err
		}
		if i > 0 {
			if _, err := dst.Write(p[:i]); err != nil {
				return err
			}
		}
		r.boundary()
		if _, err := dst.Write(p[i : i+1]); err != nil {
			return err
		}
		p = p[i+1:]
	}
	return nil
}

func (r *relay) record(p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logErr != nil {
		return
	}
	for _, pc := range r.hooks.feed(p) {
		var err error
		switch pc.event {
		case preexecEvent:
			err = r.log.Start()
		case precmdEvent:
			err = r.log.End()
		default:
			_, err = r.log.Write(pc.data)
		}
		if err != nil {
			r.fail(err)
			return
		}
	}
}

func (r *relay) boundary() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logErr != nil {
		return
	}
	if err := r.log.Boundary(); err != nil {
		r.fail(err)
	}
}

// finish flushes held-back output and closes the marker writer. It returns
// the first log failure of the session.
func (r *relay) finish() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logErr == nil {
		if rest := r.hooks.flush(); len(rest) > 0 {
			if _, err := r.log.Write(rest); err != nil {
				r.fail(err)
			}
		}
	}
	if err := r.log.Close(); err != nil && r.logErr == nil {
		r.fail(err)
	}
	return r.logErr
}

func (r *relay) fail(err error) {
	r.logErr = err
	r.logger.Error("session log write failed, recording stopped", zap.Error(err))
}

func indexLineEnd(p []byte) int {
	for i, c := range p {
		if c == '\r' || c == '\n' {
			return i
		}
	}
	return -1
}

func transient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

// outputDone reports whether a pty read error means the shell has exited or
// the session is shutting down.
func outputDone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
