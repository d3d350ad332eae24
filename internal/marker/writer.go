package marker

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("marker writer closed")

// Writer writes session output to a log and brackets each command with
// marker lines. It is safe for concurrent use.
//
// Output is logged byte for byte. With normalize set, the pty's output
// translation is undone on the way to the log instead: every "\r\n" becomes
// "\n", and a trailing '\r' is held back until the next write shows whether
// a '\n' follows it.
type Writer struct {
	mu        sync.Mutex
	w         io.Writer
	sessionID string
	normalize bool

	offset    int64  // file offset of the next byte written
	seq       uint64 // sequence number of the last START
	open      bool
	openStart int64 // offset of the open START line
	openLen   int64 // content bytes written since the open START
	pendingCR bool

	err    error
	closed bool
}

// NewWriter returns a Writer appending to w, whose current size is offset.
func NewWriter(w io.Writer, sessionID string, offset int64, normalize bool) *Writer {
	return &Writer{w: w, sessionID: sessionID, offset: offset, normalize: normalize}
}

// Write logs command output.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.usable(); err != nil {
		return 0, err
	}
	if err := w.emit(w.translate(p), true); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Start opens a new command segment. A segment that is still open is ended
// first so START/END pairs never nest.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.usable(); err != nil {
		return err
	}
	return w.start()
}

// End closes the open segment. It is a no-op when no segment is open, which
// happens for the first prompt and for empty command lines.
func (w *Writer) End() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.usable(); err != nil {
		return err
	}
	return w.end()
}

// Boundary ends the open segment, if any, and starts the next one.
func (w *Writer) Boundary() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.usable(); err != nil {
		return err
	}
	if err := w.end(); err != nil {
		return err
	}
	return w.start()
}

// Close flushes held-back bytes and, if a command is still open, marks its
// segment as incomplete. The underlying writer is not closed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	if err := w.flushCR(); err != nil {
		return err
	}
	return w.closeSegment(KindIncomplete)
}

// InCommand reports whether a segment is open.
func (w *Writer) InCommand() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) usable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return nil
}

func (w *Writer) start() error {
	if w.open {
		if err := w.end(); err != nil {
			return err
		}
	}
	if err := w.flushCR(); err != nil {
		return err
	}
	w.seq++
	m := Marker{Kind: KindStart, SessionID: w.sessionID, Seq: w.seq}
	lineStart := w.offset + 1
	if err := w.emit([]byte("\n"+m.Line()+"\n"), false); err != nil {
		return err
	}
	w.open, w.openStart, w.openLen = true, lineStart, 0
	return nil
}

func (w *Writer) end() error {
	return w.closeSegment(KindEnd)
}

func (w *Writer) closeSegment(kind Kind) error {
	if !w.open {
		return nil
	}
	if err := w.flushCR(); err != nil {
		return err
	}
	m := Marker{Kind: kind, SessionID: w.sessionID, Seq: w.seq, Start: w.openStart, Len: w.openLen}
	w.open = false
	return w.emit([]byte("\n"+m.Line()+"\n"), false)
}

func (w *Writer) flushCR() error {
	if !w.pendingCR {
		return nil
	}
	w.pendingCR = false
	return w.emit([]byte{'\r'}, true)
}

// emit writes b and advances the offset. Content bytes also count towards
// the open segment's length.
func (w *Writer) emit(b []byte, content bool) error {
	if len(b) == 0 {
		return nil
	}
	n, err := w.w.Write(b)
	w.offset += int64(n)
	if content && w.open {
		w.openLen += int64(n)
	}
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = err
	}
	return err
}

// translate turns "\r\n" into "\n", carrying a trailing '\r' over to the
// next call.
func (w *Writer) translate(p []byte) []byte {
	if !w.normalize || len(p) == 0 {
		return p
	}
	out := make([]byte, 0, len(p)+1)
	if w.pendingCR {
		w.pendingCR = false
		if p[0] != '\n' {
			out = append(out, '\r')
		}
	}
	for i, c := range p {
		if c == '\r' {
			if i == len(p)-1 {
				w.pendingCR = true
				break
			}
			if p[i+1] == '\n' {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
