package recorder

import (
	"bytes"

	"github.com/fakeyudi/wtg/internal/shell"
)

// hookEvent is a command boundary reported by the shell integration.
type hookEvent byte

const (
	noEvent      hookEvent = 0
	preexecEvent           = hookEvent(shell.HookPreexec)
	precmdEvent            = hookEvent(shell.HookPrecmd)
)

// piece is either a run of output bytes or a single boundary event.
type piece struct {
	data  []byte
	event hookEvent
}

// hookFilter splits shell output into content and boundary events. A hook
// sequence may arrive split across reads, so a trailing partial match is
// held back until the next call.
type hookFilter struct {
	pending []byte
}

func (f *hookFilter) feed(p []byte) []piece {
	data := p
	if len(f.pending) > 0 {
		data = append(f.pending, p...)
		f.pending = nil
	}

	var out []piece
	from := 0 // start of content not yet emitted
	for i := 0; i < len(data); {
		j := bytes.IndexByte(data[i:], shell.HookPrefix[0])
		if j < 0 {
			break
		}
		j += i
		rest := data[j:]
		if len(rest) < shell.HookSequenceLen {
			if partialHook(rest) {
				out = appendContent(out, data[from:j])
				f.pending = bytes.Clone(rest)
				return out
			}
			i = j + 1
			continue
		}
		if ev, ok := matchHook(rest); ok {
			out = appendContent(out, data[from:j])
			out = append(out, piece{event: ev})
			from = j + shell.HookSequenceLen
			i = from
			continue
		}
		i = j + 1
	}
	return appendContent(out, data[from:])
}

// flush returns bytes held back by feed.
func (f *hookFilter) flush() []byte {
	p := f.pending
	f.pending = nil
	return p
}

func appendContent(out []piece, b []byte) []piece {
	if len(b) == 0 {
		return out
	}
	return append(out, piece{data: b})
}

func matchHook(b []byte) (hookEvent, bool) {
	n := len(shell.HookPrefix)
	if string(b[:n]) != shell.HookPrefix || b[n+1] != shell.HookTerminator {
		return noEvent, false
	}
	switch b[n] {
	case shell.HookPreexec:
		return preexecEvent, true
	case shell.HookPrecmd:
		return precmdEvent, true
	}
	return noEvent, false
}

// partialHook reports whether b, shorter than a full sequence, could be the
// start of one.
func partialHook(b []byte) bool {
	n := len(shell.HookPrefix)
	for k, c := range b {
		switch {
		case k < n:
			if c != shell.HookPrefix[k] {
				return false
			}
		case k == n:
			if c != shell.HookPreexec && c != shell.HookPrecmd {
				return false
			}
		}
	}
	return true
}
