// Package marker implements the delimiter protocol written into session logs.
//
// Each command's output is bracketed by marker lines. A marker is always
// framed by newlines so it occupies a line of its own:
//
//	\n<<<wtg:COMMAND-START <session>:<seq>>>>\n
//	...command output...
//	\n<<<wtg:COMMAND-END <session>:<seq> start=<offset> len=<n>>>>\n
//
// The END line records the file offset of its START line and the number of
// content bytes between the two, so a reader can verify a boundary instead of
// trusting any line that looks like a marker. A session that exits while a
// command is still open closes it with COMMAND-INCOMPLETE, which carries the
// same offsets.
package marker

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies a marker line.
type Kind string

const (
	KindStart      Kind = "COMMAND-START"
	KindEnd        Kind = "COMMAND-END"
	KindIncomplete Kind = "COMMAND-INCOMPLETE"
)

const (
	linePrefix = "<<<wtg:"
	lineSuffix = ">>>"
)

// Marker is one parsed marker line.
type Marker struct {
	Kind      Kind
	SessionID string
	Seq       uint64
	Start     int64 // closing kinds only: offset of the matching START line
	Len       int64 // closing kinds only: content bytes since the START line
}

// ID returns the identifier shared by a START and its END.
func (m Marker) ID() string {
	return m.SessionID + ":" + strconv.FormatUint(m.Seq, 10)
}

// Closes reports whether the marker ends a segment.
func (m Marker) Closes() bool {
	return m.Kind == KindEnd || m.Kind == KindIncomplete
}

// Line renders the marker without its framing newlines.
func (m Marker) Line() string {
	if m.Closes() {
		return fmt.Sprintf("%s%s %s start=%d len=%d%s", linePrefix, m.Kind, m.ID(), m.Start, m.Len, lineSuffix)
	}
	return fmt.Sprintf("%s%s %s%s", linePrefix, m.Kind, m.ID(), lineSuffix)
}

// Parse reads a complete marker line. The line must match the grammar
// exactly; a marker embedded in a longer line is not a marker.
func Parse(line []byte) (Marker, bool) {
	if !bytes.HasPrefix(line, []byte(linePrefix)) || !bytes.HasSuffix(line, []byte(lineSuffix)) {
		return Marker{}, false
	}
	body := string(line[len(linePrefix) : len(line)-len(lineSuffix)])
	fields := strings.Split(body, " ")

	var m Marker
	switch Kind(fields[0]) {
	case KindStart:
		if len(fields) != 2 {
			return Marker{}, false
		}
	case KindEnd, KindIncomplete:
		if len(fields) != 4 {
			return Marker{}, false
		}
		start, ok := parseField(fields[2], "start=")
		if !ok {
			return Marker{}, false
		}
		n, ok := parseField(fields[3], "len=")
		if !ok {
			return Marker{}, false
		}
		m.Start, m.Len = start, n
	default:
		return Marker{}, false
	}
	m.Kind = Kind(fields[0])

	id, seq, ok := strings.Cut(fields[1], ":")
	if !ok {
		return Marker{}, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return Marker{}, false
	}
	s, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return Marker{}, false
	}
	m.SessionID, m.Seq = id, s
	return m, true
}

func parseField(f, key string) (int64, bool) {
	v, ok := strings.CutPrefix(f, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
