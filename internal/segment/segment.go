// Package segment extracts command output from session logs.
package segment

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fakeyudi/wtg/internal/marker"
)

var (
	// ErrNotFound is returned when the log file does not exist.
	ErrNotFound = errors.New("log file does not exist")
	// ErrLogUnreadable is returned when the log exists but cannot be read.
	ErrLogUnreadable = errors.New("log file could not be read")
	// ErrNoSegment is returned when the log holds no finished command.
	ErrNoSegment = errors.New("no command has finished in this log yet")
)

// Segment is the captured output of one command.
type Segment struct {
	SessionID string
	Seq       uint64
	Start     int64 // offset of the first content byte
	End       int64 // offset just past the last content byte
	Content   []byte
	Complete  bool // false when the command never reached its END marker
}

// ID returns the marker identifier of the segment.
func (s Segment) ID() string {
	return marker.Marker{SessionID: s.SessionID, Seq: s.Seq}.ID()
}

// ExtractLast returns the output of the most recently finished command in
// the log at path. Segments that were never closed are skipped.
func ExtractLast(path string) ([]byte, error) {
	data, err := read(path)
	if err != nil {
		return nil, err
	}
	seg, ok := Last(data)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSegment, path)
	}
	return seg.Content, nil
}

// Scan returns every segment in the log at path in file order, including
// incomplete ones.
func Scan(path string) ([]Segment, error) {
	data, err := read(path)
	if err != nil {
		return nil, err
	}
	return Parse(data), nil
}

// Last walks data backwards and returns the newest segment closed by a
// verified END marker.
func Last(data []byte) (Segment, bool) {
	lineEnd := bytes.LastIndexByte(data, '\n')
	for lineEnd > 0 {
		lineStart := bytes.LastIndexByte(data[:lineEnd], '\n') + 1
		if m, ok := marker.Parse(data[lineStart:lineEnd]); ok && m.Kind == marker.KindEnd {
			if seg, ok := verify(data, m, lineStart); ok {
				return seg, true
			}
		}
		lineEnd = lineStart - 1
	}
	return Segment{}, false
}

// Parse returns all segments of data in file order. A START that is never
// closed is reported as an incomplete segment: it runs to the next START
// when a later session appended to the log, or to the end of data when its
// command is still running or its session was killed.
func Parse(data []byte) []Segment {
	var (
		segs    []Segment
		pending []opened
	)
	lineStart := 0
	for lineStart < len(data) {
		n := bytes.IndexByte(data[lineStart:], '\n')
		if n < 0 {
			break
		}
		lineEnd := lineStart + n
		if m, ok := marker.Parse(data[lineStart:lineEnd]); ok {
			switch {
			case m.Closes():
				seg, ok := verify(data, m, lineStart)
				if !ok {
					break
				}
				// STARTs before this segment's own START were abandoned; later
				// ones are part of its output.
				segs = append(segs, unclosedRuns(data, pending, int(m.Start)-1)...)
				segs = append(segs, seg)
				pending = nil
			case !isPending(pending, m):
				pending = append(pending, opened{m, lineStart})
			}
		}
		lineStart = lineEnd + 1
	}
	return append(segs, unclosedRuns(data, pending, len(data))...)
}

// opened is a START line not yet matched by a closing marker.
type opened struct {
	marker marker.Marker
	line   int
}

// isPending reports whether a START for the same command is already open.
// Repeats are copies printed by the command itself.
func isPending(pending []opened, m marker.Marker) bool {
	for _, p := range pending {
		if p.marker.SessionID == m.SessionID && p.marker.Seq == m.Seq {
			return true
		}
	}
	return false
}

// unclosedRuns reports the pending STARTs that begin before end as
// incomplete segments, each running up to the next one.
func unclosedRuns(data []byte, pending []opened, end int) []Segment {
	var segs []Segment
	for i, p := range pending {
		if p.line >= end {
			break
		}
		stop := end
		if i+1 < len(pending) && pending[i+1].line < end {
			stop = pending[i+1].line - 1
		}
		segs = append(segs, unclosed(data, p.marker, p.line, stop))
	}
	return segs
}

func unclosed(data []byte, m marker.Marker, lineStart, end int) Segment {
	contentStart := min(lineStart+len(m.Line())+1, end)
	return Segment{
		SessionID: m.SessionID,
		Seq:       m.Seq,
		Start:     int64(contentStart),
		End:       int64(end),
		Content:   bytes.Clone(data[contentStart:end]),
	}
}

// verify checks a closing marker whose line starts at lineStart against the
// START line it points to. Marker lines that merely appear in command output
// fail this check because their offsets describe a different position.
func verify(data []byte, m marker.Marker, lineStart int) (Segment, bool) {
	contentEnd := int64(lineStart) - 1
	if contentEnd < 0 || data[contentEnd] != '\n' {
		return Segment{}, false
	}
	// Bounds first: forged offsets must not wrap the arithmetic below.
	if m.Start < 1 || m.Len < 0 || m.Start >= contentEnd || m.Len > contentEnd {
		return Segment{}, false
	}
	contentStart := contentEnd - m.Len
	startLine := marker.Marker{Kind: marker.KindStart, SessionID: m.SessionID, Seq: m.Seq}.Line()
	if contentStart-m.Start != int64(len(startLine))+1 {
		return Segment{}, false
	}
	if data[m.Start-1] != '\n' || data[contentStart-1] != '\n' {
		return Segment{}, false
	}
	if string(data[m.Start:contentStart-1]) != startLine {
		return Segment{}, false
	}
	return Segment{
		SessionID: m.SessionID,
		Seq:       m.Seq,
		Start:     contentStart,
		End:       contentEnd,
		Content:   bytes.Clone(data[contentStart:contentEnd]),
		Complete:  m.Kind == marker.KindEnd,
	}, true
}

func read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrLogUnreadable, path, err)
	}
	return data, nil
}
