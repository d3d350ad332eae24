// Package report renders the segments of a session log for people and tools.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fakeyudi/wtg/internal/segment"
)

// ErrUnknownFormat is returned by RendererFor for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// Report is the renderable listing of a log's segments.
type Report struct {
	Log      string  `json:"log"`
	Segments []Entry `json:"segments"`
}

// Entry describes one segment.
type Entry struct {
	ID       string `json:"id"`
	Session  string `json:"session"`
	Seq      uint64 `json:"seq"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Complete bool   `json:"complete"`
	Output   string `json:"output"`
}

// New builds the report of segs, read from the log at path.
func New(path string, segs []segment.Segment) *Report {
	r := &Report{Log: path, Segments: make([]Entry, 0, len(segs))}
	for _, s := range segs {
		r.Segments = append(r.Segments, Entry{
			ID:       s.ID(),
			Session:  s.SessionID,
			Seq:      s.Seq,
			Start:    s.Start,
			End:      s.End,
			Complete: s.Complete,
			Output:   string(s.Content),
		})
	}
	return r
}

// Status is "done" for finished commands and "incomplete" otherwise.
func (e Entry) Status() string {
	if e.Complete {
		return "done"
	}
	return "incomplete"
}

// Summary returns the first non-blank line of the output, shortened to max
// runes.
func (e Entry) Summary(max int) string {
	line := ""
	for _, l := range strings.Split(e.Output, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if r := []rune(line); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return line
}

// RendererFor returns the renderer of format: text, json or markdown.
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q (use text, json or markdown)", ErrUnknownFormat, format)
}
