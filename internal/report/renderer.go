package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// TextRenderer renders one aligned line per segment.
type TextRenderer struct{}

func (TextRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder
	if len(r.Segments) == 0 {
		fmt.Fprintf(&sb, "No commands recorded in %s.\n", r.Log)
		return []byte(sb.String()), nil
	}
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTATUS\tBYTES\tFIRST LINE")
	for _, e := range r.Segments {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.Seq, e.Status(), len(e.Output), e.Summary(60))
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// MarkdownRenderer renders a Report as human-readable Markdown, one section
// per segment with the output in a fenced block.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# wtg session log: %s\n\n", r.Log)
	if len(r.Segments) == 0 {
		sb.WriteString("_No commands recorded._\n")
		return []byte(sb.String()), nil
	}

	for _, e := range r.Segments {
		fmt.Fprintf(&sb, "## Command %d\n\n", e.Seq)
		fmt.Fprintf(&sb, "- ID: `%s`\n", e.ID)
		fmt.Fprintf(&sb, "- Status: %s\n", e.Status())
		fmt.Fprintf(&sb, "- Bytes: %d (offset %d)\n\n", len(e.Output), e.Start)

		if e.Output == "" {
			sb.WriteString("_No output._\n\n")
			continue
		}
		fence := fenceFor(e.Output)
		sb.WriteString(fence + "\n")
		sb.WriteString(e.Output)
		if !strings.HasSuffix(e.Output, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(fence + "\n\n")
	}
	return []byte(sb.String()), nil
}

// fenceFor returns a backtick fence longer than any backtick run in s.
func fenceFor(s string) string {
	longest, run := 0, 0
	for _, c := range s {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
