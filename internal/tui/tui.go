// Package tui provides a Bubble Tea TUI for browsing the commands of a
// session log.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/wtg/internal/report"
	"github.com/fakeyudi/wtg/internal/segment"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	doneStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	incompleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

type pane int

const (
	paneList pane = iota
	paneOutput
)

// SegmentMsg reports a command that finished while the TUI is open.
type SegmentMsg segment.Segment

// WatchErrMsg reports that the log can no longer be followed.
type WatchErrMsg struct{ Err error }

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report   *report.Report
	filename string
	pane     pane
	cursor   int
	list     viewport.Model
	output   viewport.Model
	width    int
	height   int
	ready    bool
	notice   string // shown in the status bar instead of the key help
}

// New creates a TUI model for the segments of the log at path. The newest
// command is selected.
func New(r *report.Report, path string) Model {
	return Model{
		report:   r,
		filename: filepath.Base(path),
		cursor:   max(0, len(r.Segments)-1),
	}
}

// Selected returns the selected entry, if any.
func (m Model) Selected() (report.Entry, bool) {
	if len(m.report.Segments) == 0 {
		return report.Entry{}, false
	}
	return m.report.Segments[m.cursor], true
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "h", "left":
			m.pane = paneList
			return m, nil
		case "enter", "l", "right":
			if len(m.report.Segments) > 0 {
				m.pane = paneOutput
				m.refreshOutput()
			}
			return m, nil
		}
		if m.pane == paneList {
			m.moveCursor(msg.String())
			return m, nil
		}
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd

	case SegmentMsg:
		m.add(report.New(m.report.Log, []segment.Segment{segment.Segment(msg)}).Segments[0])
		return m, nil

	case WatchErrMsg:
		m.notice = "not following: " + msg.Err.Error()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

// add shows a finished command. A command listed while it was still running
// is replaced in place; otherwise the entry is appended and selected if the
// newest command was selected.
func (m *Model) add(e report.Entry) {
	defer m.refresh()
	for i := range m.report.Segments {
		if m.report.Segments[i].ID == e.ID {
			m.report.Segments[i] = e
			return
		}
	}
	following := m.cursor == len(m.report.Segments)-1
	m.report.Segments = append(m.report.Segments, e)
	if following || len(m.report.Segments) == 1 {
		m.cursor = len(m.report.Segments) - 1
	}
}

func (m *Model) moveCursor(key string) {
	last := len(m.report.Segments) - 1
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < last {
			m.cursor++
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(0, last)
	default:
		return
	}
	m.refresh()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  wtg  " + m.filename)

	var content, hint string
	if m.pane == paneList {
		content = m.list.View()
		hint = "  ↑/↓ select  enter open  g/G first/last  q quit"
	} else {
		content = m.output.View()
		hint = "  ↑/↓ scroll  esc back  q quit"
	}

	if m.notice != "" {
		hint = "  " + m.notice
	}

	pos := fmt.Sprintf("%d/%d", min(m.cursor+1, len(m.report.Segments)), len(m.report.Segments))
	if m.pane == paneOutput {
		pos = fmt.Sprintf("%3.0f%%  %s", m.output.ScrollPercent()*100, pos)
	}
	pad := m.width - lipgloss.Width(hint) - lipgloss.Width(pos) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pos)

	return lipgloss.JoinVertical(lipgloss.Left, title, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + statusBar(1) = 2 fixed rows
	vpHeight := max(1, m.height-2)
	m.list = viewport.New(m.width, vpHeight)
	m.output = viewport.New(m.width, vpHeight)
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.list.SetContent(m.renderList())
	// Keep the cursor row (heading is 3 lines) on screen.
	row := m.cursor + 3
	if row < m.list.YOffset {
		m.list.SetYOffset(row)
	} else if row >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(row - m.list.Height + 1)
	}
	m.refreshOutput()
}

func (m *Model) refreshOutput() {
	if !m.ready {
		return
	}
	m.output.SetContent(m.renderOutput())
	m.output.GotoTop()
}

// ── Renderers ─────────────────────────────────────────────────────────────

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func statusBadge(e report.Entry) string {
	if e.Complete {
		return doneStyle.Render("done      ")
	}
	return incompleteStyle.Render("incomplete")
}

func (m *Model) renderList() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Commands (%d)", len(m.report.Segments))))
	if len(m.report.Segments) == 0 {
		sb.WriteString(dimStyle.Render("  (no command has finished yet)") + "\n")
		return sb.String()
	}
	for i, e := range m.report.Segments {
		num := dimStyle.Render(fmt.Sprintf("  %4d", e.Seq))
		size := dimStyle.Render(fmt.Sprintf("%7dB", len(e.Output)))
		row := fmt.Sprintf("%s  %s  %s  %s", num, statusBadge(e), size, e.Summary(max(10, m.width-32)))
		if i == m.cursor {
			row = selectedRowStyle.Width(max(1, m.width-2)).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (m *Model) renderOutput() string {
	e, ok := m.Selected()
	if !ok {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Command %d", e.Seq)))
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", label)) + "  " + value + "\n")
	}
	row("ID:", e.ID)
	row("Status:", statusBadge(e))
	row("Bytes:", fmt.Sprintf("%d", len(e.Output)))
	sb.WriteString("\n")
	if e.Output == "" {
		sb.WriteString(dimStyle.Render("  (no output)") + "\n")
		return sb.String()
	}
	sb.WriteString(Printable(e.Output))
	return sb.String()
}

// Printable makes captured terminal output safe to draw inside the TUI:
// carriage returns are dropped and other control bytes, including the
// escape that starts colour sequences, are shown in caret notation.
func Printable(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\t':
			sb.WriteRune(r)
		case r == '\r':
		case r < 0x20:
			sb.WriteString("^" + string(rune(r+'@')))
		case r == 0x7f:
			sb.WriteString("^?")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Run starts the TUI for the segments of the log at path. When follow is set
// the list grows as new commands finish.
func Run(ctx context.Context, r *report.Report, path string, follow bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(r, path), tea.WithAltScreen(), tea.WithContext(ctx))
	if follow {
		go followLog(ctx, path, p.Send)
	}
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// followLog sends a SegmentMsg for every command that finishes in the log at
// path, and a WatchErrMsg if following fails.
func followLog(ctx context.Context, path string, send func(tea.Msg)) {
	err := segment.Watch(ctx, path, func(s segment.Segment) {
		send(SegmentMsg(s))
	})
	if err != nil {
		send(WatchErrMsg{Err: err})
	}
}
