package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/wtg/internal/report"
	"github.com/fakeyudi/wtg/internal/segment"
)

func sampleReport() *report.Report {
	return report.New("/tmp/session.log", []segment.Segment{
		{SessionID: "s", Seq: 1, Content: []byte("first output\n"), Complete: true},
		{SessionID: "s", Seq: 2, Content: []byte("\x1b[31mred\x1b[0m\r\n"), Complete: true},
		{SessionID: "s", Seq: 3, Content: []byte("cut"), Complete: false},
	})
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var size = tea.WindowSizeMsg{Width: 100, Height: 30}

func TestNewSelectsNewestCommand(t *testing.T) {
	m := New(sampleReport(), "/tmp/session.log")
	e, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, uint64(3), e.Seq)
	assert.Equal(t, "Loading…", m.View())
}

func TestNavigation(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size)

	m = send(t, m, key("k"), key("up"))
	e, _ := m.Selected()
	assert.Equal(t, uint64(1), e.Seq)

	m = send(t, m, key("up"))
	e, _ = m.Selected()
	assert.Equal(t, uint64(1), e.Seq, "cursor stays on the first row")

	m = send(t, m, key("G"))
	e, _ = m.Selected()
	assert.Equal(t, uint64(3), e.Seq)

	m = send(t, m, key("g"), key("j"))
	e, _ = m.Selected()
	assert.Equal(t, uint64(2), e.Seq)
}

func TestListView(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size)
	view := m.View()
	assert.Contains(t, view, "session.log")
	assert.Contains(t, view, "Commands (3)")
	assert.Contains(t, view, "first output")
	assert.Contains(t, view, "incomplete")
	assert.Contains(t, view, "3/3")
}

func TestOpenAndCloseOutput(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size, key("k"), key("enter"))
	assert.Equal(t, paneOutput, m.pane)

	view := m.View()
	assert.Contains(t, view, "Command 2")
	assert.Contains(t, view, "^[[31mred^[[0m")
	assert.NotContains(t, view, "\x1b[31m")

	m = send(t, m, key("esc"))
	assert.Equal(t, paneList, m.pane)
	assert.Contains(t, m.View(), "Commands (3)")
}

func TestEmptyReport(t *testing.T) {
	m := send(t, New(report.New("/tmp/empty.log", nil), "/tmp/empty.log"), size, key("enter"))
	assert.Equal(t, paneList, m.pane, "nothing to open")
	_, ok := m.Selected()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "no command has finished yet")
}

func TestSegmentMsgFollowsNewest(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size)
	m = send(t, m, SegmentMsg(segment.Segment{SessionID: "s", Seq: 4, Content: []byte("later\n"), Complete: true}))

	e, _ := m.Selected()
	assert.Equal(t, uint64(4), e.Seq)
	assert.Contains(t, m.View(), "Commands (4)")
}

func TestSegmentMsgKeepsManualSelection(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size, key("g"))
	m = send(t, m, SegmentMsg(segment.Segment{SessionID: "s", Seq: 4, Complete: true}))

	e, _ := m.Selected()
	assert.Equal(t, uint64(1), e.Seq)
}

func TestSegmentMsgReplacesRunningCommand(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size)
	m = send(t, m, SegmentMsg(segment.Segment{SessionID: "s", Seq: 3, Content: []byte("cut short no more\n"), Complete: true}))

	require.Len(t, m.report.Segments, 3)
	e, _ := m.Selected()
	assert.True(t, e.Complete)
	assert.Equal(t, "cut short no more\n", e.Output)
}

func TestWatchErrorShownInStatusBar(t *testing.T) {
	m := send(t, New(sampleReport(), "/tmp/session.log"), size)
	m = send(t, m, WatchErrMsg{Err: errors.New("log removed")})

	view := m.View()
	assert.Contains(t, view, "not following: log removed")
	assert.NotContains(t, view, "enter open")
}

func TestFollowLogReportsWatchFailure(t *testing.T) {
	var msgs []tea.Msg
	followLog(context.Background(), filepath.Join(t.TempDir(), "missing.log"), func(msg tea.Msg) {
		msgs = append(msgs, msg)
	})

	require.Len(t, msgs, 1)
	failure, ok := msgs[0].(WatchErrMsg)
	require.True(t, ok)
	assert.ErrorIs(t, failure.Err, segment.ErrNotFound)
}

func TestQuit(t *testing.T) {
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := New(sampleReport(), "x").Update(k)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

// Feature: wtg, Property 9: Printable never emits raw control bytes
func TestPrintableHasNoControlBytes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := rapid.String().Draw(rt, "output")
		out := Printable(in)
		for _, r := range out {
			if r == '\n' || r == '\t' {
				continue
			}
			if r < 0x20 || r == 0x7f {
				rt.Fatalf("control rune %q survived in %q", r, out)
			}
		}
		if !strings.ContainsAny(in, "\x00\x01\x02\x03\x04\x05\x06\x07\x08\x0b\x0c\r\x0e\x0f\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f\x7f") {
			if out != in {
				rt.Fatalf("printable input changed: %q -> %q", in, out)
			}
		}
	})
}
