package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// maxEntries bounds the scrollback.
const maxEntries = 5000

type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	entries   []Entry
	dropped   int
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(false, true),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int { return t.viewport.Width }

// Append adds e and returns a handle usable with SetStatus.
func (t *Terminal) Append(e Entry) int {
	t.entries = append(t.entries, e)
	if len(t.entries) > maxEntries {
		over := len(t.entries) - maxEntries
		t.entries = t.entries[over:]
		t.dropped += over
	}
	t.refresh()
	return t.dropped + len(t.entries) - 1
}

// SetStatus updates the TX status of the entry behind handle, if it is
// still in the scrollback.
func (t *Terminal) SetStatus(handle int, status TXStatus) {
	i := handle - t.dropped
	if i < 0 || i >= len(t.entries) {
		return
	}
	t.entries[i].Status = status
	t.refresh()
}

func (t *Terminal) Entries() []Entry { return t.entries }

func (t *Terminal) Clear() {
	t.dropped += len(t.entries)
	t.entries = nil
	t.viewport.SetContent("")
}

func (t *Terminal) Formatter() *DataFormatter { return t.formatter }

// refresh re-renders everything and follows the tail.
func (t *Terminal) refresh() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatAll(t.entries), "\n"))
	t.viewport.GotoBottom()
}

// Refresh re-renders after a display mode change.
func (t *Terminal) Refresh() { t.refresh() }

func (t *Terminal) ScrollUp()   { t.viewport.LineUp(1) }
func (t *Terminal) ScrollDown() { t.viewport.LineDown(1) }
func (t *Terminal) GotoTop()    { t.viewport.GotoTop() }
func (t *Terminal) GotoBottom() { t.viewport.GotoBottom() }

// Update only forwards resize messages so the viewport does not swallow
// monitor key bindings.
func (t *Terminal) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(tea.WindowSizeMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
