// Package models holds the bubbletea model of the serial monitor.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serial-ide/internal/session"
	"github.com/allbin/go-serial-ide/internal/tui/components"
	"github.com/allbin/go-serial-ide/internal/tui/keys"
	"github.com/allbin/go-serial-ide/internal/tui/styles"
)

// Session is the part of the serial session the monitor drives.
type Session interface {
	Open(name string) error
	Read() (string, error)
	Write(data string) error
	Close() error
	Status() string
}

type openedMsg struct {
	port string
	err  error
}

type closedMsg struct{ err error }

type readMsg struct {
	at   time.Time
	data string
	err  error
}

type writtenMsg struct {
	handle int
	size   int
	err    error
}

type pollMsg struct{}

// Monitor polls the session for incoming data and sends typed input.
type Monitor struct {
	session  Session
	port     string
	interval time.Duration

	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.MonitorKeys

	insert  bool
	ready   bool
	reading bool
	rxBytes int
	txBytes int
	now     func() time.Time
}

// NewMonitor builds a monitor for port. Reads are polled every interval.
func NewMonitor(s Session, port string, baudRate int, interval time.Duration, lineEnding string) *Monitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Monitor{
		session:   s,
		port:      port,
		interval:  interval,
		terminal:  components.NewTerminal(0, 0),
		statusBar: components.NewStatusBar(port, baudRate),
		input:     components.NewInput(lineEnding),
		help:      help.New(),
		keys:      keys.NewMonitorKeys(),
		now:       time.Now,
	}
}

func (m *Monitor) Init() tea.Cmd {
	m.statusBar.SetOpening()
	return m.openCmd()
}

func (m *Monitor) openCmd() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		return openedMsg{port: port, err: m.session.Open(port)}
	}
}

func (m *Monitor) closeCmd() tea.Cmd {
	return func() tea.Msg {
		return closedMsg{err: m.session.Close()}
	}
}

func (m *Monitor) readCmd() tea.Cmd {
	return func() tea.Msg {
		data, err := m.session.Read()
		return readMsg{at: m.now(), data: data, err: err}
	}
}

func (m *Monitor) pollCmd() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m *Monitor) writeCmd(handle int, payload []byte) tea.Cmd {
	return func() tea.Msg {
		return writtenMsg{handle: handle, size: len(payload), err: m.session.Write(string(payload))}
	}
}

func (m *Monitor) system(text string) {
	m.terminal.Append(components.Entry{Timestamp: m.now(), Direction: components.DirectionSystem, Data: []byte(text)})
}

func (m *Monitor) isOpen() bool {
	return m.statusBar.State() == components.ConnOpen
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// input box (3) + status bar (1) + border (1)
		m.terminal.SetSize(msg.Width, msg.Height-5)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.ready = true
		cmds = append(cmds, m.terminal.Update(msg))

	case openedMsg:
		if msg.err != nil {
			m.statusBar.SetClosed(msg.err)
			m.system("open failed: " + msg.err.Error())
			break
		}
		m.statusBar.SetOpen(msg.port)
		m.system("opened " + msg.port)
		cmds = append(cmds, m.pollCmd())

	case closedMsg:
		m.statusBar.SetClosed(nil)
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoPortOpen) {
			m.system("close: " + msg.err.Error())
		} else {
			m.system("closed " + m.port)
		}

	case pollMsg:
		if m.isOpen() && !m.reading {
			m.reading = true
			cmds = append(cmds, m.readCmd())
		}

	case readMsg:
		m.reading = false
		switch {
		case errors.Is(msg.err, session.ErrNoPortOpen):
			m.statusBar.SetClosed(nil)
		case msg.err != nil:
			m.statusBar.SetClosed(msg.err)
			m.system(msg.err.Error())
		default:
			if msg.data != "" {
				m.rxBytes += len(msg.data)
				m.terminal.Append(components.Entry{Timestamp: msg.at, Direction: components.DirectionRX, Data: []byte(msg.data)})
			}
			if m.isOpen() {
				cmds = append(cmds, m.pollCmd())
			}
		}

	case writtenMsg:
		if msg.err != nil {
			m.terminal.SetStatus(msg.handle, components.TXFailed)
			m.system("write failed: " + msg.err.Error())
		} else {
			m.txBytes += msg.size
			m.terminal.SetStatus(msg.handle, components.TXWritten)
		}

	case tea.KeyMsg:
		if m.insert {
			return m, m.updateInsert(msg)
		}
		return m, m.updateNormal(msg)
	}

	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

func (m *Monitor) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.insert = false
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Send):
		return m.send()
	case key.Matches(msg, m.keys.Up):
		m.input.HistoryUp()
		return nil
	case key.Matches(msg, m.keys.Down):
		m.input.HistoryDown()
		return nil
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
		return nil
	}
	return m.input.Update(msg)
}

func (m *Monitor) send() tea.Cmd {
	value := m.input.Value()
	if value == "" {
		return nil
	}
	payload, err := m.input.Payload()
	if err != nil {
		m.system(err.Error())
		return nil
	}
	m.input.AddToHistory(value)
	m.input.SetValue("")
	if !m.isOpen() {
		m.system("not sent: " + session.ErrNoPortOpen.Error())
		return nil
	}
	handle := m.terminal.Append(components.Entry{
		Timestamp: m.now(),
		Direction: components.DirectionTX,
		Data:      payload,
		Status:    components.TXPending,
	})
	return m.writeCmd(handle, payload)
}

func (m *Monitor) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.InsertMode):
		m.insert = true
		m.input.Focus()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()
	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.Formatter().ToggleHex()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleText):
		m.terminal.Formatter().ToggleText()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleTimestamps):
		m.terminal.Formatter().ToggleTimestamps()
		m.terminal.Refresh()
	case key.Matches(msg, m.keys.ToggleSendMode):
		m.input.ToggleSendingMode()
	case key.Matches(msg, m.keys.Reconnect):
		m.statusBar.SetOpening()
		return m.openCmd()
	case key.Matches(msg, m.keys.Disconnect):
		if m.isOpen() {
			return m.closeCmd()
		}
	case key.Matches(msg, m.keys.Up):
		m.terminal.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.terminal.ScrollDown()
	case key.Matches(msg, m.keys.GotoTop):
		m.terminal.GotoTop()
	case key.Matches(msg, m.keys.GotoBottom):
		m.terminal.GotoBottom()
	}
	return nil
}

func (m *Monitor) View() string {
	content := "Initializing..."
	if m.ready {
		content = m.terminal.View()
	}
	status := m.statusBar.View(m.insert, m.input.Mode().String(), m.now().Format("15:04:05"))
	parts := []string{
		styles.ContentBorderStyle.Render(content),
		m.input.View(m.insert),
		status,
	}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Summary describes the session after the program exits.
func (m *Monitor) Summary() string {
	return fmt.Sprintf("%s: %d bytes received, %d bytes sent", m.port, m.rxBytes, m.txBytes)
}
