package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serial-ide/internal/tui/colors"
)

// ConnState is the session state shown in the status bar.
type ConnState int

const (
	ConnClosed ConnState = iota
	ConnOpening
	ConnOpen
	ConnFailed
)

type StatusBar struct {
	port     string
	baudRate int
	state    ConnState
	message  string
	width    int
}

func NewStatusBar(port string, baudRate int) *StatusBar {
	return &StatusBar{port: port, baudRate: baudRate, state: ConnClosed}
}

func (sb *StatusBar) SetWidth(width int) { sb.width = width }

func (sb *StatusBar) State() ConnState { return sb.state }

func (sb *StatusBar) Message() string { return sb.message }

func (sb *StatusBar) SetOpening() {
	sb.state = ConnOpening
	sb.message = "Opening..."
}

func (sb *StatusBar) SetOpen(port string) {
	sb.port = port
	sb.state = ConnOpen
	sb.message = ""
}

// SetClosed marks the port closed. A non-nil err is shown as the reason.
func (sb *StatusBar) SetClosed(err error) {
	if err != nil {
		sb.state = ConnFailed
		sb.message = err.Error()
		return
	}
	sb.state = ConnClosed
	sb.message = "Closed"
}

func (sb *StatusBar) indicator() string {
	switch sb.state {
	case ConnOpen:
		return lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	case ConnOpening:
		return lipgloss.NewStyle().Foreground(colors.Yellow).Render("○")
	case ConnFailed:
		return lipgloss.NewStyle().Foreground(colors.Red).Render("✗")
	default:
		return lipgloss.NewStyle().Foreground(colors.Red).Render("○")
	}
}

// View renders mode | port | state on the left and line settings plus the
// clock on the right.
func (sb *StatusBar) View(insert bool, sendingMode, clock string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeText, modeColor := "NORMAL", colors.Blue
	if insert {
		modeText, modeColor = "INSERT", colors.Green
	}
	mode := lipgloss.NewStyle().Foreground(colors.Base).Background(modeColor).Bold(true).Padding(0, 1).Render(modeText)
	port := lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true).Padding(0, 1).Render(sb.port)
	divider := lipgloss.NewStyle().Foreground(colors.Surface2).Padding(0, 1).Render("│")

	left := []string{mode, port, sb.indicator()}
	if sb.message != "" {
		left = append(left, lipgloss.NewStyle().Foreground(colors.Subtext0).Padding(0, 1).Render(sb.message))
	}
	if insert {
		left = append(left, lipgloss.NewStyle().Foreground(colors.Peach).Bold(true).Padding(0, 1).Render("["+sendingMode+"] Tab to toggle"))
	}
	left = append(left, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)

	settings := lipgloss.NewStyle().Foreground(colors.Subtext0).Padding(0, 1).Render(fmt.Sprintf("⚡ %d baud 8N1", sb.baudRate))
	clockView := lipgloss.NewStyle().Foreground(colors.Subtext1).Padding(0, 1).Render(clock)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, settings, divider, clockView)

	gap := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
