// Package styles holds the lipgloss styles shared by the monitor and the
// plain CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serial-ide/internal/tui/colors"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)

	ValueStyle = lipgloss.NewStyle().
			Foreground(colors.Text)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colors.Red).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)
)

// OutputLineStyle colors a build or flash line by its origin.
func OutputLineStyle(line string, isError bool) string {
	if isError {
		return ErrorStyle.Render(line)
	}
	return ValueStyle.Render(line)
}
