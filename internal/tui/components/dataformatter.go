package components

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-serial-ide/internal/tui/colors"
)

// Direction tells where an entry came from.
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
	DirectionSystem
)

// TXStatus tracks an outgoing write.
type TXStatus int

const (
	TXPending TXStatus = iota
	TXWritten
	TXFailed
)

// Entry is one line of monitor history.
type Entry struct {
	Timestamp time.Time
	Direction Direction
	Data      []byte
	Status    TXStatus
}

// DisplayMode selects how entry bytes are rendered.
type DisplayMode struct {
	ShowHex  bool
	ShowText bool
}

type DataFormatter struct {
	mode       DisplayMode
	timestamps bool
}

func NewDataFormatter(showHex, showText bool) *DataFormatter {
	return &DataFormatter{
		mode:       DisplayMode{ShowHex: showHex, ShowText: showText},
		timestamps: true,
	}
}

func (df *DataFormatter) Mode() DisplayMode { return df.mode }

func (df *DataFormatter) ToggleHex()        { df.mode.ShowHex = !df.mode.ShowHex }
func (df *DataFormatter) ToggleText()       { df.mode.ShowText = !df.mode.ShowText }
func (df *DataFormatter) ToggleTimestamps() { df.timestamps = !df.timestamps }

func indicator(e Entry) string {
	switch e.Direction {
	case DirectionTX:
		color, text := colors.Peach, "TX"
		switch e.Status {
		case TXPending:
			color, text = colors.Yellow, "TX ○"
		case TXWritten:
			color, text = colors.Green, "TX ✓"
		case TXFailed:
			color, text = colors.Red, "TX ✗"
		}
		return lipgloss.NewStyle().Foreground(color).Bold(true).Render("↗ " + text)
	case DirectionSystem:
		return lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true).Render("• SYS")
	default:
		return lipgloss.NewStyle().Foreground(colors.Sky).Bold(true).Render("↙ RX")
	}
}

// printable replaces control characters so received bytes cannot move the
// cursor. Decoded text keeps non-ASCII runes.
func printable(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return '.'
	}, string(data))
}

func (df *DataFormatter) Format(e Entry) string {
	var parts []string
	if e.Direction == DirectionSystem {
		parts = append(parts, string(e.Data))
	} else {
		if df.mode.ShowHex {
			parts = append(parts, fmt.Sprintf("HEX: % X", e.Data))
		}
		if df.mode.ShowText {
			parts = append(parts, "TEXT: "+printable(e.Data))
		}
		if !df.mode.ShowHex && !df.mode.ShowText {
			parts = append(parts, fmt.Sprintf("BYTES: %d", len(e.Data)))
		}
	}

	line := indicator(e) + ": " + strings.Join(parts, "  ")
	if df.timestamps {
		ts := lipgloss.NewStyle().Foreground(colors.Subtext0).Render("[" + e.Timestamp.Format("15:04:05.000") + "]")
		line = ts + " " + line
	}
	return line
}

func (df *DataFormatter) FormatAll(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = df.Format(e)
	}
	return out
}
