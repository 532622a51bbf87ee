package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	currentStyle = lipgloss.NewStyle().Bold(true)
)

const barWidth = 20

// RenderTerminal draws v for a terminal.
func RenderTerminal(v View) string {
	var b strings.Builder

	title := "Speakers"
	if v.MeetingID != "" {
		title += " · " + v.MeetingID
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("status %s · health %s · %.1fs processed", v.Status, v.Health, v.ProcessedSec)))
	b.WriteString("\n")

	if v.Banner.Visible {
		line := v.Banner.Title
		if v.Banner.Detail != "" {
			line += ": " + v.Banner.Detail
		}
		if len(v.Banner.Actions) > 0 {
			line += " [" + strings.Join(v.Banner.Actions, " | ") + "]"
		}
		b.WriteString(bannerStyle(v.Banner.Level).Render(line))
		b.WriteString("\n")
	}
	if v.Warming {
		b.WriteString(metaStyle.Render("listening for speakers…"))
		b.WriteString("\n")
	}

	for _, s := range v.Speakers {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("●")
		name := s.Display()
		if s.Current {
			name = currentStyle.Render(name)
		}
		if s.Animating {
			name += " " + infoStyle.Render("renamed")
		}
		fmt.Fprintf(&b, "%s %-24s %s %5.1f%%  %d segs\n", swatch, name, bar(s.TalkPercent, s.Color), s.TalkPercent, s.SegmentCount)
	}
	return b.String()
}

func bannerStyle(level string) lipgloss.Style {
	switch level {
	case LevelError:
		return errorStyle
	case LevelWarning:
		return warningStyle
	default:
		return infoStyle
	}
}

func bar(percent float64, color string) string {
	filled := int(percent / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", filled)) +
		metaStyle.Render(strings.Repeat("░", barWidth-filled))
}
