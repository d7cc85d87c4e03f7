package log

import (
	"fmt"

	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Height returns how many rows the log viewport gets for a screen height.
// It is at most a third of the screen and never more than 12 rows.
func Height(screenHeight int) int {
	// header (3), nav (3), chat panel minimum (8)
	available := helpers.Max(3, screenHeight-14)
	return helpers.Min(available, helpers.Min(screenHeight/3, 12))
}

// Render renders the log panel. level and logFile are shown in the title.
func Render(width, height int, logReady bool, spinnerView string, vp viewport.Model, level, logFile string) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")

	meta := styles.Muted(" " + level)
	if logFile != "" {
		meta += styles.Muted(" → " + logFile)
	}

	panelHeight := Height(height)
	vp.Height = panelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(helpers.Max(0, width-2)).
		Height(panelHeight + 2)

	if !logReady {
		return border.Render(title + meta + "\n\n" + "initializing...\n" + spinnerView)
	}

	if vp.TotalLineCount() > vp.Height {
		meta += styles.Muted(fmt.Sprintf(" [%d%%]", int(vp.ScrollPercent()*100)))
	}

	return border.Render(title + meta + "\n\n" + vp.View())
}
