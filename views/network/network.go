package network

import (
	"strings"

	"chain-chat-tui/config"
	"chain-chat-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Render renders the wrong-network warning
func Render(target config.Network, current string, switching bool, spinnerView string) string {
	h := lipgloss.NewStyle().Foreground(styles.CWarn).Bold(true).Render("Wrong network")

	if current == "" {
		current = "unknown"
	}
	lines := []string{
		h,
		"",
		"Your wallet is on chain " + styles.WarnStyle.Render(current) + ".",
		"Chat runs on " + styles.TitleStyle.Render(target.Name) + " (" + target.ChainID + ").",
		"",
	}
	if switching {
		lines = append(lines, spinnerView+" Waiting for the wallet to switch…")
	} else {
		lines = append(lines, "Press "+styles.Key("s")+" to ask the wallet to switch networks.")
		lines = append(lines, styles.Muted("If the wallet does not know "+target.Name+", it will be asked to add it."))
	}
	return strings.Join(lines, "\n")
}

// Nav returns the navigation bar for the network warning
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("s") + " switch network",
		styles.Key("Ctrl+d") + " disconnect",
		styles.Key("Ctrl+l") + " logger",
		styles.Key("q") + " quit",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
