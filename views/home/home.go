package home

import (
	"strings"

	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Render renders the home view: who you are and whom to talk to
func Render(account, name, recipientView string, starting bool, spinnerView string) string {
	greeting := "Welcome"
	if name != "" {
		greeting += ", " + name
	}
	h := styles.TitleStyle.Render(greeting)

	lines := []string{
		h,
		styles.Muted("Signed in as ") + helpers.FadeString(account, "#F25D94", "#EDFF82"),
		"",
		lipgloss.NewStyle().Foreground(styles.CText).Bold(true).Render("Start a chat"),
		styles.Muted("Enter the recipient's address or ENS name."),
		"",
		recipientView,
	}
	if starting {
		lines = append(lines, "", spinnerView+" Opening conversation…")
	}
	return strings.Join(lines, "\n")
}

// RenderShare renders the "share my address" panel with an EIP-681 QR code
func RenderShare(uri, qr string) string {
	lines := []string{
		styles.TitleStyle.Render("Share your address"),
		"",
		qr,
		"",
		styles.Muted(uri),
	}
	return lipgloss.NewStyle().Align(lipgloss.Center).Render(strings.Join(lines, "\n"))
}

// Nav returns the navigation bar for home view
func Nav(width int, sharing bool) string {
	share := " share"
	if sharing {
		share = " hide QR"
	}
	left := strings.Join([]string{
		styles.Key("Enter") + " open chat",
		styles.Key("Ctrl+v") + " paste",
		styles.Key("Ctrl+y") + " copy address",
		styles.Key("Ctrl+s") + share,
		styles.Key("Ctrl+k") + " forget key",
		styles.Key("Ctrl+d") + " disconnect",
		styles.Key("Ctrl+l") + " logger",
		styles.Key("Esc") + " quit",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
