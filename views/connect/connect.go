package connect

import (
	"strings"

	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Render renders the welcome screen shown while no wallet is attached
func Render(walletURL, networkName string, connecting bool, spinnerView string) string {
	title := helpers.FadeString("chain chat", "#7EE787", "#82CFFD")

	lines := []string{
		title,
		"",
		lipgloss.NewStyle().Foreground(styles.CText).Render("Decentralized messaging backed by your wallet."),
		styles.Muted("Messages are stored on " + networkName + "."),
		"",
	}

	if connecting {
		lines = append(lines, spinnerView+" Waiting for the wallet at "+walletURL+"…")
		lines = append(lines, styles.Muted("Approve the connection request in your wallet."))
	} else {
		lines = append(lines, "Press "+styles.Key("Enter")+" to connect your wallet.")
		lines = append(lines, styles.Muted("Wallet endpoint: "+walletURL))
		lines = append(lines, styles.Muted("No wallet? Install Frame (frame.sh) or point --wallet-rpc at another EIP-1193 endpoint."))
	}

	return lipgloss.NewStyle().Align(lipgloss.Center).Render(strings.Join(lines, "\n"))
}

// Nav returns the navigation bar for the connect screen
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("Enter") + " connect",
		styles.Key("Ctrl+l") + " logger",
		styles.Key("q") + " quit",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
