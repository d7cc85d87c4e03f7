package credential

import (
	"strings"

	"chain-chat-tui/styles"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// TempCredential stores the masked input
var TempCredential string

// Reset wipes the masked input once it has been handed over
func Reset() {
	TempCredential = ""
}

// CreateForm creates the masked private key prompt. purpose names the
// action waiting on it, e.g. "send this message".
func CreateForm(purpose string) *huh.Form {
	Reset()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Private Key").
				Description("Needed to " + purpose + ". Kept in memory for this session only.").
				Placeholder("0x…").
				EchoMode(huh.EchoModePassword).
				Value(&TempCredential),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the prompt as a centered dialog
func Render(width, height int, form *huh.Form) string {
	warn := styles.WarnStyle.Render("Demo only: never paste a key that holds real funds.")
	body := styles.TitleStyle.Render("Sign with your key") + "\n\n" + warn + "\n\n"
	if form != nil {
		body += form.View()
	}
	body += "\n" + styles.Muted("Enter confirm • Esc cancel")

	dialog := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Background(styles.CPanel).
		Padding(1, 2).
		Width(min(70, max(30, width-4))).
		Render(body)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, dialog)
}

// Nav returns the navigation bar while the prompt is open
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("Enter") + " confirm",
		styles.Key("Esc") + " cancel",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
