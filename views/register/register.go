package register

import (
	"fmt"
	"strings"

	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"

	"github.com/charmbracelet/huh"
)

// TempName stores the display name typed into the form
var TempName string

// CreateForm creates the registration form for account
func CreateForm(account string) *huh.Form {
	TempName = ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Display Name").
				Description(fmt.Sprintf("Register %s on the platform", helpers.ShortenAddr(account))).
				Placeholder("Satoshi").
				CharLimit(64).
				Value(&TempName),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the registration view
func Render(form *huh.Form, registering bool, spinnerView string) string {
	h := styles.TitleStyle.Render("Create your profile")
	lines := []string{h, "", styles.Muted("This account is not registered yet. Pick a name others will see."), ""}

	switch {
	case registering:
		lines = append(lines, spinnerView+" Submitting registration…")
	case form != nil:
		lines = append(lines, form.View())
	default:
		lines = append(lines, "Loading form...")
	}
	return strings.Join(lines, "\n")
}

// Nav returns the navigation bar for the registration view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("Enter") + " register",
		styles.Key("Ctrl+d") + " disconnect",
		styles.Key("Ctrl+l") + " logger",
		styles.Key("Ctrl+c") + " quit",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
