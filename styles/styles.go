package styles

import "github.com/charmbracelet/lipgloss"

// Theme colors
var (
	CBg      = lipgloss.Color("#0B0F14") // near-black
	CPanel   = lipgloss.Color("#0F1720") // slightly lighter
	CBorder  = lipgloss.Color("#874BFD")
	CMuted   = lipgloss.Color("#8AA0B6")
	CText    = lipgloss.Color("#D6E2F0")
	CAccent  = lipgloss.Color("#7EE787") // green-ish
	CAccent2 = lipgloss.Color("#79C0FF") // blue-ish
	CWarn    = lipgloss.Color("#FFA657") // orange
	CError   = lipgloss.Color("#FF6B6B")
	CMine    = lipgloss.Color("#1F6FEB")
	CTheirs  = lipgloss.Color("#21262D")
)

// Shared styles
var (
	AppStyle = lipgloss.NewStyle().
			Background(CBg).
			Foreground(CText)

	TitleStyle = lipgloss.NewStyle().
			Foreground(CAccent2).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(CBorder).
			Padding(1, 2)

	NavStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(CBorder).
			Padding(0, 1)

	HotkeyKeyStyle = lipgloss.NewStyle().
			Foreground(CAccent).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(CMuted)

	WarnStyle = lipgloss.NewStyle().
			Foreground(CWarn).
			Bold(true)
)

// Chat bubbles
var (
	MineBubble = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(CMine).
			Padding(0, 1)

	TheirBubble = lipgloss.NewStyle().
			Foreground(CText).
			Background(CTheirs).
			Padding(0, 1)

	BubbleMeta = lipgloss.NewStyle().
			Foreground(CMuted).
			Faint(true)
)

// Toasts
var (
	ToastOK = lipgloss.NewStyle().
		Foreground(CAccent).
		Bold(true)

	ToastErr = lipgloss.NewStyle().
			Foreground(CError).
			Bold(true)
)

// Key renders a key with accent styling
func Key(s string) string {
	return HotkeyKeyStyle.Render(s)
}

// Muted renders s in the muted color
func Muted(s string) string {
	return MutedStyle.Render(s)
}
