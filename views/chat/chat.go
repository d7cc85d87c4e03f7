package chat

import (
	"fmt"
	"strings"

	"chain-chat-tui/backend"
	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// RenderMessages lays out the conversation as left/right aligned bubbles
func RenderMessages(msgs []backend.Message, account string, width int) string {
	if len(msgs) == 0 {
		return styles.Muted("No messages yet. Say hello!")
	}

	bubbleWidth := helpers.Max(10, width*2/3)
	var b strings.Builder
	for i, msg := range msgs {
		mine := msg.FromMe(account)

		content := msg.Content
		switch {
		case msg.IsDeleted:
			content = lipgloss.NewStyle().Italic(true).Render("This message was deleted")
		case msg.IsMedia:
			content = "[media] " + content
		}

		style := styles.TheirBubble
		align := lipgloss.Left
		if mine {
			style = styles.MineBubble
			align = lipgloss.Right
		}
		bubble := style.MaxWidth(bubbleWidth).Width(helpers.Min(bubbleWidth, lipgloss.Width(content)+2)).Render(content)
		meta := styles.BubbleMeta.Render(helpers.FormatTimestamp(msg.Timestamp.Time()))

		block := lipgloss.JoinVertical(align, bubble, meta)
		b.WriteString(lipgloss.PlaceHorizontal(width, align, block))
		if i < len(msgs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Render renders the chat view around an already filled viewport
func Render(partnerLabel string, count int, vp viewport.Model, composeView string, busy bool, spinnerView string) string {
	h := styles.TitleStyle.Render("Chat with " + partnerLabel)
	sub := styles.Muted(fmt.Sprintf("%d messages", count))
	if busy {
		sub += "  " + spinnerView
	}

	divider := lipgloss.NewStyle().Foreground(styles.CBorder).Render(strings.Repeat("─", helpers.Max(0, vp.Width)))
	return strings.Join([]string{h + "  " + sub, "", vp.View(), divider, composeView}, "\n")
}

// PartnerLabel picks the friendliest known name for the partner
func PartnerLabel(address, name, ensName string) string {
	switch {
	case name != "" && ensName != "":
		return name + " (" + ensName + ")"
	case name != "":
		return name + " (" + helpers.ShortenAddr(address) + ")"
	case ensName != "":
		return ensName
	default:
		return helpers.ShortenAddr(address)
	}
}

// Nav returns the navigation bar for chat view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("Enter") + " send",
		styles.Key("↑/↓") + " scroll",
		styles.Key("Ctrl+r") + " refresh",
		styles.Key("Ctrl+k") + " forget key",
		styles.Key("Esc") + " back",
		styles.Key("Ctrl+l") + " logger",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}
