package main

import (
	"strings"

	"chain-chat-tui/chain"
	"chain-chat-tui/config"
	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"
	"chain-chat-tui/views/chat"
	"chain-chat-tui/views/connect"
	"chain-chat-tui/views/credential"
	"chain-chat-tui/views/home"
	logview "chain-chat-tui/views/log"
	"chain-chat-tui/views/network"
	"chain-chat-tui/views/register"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8) // Account for panel padding
	s := m.session.Session()

	// Session account, credential indicator and balance
	var addrDisplay string
	if s.Connected {
		label := helpers.FadeString(helpers.ShortenAddr(s.Account), "#F25D94", "#EDFF82")
		if m.myName != "" {
			label = m.myName + " " + label
		}
		if s.HasCredential {
			label += " 🔑"
			if owner, ok := m.session.CredentialAddress(); ok && !strings.EqualFold(owner, s.Account) {
				label += " (key for " + helpers.ShortenAddr(owner) + ")"
			}
		}
		addrDisplay = lipgloss.NewStyle().
			Foreground(cAccent2).
			Bold(true).
			Render(label)
		if m.balance.Wei != nil && m.balance.ErrMessage == "" {
			n := m.cfg.Network
			addrDisplay += lipgloss.NewStyle().
				Foreground(cMuted).
				Render("  " + chain.FormatUnits(m.balance.Wei, n.CurrencyDecimals, 4) + " " + n.CurrencySymbol)
		}
	} else {
		addrDisplay = lipgloss.NewStyle().
			Foreground(cMuted).
			Render("Not connected")
	}

	// Network and backend status
	statusDisplay := m.networkStatus(s.Connected) + "  " + m.backendStatus()

	// Center title
	titleText := lipgloss.NewStyle().
		Foreground(cAccent).
		Bold(true).
		Render(helpers.FadeString("chain chat", "#7EE787", "#82CFFD"))

	// Calculate widths
	addrWidth := lipgloss.Width(addrDisplay)
	statusWidth := lipgloss.Width(statusDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + statusWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + statusDisplay
	} else {
		// Three-column layout: Account | Title (centered) | Status
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		headerLine = addrDisplay +
			strings.Repeat(" ", max(1, leftPadding)) +
			titleText +
			strings.Repeat(" ", max(1, rightPadding)) +
			statusDisplay
	}

	// Add separator line
	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

// networkStatus renders the wallet's chain against the target network
func (m *model) networkStatus(connected bool) string {
	icon, color, text := "○", cMuted, m.cfg.Network.Name
	switch {
	case !connected:
	case m.session.IsCorrectNetwork():
		icon, color = "●", cAccent
	default:
		icon, color, text = "○", cWarn, "Wrong network"
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon + " " + text)
}

// backendStatus renders the last backend health report
func (m *model) backendStatus() string {
	icon, color := "○", cMuted
	switch {
	case !m.healthChecked:
	case m.health.Healthy():
		icon, color = "●", cAccent
	default:
		color = cError
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(icon + " API")
}

func (m *model) View() string {
	// Render global header outside of page content
	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())

	width := max(0, m.w-2)
	var pageContent string
	var nav string

	switch {
	case !m.session.Connected():
		pageContent = connect.Render(m.cfg.WalletRPCURL, m.cfg.Network.Name, m.connecting, m.spin.View())
		nav = connect.Nav(width)

	case m.credentialForm != nil:
		pageContent = credential.Render(max(0, m.w-8), max(10, m.chatViewport.Height+4), m.credentialForm)
		nav = credential.Nav(width)

	case m.activePage == config.PageNetworkWarning:
		pageContent = network.Render(m.cfg.Network, m.session.Session().ChainID, m.switching, m.spin.View())
		nav = network.Nav(width)

	case m.activePage == config.PageRegister:
		pageContent = register.Render(m.registerForm, m.registering, m.spin.View())
		nav = register.Nav(width)

	case m.activePage == config.PageChat:
		label := chat.PartnerLabel(m.partner, m.partnerName, m.partnerENS)
		pageContent = chat.Render(label, len(m.messages), m.chatViewport, m.composeInput.View(), m.sending || m.refreshing, m.spin.View())
		nav = chat.Nav(width)

	default:
		if m.showShare {
			pageContent = home.RenderShare(chain.ShareURI(m.session.Account(), m.cfg.Network.ChainID), m.shareQR)
		} else {
			pageContent = home.Render(m.session.Account(), m.myName, m.recipientInput.View(), m.startingChat, m.spin.View())
		}
		nav = home.Nav(width, m.showShare)
	}

	sections := []string{headerPanel, panelStyle.Width(width).Render(pageContent), nav}

	if m.toast != "" {
		toastStyle := styles.ToastOK
		if m.toastErr {
			toastStyle = styles.ToastErr
		}
		sections = append(sections, toastStyle.Render(" "+m.toast))
	}

	if m.logEnabled {
		level := strings.ToUpper(m.logger.GetLevel().String())
		sections = append(sections, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport, level, m.cfg.LogFile))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
