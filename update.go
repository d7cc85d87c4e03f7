package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"chain-chat-tui/backend"
	"chain-chat-tui/chain"
	"chain-chat-tui/config"
	"chain-chat-tui/helpers"
	"chain-chat-tui/views/credential"
	logview "chain-chat-tui/views/log"
	"chain-chat-tui/views/register"
	"chain-chat-tui/wallet"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Update implements tea.Model. After every message the page is checked
// against the wallet's network.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.syncNetworkPage()
	return m, cmd
}

func (m *model) update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(keyMsg)
	}

	var cmds []tea.Cmd

	// Forms also need their internal messages
	switch {
	case m.credentialForm != nil:
		cmds = append(cmds, m.updateCredentialForm(msg))
	case m.registerForm != nil && m.activePage == config.PageRegister:
		cmds = append(cmds, m.updateRegisterForm(msg))
	}

	switch msg := msg.(type) {
	case logInitMsg:
		if !m.logEnabled {
			return nil
		}
		m.logReady = true
		m.addLog("info", "Logger enabled")

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		if m.activePage == config.PageChat {
			var cmd tea.Cmd
			m.chatViewport, cmd = m.chatViewport.Update(msg)
			cmds = append(cmds, cmd)
		}

	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = ""
			m.toastErr = false
		}

	case clipboardCopiedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.showToast("Could not copy to clipboard", true))
		} else {
			cmds = append(cmds, m.showToast("Address copied to clipboard", false))
		}

	case walletConnectedMsg:
		cmds = append(cmds, m.handleConnected(msg))

	case walletEventMsg:
		cmds = append(cmds, m.handleWalletEvent(msg.ev))

	case walletWatchEndedMsg:
		if msg.gen == m.watchGen && m.watchCancel != nil {
			m.watchCancel()
			m.watchCancel = nil
			m.addLog("warning", fmt.Sprintf("Wallet event listener stopped: %v", msg.err))
			if m.session.Connected() {
				cmds = append(cmds, tea.Tick(m.cfg.PollInterval, func(_ time.Time) tea.Msg { return watchRetryMsg{} }))
			}
		}

	case watchRetryMsg:
		if m.session.Connected() {
			cmds = append(cmds, m.startWatch())
		}

	case networkSwitchedMsg:
		m.switching = false
		if msg.err != nil {
			cmds = append(cmds, m.showToast(m.userMessage(msg.err), true))
			break
		}
		cmds = append(cmds, m.showToast("Switched to "+m.cfg.Network.Name, false))
		if m.chainClient != nil {
			cmds = append(cmds, loadBalance(m.chainClient, m.session.Account()))
		}

	case registrationCheckedMsg:
		if !m.isSelf(msg.account) {
			return nil
		}
		m.registered = msg.registered
		if msg.registered {
			m.addLog("info", fmt.Sprintf("Account `%s` is registered", helpers.ShortenAddr(msg.account)))
			if m.activePage == config.PageRegister {
				m.activePage = config.PageHome
			}
			cmds = append(cmds, loadProfile(m.api, msg.account))
			break
		}
		m.addLog("info", fmt.Sprintf("Account `%s` is not registered", helpers.ShortenAddr(msg.account)))
		m.activePage = config.PageRegister
		m.registerForm = register.CreateForm(msg.account)

	case registeredMsg:
		m.registering = false
		if !m.isSelf(msg.account) {
			return nil
		}
		if msg.err != nil {
			m.registerForm = register.CreateForm(msg.account)
			cmds = append(cmds, m.showToast(m.userMessage(msg.err), true))
			break
		}
		m.registered = true
		m.myName = msg.name
		m.registerForm = nil
		m.activePage = config.PageHome
		cmds = append(cmds, m.showToast("Registration successful!", false))

	case ensResolvedMsg:
		if msg.err != nil || msg.address == "" {
			m.startingChat = false
			m.addLog("debug", fmt.Sprintf("ENS resolve failed for `%s`: %v", msg.name, msg.err))
			cmds = append(cmds, m.showToast("Could not resolve "+msg.name, true))
			break
		}
		m.addLog("info", fmt.Sprintf("Resolved `%s` to `%s`", msg.name, helpers.ShortenAddr(msg.address)))
		cmds = append(cmds, m.openChatWith(msg.address, msg.name))

	case chatOpenedMsg:
		m.startingChat = false
		if !m.session.Connected() {
			return nil
		}
		if !msg.registered {
			cmds = append(cmds, m.showToast("This user is not registered on the platform. Please ask them to register first.", true))
			break
		}
		m.partner = msg.partner
		m.partnerENS = msg.ensName
		m.partnerName = ""
		m.messages = msg.messages
		m.activePage = config.PageChat
		m.recipientInput.Reset()
		m.recipientInput.Blur()
		m.composeInput.Focus()
		m.refreshChatViewport()
		m.addLog("info", fmt.Sprintf("Opened chat with `%s` (%d messages)", helpers.ShortenAddr(msg.partner), len(msg.messages)))
		cmds = append(cmds, loadProfile(m.api, msg.partner))
		if msg.ensName == "" && m.chainClient != nil {
			cmds = append(cmds, lookupENS(m.chainClient, msg.partner))
		}
		if msg.err != nil {
			cmds = append(cmds, m.showToast(m.userMessage(msg.err), true))
		}

	case messageSentMsg:
		m.sending = false
		if msg.err != nil {
			cmds = append(cmds, m.showToast(m.userMessage(msg.err), true))
			break
		}
		if msg.partner == m.partner {
			m.composeInput.Reset()
			m.refreshing = true
			cmds = append(cmds, refreshAfter(m.cfg.RefreshDelay, msg.partner))
		}
		cmds = append(cmds, m.showToast("Message sent successfully!", false))

	case refreshConversationMsg:
		if m.activePage != config.PageChat || msg.partner != m.partner {
			m.refreshing = false
			break
		}
		m.refreshing = true
		cmds = append(cmds, loadConversation(m.api, m.session.Account(), msg.partner))

	case conversationLoadedMsg:
		if msg.partner != m.partner {
			break
		}
		m.refreshing = false
		if msg.err != nil {
			cmds = append(cmds, m.showToast(m.userMessage(msg.err), true))
			break
		}
		m.messages = msg.messages
		m.refreshChatViewport()

	case profileLoadedMsg:
		if msg.err != nil {
			m.addLog("debug", fmt.Sprintf("Profile lookup for `%s` failed: %v", helpers.ShortenAddr(msg.address), msg.err))
			break
		}
		if backend.SameAddress(msg.address, m.partner) {
			m.partnerName = msg.user.Name
		}
		if m.isSelf(msg.address) {
			m.myName = msg.user.Name
		}

	case ensLookupResultMsg:
		if msg.err != nil {
			m.addLog("debug", fmt.Sprintf("ENS lookup for `%s` failed: %v", helpers.ShortenAddr(msg.address), msg.err))
			break
		}
		if msg.name != "" && backend.SameAddress(msg.address, m.partner) {
			m.partnerENS = msg.name
		}

	case healthMsg:
		m.healthChecked = true
		m.health = msg.health
		if msg.err != nil {
			m.addLog("warning", fmt.Sprintf("Backend health check failed: %v", msg.err))
		} else if !msg.health.Healthy() {
			m.addLog("warning", fmt.Sprintf("Backend reports status `%s`", msg.health.Status))
		}

	case chainConnectedMsg:
		m.chainConnecting = false
		if msg.err != nil {
			m.chainClient = nil
			m.addLog("error", fmt.Sprintf("RPC connection failed: `%s`", msg.err.Error()))
			break
		}
		m.chainClient = msg.client
		m.addLog("success", fmt.Sprintf("RPC connected to `%s`", msg.client.URL))
		if m.session.Connected() {
			cmds = append(cmds, loadBalance(m.chainClient, m.session.Account()))
		}

	case balanceLoadedMsg:
		if !m.isSelf(msg.b.Address) {
			break
		}
		m.balance = msg.b
		if msg.b.ErrMessage != "" {
			m.addLog("warning", msg.b.ErrMessage)
		}
	}

	return tea.Batch(cmds...)
}

// handleKey routes key presses: global keys, then the credential prompt,
// then the active page
func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m.quit()

	case key.Matches(msg, m.keys.ToggleLog):
		return m.toggleLog()

	case key.Matches(msg, m.keys.ScrollLog):
		var cmd tea.Cmd
		if m.logEnabled && m.logReady {
			m.logViewport, cmd = m.logViewport.Update(msg)
		} else if m.activePage == config.PageChat {
			m.chatViewport, cmd = m.chatViewport.Update(msg)
		}
		return cmd
	}

	if m.credentialForm != nil {
		if key.Matches(msg, m.keys.Back) {
			return m.cancelCredential()
		}
		return m.updateCredentialForm(msg)
	}

	if !m.session.Connected() {
		switch {
		case key.Matches(msg, m.keys.Connect):
			return m.connect()
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
			return m.quit()
		}
		return nil
	}

	if key.Matches(msg, m.keys.Disconnect) {
		return m.disconnect()
	}

	switch m.activePage {
	case config.PageNetworkWarning:
		if key.Matches(msg, m.keys.Switch) && !m.switching {
			m.switching = true
			m.addLog("info", "Requesting network switch to "+m.cfg.Network.Name)
			return switchNetwork(m.session)
		}
		return nil

	case config.PageRegister:
		if m.registering || m.registerForm == nil {
			return nil
		}
		return m.updateRegisterForm(msg)

	case config.PageChat:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m.goBack()
		case key.Matches(msg, m.keys.Submit):
			return m.submitMessage()
		case key.Matches(msg, m.keys.Refresh):
			if m.refreshing {
				return nil
			}
			m.refreshing = true
			return loadConversation(m.api, m.session.Account(), m.partner)
		case key.Matches(msg, m.keys.ForgetKey):
			return m.forgetCredential()
		case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
			var cmd tea.Cmd
			m.chatViewport, cmd = m.chatViewport.Update(msg)
			return cmd
		}
		var cmd tea.Cmd
		m.composeInput, cmd = m.composeInput.Update(msg)
		return cmd

	default:
		if m.showShare {
			if key.Matches(msg, m.keys.Share) || key.Matches(msg, m.keys.Back) {
				m.showShare = false
			}
			if key.Matches(msg, m.keys.CopyAddr) {
				return copyToClipboard(m.session.Account())
			}
			return nil
		}
		switch {
		case key.Matches(msg, m.keys.Back):
			return m.quit()
		case key.Matches(msg, m.keys.Submit):
			return m.startChat()
		case key.Matches(msg, m.keys.CopyAddr):
			return copyToClipboard(m.session.Account())
		case key.Matches(msg, m.keys.Share):
			m.showShare = true
			m.shareQR = m.shareCard()
			return nil
		case key.Matches(msg, m.keys.ForgetKey):
			return m.forgetCredential()
		}
		var cmd tea.Cmd
		m.recipientInput, cmd = m.recipientInput.Update(msg)
		return cmd
	}
}

// -------------------- ACTIONS --------------------

// connect starts an interactive wallet connection
func (m *model) connect() tea.Cmd {
	if m.connecting {
		return nil
	}
	m.connecting = true
	m.addLog("info", "Connecting to wallet at "+m.cfg.WalletRPCURL)
	return connectWallet(m.session, false)
}

// handleConnected applies a wallet connect result
func (m *model) handleConnected(msg walletConnectedMsg) tea.Cmd {
	m.connecting = false
	if msg.err != nil {
		if msg.auto {
			m.addLog("warning", fmt.Sprintf("Auto-reconnect failed: %v", msg.err))
			return nil
		}
		m.addLog("debug", msg.err.Error())
		return m.showToast(m.userMessage(msg.err), true)
	}

	account := msg.session.Account
	m.addLog("success", fmt.Sprintf("Connected `%s` on chain %s", helpers.ShortenAddr(account), msg.session.ChainID))
	m.resetAccountState()

	cmds := []tea.Cmd{m.startWatch(), checkRegistration(m.api, account)}
	if m.chainClient != nil {
		cmds = append(cmds, loadBalance(m.chainClient, account))
	}
	return tea.Batch(cmds...)
}

// handleWalletEvent follows account and chain changes reported by the wallet
func (m *model) handleWalletEvent(ev wallet.Event) tea.Cmd {
	changed := m.session.Apply(ev)

	var cmds []tea.Cmd
	switch ev.Kind {
	case wallet.AccountsChanged:
		if !changed {
			break
		}
		if !m.session.Connected() {
			m.stopWatch()
			m.resetAccountState()
			cmds = append(cmds, m.showToast("Wallet disconnected", false))
			break
		}
		account := m.session.Account()
		m.resetAccountState()
		cmds = append(cmds,
			m.showToast("Switched to "+helpers.ShortenAddr(account), false),
			checkRegistration(m.api, account),
		)
		if m.chainClient != nil {
			cmds = append(cmds, loadBalance(m.chainClient, account))
		}

	case wallet.ChainChanged:
		if changed {
			cmds = append(cmds, m.showToast("Please switch to "+m.cfg.Network.Name, true))
		}
	}

	cmds = append(cmds, m.nextWalletEvent())
	return tea.Batch(cmds...)
}

// disconnect ends the session on user request
func (m *model) disconnect() tea.Cmd {
	m.stopWatch()
	m.session.Disconnect()
	m.resetAccountState()
	return m.showToast("Wallet disconnected", false)
}

// forgetCredential drops the cached private key
func (m *model) forgetCredential() tea.Cmd {
	m.session.ClearCredential()
	return m.showToast("Private key cleared for security", false)
}

// submitRegistration registers the session account under name, asking for
// the credential first when none is cached
func (m *model) submitRegistration(name string) tea.Cmd {
	account := m.session.Account()
	name = strings.TrimSpace(name)
	if name == "" {
		m.registerForm = register.CreateForm(account)
		return m.showToast("Please enter your name", true)
	}

	cred, err := m.session.Credential()
	if err != nil {
		return m.askCredential(&pendingAction{kind: pendingRegister, name: name}, "register this account")
	}

	m.registering = true
	m.addLog("info", fmt.Sprintf("Registering `%s` as `%s`", helpers.ShortenAddr(account), name))
	return registerUser(m.api, account, name, cred)
}

// startChat validates the recipient field and opens the conversation
func (m *model) startChat() tea.Cmd {
	if m.startingChat {
		return nil
	}
	input := strings.TrimSpace(m.recipientInput.Value())
	if input == "" {
		return m.showToast("Please enter recipient address", true)
	}
	if chain.IsENSName(input) {
		if m.chainClient == nil {
			return m.showToast("ENS names need a network RPC (set network.rpc_url)", true)
		}
		m.startingChat = true
		return resolveENS(m.chainClient, input)
	}
	return m.openChatWith(input, "")
}

// openChatWith checks addr locally, then asks the backend
func (m *model) openChatWith(addr, ensName string) tea.Cmd {
	partner, err := backend.CanonicalAddress(addr)
	if err != nil {
		m.startingChat = false
		return m.showToast(m.userMessage(err), true)
	}
	if m.isSelf(partner) {
		m.startingChat = false
		return m.showToast("You cannot chat with yourself", true)
	}
	m.startingChat = true
	return openChat(m.api, m.session.Account(), partner, ensName)
}

// submitMessage sends the compose field to the open conversation
func (m *model) submitMessage() tea.Cmd {
	if m.sending || m.partner == "" {
		return nil
	}
	content := strings.TrimSpace(m.composeInput.Value())
	if content == "" {
		return m.showToast("Please enter a message", true)
	}

	cred, err := m.session.Credential()
	if err != nil {
		return m.askCredential(&pendingAction{kind: pendingSend, to: m.partner, content: content}, "send this message")
	}
	return m.send(m.partner, content, cred)
}

func (m *model) send(to, content, cred string) tea.Cmd {
	m.sending = true
	m.addLog("info", fmt.Sprintf("Sending message to `%s`", helpers.ShortenAddr(to)))
	return sendMessage(m.api, m.session.Account(), to, content, cred)
}

// goBack leaves the chat for the home page
func (m *model) goBack() tea.Cmd {
	m.resetConversation()
	m.activePage = config.PageHome
	return nil
}

// askCredential parks p and opens the masked prompt
func (m *model) askCredential(p *pendingAction, purpose string) tea.Cmd {
	m.pending = p
	m.credentialForm = credential.CreateForm(purpose)
	return nil
}

// resolveCredential caches input and resumes the parked action
func (m *model) resolveCredential(input string) tea.Cmd {
	p := m.pending
	m.pending = nil
	m.credentialForm = nil
	credential.Reset()

	cred, err := m.session.ProvideCredential(input)
	if err != nil {
		m.restoreAfterPrompt(p)
		return m.showToast(m.userMessage(err), true)
	}
	m.addLog("info", "Private key cached for this session")

	if p == nil {
		return nil
	}
	switch p.kind {
	case pendingRegister:
		return m.submitRegistration(p.name)
	case pendingSend:
		if p.to != m.partner {
			return m.showToast("Message not sent", true)
		}
		return m.send(p.to, p.content, cred)
	}
	return nil
}

// cancelCredential closes the prompt and drops the parked action
func (m *model) cancelCredential() tea.Cmd {
	p := m.pending
	m.pending = nil
	m.credentialForm = nil
	credential.Reset()
	m.restoreAfterPrompt(p)
	return m.showToast(m.userMessage(wallet.ErrCredentialRequired), true)
}

// restoreAfterPrompt gives the registration page a fresh form, since the
// old one was submitted
func (m *model) restoreAfterPrompt(p *pendingAction) {
	if p != nil && p.kind == pendingRegister && m.session.Connected() {
		m.registerForm = register.CreateForm(m.session.Account())
	}
}

// updateCredentialForm forwards msg to the prompt and acts on completion
func (m *model) updateCredentialForm(msg tea.Msg) tea.Cmd {
	form, cmd := m.credentialForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.credentialForm = f
		switch f.State {
		case huh.StateCompleted:
			return m.resolveCredential(credential.TempCredential)
		case huh.StateAborted:
			return m.cancelCredential()
		}
	}
	return cmd
}

// updateRegisterForm forwards msg to the registration form
func (m *model) updateRegisterForm(msg tea.Msg) tea.Cmd {
	form, cmd := m.registerForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.registerForm = f
		switch f.State {
		case huh.StateCompleted:
			m.registerForm = nil
			return m.submitRegistration(register.TempName)
		case huh.StateAborted:
			m.registerForm = register.CreateForm(m.session.Account())
			return nil
		}
	}
	return cmd
}

// toggleLog shows or hides the log panel and remembers the choice
func (m *model) toggleLog() tea.Cmd {
	m.logEnabled = !m.logEnabled
	if err := m.state.SetLogger(m.logEnabled); err != nil {
		m.logger.Warn("could not save state", "err", err)
	}
	m.resize()
	if m.logEnabled {
		return tea.Batch(initLogViewport(), m.logSpinner.Tick)
	}
	// Clear logs and de-initialize when disabling
	m.logReady = false
	m.logBuffer.Reset()
	return nil
}

func (m *model) quit() tea.Cmd {
	m.stopWatch()
	return tea.Quit
}

// syncNetworkPage shows the network warning while the wallet is on the
// wrong chain and restores the previous page once it is back
func (m *model) syncNetworkPage() {
	wrong := m.session.Connected() && !m.session.IsCorrectNetwork()
	switch {
	case wrong && m.activePage != config.PageNetworkWarning:
		m.prevPage = m.activePage
		m.activePage = config.PageNetworkWarning
	case !wrong && m.activePage == config.PageNetworkWarning:
		m.activePage = m.prevPage
	}
}

// resetAccountState clears everything tied to the previous account
func (m *model) resetAccountState() {
	m.resetConversation()
	m.activePage = config.PageHome
	m.prevPage = config.PageHome
	m.registered = false
	m.myName = ""
	m.registerForm = nil
	m.registering = false
	m.credentialForm = nil
	credential.Reset()
	m.pending = nil
	m.startingChat = false
	m.switching = false
	m.showShare = false
	m.shareQR = ""
	m.balance = chain.AccountBalance{}
}

// resize lays out inputs and viewports for the terminal size
func (m *model) resize() {
	m.logViewport.Width = max(0, m.w-6)
	m.logViewport.Height = logview.Height(m.h)

	m.recipientInput.Width = min(60, max(10, m.w-20))
	m.composeInput.Width = max(10, m.w-14)

	// header panel, page chrome, chat title, compose line, nav and toast
	height := m.h - 18
	if m.logEnabled {
		height -= logview.Height(m.h) + 4
	}
	m.chatViewport.Width = max(10, m.w-8)
	m.chatViewport.Height = max(3, height)
	m.refreshChatViewport()
}

// newLogger builds the logger every package writes to
func newLogger(w io.Writer, debug bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "",
	})
	// Set log level and styling
	logger.SetLevel(log.InfoLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	logger.SetStyles(&log.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(cMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(cAccent2),
		Message:   lipgloss.NewStyle().Foreground(cText),
		Key:       lipgloss.NewStyle().Foreground(cAccent),
		Value:     lipgloss.NewStyle().Foreground(cText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[log.Level]lipgloss.Style{
			log.DebugLevel: lipgloss.NewStyle().Foreground(cMuted).SetString("DEBUG"),
			log.InfoLevel:  lipgloss.NewStyle().Foreground(cAccent2).SetString("INFO"),
			log.WarnLevel:  lipgloss.NewStyle().Foreground(cWarn).SetString("WARN"),
			log.ErrorLevel: lipgloss.NewStyle().Foreground(cError).SetString("ERROR"),
		},
	})
	return logger
}
