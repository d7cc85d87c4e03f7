package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chain-chat-tui/backend"
	"chain-chat-tui/chain"
	"chain-chat-tui/views/chat"
	"chain-chat-tui/wallet"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// walletTimeout bounds requests that wait for the user to approve in the wallet
	walletTimeout = 2 * time.Minute
	toastOK       = 2 * time.Second
	toastErr      = 3 * time.Second
)

// errRecipientUnregistered is reported when a send targets an unknown address
var errRecipientUnregistered = errors.New("recipient not registered")

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// connectWallet asks the wallet for an account on the target network
func connectWallet(session *wallet.Manager, auto bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), walletTimeout)
		defer cancel()
		s, err := session.Connect(ctx)
		return walletConnectedMsg{session: s, err: err, auto: auto}
	}
}

// switchNetwork asks the wallet to move to the target network
func switchNetwork(session *wallet.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), walletTimeout)
		defer cancel()
		return networkSwitchedMsg{err: session.SwitchNetwork(ctx)}
	}
}

// watchWallet runs the wallet event listener until ctx is cancelled
func watchWallet(ctx context.Context, gen int, session *wallet.Manager, events chan<- wallet.Event) tea.Cmd {
	return func() tea.Msg {
		return walletWatchEndedMsg{gen: gen, err: session.Watch(ctx, events)}
	}
}

// waitForWalletEvent delivers the next wallet event. It is re-armed after
// every event.
func waitForWalletEvent(ctx context.Context, events <-chan wallet.Event) tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-events:
			return walletEventMsg{ev: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

// checkRegistration asks the backend whether account is registered
func checkRegistration(api *backend.Client, account string) tea.Cmd {
	return func() tea.Msg {
		return registrationCheckedMsg{
			account:    account,
			registered: api.CheckRegistered(context.Background(), account),
		}
	}
}

// registerUser registers account under name
func registerUser(api *backend.Client, account, name, credential string) tea.Cmd {
	return func() tea.Msg {
		err := api.Register(context.Background(), account, name, credential)
		return registeredMsg{account: account, name: name, err: err}
	}
}

// openChat confirms the partner is registered and loads the conversation
func openChat(api *backend.Client, account, partner, ensName string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if !api.CheckRegistered(ctx, partner) {
			return chatOpenedMsg{partner: partner, ensName: ensName}
		}
		msgs, err := api.FetchConversation(ctx, account, partner)
		return chatOpenedMsg{partner: partner, ensName: ensName, registered: true, messages: msgs, err: err}
	}
}

// sendMessage re-checks the recipient and submits the message
func sendMessage(api *backend.Client, from, to, content, credential string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if !api.CheckRegistered(ctx, to) {
			return messageSentMsg{partner: to, err: errRecipientUnregistered}
		}
		return messageSentMsg{partner: to, err: api.Send(ctx, from, to, content, credential)}
	}
}

// loadConversation re-fetches the conversation with partner
func loadConversation(api *backend.Client, account, partner string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := api.FetchConversation(context.Background(), account, partner)
		return conversationLoadedMsg{partner: partner, messages: msgs, err: err}
	}
}

// refreshAfter schedules a conversation reload, giving the backend time to
// index a message it just accepted
func refreshAfter(delay time.Duration, partner string) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return refreshConversationMsg{partner: partner}
	})
}

// loadProfile fetches the public profile of address
func loadProfile(api *backend.Client, address string) tea.Cmd {
	return func() tea.Msg {
		u, err := api.User(context.Background(), address)
		return profileLoadedMsg{address: address, user: u, err: err}
	}
}

// checkHealth fetches the backend health report
func checkHealth(api *backend.Client) tea.Cmd {
	return func() tea.Msg {
		h, err := api.Health(context.Background())
		return healthMsg{health: h, err: err}
	}
}

// connectChain establishes an RPC connection to the target network
func connectChain(url string) tea.Cmd {
	return func() tea.Msg {
		result := chain.Connect(url)
		return chainConnectedMsg{client: result.Client, err: result.Error}
	}
}

// loadBalance fetches the native balance of address
func loadBalance(client *chain.Client, address string) tea.Cmd {
	return func() tea.Msg {
		return balanceLoadedMsg{b: chain.LoadBalance(client, common.HexToAddress(address))}
	}
}

// lookupENS performs reverse ENS lookup (address -> name)
func lookupENS(client *chain.Client, address string) tea.Cmd {
	return func() tea.Msg {
		result := chain.LookupENS(client, address)
		return ensLookupResultMsg{address: address, name: result.Name, err: result.Error}
	}
}

// resolveENS performs forward ENS resolution (name -> address)
func resolveENS(client *chain.Client, name string) tea.Cmd {
	return func() tea.Msg {
		result := chain.ResolveENS(client, name)
		return ensResolvedMsg{name: name, address: result.Name, err: result.Error}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardCopiedMsg{err: clipboard.WriteAll(text)}
	}
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// showToast displays text and schedules its removal. Errors stay longer.
func (m *model) showToast(text string, isErr bool) tea.Cmd {
	m.toastID++
	m.toast = text
	m.toastErr = isErr
	d := toastOK
	if isErr {
		d = toastErr
		m.addLog("error", text)
	} else {
		m.addLog("success", text)
	}
	id := m.toastID
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearToastMsg{id: id}
	})
}

// userMessage maps an error to the text shown in the toast
func (m *model) userMessage(err error) string {
	network := m.cfg.Network.Name
	switch {
	case errors.Is(err, wallet.ErrWalletUnavailable):
		return "Wallet not available. Start your wallet (e.g. Frame) and unlock it, then try again."
	case errors.Is(err, wallet.ErrNetworkSwitchFailed):
		return fmt.Sprintf("Failed to switch to %s", network)
	case errors.Is(err, wallet.ErrInvalidCredentialFormat):
		return "Invalid private key format"
	case errors.Is(err, wallet.ErrCredentialRequired):
		return "Private key is required for blockchain transactions"
	case errors.Is(err, backend.ErrInvalidAddressFormat):
		return "Invalid Ethereum address format"
	case errors.Is(err, errRecipientUnregistered):
		return "The recipient is not registered on the platform"
	case errors.Is(err, backend.ErrRegistrationRejected):
		return backend.Reason(err, "Registration failed")
	case errors.Is(err, backend.ErrSendRejected):
		return backend.Reason(err, "Failed to send message")
	case errors.Is(err, backend.ErrFetchFailed):
		return "Failed to load messages"
	}
	return err.Error()
}

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if m.logger == nil {
		return
	}

	// Use the logger to write messages
	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	// Update viewport content
	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logEnabled || !m.logReady || m.logBuffer == nil {
		return
	}

	// Get content from log buffer
	content := m.logBuffer.String()
	m.logViewport.SetContent(content)
	// Scroll to bottom to show latest entries
	m.logViewport.GotoBottom()
}

// startWatch starts the wallet event listener unless it already runs
func (m *model) startWatch() tea.Cmd {
	if m.watchCancel != nil {
		return nil
	}
	m.watchGen++
	m.watchCtx, m.watchCancel = context.WithCancel(context.Background())
	m.events = make(chan wallet.Event, 8)
	return tea.Batch(
		watchWallet(m.watchCtx, m.watchGen, m.session, m.events),
		waitForWalletEvent(m.watchCtx, m.events),
	)
}

// stopWatch stops the wallet event listener and its reader
func (m *model) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
}

// nextWalletEvent re-arms the event reader while the listener runs
func (m *model) nextWalletEvent() tea.Cmd {
	if m.watchCancel == nil {
		return nil
	}
	return waitForWalletEvent(m.watchCtx, m.events)
}

// refreshChatViewport re-renders the message list into the chat viewport
func (m *model) refreshChatViewport() {
	m.chatViewport.SetContent(chat.RenderMessages(m.messages, m.session.Account(), m.chatViewport.Width))
	m.chatViewport.GotoBottom()
}

// resetConversation leaves the chat and clears everything tied to the partner
func (m *model) resetConversation() {
	m.partner = ""
	m.partnerName = ""
	m.partnerENS = ""
	m.messages = nil
	m.sending = false
	m.refreshing = false
	m.composeInput.Reset()
	m.composeInput.Blur()
	m.recipientInput.Focus()
	m.chatViewport.SetContent("")
}

// shareCard returns the QR code for the session account
func (m *model) shareCard() string {
	uri := chain.ShareURI(m.session.Account(), m.cfg.Network.ChainID)
	return chain.GenerateQRCode(uri)
}

// isSelf reports whether addr is the connected account
func (m *model) isSelf(addr string) bool {
	return backend.SameAddress(addr, m.session.Account())
}
