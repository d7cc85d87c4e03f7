package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chain-chat-tui/backend"
	"chain-chat-tui/backend/backendtest"
	"chain-chat-tui/config"
	"chain-chat-tui/views/credential"
	"chain-chat-tui/wallet"
	"chain-chat-tui/wallet/wallettest"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	alice   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	bob     = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	carol   = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
	testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func newTestModel(t *testing.T, account string) (*model, *backendtest.Server, *wallettest.Provider) {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.APIURL()
	cfg.RefreshDelay = time.Millisecond
	state := config.StateFile{Path: filepath.Join(t.TempDir(), "state.json")}

	p := wallettest.New(account, cfg.Network.ChainID)
	session := wallet.NewManager(p, cfg.Network, state, nil)
	api := backend.New(cfg.APIURL, backend.WithTimeout(5*time.Second))

	m := newModel(cfg, session, api, state, nil, nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	t.Cleanup(m.stopWatch)
	return &m, srv, p
}

// deliver runs cmd and feeds its message back into the model
func deliver(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command, got nil")
	}
	m.Update(cmd())
}

// connectRegistered connects account and finishes the registration check
func connectRegistered(t *testing.T, m *model) {
	t.Helper()
	deliver(t, m, m.connect())
	if !m.session.Connected() {
		t.Fatalf("Expected a connected session, got toast %q", m.toast)
	}
	deliver(t, m, checkRegistration(m.api, m.session.Account()))
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConnectRegisterChat(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(bob, "Bob")
	srv.Seed(bob, alice, "hi alice", 1700000100)
	srv.Seed(alice, bob, "hi bob", 1700000050)

	connectRegistered(t, m)
	if m.activePage != config.PageRegister {
		t.Fatalf("Expected register page, got %v", m.activePage)
	}
	if m.registerForm == nil {
		t.Fatal("Expected a registration form")
	}

	// no credential yet: the registration is parked behind the prompt
	if cmd := m.submitRegistration("Alice"); cmd != nil {
		t.Error("Expected registration to wait for the credential")
	}
	if m.credentialForm == nil || m.pending == nil || m.pending.kind != pendingRegister {
		t.Fatal("Expected the credential prompt with a parked registration")
	}

	deliver(t, m, m.resolveCredential(testKey))
	if m.activePage != config.PageHome {
		t.Errorf("Expected home page after registration, got %v", m.activePage)
	}
	if !m.registered || m.myName != "Alice" {
		t.Errorf("Expected registered as Alice, got registered=%v name=%q", m.registered, m.myName)
	}
	if !srv.Registered(alice) {
		t.Error("Expected the backend to know alice")
	}
	if m.toast != "Registration successful!" {
		t.Errorf("Expected registration toast, got %q", m.toast)
	}

	m.recipientInput.SetValue(strings.ToLower(bob))
	deliver(t, m, m.startChat())
	if m.activePage != config.PageChat {
		t.Fatalf("Expected chat page, got %v (toast %q)", m.activePage, m.toast)
	}
	if m.partner != bob {
		t.Errorf("Expected partner %s, got %s", bob, m.partner)
	}
	if len(m.messages) != 2 || m.messages[0].Content != "hi bob" || m.messages[1].Content != "hi alice" {
		t.Fatalf("Expected merged history oldest first, got %+v", m.messages)
	}

	m.composeInput.SetValue("how are you?")
	cmd := m.submitMessage()
	if m.credentialForm != nil {
		t.Fatal("Expected the cached credential to be reused")
	}
	deliver(t, m, cmd)
	if m.toast != "Message sent successfully!" {
		t.Errorf("Expected send toast, got %q", m.toast)
	}
	if m.composeInput.Value() != "" {
		t.Errorf("Expected compose input cleared, got %q", m.composeInput.Value())
	}

	deliver(t, m, loadConversation(m.api, alice, bob))
	if len(m.messages) != 3 || m.messages[2].Content != "how are you?" {
		t.Errorf("Expected the sent message at the end, got %+v", m.messages)
	}

	m.Update(keyPress("esc"))
	if m.activePage != config.PageHome || m.partner != "" || m.messages != nil {
		t.Errorf("Expected back on home with the chat cleared, got page %v partner %q", m.activePage, m.partner)
	}
}

func TestStartChatValidation(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(alice, "Alice")
	connectRegistered(t, m)

	tests := []struct {
		name  string
		input string
		toast string
	}{
		{"empty", "   ", "Please enter recipient address"},
		{"short address", "0x1234", "Invalid Ethereum address format"},
		{"bad checksum", "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "Invalid Ethereum address format"},
		{"self", strings.ToLower(alice), "You cannot chat with yourself"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := srv.Requests("")
			m.recipientInput.SetValue(tt.input)
			m.startChat()
			if m.toast != tt.toast {
				t.Errorf("Expected toast %q, got %q", tt.toast, m.toast)
			}
			if m.startingChat {
				t.Error("Expected no chat to be starting")
			}
			if n := srv.Requests(""); n != before {
				t.Errorf("Expected no backend request, got %d", n-before)
			}
		})
	}

	t.Run("unregistered recipient", func(t *testing.T) {
		m.recipientInput.SetValue(carol)
		deliver(t, m, m.startChat())
		if m.activePage != config.PageHome {
			t.Errorf("Expected to stay on home, got %v", m.activePage)
		}
		if !strings.Contains(m.toast, "not registered") {
			t.Errorf("Expected not-registered toast, got %q", m.toast)
		}
		if n := srv.Requests("/messages/chat"); n != 0 {
			t.Errorf("Expected no conversation fetch, got %d", n)
		}
	})
}

func TestCredentialPrompt(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(alice, "Alice")
	srv.AddUser(bob, "Bob")
	connectRegistered(t, m)

	m.recipientInput.SetValue(bob)
	deliver(t, m, m.startChat())

	t.Run("cancel", func(t *testing.T) {
		m.composeInput.SetValue("hello")
		m.submitMessage()
		if m.credentialForm == nil {
			t.Fatal("Expected the credential prompt")
		}
		m.Update(keyPress("esc"))
		if m.credentialForm != nil || m.pending != nil {
			t.Error("Expected the prompt and parked send to be dropped")
		}
		if m.toast != "Private key is required for blockchain transactions" {
			t.Errorf("unexpected toast %q", m.toast)
		}
		if m.activePage != config.PageChat {
			t.Errorf("Expected to stay in chat, got %v", m.activePage)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		m.submitMessage()
		if cmd := m.resolveCredential("not-a-key"); cmd == nil {
			t.Fatal("Expected a toast command")
		}
		if m.toast != "Invalid private key format" {
			t.Errorf("unexpected toast %q", m.toast)
		}
		if m.session.HasCredential() {
			t.Error("malformed credential must not be cached")
		}
	})

	t.Run("resume parked send", func(t *testing.T) {
		m.submitMessage()
		credential.TempCredential = "0x" + testKey
		deliver(t, m, m.resolveCredential(credential.TempCredential))
		if m.toast != "Message sent successfully!" {
			t.Errorf("Expected send toast, got %q", m.toast)
		}
		if credential.TempCredential != "" {
			t.Errorf("Expected the prompt input to be wiped, got %q", credential.TempCredential)
		}
	})

	t.Run("key for another account", func(t *testing.T) {
		if out := m.globalHeader(); !strings.Contains(out, "key for 0x2c75") {
			t.Errorf("Expected a key mismatch marker, got:\n%s", out)
		}
	})

	if n := srv.Requests("/messages/send"); n != 1 {
		t.Errorf("Expected exactly one send, got %d", n)
	}

	t.Run("forget", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
		if m.session.HasCredential() {
			t.Error("Expected the credential to be cleared")
		}
		if m.toast != "Private key cleared for security" {
			t.Errorf("unexpected toast %q", m.toast)
		}
	})

	t.Run("partner changed while prompting", func(t *testing.T) {
		m.composeInput.SetValue("late")
		m.submitMessage()
		if m.pending == nil {
			t.Fatal("Expected a parked send")
		}
		m.partner = carol
		if cmd := m.resolveCredential("0x" + testKey); cmd == nil {
			t.Fatal("Expected a toast command")
		}
		if m.toast != "Message not sent" {
			t.Errorf("Expected %q, got %q", "Message not sent", m.toast)
		}
		if n := srv.Requests("/messages/send"); n != 1 {
			t.Errorf("Expected no further send, got %d", n)
		}
	})
}

func TestNetworkWarning(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(alice, "Alice")
	connectRegistered(t, m)
	if m.activePage != config.PageHome {
		t.Fatalf("Expected home page, got %v", m.activePage)
	}

	m.Update(walletEventMsg{ev: wallet.Event{Kind: wallet.ChainChanged, ChainID: "0x1"}})
	if m.activePage != config.PageNetworkWarning {
		t.Fatalf("Expected network warning, got %v", m.activePage)
	}
	if m.toast != "Please switch to Sepolia Test Network" {
		t.Errorf("unexpected toast %q", m.toast)
	}

	// typing is ignored while the warning is up
	m.Update(keyPress("x"))
	if m.recipientInput.Value() != "" {
		t.Errorf("Expected recipient input untouched, got %q", m.recipientInput.Value())
	}

	m.Update(keyPress("s"))
	if !m.switching {
		t.Fatal("Expected a switch in progress")
	}
	deliver(t, m, switchNetwork(m.session))
	if m.activePage != config.PageHome {
		t.Errorf("Expected home restored, got %v", m.activePage)
	}
	if !m.session.IsCorrectNetwork() {
		t.Error("Expected the session back on the target network")
	}
}

func TestWalletEvents(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(alice, "Alice")
	connectRegistered(t, m)
	if _, err := m.session.ProvideCredential(testKey); err != nil {
		t.Fatal(err)
	}

	t.Run("account switch", func(t *testing.T) {
		m.Update(walletEventMsg{ev: wallet.Event{Kind: wallet.AccountsChanged, Accounts: []string{strings.ToLower(bob)}}})
		if m.session.Account() != bob {
			t.Errorf("Expected account %s, got %s", bob, m.session.Account())
		}
		if m.session.HasCredential() {
			t.Error("Expected the credential dropped with the old account")
		}
		if m.toast != "Switched to 0xfB69…d359" {
			t.Errorf("unexpected toast %q", m.toast)
		}
		deliver(t, m, checkRegistration(m.api, bob))
		if m.activePage != config.PageRegister {
			t.Errorf("Expected register page for bob, got %v", m.activePage)
		}
	})

	t.Run("locked", func(t *testing.T) {
		m.Update(walletEventMsg{ev: wallet.Event{Kind: wallet.AccountsChanged}})
		if m.session.Connected() {
			t.Error("Expected the session to end")
		}
		if m.toast != "Wallet disconnected" {
			t.Errorf("unexpected toast %q", m.toast)
		}
		if m.watchCancel != nil {
			t.Error("Expected the listener stopped")
		}
	})
}

func TestConnectFailures(t *testing.T) {
	t.Run("offline wallet", func(t *testing.T) {
		m, _, p := newTestModel(t, alice)
		p.Offline = true
		deliver(t, m, m.connect())
		if m.session.Connected() || m.connecting {
			t.Error("Expected no connection")
		}
		if !strings.HasPrefix(m.toast, "Wallet not available") {
			t.Errorf("unexpected toast %q", m.toast)
		}
	})

	t.Run("switch rejected", func(t *testing.T) {
		m, _, p := newTestModel(t, alice)
		p.SetChain("0x1")
		p.RejectSwitch = true
		deliver(t, m, m.connect())
		if m.session.Connected() {
			t.Error("Expected no connection")
		}
		if m.toast != "Failed to switch to Sepolia Test Network" {
			t.Errorf("unexpected toast %q", m.toast)
		}
	})

	t.Run("auto reconnect stays quiet", func(t *testing.T) {
		m, _, p := newTestModel(t, alice)
		p.Offline = true
		m.Update(walletConnectedMsg{err: wallet.ErrWalletUnavailable, auto: true})
		if m.toast != "" {
			t.Errorf("Expected no toast, got %q", m.toast)
		}
	})
}

func TestDisconnect(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(alice, "Alice")
	connectRegistered(t, m)
	if _, err := m.session.ProvideCredential(testKey); err != nil {
		t.Fatal(err)
	}
	if !config.LoadState(m.state.Path).WasConnected {
		t.Error("Expected the reconnect flag to be saved")
	}

	m.askCredential(&pendingAction{kind: pendingRegister, name: "Alice"}, "register")
	credential.TempCredential = testKey

	// the open prompt takes every key but esc, so disconnect directly
	m.disconnect()
	if credential.TempCredential != "" {
		t.Errorf("Expected the prompt input to be wiped, got %q", credential.TempCredential)
	}
	s := m.session.Session()
	if s.Connected || s.HasCredential || s.Account != "" {
		t.Errorf("Expected an empty session, got %+v", s)
	}
	if config.LoadState(m.state.Path).WasConnected {
		t.Error("Expected the reconnect flag to be cleared")
	}
	if m.toast != "Wallet disconnected" {
		t.Errorf("unexpected toast %q", m.toast)
	}
}

func TestToastExpiry(t *testing.T) {
	m, _, _ := newTestModel(t, alice)
	m.showToast("first", false)
	stale := m.toastID
	m.showToast("second", true)

	m.Update(clearToastMsg{id: stale})
	if m.toast != "second" {
		t.Errorf("Expected newer toast to survive, got %q", m.toast)
	}
	m.Update(clearToastMsg{id: m.toastID})
	if m.toast != "" {
		t.Errorf("Expected toast cleared, got %q", m.toast)
	}
}

func TestView(t *testing.T) {
	m, srv, _ := newTestModel(t, alice)
	srv.AddUser(alice, "Alice")

	if out := m.View(); !strings.Contains(out, "connect your wallet") {
		t.Errorf("Expected the connect screen, got:\n%s", out)
	}

	connectRegistered(t, m)
	if out := m.View(); !strings.Contains(out, "Start a chat") {
		t.Errorf("Expected the home screen, got:\n%s", out)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if out := m.View(); !strings.Contains(out, "ethereum:"+alice+"@11155111") {
		t.Errorf("Expected the share URI, got:\n%s", out)
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	if buf.String() != "no messages\n" {
		t.Errorf("Expected empty marker, got %q", buf.String())
	}

	buf.Reset()
	printHistory(&buf, []backend.Message{
		{From: alice, To: bob, Content: "hi", Timestamp: backend.NewTimestamp(time.Unix(1700000000, 0))},
		{From: bob, To: alice, Content: "gone", IsDeleted: true, Timestamp: backend.NewTimestamp(time.Unix(1700000060, 0))},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "0x5aAe…eAed → 0xfB69…d359  hi") {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "(deleted)") {
		t.Errorf("Expected deleted placeholder, got %q", lines[1])
	}
}
