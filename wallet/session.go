package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"chain-chat-tui/backend"
	"chain-chat-tui/config"
)

// FlagStore persists the auto-reconnect flag across launches
type FlagStore interface {
	WasConnected() bool
	SetWasConnected(bool) error
}

// Session is a read-only snapshot of the wallet connection
type Session struct {
	Account       string
	ChainID       string
	Connected     bool
	HasCredential bool
}

// Manager owns the wallet connection and the session-scoped credential.
// It is safe for concurrent use; Bubble Tea commands read it from their
// own goroutines.
type Manager struct {
	provider Provider
	target   config.Network
	flags    FlagStore
	logger   *log.Logger

	mu         sync.RWMutex
	account    string
	chainID    string
	connected  bool
	credential string
}

// NewManager builds a manager for the target network. flags may be nil.
func NewManager(provider Provider, target config.Network, flags FlagStore, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		provider: provider,
		target:   target,
		flags:    flags,
		logger:   logger.WithPrefix("session"),
	}
}

// Target returns the network the session must be on
func (m *Manager) Target() config.Network { return m.target }

// Session returns a snapshot of the current state
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Session{
		Account:       m.account,
		ChainID:       m.chainID,
		Connected:     m.connected,
		HasCredential: m.credential != "",
	}
}

// Account returns the connected account, or "" when disconnected
func (m *Manager) Account() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.account
}

// Connected reports whether a wallet account is attached
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// ShouldAutoConnect reports whether the previous launch ended connected
func (m *Manager) ShouldAutoConnect() bool {
	return m.flags != nil && m.flags.WasConnected()
}

// Connect asks the wallet for an account and moves it to the target network
// when needed. Calling it while connected refreshes account and chain.
// On failure the session is left as it was.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if m.provider == nil {
		return m.Session(), fmt.Errorf("%w: no wallet provider", ErrWalletUnavailable)
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrWalletUnavailable):
			return m.Session(), err
		case IsUserRejected(err):
			return m.Session(), fmt.Errorf("%w: request rejected", ErrWalletUnavailable)
		}
		return m.Session(), fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
	}
	if len(accounts) == 0 {
		return m.Session(), fmt.Errorf("%w: no accounts, is the wallet unlocked?", ErrWalletUnavailable)
	}
	account, err := backend.CanonicalAddress(accounts[0])
	if err != nil {
		return m.Session(), fmt.Errorf("%w: wallet returned %v", ErrWalletUnavailable, err)
	}

	chainID, err := m.provider.ChainID(ctx)
	if err != nil {
		return m.Session(), fmt.Errorf("%w: eth_chainId: %v", ErrWalletUnavailable, err)
	}
	if !SameChain(chainID, m.target.ChainID) {
		m.logger.Info("switching network", "from", chainID, "to", m.target.ChainID)
		if err := m.SwitchNetwork(ctx); err != nil {
			return m.Session(), err
		}
		if chainID, err = m.provider.ChainID(ctx); err != nil {
			return m.Session(), fmt.Errorf("%w: eth_chainId: %v", ErrWalletUnavailable, err)
		}
	}

	m.mu.Lock()
	if m.account != "" && !backend.SameAddress(m.account, account) {
		m.credential = ""
	}
	m.account = account
	m.chainID = normalizeOrKeep(chainID)
	m.connected = true
	m.mu.Unlock()

	if m.flags != nil {
		if err := m.flags.SetWasConnected(true); err != nil {
			m.logger.Warn("could not persist connection flag", "err", err)
		}
	}
	m.logger.Info("connected", "account", account, "chain", chainID)
	return m.Session(), nil
}

// Disconnect forgets the session, including the credential, and clears
// the auto-reconnect flag.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.account = ""
	m.chainID = ""
	m.connected = false
	m.credential = ""
	m.mu.Unlock()

	if m.flags != nil {
		if err := m.flags.SetWasConnected(false); err != nil {
			m.logger.Warn("could not clear connection flag", "err", err)
		}
	}
	m.logger.Info("disconnected")
}

// SwitchNetwork asks the wallet to move to the target chain. A wallet that
// does not know the chain (4902) is asked to add it and the switch is retried.
func (m *Manager) SwitchNetwork(ctx context.Context) error {
	if m.provider == nil {
		return fmt.Errorf("%w: no wallet provider", ErrNetworkSwitchFailed)
	}
	params, err := AddChainParamsFor(m.target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}

	err = m.provider.SwitchChain(ctx, params.ChainID)
	if err == nil {
		m.setChain(params.ChainID)
		return nil
	}
	if errorCode(err) != codeUnrecognizedChain {
		m.logger.Warn("switch rejected", "chain", params.ChainID, "err", err)
		return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}

	m.logger.Info("adding network to wallet", "chain", params.ChainID, "name", params.ChainName)
	if err := m.provider.AddChain(ctx, params); err != nil {
		m.logger.Warn("add network rejected", "chain", params.ChainID, "err", err)
		return fmt.Errorf("%w: add chain: %v", ErrNetworkSwitchFailed, err)
	}
	if err := m.provider.SwitchChain(ctx, params.ChainID); err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}
	m.setChain(params.ChainID)
	return nil
}

// IsCorrectNetwork reports whether the current chain is the target chain
func (m *Manager) IsCorrectNetwork() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return SameChain(m.chainID, m.target.ChainID)
}

// HandleAccountsChanged follows a wallet account change. An empty list
// disconnects. A different account drops the cached credential, which
// belongs to the previous one. It returns true when the active account changed.
func (m *Manager) HandleAccountsChanged(accounts []string) bool {
	if len(accounts) == 0 {
		if m.Connected() {
			m.Disconnect()
			return true
		}
		return false
	}

	account, err := backend.CanonicalAddress(accounts[0])
	if err != nil {
		m.logger.Warn("ignoring malformed account from wallet", "account", accounts[0])
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected || backend.SameAddress(m.account, account) {
		return false
	}
	m.logger.Info("account changed", "from", m.account, "to", account)
	m.account = account
	m.credential = ""
	return true
}

// HandleChainChanged records the new chain id. It returns true when the
// session just left the target network.
func (m *Manager) HandleChainChanged(chainID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return false
	}
	wasOnTarget := SameChain(m.chainID, m.target.ChainID)
	m.chainID = normalizeOrKeep(chainID)
	left := wasOnTarget && !SameChain(m.chainID, m.target.ChainID)
	if left {
		m.logger.Warn("left target network", "chain", m.chainID, "target", m.target.ChainID)
	}
	return left
}

// Apply routes a provider Event to the matching handler
func (m *Manager) Apply(ev Event) bool {
	switch ev.Kind {
	case AccountsChanged:
		return m.HandleAccountsChanged(ev.Accounts)
	case ChainChanged:
		return m.HandleChainChanged(ev.ChainID)
	}
	return false
}

// Watch forwards wallet events until ctx is done
func (m *Manager) Watch(ctx context.Context, events chan<- Event) error {
	if m.provider == nil {
		return ErrWalletUnavailable
	}
	return m.provider.Watch(ctx, events)
}

// Close releases the provider connection
func (m *Manager) Close() {
	if m.provider != nil {
		m.provider.Close()
	}
}

// setChain only touches a live session; Connect records the chain itself
func (m *Manager) setChain(chainID string) {
	m.mu.Lock()
	if m.connected {
		m.chainID = normalizeOrKeep(chainID)
	}
	m.mu.Unlock()
}

func normalizeOrKeep(chainID string) string {
	if id, err := NormalizeChainID(chainID); err == nil {
		return id
	}
	return chainID
}
