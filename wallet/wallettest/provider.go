// Package wallettest provides an in-memory wallet.Provider
package wallettest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chain-chat-tui/wallet"
)

// Error is a JSON-RPC style error with an EIP-1193 code
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string  { return e.Message }
func (e *Error) ErrorCode() int { return e.Code }

var (
	ErrUserRejected = &Error{Code: 4001, Message: "User rejected the request."}
	ErrUnknownChain = &Error{Code: 4902, Message: "Unrecognized chain ID."}
)

// ErrOffline is returned by every call while Offline is set
var ErrOffline = errors.New("connection refused")

// Provider is a scripted wallet. Zero value is not usable; call New.
type Provider struct {
	mu       sync.Mutex
	accounts []string
	chainID  string
	known    map[string]bool
	calls    map[string]int
	events   chan wallet.Event

	Offline      bool
	RejectAccess bool
	RejectSwitch bool
	RejectAdd    bool
}

// New returns a wallet unlocked on account and sitting on chainID.
// The wallet knows chainID and mainnet.
func New(account, chainID string) *Provider {
	p := &Provider{
		chainID: chainID,
		known:   map[string]bool{"0x1": true},
		calls:   make(map[string]int),
		events:  make(chan wallet.Event, 16),
	}
	if id, err := wallet.NormalizeChainID(chainID); err == nil {
		p.known[id] = true
	}
	if account != "" {
		p.accounts = []string{account}
	}
	return p
}

// Forget makes the wallet not know chainID, so switching to it returns 4902
func (p *Provider) Forget(chainID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, _ := wallet.NormalizeChainID(chainID)
	delete(p.known, id)
}

// Calls returns how often method was invoked
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// SetAccounts changes the unlocked accounts and emits accountsChanged
func (p *Provider) SetAccounts(accounts ...string) {
	p.mu.Lock()
	p.accounts = accounts
	p.mu.Unlock()
	p.events <- wallet.Event{Kind: wallet.AccountsChanged, Accounts: accounts}
}

// SetChain moves the wallet to chainID and emits chainChanged
func (p *Provider) SetChain(chainID string) {
	p.mu.Lock()
	p.chainID = chainID
	p.mu.Unlock()
	p.events <- wallet.Event{Kind: wallet.ChainChanged, ChainID: chainID}
}

func (p *Provider) begin(method string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[method]++
	if p.Offline {
		return ErrOffline
	}
	return nil
}

func (p *Provider) RequestAccounts(ctx context.Context) ([]string, error) {
	if err := p.begin("eth_requestAccounts"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectAccess {
		return nil, ErrUserRejected
	}
	return append([]string(nil), p.accounts...), nil
}

func (p *Provider) Accounts(ctx context.Context) ([]string, error) {
	if err := p.begin("eth_accounts"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.accounts...), nil
}

func (p *Provider) ChainID(ctx context.Context) (string, error) {
	if err := p.begin("eth_chainId"); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

func (p *Provider) SwitchChain(ctx context.Context, chainID string) error {
	if err := p.begin("wallet_switchEthereumChain"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectSwitch {
		return ErrUserRejected
	}
	id, err := wallet.NormalizeChainID(chainID)
	if err != nil || !p.known[id] {
		return ErrUnknownChain
	}
	p.chainID = id
	return nil
}

func (p *Provider) AddChain(ctx context.Context, params wallet.AddChainParams) error {
	if err := p.begin("wallet_addEthereumChain"); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectAdd {
		return ErrUserRejected
	}
	p.known[strings.ToLower(params.ChainID)] = true
	return nil
}

// Watch relays events emitted by SetAccounts and SetChain
func (p *Provider) Watch(ctx context.Context, events chan<- wallet.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *Provider) Close() {}
