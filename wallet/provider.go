package wallet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// EventKind tells which wallet notification an Event carries
type EventKind int

const (
	AccountsChanged EventKind = iota
	ChainChanged
)

// Event is a wallet-side change the session has to follow
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  string
}

// Provider is the subset of EIP-1193 the session manager needs
type Provider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	SwitchChain(ctx context.Context, chainID string) error
	AddChain(ctx context.Context, params AddChainParams) error
	// Watch delivers account and chain changes on events until ctx is done
	// or the connection fails.
	Watch(ctx context.Context, events chan<- Event) error
	Close()
}

// RPCProvider reaches a wallet over JSON-RPC, such as Frame's local
// endpoint on ws://127.0.0.1:1248 or an HTTP equivalent.
type RPCProvider struct {
	client       *rpc.Client
	url          string
	pollInterval time.Duration
	logger       *log.Logger
}

// Dial connects to the wallet endpoint at url. Transport failures are
// reported as ErrWalletUnavailable.
func Dial(ctx context.Context, url string, pollInterval time.Duration, logger *log.Logger) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWalletUnavailable, url, err)
	}
	return NewRPCProvider(client, url, pollInterval, logger), nil
}

// NewRPCProvider wraps an existing client; used with rpc.DialInProc in tests
func NewRPCProvider(client *rpc.Client, url string, pollInterval time.Duration, logger *log.Logger) *RPCProvider {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &RPCProvider{
		client:       client,
		url:          url,
		pollInterval: pollInterval,
		logger:       logger.WithPrefix("wallet"),
	}
}

// URL returns the endpoint the provider was dialed with
func (p *RPCProvider) URL() string { return p.url }

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return "", err
	}
	return id, nil
}

func (p *RPCProvider) SwitchChain(ctx context.Context, chainID string) error {
	return p.client.CallContext(ctx, nil, "wallet_switchEthereumChain", SwitchChainParams{ChainID: chainID})
}

func (p *RPCProvider) AddChain(ctx context.Context, params AddChainParams) error {
	return p.client.CallContext(ctx, nil, "wallet_addEthereumChain", params)
}

// Watch subscribes to accountsChanged and chainChanged. Transports without
// notifications (plain HTTP) fall back to polling eth_accounts and eth_chainId.
func (p *RPCProvider) Watch(ctx context.Context, events chan<- Event) error {
	accountsCh := make(chan []string, 4)
	accountsSub, err := p.client.EthSubscribe(ctx, accountsCh, "accountsChanged")
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		p.logger.Debug("notifications unsupported, polling", "interval", p.pollInterval)
		return Poll(ctx, p, p.pollInterval, events)
	}
	if err != nil {
		p.logger.Warn("accountsChanged subscription failed, polling", "err", err)
		return Poll(ctx, p, p.pollInterval, events)
	}
	defer accountsSub.Unsubscribe()

	chainCh := make(chan string, 4)
	chainSub, err := p.client.EthSubscribe(ctx, chainCh, "chainChanged")
	if err != nil {
		p.logger.Warn("chainChanged subscription failed, polling", "err", err)
		accountsSub.Unsubscribe()
		return Poll(ctx, p, p.pollInterval, events)
	}
	defer chainSub.Unsubscribe()

	p.logger.Debug("subscribed to wallet events", "url", p.url)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-accountsSub.Err():
			return err
		case err := <-chainSub.Err():
			return err
		case accounts := <-accountsCh:
			if !send(ctx, events, Event{Kind: AccountsChanged, Accounts: accounts}) {
				return ctx.Err()
			}
		case id := <-chainCh:
			if !send(ctx, events, Event{Kind: ChainChanged, ChainID: id}) {
				return ctx.Err()
			}
		}
	}
}

func (p *RPCProvider) Close() {
	p.client.Close()
}

// Poll emulates wallet notifications by comparing eth_accounts and
// eth_chainId every interval. The first reading is the baseline and is
// not reported.
func Poll(ctx context.Context, p Provider, interval time.Duration, events chan<- Event) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastAccounts, err := p.Accounts(ctx)
	if err != nil {
		return err
	}
	lastChain, err := p.ChainID(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		accounts, err := p.Accounts(ctx)
		if err != nil {
			return err
		}
		if !sameAccounts(accounts, lastAccounts) {
			lastAccounts = accounts
			if !send(ctx, events, Event{Kind: AccountsChanged, Accounts: accounts}) {
				return ctx.Err()
			}
		}

		chain, err := p.ChainID(ctx)
		if err != nil {
			return err
		}
		if !SameChain(chain, lastChain) {
			lastChain = chain
			if !send(ctx, events, Event{Kind: ChainChanged, ChainID: chain}) {
				return ctx.Err()
			}
		}
	}
}

func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func sameAccounts(a, b []string) bool {
	return slices.EqualFunc(a, b, strings.EqualFold)
}

// LazyProvider dials the wallet on first use, so the client can start
// before the wallet does. A failed dial is retried on the next call.
type LazyProvider struct {
	url          string
	pollInterval time.Duration
	logger       *log.Logger

	mu sync.Mutex
	p  *RPCProvider
}

// NewLazyProvider returns a provider for url that connects on demand
func NewLazyProvider(url string, pollInterval time.Duration, logger *log.Logger) *LazyProvider {
	return &LazyProvider{url: url, pollInterval: pollInterval, logger: logger}
}

func (l *LazyProvider) get(ctx context.Context) (*RPCProvider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.p != nil {
		return l.p, nil
	}
	p, err := Dial(ctx, l.url, l.pollInterval, l.logger)
	if err != nil {
		return nil, err
	}
	l.p = p
	return p, nil
}

func (l *LazyProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return p.RequestAccounts(ctx)
}

func (l *LazyProvider) Accounts(ctx context.Context) ([]string, error) {
	p, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Accounts(ctx)
}

func (l *LazyProvider) ChainID(ctx context.Context) (string, error) {
	p, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return p.ChainID(ctx)
}

func (l *LazyProvider) SwitchChain(ctx context.Context, chainID string) error {
	p, err := l.get(ctx)
	if err != nil {
		return err
	}
	return p.SwitchChain(ctx, chainID)
}

func (l *LazyProvider) AddChain(ctx context.Context, params AddChainParams) error {
	p, err := l.get(ctx)
	if err != nil {
		return err
	}
	return p.AddChain(ctx, params)
}

func (l *LazyProvider) Watch(ctx context.Context, events chan<- Event) error {
	p, err := l.get(ctx)
	if err != nil {
		return err
	}
	return p.Watch(ctx, events)
}

func (l *LazyProvider) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.p != nil {
		l.p.Close()
		l.p = nil
	}
}
