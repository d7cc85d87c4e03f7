package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client on the target network
type Client struct {
	*ethclient.Client
	URL string
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	if strings.TrimSpace(url) == "" {
		return ConnectResult{Error: fmt.Errorf("no RPC url configured")}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		Error: nil,
	}
}

// AccountBalance is the native balance of the session account
type AccountBalance struct {
	Address    string
	Wei        *big.Int
	LoadedAt   time.Time
	ErrMessage string
}

// LoadBalance fetches the native balance of addr
func LoadBalance(client *Client, addr common.Address) AccountBalance {
	return LoadBalanceWithTimeout(client, addr, 12*time.Second)
}

// LoadBalanceWithTimeout fetches the native balance with a custom timeout
func LoadBalanceWithTimeout(client *Client, addr common.Address, timeout time.Duration) AccountBalance {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	b := AccountBalance{
		Address:  addr.Hex(),
		Wei:      big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if client == nil || client.Client == nil {
		b.ErrMessage = "No RPC client (set network.rpc_url or ETH_RPC_URL)."
		return b
	}

	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		b.ErrMessage = "Failed to load balance."
		return b
	}
	b.Wei = wei
	return b
}

// FormatUnits renders an integer amount with the given decimals, trimmed to
// at most precision fractional digits.
func FormatUnits(amount *big.Int, decimals, precision int) string {
	if amount == nil {
		return "0"
	}
	f := new(big.Float).SetInt(amount)
	if decimals > 0 {
		f.Quo(f, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)))
	}
	s := f.Text('f', precision)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
