package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"chain-chat-tui/config"
)

// ParseChainID reads a chain id given as 0x-prefixed hex (what wallets
// return from eth_chainId) or as a decimal string.
func ParseChainID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty chain id")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		id, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("chain id %q: not hex", s)
		}
		return id, nil
	}
	id, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("chain id %q: not a number", s)
	}
	return id, nil
}

// NormalizeChainID returns the 0x-prefixed lower-case hex form of s
func NormalizeChainID(s string) (string, error) {
	id, err := ParseChainID(s)
	if err != nil {
		return "", err
	}
	return hexutil.EncodeBig(id), nil
}

// SameChain compares two chain ids numerically. Unparseable ids never match.
func SameChain(a, b string) bool {
	x, err := ParseChainID(a)
	if err != nil {
		return false
	}
	y, err := ParseChainID(b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}

// NativeCurrency is the EIP-3085 currency description
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddChainParams is the single parameter of wallet_addEthereumChain
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// SwitchChainParams is the single parameter of wallet_switchEthereumChain
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// AddChainParamsFor builds the wallet_addEthereumChain request for n
func AddChainParamsFor(n config.Network) (AddChainParams, error) {
	id, err := NormalizeChainID(n.ChainID)
	if err != nil {
		return AddChainParams{}, err
	}
	p := AddChainParams{
		ChainID:   id,
		ChainName: n.Name,
		NativeCurrency: NativeCurrency{
			Name:     n.CurrencyName,
			Symbol:   n.CurrencySymbol,
			Decimals: n.CurrencyDecimals,
		},
		RPCURLs: []string{n.RPCURL},
	}
	if n.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{n.ExplorerURL}
	}
	return p, nil
}
