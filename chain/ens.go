package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ens "github.com/wealdtech/go-ens/v3"
)

// ENSResult carries a lookup outcome; Name holds the resolved address for
// forward lookups and the primary name for reverse ones.
type ENSResult struct {
	Name      string
	Error     error
	DebugInfo string
}

// IsENSName reports whether s looks like an ENS name rather than an address
func IsENSName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") && !strings.HasPrefix(s, "0x")
}

// ResolveENS resolves name to a checksummed address
func ResolveENS(client *Client, name string) ENSResult {
	if client == nil || client.Client == nil {
		return ENSResult{Error: fmt.Errorf("no RPC client")}
	}
	name = strings.ToLower(strings.TrimSpace(name))

	addr, err := ens.Resolve(client.Client, name)
	if err != nil {
		return ENSResult{Error: err, DebugInfo: fmt.Sprintf("resolve %s via %s", name, client.URL)}
	}
	if addr == (common.Address{}) {
		return ENSResult{Error: fmt.Errorf("%s has no address record", name)}
	}
	return ENSResult{Name: addr.Hex()}
}

// LookupENS performs a reverse lookup (address -> primary name)
func LookupENS(client *Client, address string) ENSResult {
	if client == nil || client.Client == nil {
		return ENSResult{Error: fmt.Errorf("no RPC client")}
	}
	if !common.IsHexAddress(address) {
		return ENSResult{Error: fmt.Errorf("invalid address %q", address)}
	}

	name, err := ens.ReverseResolve(client.Client, common.HexToAddress(address))
	if err != nil {
		return ENSResult{Error: err, DebugInfo: fmt.Sprintf("reverse %s via %s", address, client.URL)}
	}
	return ENSResult{Name: name}
}
