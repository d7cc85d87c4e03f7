package backend

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var hexAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
// It does not check the EIP-55 checksum.
func IsValidAddress(s string) bool {
	return hexAddressRe.MatchString(s)
}

// CanonicalAddress returns the EIP-55 checksummed form of addr.
// Input that is all lower or all upper case is accepted as-is; mixed case
// must already carry a valid checksum.
func CanonicalAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !IsValidAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddressFormat, addr)
	}

	canonical := common.HexToAddress(addr).Hex()
	body := addr[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr != canonical {
		return "", fmt.Errorf("%w: bad checksum %q", ErrInvalidAddressFormat, addr)
	}
	return canonical, nil
}

// SameAddress compares two addresses ignoring case. Malformed input never matches.
func SameAddress(a, b string) bool {
	if !IsValidAddress(a) || !IsValidAddress(b) {
		return false
	}
	return strings.EqualFold(a, b)
}
