package chain

import (
	"fmt"
	"strings"

	"github.com/mdp/qrterminal/v3"
)

// ShareURI builds an EIP-681 URI pointing at address on chainID
// (decimal or 0x-hex), e.g. ethereum:0xabc...@11155111
func ShareURI(address string, chainID string) string {
	uri := "ethereum:" + address
	if id := decimalChainID(chainID); id != "" {
		uri += "@" + id
	}
	return uri
}

// GenerateQRCode renders text as a half-block terminal QR code
func GenerateQRCode(text string) string {
	var b strings.Builder
	qrterminal.GenerateHalfBlock(text, qrterminal.L, &b)
	return strings.TrimRight(b.String(), "\n")
}

func decimalChainID(chainID string) string {
	chainID = strings.TrimSpace(chainID)
	if chainID == "" {
		return ""
	}
	if strings.HasPrefix(chainID, "0x") {
		var n uint64
		if _, err := fmt.Sscanf(chainID[2:], "%x", &n); err != nil {
			return ""
		}
		return fmt.Sprintf("%d", n)
	}
	return chainID
}
