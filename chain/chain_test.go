package chain

import (
	"context"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestConnect(t *testing.T) {
	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		t.Skip("ETH_RPC_URL not set, skipping connection test")
	}

	t.Run("successful connection", func(t *testing.T) {
		result := Connect(rpcURL)
		if result.Error != nil {
			t.Fatalf("Failed to connect to RPC: %v", result.Error)
		}
		if result.Client == nil {
			t.Fatal("Client is nil despite no error")
		}
		if result.Client.URL != rpcURL {
			t.Errorf("Expected URL %s, got %s", rpcURL, result.Client.URL)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		chainID, err := result.Client.ChainID(ctx)
		if err != nil {
			t.Errorf("Failed to get chain ID: %v", err)
		} else {
			t.Logf("Connected to chain ID: %s", chainID.String())
		}
	})

	t.Run("balance", func(t *testing.T) {
		result := Connect(rpcURL)
		if result.Error != nil {
			t.Fatalf("Failed to connect: %v", result.Error)
		}
		addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
		b := LoadBalance(result.Client, addr)
		if b.ErrMessage != "" {
			t.Logf("Got error message (may be due to rate limiting): %s", b.ErrMessage)
		}
		if b.Address != addr.Hex() {
			t.Errorf("Expected address %s, got %s", addr.Hex(), b.Address)
		}
		if b.Wei == nil {
			t.Error("Wei is nil")
		}
	})
}

func TestConnectEmptyURL(t *testing.T) {
	if result := Connect(""); result.Error == nil {
		t.Error("Expected error for empty url")
	}
}

func TestLoadBalanceNilClient(t *testing.T) {
	b := LoadBalance(nil, common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	if !strings.Contains(b.ErrMessage, "No RPC client") {
		t.Errorf("Expected 'No RPC client' error, got: %s", b.ErrMessage)
	}
	if b.Wei == nil || b.Wei.Sign() != 0 {
		t.Errorf("Expected zero balance, got %v", b.Wei)
	}
}

func TestFormatUnits(t *testing.T) {
	eth := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	tests := []struct {
		name   string
		amount *big.Int
		want   string
	}{
		{"nil", nil, "0"},
		{"zero", big.NewInt(0), "0"},
		{"one ether", eth, "1"},
		{"one and a half", new(big.Int).Add(eth, new(big.Int).Div(eth, big.NewInt(2))), "1.5"},
		{"dust", big.NewInt(1), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUnits(tt.amount, 18, 4); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestENSWithoutClient(t *testing.T) {
	if r := ResolveENS(nil, "vitalik.eth"); r.Error == nil {
		t.Error("Expected error without client")
	}
	if r := LookupENS(nil, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"); r.Error == nil {
		t.Error("Expected error without client")
	}
}

func TestResolveENS(t *testing.T) {
	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		t.Skip("ETH_RPC_URL not set, skipping ENS test")
	}
	result := Connect(rpcURL)
	if result.Error != nil {
		t.Fatalf("Failed to connect: %v", result.Error)
	}

	r := ResolveENS(result.Client, "vitalik.eth")
	if r.Error != nil {
		t.Skipf("ENS not available on this network: %v", r.Error)
	}
	if !common.IsHexAddress(r.Name) {
		t.Errorf("Expected an address, got %q", r.Name)
	}
}

func TestIsENSName(t *testing.T) {
	tests := map[string]bool{
		"vitalik.eth":    true,
		"alice.base.eth": true,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed": false,
		"alice": false,
		"":      false,
	}
	for in, want := range tests {
		if got := IsENSName(in); got != want {
			t.Errorf("IsENSName(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestShareURIAndQR(t *testing.T) {
	addr := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if got := ShareURI(addr, "0xaa36a7"); got != "ethereum:"+addr+"@11155111" {
		t.Errorf("unexpected uri %s", got)
	}
	if got := ShareURI(addr, "1"); got != "ethereum:"+addr+"@1" {
		t.Errorf("unexpected uri %s", got)
	}
	if got := ShareURI(addr, ""); got != "ethereum:"+addr {
		t.Errorf("unexpected uri %s", got)
	}

	qr := GenerateQRCode(ShareURI(addr, "0xaa36a7"))
	if qr == "" {
		t.Fatal("empty QR code")
	}
	if lines := strings.Split(qr, "\n"); len(lines) < 10 {
		t.Errorf("QR code looks too small: %d lines", len(lines))
	}
}
