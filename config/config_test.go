package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if resolved != path {
		t.Errorf("Expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Default config was not written: %v", err)
	}
	if cfg.Network.ChainID != "0xaa36a7" {
		t.Errorf("Expected Sepolia chain id, got %s", cfg.Network.ChainID)
	}

	// second load reads the file that was just written
	again, _, err := Load(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if again.RefreshDelay != cfg.RefreshDelay {
		t.Errorf("Expected refresh delay %s, got %s", cfg.RefreshDelay, again.RefreshDelay)
	}
	if again.APIURL != cfg.APIURL {
		t.Errorf("Expected api url %s, got %s", cfg.APIURL, again.APIURL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`api_url: http://localhost:8000/api/v1/
refresh_delay: 250ms
network:
  chain_id: "0x539"
  name: Ganache
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CHAINCHAT_WALLET_RPC_URL", "http://127.0.0.1:9999")
	t.Setenv("ETH_RPC_URL", "http://127.0.0.1:7545")

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"api url trimmed", cfg.APIURL, "http://localhost:8000/api/v1"},
		{"chain id from file", cfg.Network.ChainID, "0x539"},
		{"network name from file", cfg.Network.Name, "Ganache"},
		{"currency from defaults", cfg.Network.CurrencySymbol, "SEP"},
		{"wallet rpc from env", cfg.WalletRPCURL, "http://127.0.0.1:9999"},
		{"eth rpc alias", cfg.Network.RPCURL, "http://127.0.0.1:7545"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if cfg.RefreshDelay != 250*time.Millisecond {
		t.Errorf("Expected refresh delay 250ms, got %s", cfg.RefreshDelay)
	}
}

func TestStateFile(t *testing.T) {
	f := StateFile{Path: filepath.Join(t.TempDir(), "state.json")}

	if f.WasConnected() {
		t.Fatal("Missing state file should read as disconnected")
	}
	if err := f.SetLogger(true); err != nil {
		t.Fatal(err)
	}
	if err := f.SetWasConnected(true); err != nil {
		t.Fatal(err)
	}
	if !f.WasConnected() {
		t.Error("Expected flag to be persisted")
	}
	if !LoadState(f.Path).Logger {
		t.Error("Setting the connect flag must keep the logger toggle")
	}
	if err := f.SetWasConnected(false); err != nil {
		t.Fatal(err)
	}
	if f.WasConnected() {
		t.Error("Expected flag to be cleared")
	}
}
