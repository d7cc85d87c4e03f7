package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix         = "CHAINCHAT"
	defaultDirName    = ".chain-chat"
	defaultConfigName = "config.yaml"
	defaultStateName  = "state.json"
)

// Config holds the client settings read from config.yaml and the environment
type Config struct {
	APIURL         string        `mapstructure:"api_url" yaml:"api_url"`
	WalletRPCURL   string        `mapstructure:"wallet_rpc_url" yaml:"wallet_rpc_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RefreshDelay   time.Duration `mapstructure:"refresh_delay" yaml:"refresh_delay"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	LogFile        string        `mapstructure:"log_file" yaml:"log_file"`
	Debug          bool          `mapstructure:"debug" yaml:"debug"`
	Network        Network       `mapstructure:"network" yaml:"network"`
}

// Network describes the chain the wallet must be on
type Network struct {
	ChainID          string `mapstructure:"chain_id" yaml:"chain_id"`
	Name             string `mapstructure:"name" yaml:"name"`
	CurrencyName     string `mapstructure:"currency_name" yaml:"currency_name"`
	CurrencySymbol   string `mapstructure:"currency_symbol" yaml:"currency_symbol"`
	CurrencyDecimals int    `mapstructure:"currency_decimals" yaml:"currency_decimals"`
	RPCURL           string `mapstructure:"rpc_url" yaml:"rpc_url"`
	ExplorerURL      string `mapstructure:"explorer_url" yaml:"explorer_url"`
}

// Default returns the Sepolia configuration the client ships with
func Default() Config {
	return Config{
		APIURL:         "https://whatsapp-dapp-backend-580832663068.us-central1.run.app/api/v1",
		WalletRPCURL:   "ws://127.0.0.1:1248",
		RequestTimeout: 15 * time.Second,
		RefreshDelay:   1500 * time.Millisecond,
		PollInterval:   3 * time.Second,
		Network: Network{
			ChainID:          "0xaa36a7",
			Name:             "Sepolia Test Network",
			CurrencyName:     "Sepolia ETH",
			CurrencySymbol:   "SEP",
			CurrencyDecimals: 18,
			RPCURL:           "https://sepolia.infura.io/v3/",
			ExplorerURL:      "https://sepolia.etherscan.io",
		},
	}
}

// Load builds the configuration from defaults, the config file and env vars.
// Precedence: defaults < config file < env vars. A default file is written
// when none exists. The resolved path is returned alongside the config.
func Load(explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("api_url", cfg.APIURL)
	v.SetDefault("wallet_rpc_url", cfg.WalletRPCURL)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("refresh_delay", cfg.RefreshDelay)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("network.chain_id", cfg.Network.ChainID)
	v.SetDefault("network.name", cfg.Network.Name)
	v.SetDefault("network.currency_name", cfg.Network.CurrencyName)
	v.SetDefault("network.currency_symbol", cfg.Network.CurrencySymbol)
	v.SetDefault("network.currency_decimals", cfg.Network.CurrencyDecimals)
	v.SetDefault("network.rpc_url", cfg.Network.RPCURL)
	v.SetDefault("network.explorer_url", cfg.Network.ExplorerURL)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// ETH_RPC_URL is honoured for the chain endpoint like other wallet tools
	_ = v.BindEnv("network.rpc_url", envPrefix+"_NETWORK_RPC_URL", "ETH_RPC_URL")

	configPath := ResolvePath(explicitPath, defaultConfigName)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
		if writeErr := writeDefault(configPath, cfg); writeErr != nil {
			return cfg, configPath, fmt.Errorf("write default config: %w", writeErr)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")

	return cfg, configPath, nil
}

// ResolvePath returns explicitPath when set, otherwise name inside ~/.chain-chat
func ResolvePath(explicitPath, name string) string {
	if explicitPath != "" {
		return explicitPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, defaultDirName, name)
}

func writeDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
