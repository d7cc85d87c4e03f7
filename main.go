package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"chain-chat-tui/backend"
	"chain-chat-tui/config"
	"chain-chat-tui/helpers"
	"chain-chat-tui/wallet"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// -------------------- MAIN --------------------

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

// options are the command line overrides shared by all commands
type options struct {
	configPath string
	apiURL     string
	walletRPC  string
	logFile    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "chain-chat",
		Short:        "Terminal chat client for a wallet-authenticated messaging backend",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (default ~/.chain-chat/config.yaml)")
	f.StringVar(&opts.apiURL, "api-url", "", "backend API root, e.g. http://localhost:8000/api/v1")
	f.StringVar(&opts.walletRPC, "wallet-rpc", "", "wallet JSON-RPC endpoint (default ws://127.0.0.1:1248)")
	f.StringVar(&opts.logFile, "log-file", "", "also write logs to this file")
	f.BoolVar(&opts.debug, "debug", false, "log at debug level")

	cmd.AddCommand(newCheckCmd(opts), newHistoryCmd(opts))
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <address>",
		Short: "Report whether an address is registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			addr, err := backend.CanonicalAddress(args[0])
			if err != nil {
				return err
			}
			api := backend.New(cfg.APIURL, backend.WithTimeout(cfg.RequestTimeout), backend.WithLogger(headlessLogger(cfg.Debug)))
			if api.CheckRegistered(cmd.Context(), addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is registered\n", addr)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not registered\n", addr)
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history <address> <address>",
		Short: "Print the conversation between two addresses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			api := backend.New(cfg.APIURL, backend.WithTimeout(cfg.RequestTimeout), backend.WithLogger(headlessLogger(cfg.Debug)))
			msgs, err := api.FetchConversation(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
}

// printHistory writes one line per message, oldest first
func printHistory(w io.Writer, msgs []backend.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "no messages")
		return
	}
	for _, msg := range msgs {
		content := msg.Content
		if msg.IsDeleted {
			content = "(deleted)"
		}
		fmt.Fprintf(w, "%s  %s → %s  %s\n",
			msg.Timestamp.Time().Local().Format("2006-01-02 15:04:05"),
			helpers.ShortenAddr(msg.From),
			helpers.ShortenAddr(msg.To),
			content,
		)
	}
}

// loadConfig reads .env, the config file and env vars, then applies flags
func loadConfig(opts *options) (config.Config, string, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	cfg, path, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, path, err
	}
	if opts.apiURL != "" {
		cfg.APIURL = strings.TrimRight(strings.TrimSpace(opts.apiURL), "/")
	}
	if opts.walletRPC != "" {
		cfg.WalletRPCURL = opts.walletRPC
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, path, nil
}

func headlessLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, TimeFormat: "15:04:05"})
	logger.SetLevel(log.WarnLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func runTUI(opts *options) error {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logBuffer := &helpers.LogBuffer{}
	var w io.Writer = logBuffer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		w = io.MultiWriter(logBuffer, f)
	}
	logger := newLogger(w, cfg.Debug)
	logger.Info("config loaded", "path", path, "api", cfg.APIURL, "network", cfg.Network.Name)

	api := backend.New(cfg.APIURL, backend.WithTimeout(cfg.RequestTimeout), backend.WithLogger(logger))
	state := config.StateFile{Path: config.StatePath()}
	provider := wallet.NewLazyProvider(cfg.WalletRPCURL, cfg.PollInterval, logger)
	session := wallet.NewManager(provider, cfg.Network, state, logger)
	defer session.Close()

	m := newModel(cfg, session, api, state, logger, logBuffer)
	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
