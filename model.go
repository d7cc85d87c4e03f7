package main

import (
	"context"

	"chain-chat-tui/backend"
	"chain-chat-tui/chain"
	"chain-chat-tui/config"
	"chain-chat-tui/helpers"
	"chain-chat-tui/styles"
	"chain-chat-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// -------------------- MODEL --------------------

// pendingKind names an action parked until a credential is supplied
type pendingKind int

const (
	pendingRegister pendingKind = iota
	pendingSend
)

// pendingAction is the signed action waiting on the credential prompt
type pendingAction struct {
	kind    pendingKind
	name    string
	to      string
	content string
}

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page
	prevPage   config.Page // restored when the wallet is back on the target network

	cfg   config.Config
	state config.StateFile
	keys  keyMap

	// collaborators
	session *wallet.Manager
	api     *backend.Client

	// chain RPC for balance and ENS
	chainClient     *chain.Client
	chainConnecting bool
	balance         chain.AccountBalance

	// backend status
	health        backend.Health
	healthChecked bool

	// connection state
	connecting bool
	switching  bool
	registered bool
	myName     string

	// home
	recipientInput textinput.Model
	startingChat   bool
	showShare      bool
	shareQR        string

	// register
	registerForm *huh.Form
	registering  bool

	// chat
	partner      string
	partnerName  string
	partnerENS   string
	messages     []backend.Message
	chatViewport viewport.Model
	composeInput textinput.Model
	sending      bool
	refreshing   bool

	// credential prompt
	credentialForm *huh.Form
	pending        *pendingAction

	// toast
	toast    string
	toastErr bool
	toastID  int

	spin spinner.Model

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *helpers.LogBuffer
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model

	// wallet event listener
	watchGen    int
	watchCtx    context.Context
	watchCancel context.CancelFunc
	events      chan wallet.Event
}

// -------------------- INIT --------------------

// newModel creates the model around already built collaborators
func newModel(cfg config.Config, session *wallet.Manager, api *backend.Client, state config.StateFile, logger *log.Logger, logBuffer *helpers.LogBuffer) model {
	// recipient input
	in := textinput.New()
	in.Placeholder = "0x… or name.eth"
	in.Prompt = "To: "
	in.PromptStyle = lipgloss.NewStyle().Foreground(styles.CAccent)
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.CText)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)
	in.CharLimit = 255
	in.Width = 48
	in.Focus()

	// compose input
	compose := textinput.New()
	compose.Placeholder = "Type a message…"
	compose.Prompt = "› "
	compose.PromptStyle = lipgloss.NewStyle().Foreground(styles.CAccent)
	compose.TextStyle = lipgloss.NewStyle().Foreground(styles.CText)
	compose.Cursor.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)
	compose.CharLimit = 1000

	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // Will be resized in Update on first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	if logBuffer == nil {
		logBuffer = &helpers.LogBuffer{}
	}
	if logger == nil {
		logger = newLogger(logBuffer, cfg.Debug)
	}

	return model{
		activePage:      config.PageHome,
		connecting:      session.ShouldAutoConnect(),
		chainConnecting: cfg.Network.RPCURL != "",
		prevPage:        config.PageHome,
		cfg:             cfg,
		state:           state,
		keys:            defaultKeyMap(),
		session:         session,
		api:             api,
		recipientInput:  in,
		composeInput:    compose,
		chatViewport:    viewport.New(0, 10),
		spin:            sp,
		logEnabled:      config.LoadState(state.Path).Logger,
		logger:          logger,
		logBuffer:       logBuffer,
		logViewport:     vp,
		logSpinner:      logSpin,
	}
}

// Init implements tea.Model interface and returns initial commands
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, checkHealth(m.api)}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	if m.chainConnecting {
		cmds = append(cmds, connectChain(m.cfg.Network.RPCURL))
	}
	// connecting is only set this early by the auto-reconnect flag
	if m.connecting {
		cmds = append(cmds, connectWallet(m.session, true))
	}
	return tea.Batch(cmds...)
}
