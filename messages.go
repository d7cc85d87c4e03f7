package main

import (
	"chain-chat-tui/backend"
	"chain-chat-tui/chain"
	"chain-chat-tui/wallet"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// clearToastMsg hides the toast with the given id if it is still showing
type clearToastMsg struct{ id int }

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct{ err error }

// walletConnectedMsg contains the result of a wallet connect attempt
type walletConnectedMsg struct {
	session wallet.Session
	err     error
	auto    bool
}

// walletEventMsg carries one account or chain change from the wallet
type walletEventMsg struct{ ev wallet.Event }

// walletWatchEndedMsg reports that the wallet event stream stopped
type walletWatchEndedMsg struct {
	gen int
	err error
}

// watchRetryMsg restarts the wallet event listener after a failure
type watchRetryMsg struct{}

// networkSwitchedMsg contains the result of a network switch request
type networkSwitchedMsg struct{ err error }

// registrationCheckedMsg reports whether account is registered
type registrationCheckedMsg struct {
	account    string
	registered bool
}

// registeredMsg contains the result of a registration
type registeredMsg struct {
	account string
	name    string
	err     error
}

// chatOpenedMsg contains the result of the start-chat flow
type chatOpenedMsg struct {
	partner    string
	ensName    string
	registered bool
	messages   []backend.Message
	err        error
}

// messageSentMsg contains the result of a send
type messageSentMsg struct {
	partner string
	err     error
}

// refreshConversationMsg asks for the open conversation to be reloaded
type refreshConversationMsg struct{ partner string }

// conversationLoadedMsg contains a reloaded conversation
type conversationLoadedMsg struct {
	partner  string
	messages []backend.Message
	err      error
}

// profileLoadedMsg contains a user profile
type profileLoadedMsg struct {
	address string
	user    backend.User
	err     error
}

// healthMsg contains the backend health report
type healthMsg struct {
	health backend.Health
	err    error
}

// chainConnectedMsg contains result of the chain RPC connection attempt
type chainConnectedMsg struct {
	client *chain.Client
	err    error
}

// balanceLoadedMsg contains the account balance on the target network
type balanceLoadedMsg struct{ b chain.AccountBalance }

// ensResolvedMsg contains result of forward ENS resolution (name -> address)
type ensResolvedMsg struct {
	name    string
	address string
	err     error
}

// ensLookupResultMsg contains result of reverse ENS lookup (address -> name)
type ensLookupResultMsg struct {
	address string
	name    string
	err     error
}
