package wallet

import (
	"errors"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrWalletUnavailable       = errors.New("wallet unavailable")
	ErrNetworkSwitchFailed     = errors.New("network switch failed")
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrCredentialRequired      = errors.New("credential required")
)

// EIP-1193 provider error codes
const (
	codeUserRejected      = 4001
	codeUnrecognizedChain = 4902
)

// errorCode returns the JSON-RPC error code carried by err, or 0
func errorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

// IsUserRejected reports whether the wallet user declined the request
func IsUserRejected(err error) bool {
	return errorCode(err) == codeUserRejected
}
