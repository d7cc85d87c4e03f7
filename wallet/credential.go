package wallet

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

var credentialRe = regexp.MustCompile(`^(0x)?[a-fA-F0-9]{64}$`)

// Prompt asks the user for a credential. Returning "" means the user declined.
type Prompt func(ctx context.Context) (string, error)

// ValidCredential reports whether s is 64 hex characters with an optional 0x
func ValidCredential(s string) bool {
	return credentialRe.MatchString(s)
}

// Credential returns the cached credential or ErrCredentialRequired
func (m *Manager) Credential() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.credential == "" {
		return "", ErrCredentialRequired
	}
	return m.credential, nil
}

// HasCredential reports whether a credential is cached for this session
func (m *Manager) HasCredential() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credential != ""
}

// ProvideCredential validates input and caches it for the rest of the
// session. Empty input is ErrCredentialRequired.
func (m *Manager) ProvideCredential(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrCredentialRequired
	}
	if !ValidCredential(input) {
		return "", ErrInvalidCredentialFormat
	}

	m.mu.Lock()
	m.credential = input
	account := m.account
	m.mu.Unlock()

	if owner, err := credentialAddress(input); err == nil && account != "" && owner != account {
		m.logger.Warn("credential does not belong to the connected account", "account", account, "credential_address", owner)
	}
	m.logger.Debug("credential cached")
	return input, nil
}

// ObtainCredential returns the cached credential, prompting once when there
// is none. A declined prompt is ErrCredentialRequired and a malformed answer
// ErrInvalidCredentialFormat; neither is cached.
func (m *Manager) ObtainCredential(ctx context.Context, prompt Prompt) (string, error) {
	if cred, err := m.Credential(); err == nil {
		return cred, nil
	}
	if prompt == nil {
		return "", ErrCredentialRequired
	}

	input, err := prompt(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialRequired, err)
	}
	return m.ProvideCredential(input)
}

// ClearCredential drops the cached credential
func (m *Manager) ClearCredential() {
	m.mu.Lock()
	m.credential = ""
	m.mu.Unlock()
	m.logger.Info("credential cleared")
}

// CredentialAddress returns the checksummed address the cached credential
// controls. ok is false when no credential is cached.
func (m *Manager) CredentialAddress() (addr string, ok bool) {
	cred, err := m.Credential()
	if err != nil {
		return "", false
	}
	addr, err = credentialAddress(cred)
	if err != nil {
		return "", false
	}
	return addr, true
}

func credentialAddress(cred string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(cred, "0x"), "0X"))
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
