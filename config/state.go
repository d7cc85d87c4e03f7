package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// State is the small amount of client state that survives restarts.
// It never holds session data such as the credential.
type State struct {
	WasConnected bool `json:"was_connected"`
	Logger       bool `json:"logger"`
}

// StatePath returns the default location of state.json
func StatePath() string {
	return ResolvePath("", defaultStateName)
}

// LoadState reads the state from the specified path
func LoadState(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}
	}

	return st
}

// SaveState writes the state to the specified path
func SaveState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// StateFile persists State at a fixed path. It satisfies wallet.FlagStore.
type StateFile struct {
	Path string
}

// WasConnected reports whether the last session ended connected
func (f StateFile) WasConnected() bool {
	return LoadState(f.Path).WasConnected
}

// SetWasConnected updates the auto-reconnect flag, keeping other fields
func (f StateFile) SetWasConnected(v bool) error {
	st := LoadState(f.Path)
	st.WasConnected = v
	return SaveState(f.Path, st)
}

// SetLogger updates the log panel toggle, keeping other fields
func (f StateFile) SetLogger(v bool) error {
	st := LoadState(f.Path)
	st.Logger = v
	return SaveState(f.Path, st)
}
