// Package focusmode persists the focus-mode flag shared with the local
// automation collaborator.
package focusmode

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Signals sent over the notification channel to the automation collaborator.
const (
	SignalStart = "start-focus"
	SignalStop  = "stop-focus"
)

type flagFile struct {
	FocusModeActive bool `json:"focus_mode_active"`
}

// Flag is a single-writer-assumed JSON flag file.
type Flag struct {
	path string
}

func New(path string) *Flag {
	return &Flag{path: path}
}

// Active reads the flag. Missing or corrupt files read as inactive.
func (f *Flag) Active() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false
	}
	var ff flagFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return false
	}

	return ff.FocusModeActive
}

// Set rewrites the flag file wholesale.
func (f *Flag) Set(active bool) error {
	data, err := json.Marshal(flagFile{FocusModeActive: active})
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(f.path, data, 0o644)
}
