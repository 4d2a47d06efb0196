package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateFileName is the fingerprint ledger kept beside the watched files.
const StateFileName = ".imported.json"

// FileState is the identity fingerprint of an already-imported file. If any
// part differs on the next scan, the file is reprocessed.
type FileState struct {
	Path    string `json:"path"`
	ModTime int64  `json:"mtime"`
	Size    int64  `json:"size"`
}

// Matches reports whether the file's current identity equals the recorded one.
func (f FileState) Matches(info os.FileInfo) bool {
	return f.ModTime == info.ModTime().Unix() && f.Size == info.Size()
}

// loadState reads the ledger. A missing or corrupt ledger starts empty: the
// worst outcome is a re-import, and imports are idempotent upserts.
func loadState(dir string) map[string]FileState {
	raw, err := os.ReadFile(filepath.Join(dir, StateFileName))
	if err != nil {
		return map[string]FileState{}
	}
	state := map[string]FileState{}
	if err := json.Unmarshal(raw, &state); err != nil {
		return map[string]FileState{}
	}
	return state
}

// saveState rewrites the ledger atomically.
func saveState(dir string, state map[string]FileState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode import state: %w", err)
	}

	target := filepath.Join(dir, StateFileName)
	tmp, err := os.CreateTemp(dir, ".imported-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
