package guard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// HistoryEntry is one fingerprinted response.
type HistoryEntry struct {
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
}

// History is the stuck detector's on-disk list of recent signatures.
// A missing or unreadable file reads as empty.
type History struct {
	Path string
	Max  int
}

// NewHistory returns a History at path keeping at most max entries.
func NewHistory(path string, max int) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{Path: path, Max: max}
}

// Load returns the stored entries, oldest first. A file that cannot be
// parsed yields no entries and an error the caller may log.
func (h *History) Load() ([]HistoryEntry, error) {
	b, err := os.ReadFile(h.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("guard: read history: %w", err)
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("guard: parse history %s: %w", h.Path, err)
	}
	return entries, nil
}

// Save writes entries atomically, keeping only the newest Max.
func (h *History) Save(entries []HistoryEntry) error {
	entries = trimHistory(entries, h.Max)
	if entries == nil {
		entries = []HistoryEntry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("guard: encode history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return fmt.Errorf("guard: create history dir: %w", err)
	}
	if err := renameio.WriteFile(h.Path, b, 0o644); err != nil {
		return fmt.Errorf("guard: write history: %w", err)
	}
	return nil
}

// Reset empties the history.
func (h *History) Reset() error {
	return h.Save(nil)
}

func trimHistory(entries []HistoryEntry, max int) []HistoryEntry {
	if max > 0 && len(entries) > max {
		return entries[len(entries)-max:]
	}
	return entries
}
