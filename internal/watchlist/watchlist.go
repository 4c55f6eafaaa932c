// Package watchlist persists the user's symbol list as a small JSON file.
package watchlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Watchlist struct {
	Symbols   []string  `json:"symbols"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Watchlist) Add(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}
	for _, s := range w.Symbols {
		if s == symbol {
			return
		}
	}
	w.Symbols = append(w.Symbols, symbol)
	w.UpdatedAt = time.Now().UTC()
}

func (w *Watchlist) Remove(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	kept := w.Symbols[:0]
	removed := false
	for _, s := range w.Symbols {
		if s == symbol {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	w.Symbols = kept
	if removed {
		w.UpdatedAt = time.Now().UTC()
	}
}

func (w *Watchlist) Extend(symbols []string) {
	for _, s := range symbols {
		w.Add(s)
	}
}

// Load reads the list at path, returning an empty list when the file does
// not exist yet.
func Load(path string) (*Watchlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Watchlist{UpdatedAt: time.Now().UTC()}, nil
		}
		return nil, err
	}
	var w Watchlist
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Save writes the list as indented JSON, creating parent directories.
func Save(path string, w *Watchlist) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
