package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brensch/snek8/rules"
)

// tableJSON is the on-disk JSON layout: {"q": [[up,right,down,left], ...]}.
type tableJSON struct {
	Q [][]float32 `json:"q"`
}

// DecodeJSON parses a table from its JSON form.
func DecodeJSON(data []byte) (*Table, error) {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode table json: %w", err)
	}
	if len(raw.Q) != rules.NumStates {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrBadTable, len(raw.Q), rules.NumStates)
	}

	t := &Table{}
	for state, row := range raw.Q {
		if len(row) != rules.NumMoves {
			return nil, fmt.Errorf("%w: row %d has %d scores, want %d", ErrBadTable, state, len(row), rules.NumMoves)
		}
		copy(t[state][:], row)
	}
	return t, nil
}

// EncodeJSON returns the JSON form of t.
func EncodeJSON(t *Table) ([]byte, error) {
	raw := tableJSON{Q: make([][]float32, rules.NumStates)}
	for state := range t {
		row := t[state]
		raw.Q[state] = row[:]
	}
	return json.MarshalIndent(raw, "", "  ")
}

func LoadJSON(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return DecodeJSON(data)
}

func SaveJSON(path string, t *Table) error {
	data, err := EncodeJSON(t)
	if err != nil {
		return fmt.Errorf("encode table json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Write to a temp file and rename atomically.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename table: %w", err)
	}
	return nil
}
