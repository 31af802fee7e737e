package policy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/snek8/rules"
)

// TableRow is one decision-table row as stored in parquet.
type TableRow struct {
	State int32   `parquet:"state"`
	Up    float32 `parquet:"up"`
	Right float32 `parquet:"right"`
	Down  float32 `parquet:"down"`
	Left  float32 `parquet:"left"`
}

const tableSchema = "decision_table_v1"

// Rows flattens t into 256 parquet rows ordered by state.
func Rows(t *Table) []TableRow {
	rows := make([]TableRow, rules.NumStates)
	for state := range t {
		q := t[state]
		rows[state] = TableRow{
			State: int32(state),
			Up:    q[rules.MoveUp],
			Right: q[rules.MoveRight],
			Down:  q[rules.MoveDown],
			Left:  q[rules.MoveLeft],
		}
	}
	return rows
}

// FromRows rebuilds a table. Every state must appear exactly once.
func FromRows(rows []TableRow) (*Table, error) {
	if len(rows) != rules.NumStates {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrBadTable, len(rows), rules.NumStates)
	}
	var seen [rules.NumStates]bool
	t := &Table{}
	for _, r := range rows {
		if r.State < 0 || int(r.State) >= rules.NumStates {
			return nil, fmt.Errorf("%w: state %d out of range", ErrBadTable, r.State)
		}
		if seen[r.State] {
			return nil, fmt.Errorf("%w: state %d repeated", ErrBadTable, r.State)
		}
		seen[r.State] = true
		t[r.State] = [rules.NumMoves]float32{r.Up, r.Right, r.Down, r.Left}
	}
	return t, nil
}

func SaveParquet(outPath string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Write to a temp file and rename atomically.
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, Rows(t),
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", tableSchema),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func LoadParquet(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat table: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[TableRow](pf)
	defer reader.Close()

	rows := make([]TableRow, 0, reader.NumRows())
	buf := make([]TableRow, 64)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return FromRows(rows)
}
