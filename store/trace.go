// Package store persists what the game loop produces: per-tick traces as
// zstd-compressed parquet and per-game results in SQLite.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const traceSchema = "tick_trace_v1"

// TickRow is one resolved tick.
//
// State is the perception index the action was chosen from (before the move).
// Action is 0=Up, 1=Right, 2=Down, 3=Left. Scores are the decision-table row
// for State in the same order. Head and food are recorded after the move.
type TickRow struct {
	GameID      string    `parquet:"game_id,dict"`
	Step        int32     `parquet:"step"`
	State       int32     `parquet:"state"`
	Action      int32     `parquet:"action"`
	Scores      []float32 `parquet:"scores"`
	Reward      int32     `parquet:"reward"`
	TotalReward int32     `parquet:"total_reward"`
	Length      int32     `parquet:"length"`
	HeadX       int32     `parquet:"head_x"`
	HeadY       int32     `parquet:"head_y"`
	FoodX       int32     `parquet:"food_x"`
	FoodY       int32     `parquet:"food_y"`
	GameOver    bool      `parquet:"game_over"`
	Source      string    `parquet:"source,dict"`
}

// WriteTrace writes rows to outPath via a temp file and rename.
func WriteTrace(outPath string, rows []TickRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// Write to a temp file and rename atomically.
	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", traceSchema),
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

// WriteTraceBatch writes rows to a new timestamped file in outDir and returns
// its path.
func WriteTraceBatch(outDir string, rows []TickRow) (string, error) {
	name := fmt.Sprintf("trace_%d.parquet", time.Now().UnixNano())
	outPath := filepath.Join(outDir, name)
	if err := WriteTrace(outPath, rows); err != nil {
		return "", err
	}
	return outPath, nil
}

// ReadTrace loads every row of a trace file.
func ReadTrace(path string) ([]TickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[TickRow](pf)
	defer reader.Close()

	rows := make([]TickRow, 0, reader.NumRows())
	buf := make([]TickRow, 128)
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
	return rows, nil
}
