package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// TraceWriter streams whole games into parquet files under dir. A file is
// built in dir/tmp and moved into dir once it holds GamesPerFile games (or on
// Flush/Close), so readers of dir never see a partial file.
//
// It is not safe for concurrent use.
type TraceWriter struct {
	dir          string
	gamesPerFile int

	cur   *traceFile
	files []string
	rows  int
	games int
}

type traceFile struct {
	tmpPath string
	outPath string
	f       *os.File
	w       *parquet.GenericWriter[TickRow]
	games   int
	rows    int
}

// NewTraceWriter prepares dir and dir/tmp. gamesPerFile <= 0 keeps every game
// in one file until Flush or Close.
func NewTraceWriter(dir string, gamesPerFile int) (*TraceWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("trace dir is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	return &TraceWriter{dir: abs, gamesPerFile: gamesPerFile}, nil
}

func (t *TraceWriter) open() error {
	name := fmt.Sprintf("trace_%d.parquet", time.Now().UnixNano())
	tf := &traceFile{
		tmpPath: filepath.Join(t.dir, "tmp", name),
		outPath: filepath.Join(t.dir, name),
	}
	f, err := os.OpenFile(tf.tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tmp parquet: %w", err)
	}
	tf.f = f
	tf.w = parquet.NewGenericWriter[TickRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	tf.w.SetKeyValueMetadata("schema", traceSchema)
	t.cur = tf
	return nil
}

// WriteGame appends one game's ticks. Empty games are skipped.
func (t *TraceWriter) WriteGame(rows []TickRow) error {
	if len(rows) == 0 {
		return nil
	}
	if t.cur == nil {
		if err := t.open(); err != nil {
			return err
		}
	}
	if _, err := t.cur.w.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	t.cur.rows += len(rows)
	t.cur.games++
	t.rows += len(rows)
	t.games++

	if t.gamesPerFile > 0 && t.cur.games >= t.gamesPerFile {
		_, err := t.Flush()
		return err
	}
	return nil
}

// Flush publishes the current file, if it holds anything, and returns its
// path.
func (t *TraceWriter) Flush() (string, error) {
	tf := t.cur
	if tf == nil {
		return "", nil
	}
	t.cur = nil

	closeErr := tf.w.Close()
	_ = tf.f.Sync()
	if err := tf.f.Close(); closeErr == nil {
		closeErr = err
	}
	if closeErr != nil {
		_ = os.Remove(tf.tmpPath)
		return "", fmt.Errorf("close parquet: %w", closeErr)
	}
	if err := os.Rename(tf.tmpPath, tf.outPath); err != nil {
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	t.files = append(t.files, tf.outPath)
	return tf.outPath, nil
}

// Close flushes the current file.
func (t *TraceWriter) Close() error {
	_, err := t.Flush()
	return err
}

// Files lists the published files in the order they were written.
func (t *TraceWriter) Files() []string { return t.files }

// Totals reports rows and games written since the writer was created.
func (t *TraceWriter) Totals() (rows, games int) { return t.rows, t.games }
