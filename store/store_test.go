package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleRows(gameID string, n int) []TickRow {
	rows := make([]TickRow, 0, n)
	total := 0
	for i := 0; i < n; i++ {
		reward := i % 3
		total += reward
		rows = append(rows, TickRow{
			GameID:      gameID,
			Step:        int32(i + 1),
			State:       int32(i % 256),
			Action:      int32(i % 4),
			Scores:      []float32{0.5, 0.25, -1, 0},
			Reward:      int32(reward),
			TotalReward: int32(total),
			Length:      int32(1 + i/3),
			HeadX:       int32(i % 8),
			HeadY:       int32((i / 8) % 8),
			FoodX:       7,
			FoodY:       7,
			GameOver:    i == n-1,
			Source:      "test",
		})
	}
	return rows
}

func TestWriteTrace_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "trace.parquet")

	in := sampleRows("g1", 300)
	if err := WriteTrace(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	out, err := ReadTrace(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("rows=%d want=%d", len(out), len(in))
	}
	for i := range in {
		if out[i].Step != in[i].Step || out[i].TotalReward != in[i].TotalReward || out[i].GameOver != in[i].GameOver {
			t.Fatalf("row %d mismatch: got %+v want %+v", i, out[i], in[i])
		}
		if len(out[i].Scores) != 4 || out[i].Scores[2] != -1 {
			t.Fatalf("row %d scores=%v", i, out[i].Scores)
		}
	}
}

func TestWriteTraceBatch_NamesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteTraceBatch(dir, sampleRows("g1", 5))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".parquet" {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestTraceWriter_RotatesFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewTraceWriter(dir, 2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i, n := range []int{10, 0, 7, 4} {
		if err := w.WriteGame(sampleRows(string(rune('a'+i)), n)); err != nil {
			t.Fatalf("write game %d: %v", i, err)
		}
	}
	// Two full games published one file; the third game is still open.
	if len(w.Files()) != 1 {
		t.Fatalf("files=%v", w.Files())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(w.Files()) != 2 {
		t.Fatalf("files after close=%v", w.Files())
	}
	rows, games := w.Totals()
	if rows != 21 || games != 3 {
		t.Fatalf("rows=%d games=%d", rows, games)
	}

	first, err := ReadTrace(w.Files()[0])
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if len(first) != 17 || first[0].GameID != "a" || first[16].GameID != "c" {
		t.Fatalf("first file: n=%d first=%s last=%s", len(first), first[0].GameID, first[len(first)-1].GameID)
	}
	second, err := ReadTrace(w.Files()[1])
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if len(second) != 4 || second[0].GameID != "d" {
		t.Fatalf("second file: %+v", second)
	}

	tmp, err := os.ReadDir(filepath.Join(dir, "tmp"))
	if err != nil {
		t.Fatalf("read tmp: %v", err)
	}
	if len(tmp) != 0 {
		t.Fatalf("tmp dir not empty: %d entries", len(tmp))
	}
}

func TestTraceWriter_EmptyClose(t *testing.T) {
	w, err := NewTraceWriter(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(w.Files()) != 0 {
		t.Fatalf("no file expected, got %v", w.Files())
	}
}

func TestResults_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	r, err := OpenResults(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	base := time.UnixMilli(1_700_000_000_000)
	games := []GameResult{
		{ID: "a", Seed: 1, Table: "h", Steps: 10, TotalReward: 5, FinalLength: 2, Reason: "collision", StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "b", Seed: 2, Table: "h", Steps: 40, TotalReward: 20, FinalLength: 6, Reason: "collision", StartedAt: base, FinishedAt: base.Add(3 * time.Second)},
		{ID: "c", Seed: 1 << 63, Table: "h", Steps: 99, TotalReward: 12, FinalLength: 4, Reason: "step_limit", StartedAt: base, FinishedAt: base.Add(2 * time.Second)},
	}
	if err := r.InsertBatch(ctx, games); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Duplicate IDs are ignored.
	if err := r.Insert(ctx, games[0]); err != nil {
		t.Fatalf("reinsert: %v", err)
	}

	best, err := r.Best(ctx, 2)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if len(best) != 2 || best[0].ID != "b" || best[1].ID != "c" {
		t.Fatalf("best order wrong: %+v", best)
	}
	if best[1].Seed != 1<<63 {
		t.Fatalf("seed did not survive: %d", best[1].Seed)
	}

	recent, err := r.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != "b" || recent[2].ID != "a" {
		t.Fatalf("recent order wrong: %+v", recent)
	}
	if d := recent[0].Duration(); d != 3*time.Second {
		t.Fatalf("duration=%v", d)
	}

	ok, err := r.Exists(ctx, "c")
	if err != nil || !ok {
		t.Fatalf("exists c: %v %v", ok, err)
	}
	ok, err = r.Exists(ctx, "zzz")
	if err != nil || ok {
		t.Fatalf("exists zzz: %v %v", ok, err)
	}

	s, err := r.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Games != 3 || s.MaxScore != 20 || s.MaxLength != 6 {
		t.Fatalf("summary=%+v", s)
	}
	t.Logf("summary: %+v", s)
}
