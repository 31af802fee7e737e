// Command evaluate plays many seeded games with one decision table and reports
// how it scores. Traces go to parquet, per-game results to SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/brensch/snek8/config"
	"github.com/brensch/snek8/engine"
	"github.com/brensch/snek8/logging"
	"github.com/brensch/snek8/policy"
	"github.com/brensch/snek8/store"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	tablePath := flag.String("table", config.GetEnvOrDefault("TABLE_PATH", ""), "Decision table (.json, .parquet or .onnx). Empty uses the built-in heuristic table")
	games := flag.Int("games", config.GetEnvIntOrDefault("GAMES", 1000), "Number of games to play")
	workers := flag.Int("workers", config.GetEnvIntOrDefault("WORKERS", runtime.NumCPU()), "Number of concurrent games")
	baseSeed := flag.Int64("seed", config.GetEnvInt64OrDefault("SEED", 1), "Seed of game 0; game i uses seed+i")
	maxSteps := flag.Int("max-steps", config.GetEnvIntOrDefault("MAX_STEPS", 2000), "Per-game tick limit")
	traceDir := flag.String("trace-dir", config.GetEnvOrDefault("TRACE_DIR", ""), "Write tick traces as parquet into this directory")
	gamesPerFlush := flag.Int("games-per-flush", config.GetEnvIntOrDefault("GAMES_PER_FLUSH", 200), "Games per parquet file")
	resultsDB := flag.String("results-db", config.GetEnvOrDefault("RESULTS_DB", ""), "Record every game in this SQLite ledger")
	verbose := flag.Bool("verbose", config.GetEnvBoolOrDefault("VERBOSE", false), "Log every finished game")
	logFormat := flag.String("log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: text, json or pretty")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, slog.LevelInfo)
	if err != nil {
		log.Fatalf("%v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, tableName := policy.Heuristic(), "heuristic"
	if *tablePath != "" {
		table, err = policy.Load(*tablePath)
		if err != nil {
			log.Fatalf("Failed to load table %s: %v", *tablePath, err)
		}
		tableName = filepath.Base(*tablePath)
	}

	out, err := newSink(*traceDir, *gamesPerFlush, *resultsDB, tableName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("Starting evaluation")
	log.Printf("  Table: %s", tableName)
	log.Printf("  Games: %d (seeds %d..%d)", *games, *baseSeed, *baseSeed+int64(*games)-1)
	log.Printf("  Workers: %d", *workers)
	log.Printf("  Max Steps: %d", *maxSteps)

	start := time.Now()
	stats, evalErr := engine.Evaluate(ctx, engine.EvalConfig{
		Games:    *games,
		Workers:  *workers,
		BaseSeed: *baseSeed,
		MaxSteps: *maxSteps,
		Verbose:  *verbose,
	}, table, out.add)

	if err := out.close(); err != nil {
		slog.Error("final flush failed", "err", err)
	}
	if evalErr != nil && !errors.Is(evalErr, context.Canceled) {
		log.Fatalf("Evaluation failed: %v", evalErr)
	}

	elapsed := time.Since(start)
	log.Printf("Evaluation complete in %s:", elapsed.Round(time.Millisecond))
	log.Printf("  Games: %d", stats.Games)
	log.Printf("  Mean score: %.2f", stats.MeanReward())
	log.Printf("  Best score: %d", stats.BestReward)
	log.Printf("  Longest snake: %d", stats.BestLength)
	if stats.Games > 0 {
		log.Printf("  Steps/game: %.1f", float64(stats.Steps)/float64(stats.Games))
		log.Printf("  Steps/s: %.0f", float64(stats.Steps)/elapsed.Seconds())
	}
	reasons := make([]string, 0, len(stats.Reasons))
	for r := range stats.Reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		log.Printf("  %s: %d", r, stats.Reasons[r])
	}
}

// sink receives finished games on the single consumer goroutine, so it needs
// no locking.
type sink struct {
	table         string
	gamesPerFlush int

	traces  *store.TraceWriter
	results *store.Results
	pending []store.GameResult
	seen    int
}

func newSink(traceDir string, gamesPerFlush int, resultsDB, table string) (*sink, error) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 200
	}
	s := &sink{table: table, gamesPerFlush: gamesPerFlush}
	if traceDir != "" {
		w, err := store.NewTraceWriter(traceDir, gamesPerFlush)
		if err != nil {
			return nil, err
		}
		s.traces = w
	}
	if resultsDB != "" {
		if err := os.MkdirAll(filepath.Dir(resultsDB), 0o755); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
		r, err := store.OpenResults(resultsDB)
		if err != nil {
			return nil, fmt.Errorf("open results ledger: %w", err)
		}
		s.results = r
	}
	return s, nil
}

func (s *sink) add(res engine.Result) error {
	s.seen++
	if s.seen%100 == 0 {
		slog.Info("progress", "games", s.seen)
	}

	if s.traces != nil {
		before := len(s.traces.Files())
		if err := s.traces.WriteGame(engine.TickRows(res.Summary.GameID, s.table, res.Ticks)); err != nil {
			return err
		}
		if files := s.traces.Files(); len(files) > before {
			slog.Info("parquet flush ok", "path", files[len(files)-1])
		}
	}
	if s.results != nil {
		s.pending = append(s.pending, res.Summary.GameResult(s.table))
		if len(s.pending) >= s.gamesPerFlush {
			return s.flushResults()
		}
	}
	return nil
}

func (s *sink) flushResults() error {
	if s.results == nil || len(s.pending) == 0 {
		return nil
	}
	if err := s.results.InsertBatch(context.Background(), s.pending); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *sink) close() error {
	var errs []error
	if s.traces != nil {
		path, err := s.traces.Flush()
		if err != nil {
			errs = append(errs, fmt.Errorf("finalize trace: %w", err))
		} else if path != "" {
			slog.Info("parquet final flush ok", "path", path)
		}
		rows, games := s.traces.Totals()
		slog.Info("traces written", "files", len(s.traces.Files()), "games", games, "rows", rows)
	}
	if err := s.flushResults(); err != nil {
		errs = append(errs, err)
	}
	if s.results != nil {
		if err := s.results.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
