// Command snek8 plays one game of 8x8 snake driven by a decision table and
// prints the console transcript, optionally with a terminal UI and a
// websocket viewer.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brensch/snek8/config"
	"github.com/brensch/snek8/engine"
	"github.com/brensch/snek8/logging"
	"github.com/brensch/snek8/policy"
	"github.com/brensch/snek8/render"
	"github.com/brensch/snek8/rules"
	"github.com/brensch/snek8/store"
	"github.com/brensch/snek8/viewer"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	tablePath := flag.String("table", config.GetEnvOrDefault("TABLE_PATH", ""), "Decision table (.json, .parquet or .onnx). Empty uses the built-in heuristic table")
	seed := flag.Int64("seed", config.GetEnvInt64OrDefault("SEED", 0), "Food placement seed. 0 picks one from the clock")
	pace := flag.Duration("pace", config.GetEnvDurationOrDefault("PACE", 150*time.Millisecond), "Delay between ticks")
	maxSteps := flag.Int("max-steps", config.GetEnvIntOrDefault("MAX_STEPS", 0), "Stop after this many ticks (0 = until game over)")
	useTUI := flag.Bool("tui", config.GetEnvBoolOrDefault("TUI", false), "Show a terminal UI instead of the plain transcript")
	listen := flag.String("listen", config.GetEnvOrDefault("LISTEN", ""), "Serve the spectator viewer on this address (e.g. 127.0.0.1:8080)")
	traceDir := flag.String("trace-dir", config.GetEnvOrDefault("TRACE_DIR", ""), "Write the tick trace as parquet into this directory")
	resultsDB := flag.String("results-db", config.GetEnvOrDefault("RESULTS_DB", ""), "Record the game in this SQLite ledger")
	logFormat := flag.String("log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: text, json or pretty")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger, err := logging.New(os.Stderr, *logFormat, level)
	if err != nil {
		log.Fatalf("%v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, tableName := loadTable(*tablePath)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	g := rules.NewGame(rand.New(rand.NewSource(*seed)), uint64(*seed))

	runner := engine.NewRunner(g, table)
	runner.Pace = *pace
	runner.MaxSteps = *maxSteps

	var renderers render.MultiRenderer
	var status render.Status = render.NewLineWriter(os.Stdout)

	var results *store.Results
	if *resultsDB != "" {
		if err := os.MkdirAll(filepath.Dir(*resultsDB), 0o755); err != nil {
			log.Fatalf("Failed to create results dir: %v", err)
		}
		results, err = store.OpenResults(*resultsDB)
		if err != nil {
			log.Fatalf("Failed to open results ledger: %v", err)
		}
		defer results.Close()
	}

	var viewerDone chan error
	if *listen != "" {
		hub := render.NewHub()
		renderers = append(renderers, hub)
		srv := viewer.New(viewer.Config{Hub: hub, Results: results, TraceDir: *traceDir})
		viewerDone = make(chan error, 1)
		go func() { viewerDone <- srv.ListenAndServe(ctx, *listen) }()
		slog.Info("viewer listening", "addr", *listen)
	}

	var tui *render.TUI
	if *useTUI {
		tui = render.NewTUI()
		renderers = append(renderers, tui)
		status = tui
	}
	runner.Renderer = renderers
	runner.Status = status

	slog.Info("starting game", "game_id", runner.GameID, "seed", *seed, "table", tableName, "pace", *pace)

	gameCtx, cancelGame := context.WithCancel(ctx)
	defer cancelGame()

	type outcome struct {
		summary engine.Summary
		ticks   []engine.Tick
	}
	done := make(chan outcome, 1)
	go func() {
		sum, ticks := runner.Run(gameCtx)
		done <- outcome{sum, ticks}
	}()

	if tui != nil {
		// Quitting the UI stops the game.
		if err := tui.Run(ctx); err != nil {
			slog.Error("terminal UI failed", "err", err)
		}
		cancelGame()
	}
	out := <-done

	sum := out.summary
	slog.Info("game finished",
		"game_id", sum.GameID,
		"steps", sum.Steps,
		"score", sum.TotalReward,
		"length", sum.FinalLength,
		"reason", sum.Reason,
		"took", sum.Finished.Sub(sum.Started).Round(time.Millisecond),
	)

	if *traceDir != "" && len(out.ticks) > 0 {
		path, err := store.WriteTraceBatch(*traceDir, engine.TickRows(sum.GameID, tableName, out.ticks))
		if err != nil {
			slog.Error("trace write failed", "err", err)
		} else {
			slog.Info("trace written", "path", path, "rows", len(out.ticks))
		}
	}
	if results != nil {
		if err := results.Insert(context.Background(), sum.GameResult(tableName)); err != nil {
			slog.Error("results insert failed", "err", err)
		}
	}

	if viewerDone != nil {
		slog.Info("game over; viewer still serving, interrupt to exit")
		if err := <-viewerDone; err != nil {
			slog.Error("viewer stopped", "err", err)
		}
	}
}

// loadTable reads the table at path, or falls back to the heuristic table.
func loadTable(path string) (*policy.Table, string) {
	if path == "" {
		slog.Info("no table given, using heuristic table")
		return policy.Heuristic(), "heuristic"
	}
	t, err := policy.Load(path)
	if err != nil {
		log.Fatalf("Failed to load table %s: %v", path, err)
	}
	return t, filepath.Base(path)
}
