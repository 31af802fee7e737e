package engine

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/brensch/snek8/game"
	"github.com/brensch/snek8/policy"
	"github.com/brensch/snek8/rules"
	"github.com/brensch/snek8/store"
)

// EvalConfig controls a batch evaluation.
type EvalConfig struct {
	Games    int
	Workers  int
	BaseSeed int64
	MaxSteps int
	// Verbose logs every finished game.
	Verbose  bool
}

// Result is one finished game from Evaluate.
type Result struct {
	Worker  int
	Summary Summary
	Ticks   []Tick
}

// Stats aggregates an evaluation.
type Stats struct {
	Games       int
	Steps       int
	TotalReward int
	BestReward  int
	BestLength  int
	Reasons     map[string]int
}

// MeanReward is TotalReward averaged over games.
func (s Stats) MeanReward() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.TotalReward) / float64(s.Games)
}

func (s *Stats) add(sum Summary) {
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	if s.Games == 0 || sum.TotalReward > s.BestReward {
		s.BestReward = sum.TotalReward
	}
	if sum.FinalLength > s.BestLength {
		s.BestLength = sum.FinalLength
	}
	s.Games++
	s.Steps += sum.Steps
	s.TotalReward += sum.TotalReward
	s.Reasons[sum.Reason]++
}

// Evaluate plays cfg.Games games with sel on a pool of cfg.Workers
// goroutines. Game i is seeded with BaseSeed+i, so a run is reproducible
// regardless of worker count. Every finished game is passed to onResult from a
// single goroutine, in completion order. sel is shared by all workers and
// must be safe for concurrent reads; a *policy.Table is.
//
// If parent is cancelled, games already running are abandoned and not reported.
func Evaluate(parent context.Context, cfg EvalConfig, sel policy.Selector, onResult func(Result) error) (Stats, error) {
	if cfg.Games <= 0 {
		return Stats{}, fmt.Errorf("games must be positive, got %d", cfg.Games)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > cfg.Games {
		workers = cfg.Games
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan int)
	results := make(chan Result, workers*2)

	var played atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				res, ok := playOne(ctx, workerID, cfg, sel, i)
				if !ok {
					continue
				}
				n := played.Add(1)
				if cfg.Verbose {
					log.Printf("Worker %d: game %d/%d seed=%d steps=%d score=%d length=%d reason=%s",
						workerID, n, cfg.Games, res.Summary.Seed, res.Summary.Steps,
						res.Summary.TotalReward, res.Summary.FinalLength, res.Summary.Reason)
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}(w)
	}

	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Games; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	var firstErr error
	for res := range results {
		stats.add(res.Summary)
		if onResult == nil || firstErr != nil {
			continue
		}
		if err := onResult(res); err != nil {
			firstErr = fmt.Errorf("handle game %s: %w", res.Summary.GameID, err)
			cancel()
		}
	}
	if firstErr != nil {
		return stats, firstErr
	}
	return stats, parent.Err()
}

func playOne(ctx context.Context, workerID int, cfg EvalConfig, sel policy.Selector, i int) (Result, bool) {
	seed := cfg.BaseSeed + int64(i)
	rng := rand.New(rand.NewSource(seed))
	g := rules.NewGame(rng, uint64(seed))

	r := NewRunner(g, sel)
	r.MaxSteps = cfg.MaxSteps
	if cfg.MaxSteps <= 0 {
		// Unattended games are always bounded.
		r.MaxSteps = defaultStepLimit
	}
	sum, ticks := r.Run(ctx)
	if sum.Reason == ReasonCancelled {
		return Result{}, false
	}
	return Result{Worker: workerID, Summary: sum, Ticks: ticks}, true
}

// defaultStepLimit bounds unattended games.
const defaultStepLimit = 100 * game.MaxSnakeLength

// TickRows converts a trace to storable rows.
func TickRows(gameID, source string, ticks []Tick) []store.TickRow {
	rows := make([]store.TickRow, 0, len(ticks))
	for _, t := range ticks {
		rows = append(rows, store.TickRow{
			GameID:      gameID,
			Step:        int32(t.Step),
			State:       int32(t.State),
			Action:      int32(t.Action),
			Scores:      append([]float32(nil), t.Scores[:]...),
			Reward:      int32(t.Reward),
			TotalReward: int32(t.Total),
			Length:      int32(t.Length),
			HeadX:       int32(t.Head.X),
			HeadY:       int32(t.Head.Y),
			FoodX:       int32(t.Food.X),
			FoodY:       int32(t.Food.Y),
			GameOver:    t.GameOver,
			Source:      source,
		})
	}
	return rows
}

// GameResult converts a summary to a ledger row.
func (s Summary) GameResult(table string) store.GameResult {
	return store.GameResult{
		ID:          s.GameID,
		Seed:        s.Seed,
		Table:       table,
		Steps:       s.Steps,
		TotalReward: s.TotalReward,
		FinalLength: s.FinalLength,
		Reason:      s.Reason,
		StartedAt:   s.Started,
		FinishedAt:  s.Finished,
	}
}
