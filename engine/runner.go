// Package engine drives games: one tick at a time for a single watched game,
// or many games at once on a worker pool for evaluation.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snek8/game"
	"github.com/brensch/snek8/policy"
	"github.com/brensch/snek8/render"
	"github.com/brensch/snek8/rules"
)

// Reasons a game stopped.
const (
	ReasonCollision     = "collision"
	ReasonBoardFull     = "board_full"
	ReasonStepLimit     = "step_limit"
	ReasonCancelled     = "cancelled"
	ReasonInvalidAction = "invalid_action"
)

const banner = "Snake Game with Q-learning AI"

// Tick records one resolved step. State, Action and Scores describe the
// decision; the remaining fields describe the game after the move.
type Tick struct {
	Step     int
	State    int
	Action   int
	Scores   [rules.NumMoves]float32
	Reward   int
	Total    int
	Length   int
	GameOver bool
	Head     game.Coord
	Food     game.Coord
}

// Summary describes a finished (or abandoned) game.
type Summary struct {
	GameID      string
	Seed        uint64
	Steps       int
	TotalReward int
	FinalLength int
	Reason      string
	Started     time.Time
	Finished    time.Time
}

// Runner owns one game and advances it tick by tick. It is not safe for
// concurrent use; exactly one goroutine should drive it.
type Runner struct {
	Game     *game.Game
	Selector policy.Selector
	// Scorer supplies the Q-values printed before each decision. When nil and
	// Selector is also a Scorer, the selector is used.
	Scorer   policy.Scorer
	Renderer render.Renderer
	Status   render.Status

	// Pace is slept between ticks in Run.
	Pace     time.Duration
	// MaxSteps stops Run after that many ticks. Zero means no limit.
	MaxSteps int

	GameID string

	started   time.Time
	announced bool
	steps     int
	total     int
	reason    string
	ticks     []Tick
}

// NewRunner wires a runner for g with no-op sinks and a fresh game ID.
func NewRunner(g *game.Game, sel policy.Selector) *Runner {
	r := &Runner{
		Game:     g,
		Selector: sel,
		Renderer: render.Discard{},
		Status:   render.Discard{},
		GameID:   uuid.NewString(),
	}
	if s, ok := sel.(policy.Scorer); ok {
		r.Scorer = s
	}
	return r
}

func (r *Runner) emit(lines ...string) {
	if r.Status == nil {
		return
	}
	for _, l := range lines {
		r.Status.Emit(l)
	}
}

func (r *Runner) scorer() policy.Scorer {
	if r.Scorer != nil {
		return r.Scorer
	}
	if s, ok := r.Selector.(policy.Scorer); ok {
		return s
	}
	return nil
}

// Start prints the banner and the initial board. Run calls it if needed.
func (r *Runner) Start() {
	if r.announced {
		return
	}
	r.announced = true
	r.started = time.Now()
	if r.GameID == "" {
		r.GameID = uuid.NewString()
	}
	r.emit(banner, "Game initialized")
	r.emit(render.BoardLines(&r.Game.Board)...)
	r.emit(render.StateLines(rules.Perception(r.Game.State))...)
	if r.Renderer != nil {
		r.Renderer.Render(r.Game.Board)
	}
}

// Done reports whether the game has stopped.
func (r *Runner) Done() bool {
	return r.reason != ""
}

// Ticks returns the trace recorded so far. It aliases the runner's storage.
func (r *Runner) Ticks() []Tick {
	return r.ticks
}

// Step runs one tick: encode, select, resolve, render. It returns the tick and
// whether the game is over. Calling Step after the game ended returns the
// zero Tick and true.
func (r *Runner) Step() (Tick, bool) {
	r.Start()
	if r.Done() {
		return Tick{}, true
	}

	g := r.Game
	p := rules.Perception(g.State)
	state := p.Index()

	var scores [rules.NumMoves]float32
	if sc := r.scorer(); sc != nil {
		scores = sc.Scores(state)
		r.emit(render.QValuesLine(scores))
	}

	dir := r.Selector.Select(p)
	if !rules.ValidDirection(dir) {
		r.reason = ReasonInvalidAction
		r.emit(fmt.Sprintf("Invalid action from policy: %d", dir))
		r.emit(render.GameOverLines(r.total, r.steps)...)
		return Tick{}, true
	}
	r.emit(render.ActionLine(r.steps+1, dir))

	res := rules.MakeMove(g, dir)
	if r.Renderer != nil {
		r.Renderer.Render(g.Board)
	}
	r.emit(render.BoardLines(&g.Board)...)
	r.emit(render.StateLines(rules.Perception(g.State))...)

	r.total += res.Reward
	r.steps++
	r.emit(render.RewardLine(res.Reward, r.total, res.NewLength))

	t := Tick{
		Step:     r.steps,
		State:    state,
		Action:   dir,
		Scores:   scores,
		Reward:   res.Reward,
		Total:    r.total,
		Length:   res.NewLength,
		GameOver: res.GameOver,
		Head:     g.Snake.Head(),
		Food:     g.Food,
	}
	r.ticks = append(r.ticks, t)

	if res.GameOver {
		r.reason = ReasonCollision
		if res.NewLength >= game.MaxSnakeLength {
			r.reason = ReasonBoardFull
		}
		r.emit("")
		r.emit(render.GameOverLines(r.total, r.steps)...)
		return t, true
	}
	if r.MaxSteps > 0 && r.steps >= r.MaxSteps {
		r.reason = ReasonStepLimit
		return t, true
	}
	return t, false
}

// Run steps until the game ends, the step limit is hit or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Summary, []Tick) {
	r.Start()
	for !r.Done() {
		select {
		case <-ctx.Done():
			r.reason = ReasonCancelled
			return r.Summary(), r.ticks
		default:
		}

		if _, done := r.Step(); done {
			break
		}

		if r.Pace > 0 {
			timer := time.NewTimer(r.Pace)
			select {
			case <-ctx.Done():
				timer.Stop()
				r.reason = ReasonCancelled
				return r.Summary(), r.ticks
			case <-timer.C:
			}
		}
	}
	return r.Summary(), r.ticks
}

// Summary reports the game so far. Reason is empty while the game is live.
func (r *Runner) Summary() Summary {
	return Summary{
		GameID:      r.GameID,
		Seed:        r.Game.Seed,
		Steps:       r.steps,
		TotalReward: r.total,
		FinalLength: int(r.Game.Snake.Length),
		Reason:      r.reason,
		Started:     r.started,
		Finished:    time.Now(),
	}
}
