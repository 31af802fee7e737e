package viewer

import (
	"time"

	"github.com/brensch/snek8/store"
)

// GameJSON is a ledger row as served by /api/results.
type GameJSON struct {
	ID          string    `json:"id"`
	Seed        uint64    `json:"seed"`
	Table       string    `json:"table"`
	Steps       int       `json:"steps"`
	TotalReward int       `json:"total_reward"`
	FinalLength int       `json:"final_length"`
	Reason      string    `json:"reason"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
}

type ResultsResponse struct {
	Games []GameJSON `json:"games"`
}

type SummaryResponse struct {
	Games     int64   `json:"games"`
	MeanScore float64 `json:"mean_score"`
	MaxScore  int64   `json:"max_score"`
	MaxLength int64   `json:"max_length"`
}

type TracesResponse struct {
	Files []string `json:"files"`
}

// TickJSON is one trace row. Scores are ordered up, right, down, left.
type TickJSON struct {
	GameID   string    `json:"game_id"`
	Step     int32     `json:"step"`
	State    int32     `json:"state"`
	Action   int32     `json:"action"`
	Scores   []float32 `json:"scores"`
	Reward   int32     `json:"reward"`
	Total    int32     `json:"total"`
	Length   int32     `json:"length"`
	Head     Point     `json:"head"`
	Food     Point     `json:"food"`
	GameOver bool      `json:"game_over"`
}

type TraceResponse struct {
	File  string     `json:"file"`
	Ticks []TickJSON `json:"ticks"`
}

// Point is a board coordinate.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func gameJSON(g store.GameResult) GameJSON {
	return GameJSON{
		ID:          g.ID,
		Seed:        g.Seed,
		Table:       g.Table,
		Steps:       g.Steps,
		TotalReward: g.TotalReward,
		FinalLength: g.FinalLength,
		Reason:      g.Reason,
		StartedAt:   g.StartedAt.UTC(),
		DurationMs:  g.Duration().Milliseconds(),
	}
}

func tickJSON(r store.TickRow) TickJSON {
	return TickJSON{
		GameID:   r.GameID,
		Step:     r.Step,
		State:    r.State,
		Action:   r.Action,
		Scores:   r.Scores,
		Reward:   r.Reward,
		Total:    r.TotalReward,
		Length:   r.Length,
		Head:     Point{X: r.HeadX, Y: r.HeadY},
		Food:     Point{X: r.FoodX, Y: r.FoodY},
		GameOver: r.GameOver,
	}
}
