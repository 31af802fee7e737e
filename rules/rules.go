package rules

import (
	"math/rand"

	"github.com/brensch/snek8/game"
)

const (
	MoveUp    = 0
	MoveRight = 1
	MoveDown  = 2
	MoveLeft  = 3
)

// NumMoves is the number of directions, and the width of a decision table row.
const NumMoves = 4

// Rewards returned by MakeMove.
const (
	RewardDeath   = -2
	RewardFood    = 2
	RewardAligned = 1
	RewardNone    = 0
)

var moveNames = [NumMoves]string{"UP", "RIGHT", "DOWN", "LEFT"}

// MoveName returns the upper-case direction name, or "?" when out of range.
func MoveName(dir int) string {
	if !ValidDirection(dir) {
		return "?"
	}
	return moveNames[dir]
}

// ValidDirection must be checked by callers before MakeMove.
func ValidDirection(dir int) bool {
	return dir >= 0 && dir < NumMoves
}

// MoveResult is the outcome of a single MakeMove call.
type MoveResult struct {
	GameOver  bool
	Reward    int
	NewLength int
}

// Step returns the position one square from c in dir. The result may be off
// the board, so it is returned as ints.
func Step(c game.Coord, dir int) (x, y int) {
	x, y = int(c.X), int(c.Y)
	switch dir {
	case MoveUp:
		y--
	case MoveRight:
		x++
	case MoveDown:
		y++
	case MoveLeft:
		x--
	}
	return x, y
}

// Next is Step narrowed to a board coordinate. ok is false when the step
// leaves the board.
func Next(c game.Coord, dir int) (game.Coord, bool) {
	x, y := Step(c, dir)
	if !game.Inside(x, y) {
		return game.Coord{}, false
	}
	return game.Coord{X: uint8(x), Y: uint8(y)}, true
}

// isValid reports whether (x, y) is on the board and not a body square.
// Head, food and empty squares are all enterable.
func isValid(b *game.Board, x, y int) bool {
	if !game.Inside(x, y) {
		return false
	}
	return b[y][x] != game.Body
}

// NewGame places a length-1 snake in the centre of the board, spawns food and
// computes the first perception. rng may be nil, in which case food placement
// is derived from seed.
func NewGame(rng *rand.Rand, seed uint64) *game.Game {
	g := &game.Game{Rng: rng, Seed: seed}
	g.Snake.Length = 1
	g.Snake.Segments[0] = game.Coord{X: game.Width / 2, Y: game.Height / 2}
	g.Board.Set(g.Snake.Head(), game.Head)
	g.PlaceFood()
	UpdateState(g)
	return g
}

// Setup builds a running game from explicit segments (head first) and food.
// It is meant for tests and replays; the caller is responsible for passing a
// position that could occur in play.
func Setup(segments []game.Coord, food game.Coord) *game.Game {
	g := &game.Game{}
	n := len(segments)
	if n > game.MaxSnakeLength {
		n = game.MaxSnakeLength
	}
	copy(g.Snake.Segments[:], segments[:n])
	g.Snake.Length = uint8(n)
	g.RebuildBody()
	g.Food = food
	g.Board.Set(food, game.Food)
	UpdateState(g)
	return g
}

// UpdateState recomputes the perception flags from the head, food and board.
func UpdateState(g *game.Game) {
	g.State = Encode(g.Snake.Head(), g.Food, &g.Board)
}

// LegalMoves returns the directions that would not end the game.
func LegalMoves(g *game.Game) []int {
	moves := make([]int, 0, NumMoves)
	head := g.Snake.Head()
	for dir := 0; dir < NumMoves; dir++ {
		x, y := Step(head, dir)
		if isValid(&g.Board, x, y) {
			moves = append(moves, dir)
		}
	}
	return moves
}

// MakeMove applies dir to the game in place.
//
// dir must satisfy ValidDirection. A move off the board or onto a body square
// terminates the game and leaves every other field untouched. A non-food move
// is rewarded from the perception computed before the move, not after.
func MakeMove(g *game.Game, dir int) MoveResult {
	result := MoveResult{GameOver: false, Reward: RewardDeath, NewLength: int(g.Snake.Length)}
	if g.Status == game.Terminated {
		result.GameOver = true
		return result
	}

	x, y := Step(g.Snake.Head(), dir)
	if !isValid(&g.Board, x, y) {
		result.GameOver = true
		g.Status = game.Terminated
		return result
	}
	next := game.Coord{X: uint8(x), Y: uint8(y)}

	isFood := next == g.Food

	oldTail := g.Snake.ShiftForward(next)

	if isFood {
		g.Snake.Grow(oldTail)
		result.Reward = RewardFood
		result.NewLength = int(g.Snake.Length)
	} else {
		g.Board.Set(oldTail, game.Empty)
		if g.State[dir+4] {
			result.Reward = RewardAligned
		} else {
			result.Reward = RewardNone
		}
	}

	g.RebuildBody()

	if isFood && !g.PlaceFood() {
		// The snake covers every square; there is nowhere left to go.
		result.GameOver = true
		g.Status = game.Terminated
	}

	UpdateState(g)
	return result
}
