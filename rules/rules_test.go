package rules

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/brensch/snek8/game"
)

func dumpGame(g *game.Game) string {
	if g == nil {
		return "<nil game>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status=%s Len=%d Food=(%d,%d) State=%d\n", g.Status, g.Snake.Length, g.Food.X, g.Food.Y, Perception(g.State).Index())
	b.WriteString("Body:")
	for _, p := range g.Snake.Slice() {
		fmt.Fprintf(&b, " (%d,%d)", p.X, p.Y)
	}
	b.WriteString("\nBoard:\n")
	for y := 0; y < game.Height; y++ {
		for x := 0; x < game.Width; x++ {
			switch g.Board[y][x] {
			case game.Head:
				b.WriteByte('H')
			case game.Body:
				b.WriteByte('o')
			case game.Food:
				b.WriteByte('*')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func logMove(t *testing.T, label string, before *game.Game, move int, after *game.Game) {
	t.Helper()
	t.Logf("%s\n  BEFORE (move=%s):\n%s  AFTER:\n%s", label, MoveName(move), dumpGame(before), dumpGame(after))
}

func coords(pairs ...uint8) []game.Coord {
	out := make([]game.Coord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, game.Coord{X: pairs[i], Y: pairs[i+1]})
	}
	return out
}

func TestNewGame_CentreAndFood(t *testing.T) {
	g := NewGame(rand.New(rand.NewSource(7)), 0)

	if g.Snake.Length != 1 {
		t.Fatalf("length=%d want=1", g.Snake.Length)
	}
	if head := g.Snake.Head(); head != (game.Coord{X: 4, Y: 4}) {
		t.Fatalf("head=%v want=(4,4)", head)
	}
	if g.Board.At(g.Snake.Head()) != game.Head {
		t.Fatalf("head square not tagged")
	}
	if g.Food == g.Snake.Head() {
		t.Fatalf("food spawned on head")
	}
	if n := g.Board.Count(game.Food); n != 1 {
		t.Fatalf("food squares=%d want=1", n)
	}
	if g.Status != game.Running {
		t.Fatalf("status=%s want=running", g.Status)
	}
	if Perception(g.State) != Encode(g.Snake.Head(), g.Food, &g.Board) {
		t.Fatalf("initial state not encoded")
	}
}

func TestNewGame_NilRngIsDeterministic(t *testing.T) {
	a := NewGame(nil, 42)
	b := NewGame(nil, 42)
	if a.Food != b.Food {
		t.Fatalf("food differs for same seed: %v vs %v", a.Food, b.Food)
	}
}

func TestMakeMove_EatFood_Grows(t *testing.T) {
	before := Setup(coords(4, 4), game.Coord{X: 4, Y: 3})
	before.Rng = rand.New(rand.NewSource(1))
	after := before.Clone()

	res := MakeMove(after, MoveUp)
	logMove(t, "eat food", before, MoveUp, after)

	if res.GameOver {
		t.Fatalf("unexpected game over")
	}
	if res.NewLength != 2 || res.Reward != RewardFood {
		t.Fatalf("result=%+v want NewLength=2 Reward=2", res)
	}
	if head := after.Snake.Head(); head != (game.Coord{X: 4, Y: 3}) {
		t.Fatalf("head=%v want=(4,3)", head)
	}
	if tail := after.Snake.Tail(); tail != (game.Coord{X: 4, Y: 4}) {
		t.Fatalf("tail=%v want=(4,4)", tail)
	}
	if after.Board.At(game.Coord{X: 4, Y: 4}) != game.Body {
		t.Fatalf("old head square should be body")
	}
	if after.Snake.Contains(after.Food) {
		t.Fatalf("respawned food %v lies on snake", after.Food)
	}
	if n := after.Board.Count(game.Food); n != 1 {
		t.Fatalf("food squares=%d want=1", n)
	}
}

func TestMakeMove_OffBoard_Terminates(t *testing.T) {
	g := Setup(coords(0, 0, 1, 0, 2, 0), game.Coord{X: 5, Y: 5})
	boardBefore := g.Board

	res := MakeMove(g, MoveLeft)

	want := MoveResult{GameOver: true, Reward: -2, NewLength: 3}
	if res != want {
		t.Fatalf("result=%+v want=%+v", res, want)
	}
	if g.Status != game.Terminated {
		t.Fatalf("status=%s want=terminated", g.Status)
	}
	if g.Board != boardBefore {
		t.Fatalf("board changed on terminating move")
	}
}

func TestMakeMove_SelfCollision_BoardUnchanged(t *testing.T) {
	// Head at (2,2) with its body curling round underneath it.
	before := Setup(coords(2, 2, 3, 2, 3, 3, 2, 3, 1, 3), game.Coord{X: 6, Y: 6})
	after := before.Clone()

	res := MakeMove(after, MoveDown)
	logMove(t, "self collision", before, MoveDown, after)

	if !res.GameOver || res.Reward != RewardDeath || res.NewLength != 5 {
		t.Fatalf("result=%+v want game over, -2, 5", res)
	}
	if after.Board != before.Board {
		t.Fatalf("board changed on terminating move")
	}
	if after.Snake != before.Snake || after.Food != before.Food || after.State != before.State {
		t.Fatalf("game state changed on terminating move")
	}
}

func TestMakeMove_TailSquareIsBlocked(t *testing.T) {
	// A 2x2 loop: the tail is still tagged body when the head would enter it.
	g := Setup(coords(1, 1, 2, 1, 2, 2, 1, 2), game.Coord{X: 6, Y: 6})

	res := MakeMove(g, MoveDown)
	if !res.GameOver {
		t.Fatalf("moving into the tail square should end the game:\n%s", dumpGame(g))
	}
}

func TestMakeMove_RewardUsesPreMoveState(t *testing.T) {
	// Food up and to the right. Moving right aligns the head with the food, so
	// the post-move right bit is clear but the pre-move one was set.
	g := Setup(coords(4, 4), game.Coord{X: 5, Y: 2})
	if !Perception(g.State).FoodToward(MoveRight) {
		t.Fatalf("precondition: right food bit should be set")
	}

	res := MakeMove(g, MoveRight)
	if res.GameOver || res.Reward != RewardAligned {
		t.Fatalf("result=%+v want reward 1", res)
	}
	if Perception(g.State).FoodToward(MoveRight) {
		t.Fatalf("post-move right bit should be clear once aligned")
	}
	if res.NewLength != 1 {
		t.Fatalf("new length=%d want=1", res.NewLength)
	}
}

func TestMakeMove_RewardZeroWhenBitClear(t *testing.T) {
	g := Setup(coords(4, 4), game.Coord{X: 4, Y: 0})
	if Perception(g.State).FoodToward(MoveRight) {
		t.Fatalf("precondition: right food bit should be clear")
	}

	res := MakeMove(g, MoveRight)
	if res.GameOver || res.Reward != RewardNone {
		t.Fatalf("result=%+v want reward 0", res)
	}

	g = Setup(coords(4, 4), game.Coord{X: 4, Y: 0})
	res = MakeMove(g, MoveUp)
	if res.Reward != RewardAligned {
		t.Fatalf("moving toward food: reward=%d want=1", res.Reward)
	}
}

func TestMakeMove_NonFoodMoveClearsTail(t *testing.T) {
	before := Setup(coords(3, 3, 3, 4, 3, 5), game.Coord{X: 0, Y: 0})
	after := before.Clone()

	MakeMove(after, MoveRight)
	logMove(t, "plain move", before, MoveRight, after)

	want := coords(4, 3, 3, 3, 3, 4)
	got := after.Snake.Slice()
	if len(got) != len(want) {
		t.Fatalf("len=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment[%d]=%v want=%v", i, got[i], want[i])
		}
	}
	if after.Board.At(game.Coord{X: 3, Y: 5}) != game.Empty {
		t.Fatalf("vacated tail square should be empty")
	}
	if n := after.Board.Count(game.Body); n != 2 {
		t.Fatalf("body squares=%d want=2", n)
	}
}

func TestMakeMove_AfterTerminationIsInert(t *testing.T) {
	g := Setup(coords(0, 0), game.Coord{X: 5, Y: 5})
	MakeMove(g, MoveUp)
	if g.Status != game.Terminated {
		t.Fatalf("expected termination")
	}
	snapshot := *g

	res := MakeMove(g, MoveDown)
	if !res.GameOver || res.Reward != RewardDeath {
		t.Fatalf("result=%+v want game over", res)
	}
	if g.Board != snapshot.Board || g.Snake != snapshot.Snake {
		t.Fatalf("terminated game was mutated")
	}
}

func TestMakeMove_FillingTheBoardEndsTheGame(t *testing.T) {
	// Boustrophedon path over every square; the last square holds food.
	path := make([]game.Coord, 0, game.MaxSnakeLength)
	for y := 0; y < game.Height; y++ {
		for i := 0; i < game.Width; i++ {
			x := i
			if y%2 == 1 {
				x = game.Width - 1 - i
			}
			path = append(path, game.Coord{X: uint8(x), Y: uint8(y)})
		}
	}
	food := path[len(path)-1]
	segments := make([]game.Coord, 0, game.MaxSnakeLength-1)
	for i := len(path) - 2; i >= 0; i-- {
		segments = append(segments, path[i])
	}
	g := Setup(segments, food)

	res := MakeMove(g, MoveLeft)
	if !res.GameOver || res.Reward != RewardFood || res.NewLength != game.MaxSnakeLength {
		t.Fatalf("result=%+v want game over with full snake", res)
	}
	if n := g.Board.Count(game.Empty); n != 0 {
		t.Fatalf("empty squares=%d want=0", n)
	}
}

func TestLegalMoves(t *testing.T) {
	g := Setup(coords(0, 0, 1, 0), game.Coord{X: 5, Y: 5})
	got := LegalMoves(g)
	if len(got) != 1 || got[0] != MoveDown {
		t.Fatalf("legal=%v want=[%d]", got, MoveDown)
	}
}

func TestInvariants_RandomPlay(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for gameNo := 0; gameNo < 200; gameNo++ {
		g := NewGame(rand.New(rand.NewSource(int64(gameNo))), 0)
		for step := 0; step < 500 && g.Status == game.Running; step++ {
			moves := LegalMoves(g)
			dir := rng.Intn(NumMoves)
			if len(moves) > 0 {
				dir = moves[rng.Intn(len(moves))]
			}
			prevLen := int(g.Snake.Length)
			res := MakeMove(g, dir)

			if res.NewLength < prevLen {
				t.Fatalf("game %d step %d: length shrank %d -> %d", gameNo, step, prevLen, res.NewLength)
			}
			checkInvariants(t, g)
		}
	}
}

func checkInvariants(t *testing.T, g *game.Game) {
	t.Helper()
	if g.Snake.Length < 1 || int(g.Snake.Length) > game.MaxSnakeLength {
		t.Fatalf("length %d out of range\n%s", g.Snake.Length, dumpGame(g))
	}
	seen := make(map[game.Coord]bool, g.Snake.Length)
	for _, s := range g.Snake.Slice() {
		if !game.Inside(int(s.X), int(s.Y)) {
			t.Fatalf("segment %v off board\n%s", s, dumpGame(g))
		}
		if seen[s] {
			t.Fatalf("duplicate segment %v\n%s", s, dumpGame(g))
		}
		seen[s] = true
	}
	if g.Status != game.Running {
		return
	}
	if n := g.Board.Count(game.Food); n != 1 {
		t.Fatalf("food squares=%d want=1\n%s", n, dumpGame(g))
	}
	if seen[g.Food] {
		t.Fatalf("food %v on snake\n%s", g.Food, dumpGame(g))
	}
	if n := g.Board.Count(game.Head); n != 1 {
		t.Fatalf("head squares=%d want=1\n%s", n, dumpGame(g))
	}
	if n := g.Board.Count(game.Body); n != int(g.Snake.Length)-1 {
		t.Fatalf("body squares=%d want=%d\n%s", n, g.Snake.Length-1, dumpGame(g))
	}
}
