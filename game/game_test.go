package game

import (
	"math/rand"
	"testing"
)

func TestInside(t *testing.T) {
	cases := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{7, 7, true},
		{-1, 0, false},
		{0, -1, false},
		{8, 3, false},
		{3, 8, false},
	}
	for _, tc := range cases {
		if got := Inside(tc.x, tc.y); got != tc.want {
			t.Fatalf("Inside(%d,%d)=%v want=%v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestSnake_ShiftForwardThenGrow(t *testing.T) {
	var s Snake
	s.Length = 3
	s.Segments[0] = Coord{X: 3, Y: 3}
	s.Segments[1] = Coord{X: 3, Y: 4}
	s.Segments[2] = Coord{X: 3, Y: 5}

	oldTail := s.ShiftForward(Coord{X: 3, Y: 2})
	if oldTail != (Coord{X: 3, Y: 5}) {
		t.Fatalf("old tail=%v want=(3,5)", oldTail)
	}
	s.Grow(oldTail)

	want := []Coord{{3, 2}, {3, 3}, {3, 4}, {3, 5}}
	got := s.Slice()
	if len(got) != len(want) {
		t.Fatalf("len=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment[%d]=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestSnake_GrowStopsAtCapacity(t *testing.T) {
	var s Snake
	s.Length = MaxSnakeLength
	s.Grow(Coord{})
	if int(s.Length) != MaxSnakeLength {
		t.Fatalf("length=%d want=%d", s.Length, MaxSnakeLength)
	}
}

func TestGame_RebuildBodyKeepsFood(t *testing.T) {
	g := &Game{}
	g.Snake.Length = 2
	g.Snake.Segments[0] = Coord{X: 1, Y: 1}
	g.Snake.Segments[1] = Coord{X: 1, Y: 2}
	g.Food = Coord{X: 6, Y: 6}
	g.Board.Set(g.Food, Food)
	// Stale tags from a previous tick.
	g.Board.Set(Coord{X: 5, Y: 5}, Head)
	g.Board.Set(Coord{X: 5, Y: 4}, Body)

	g.RebuildBody()

	if g.Board.At(Coord{X: 5, Y: 5}) != Empty || g.Board.At(Coord{X: 5, Y: 4}) != Empty {
		t.Fatalf("stale tags survived rebuild")
	}
	if g.Board.At(Coord{X: 1, Y: 1}) != Head || g.Board.At(Coord{X: 1, Y: 2}) != Body {
		t.Fatalf("snake not re-tagged")
	}
	if g.Board.At(g.Food) != Food {
		t.Fatalf("food tag lost")
	}
}

func TestGame_CloneIsIndependent(t *testing.T) {
	g := &Game{}
	g.Snake.Length = 1
	clone := g.Clone()
	clone.Snake.Length = 5
	clone.Board.Set(Coord{X: 2, Y: 2}, Body)

	if g.Snake.Length != 1 || g.Board.At(Coord{X: 2, Y: 2}) != Empty {
		t.Fatalf("clone shares state with original")
	}
}

func TestSpawnFood_AvoidsOccupiedSquares(t *testing.T) {
	var b Board
	// Leave a single empty square.
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			b[y][x] = Body
		}
	}
	b[0][0] = Head
	b[6][3] = Empty

	c, ok := SpawnFood(&b, rand.New(rand.NewSource(3)), 0)
	if !ok {
		t.Fatalf("expected a spawn")
	}
	if c != (Coord{X: 3, Y: 6}) {
		t.Fatalf("food=%v want=(3,6)", c)
	}
	if b.At(c) != Food {
		t.Fatalf("spawned square not tagged")
	}

	c, ok = SpawnFood(&b, nil, 11)
	if ok {
		t.Fatalf("full board should not spawn, got %v", c)
	}
}

func TestSpawnFood_DeterministicWithoutRng(t *testing.T) {
	var a, b Board
	ca, _ := SpawnFood(&a, nil, 1234)
	cb, _ := SpawnFood(&b, nil, 1234)
	if ca != cb {
		t.Fatalf("same salt gave %v and %v", ca, cb)
	}
}

func TestSpawnFood_CoversTheBoard(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	hits := make(map[Coord]int)
	for i := 0; i < 5000; i++ {
		var b Board
		b.Set(Coord{X: 4, Y: 4}, Head)
		c, _ := SpawnFood(&b, rng, 0)
		if c == (Coord{X: 4, Y: 4}) {
			t.Fatalf("spawned on head")
		}
		hits[c]++
	}
	if len(hits) != MaxSnakeLength-1 {
		t.Fatalf("spawned on %d distinct squares, want %d", len(hits), MaxSnakeLength-1)
	}
}
