// Package game defines the core game state types for the 8x8 snake.
//
// The board is a cache derived from the snake and the food; the snake is a
// fixed-capacity arena sized to the board so it never needs to grow its
// backing storage. All types are plain values and cheap to copy.
package game

import "math/rand"

const (
	Width  = 8
	Height = 8

	// MaxSnakeLength is the number of cells on the board.
	MaxSnakeLength = Width * Height
)

// Coord is a board coordinate. (0,0) is the top-left cell; Y grows downward.
type Coord struct {
	X uint8
	Y uint8
}

// Inside reports whether (x, y) lies on the board. It takes ints so callers can
// test positions that stepped off the low edge.
func Inside(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}

// Cell is the tag stored in each board square.
type Cell uint8

const (
	Empty Cell = 0
	Body  Cell = 1
	Head  Cell = 2
	Food  Cell = 3
)

func (c Cell) String() string {
	switch c {
	case Empty:
		return "empty"
	case Body:
		return "body"
	case Head:
		return "head"
	case Food:
		return "food"
	default:
		return "unknown"
	}
}

// Board is indexed [y][x].
type Board [Height][Width]Cell

func (b *Board) At(c Coord) Cell {
	return b[c.Y][c.X]
}

func (b *Board) Set(c Coord, v Cell) {
	b[c.Y][c.X] = v
}

func (b *Board) Clear() {
	*b = Board{}
}

// Count returns how many squares carry the given tag.
func (b *Board) Count(v Cell) int {
	n := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if b[y][x] == v {
				n++
			}
		}
	}
	return n
}

// Snake keeps its segments in a fixed array; only Segments[:Length] is live.
// Segments[0] is the head.
type Snake struct {
	Segments [MaxSnakeLength]Coord
	Length   uint8
}

func (s *Snake) Head() Coord {
	return s.Segments[0]
}

func (s *Snake) Tail() Coord {
	return s.Segments[s.Length-1]
}

// Slice returns the occupied prefix. It aliases the snake's storage.
func (s *Snake) Slice() []Coord {
	return s.Segments[:s.Length]
}

func (s *Snake) Contains(c Coord) bool {
	for _, p := range s.Slice() {
		if p == c {
			return true
		}
	}
	return false
}

// ShiftForward moves every segment into its predecessor's slot and puts next
// at the head. It returns the tail as it was before the shift.
func (s *Snake) ShiftForward(next Coord) Coord {
	oldTail := s.Tail()
	for i := int(s.Length) - 1; i > 0; i-- {
		s.Segments[i] = s.Segments[i-1]
	}
	s.Segments[0] = next
	return oldTail
}

// Grow extends the snake by one, restoring oldTail in the new last slot.
// It must run after ShiftForward so the vacated tail is kept.
func (s *Snake) Grow(oldTail Coord) {
	if int(s.Length) >= MaxSnakeLength {
		return
	}
	s.Length++
	s.Segments[s.Length-1] = oldTail
}

// Status is the resolver state of a Game.
type Status uint8

const (
	Running Status = iota
	Terminated
)

func (s Status) String() string {
	if s == Terminated {
		return "terminated"
	}
	return "running"
}

// Game is the complete single-snake state. The perception bits are kept as
// eight flags: 0..3 blocked per direction, 4..7 food per direction.
//
// Rng drives food placement. When it is nil, placement is derived from Seed
// and the number of spawns so far.
type Game struct {
	Board  Board
	Snake  Snake
	Food   Coord
	State  [8]bool
	Status Status

	Rng    *rand.Rand
	Seed   uint64
	Spawns uint64
}

// PlaceFood spawns food on an empty square and records it.
func (g *Game) PlaceFood() bool {
	c, ok := SpawnFood(&g.Board, g.Rng, g.Seed^g.Spawns<<20)
	if !ok {
		return false
	}
	g.Food = c
	g.Spawns++
	return true
}

// RebuildBody clears every head/body tag and re-tags from the snake segments.
// Food and empty squares are left alone.
func (g *Game) RebuildBody() {
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if g.Board[y][x] == Head || g.Board[y][x] == Body {
				g.Board[y][x] = Empty
			}
		}
	}
	for i, s := range g.Snake.Slice() {
		if i == 0 {
			g.Board.Set(s, Head)
		} else {
			g.Board.Set(s, Body)
		}
	}
}

// Clone returns an independent copy of the board and snake. The Rng pointer
// is shared.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}
