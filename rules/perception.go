// perception.go derives the 8-bit state used to index the decision table.

package rules

import (
	"fmt"

	"github.com/brensch/snek8/game"
)

// NumStates is the number of distinct perception values.
const NumStates = 256

// Perception holds the eight state flags.
//
//	0..3  moving in direction i is blocked (wall or body)
//	4..7  food lies strictly in direction i from the head
type Perception [8]bool

// Encode computes the perception for head, food and board. It does not
// modify its inputs.
func Encode(head, food game.Coord, b *game.Board) Perception {
	var p Perception
	for dir := 0; dir < NumMoves; dir++ {
		x, y := Step(head, dir)
		p[dir] = !isValid(b, x, y)
	}
	// Both flags of an axis are clear when food and head are aligned on it.
	p[MoveUp+4] = food.Y < head.Y
	p[MoveRight+4] = food.X > head.X
	p[MoveDown+4] = food.Y > head.Y
	p[MoveLeft+4] = food.X < head.X
	return p
}

// Index packs the flags as sum(bit[i] << i).
func (p Perception) Index() int {
	idx := 0
	for i, b := range p {
		if b {
			idx |= 1 << i
		}
	}
	return idx
}

// PerceptionFromIndex is the inverse of Index. Values outside [0,255] are masked.
func PerceptionFromIndex(idx int) Perception {
	var p Perception
	for i := range p {
		p[i] = idx&(1<<i) != 0
	}
	return p
}

// Blocked reports whether moving in dir is flagged as a collision.
func (p Perception) Blocked(dir int) bool { return p[dir] }

// FoodToward reports whether food lies in dir.
func (p Perception) FoodToward(dir int) bool { return p[dir+4] }

// DirectionBits renders flags 0..3 as "dddd".
func (p Perception) DirectionBits() string {
	return fmt.Sprintf("%d%d%d%d", b2i(p[0]), b2i(p[1]), b2i(p[2]), b2i(p[3]))
}

// FoodBits renders flags 4..7 as "dddd".
func (p Perception) FoodBits() string {
	return fmt.Sprintf("%d%d%d%d", b2i(p[4]), b2i(p[5]), b2i(p[6]), b2i(p[7]))
}

// Floats returns the flags as 0/1 values, the layout model inputs expect.
func (p Perception) Floats() [8]float32 {
	var out [8]float32
	for i, b := range p {
		if b {
			out[i] = 1
		}
	}
	return out
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
