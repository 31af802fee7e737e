// food.go implements food placement by rejection sampling.

package game

import (
	"math/rand"
)

// SpawnFood samples uniformly random squares until it finds an empty one, tags
// it as food and returns it. ok is false only when the board has no empty
// square left, in which case the board is not touched.
//
// If rng is nil, we use deterministic pseudo-random logic keyed by salt.
func SpawnFood(b *Board, rng *rand.Rand, salt uint64) (Coord, bool) {
	if b.Count(Empty) == 0 {
		return Coord{}, false
	}

	for attempt := uint64(0); ; attempt++ {
		var x, y int
		if rng != nil {
			x = rng.Intn(Width)
			y = rng.Intn(Height)
		} else {
			h := deterministicU64Fast(attempt, salt)
			x = int(h % Width)
			y = int((h >> 32) % Height)
		}
		c := Coord{X: uint8(x), Y: uint8(y)}
		if b.At(c) == Empty {
			b.Set(c, Food)
			return c, true
		}
	}
}

// deterministicU64Fast is a simple deterministic hasher for reproducibility.
func deterministicU64Fast(a, b uint64) uint64 {
	// Variant of splitmix64
	x := a + b*0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
