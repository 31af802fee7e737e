// Package policy holds the precomputed decision table and the action
// selector that reads it.
//
// A Table maps each of the 256 perception states to four scores in direction
// order Up, Right, Down, Left. Tables are read-only once loaded and are passed
// to whoever needs them; there is no package-level table.
package policy

import (
	"errors"

	"github.com/brensch/snek8/rules"
)

// ErrBadTable is wrapped by every loader when the input does not describe
// exactly 256 rows of 4 scores.
var ErrBadTable = errors.New("policy: malformed decision table")

// Table is indexed [state][direction].
type Table [rules.NumStates][rules.NumMoves]float32

// Scores returns the row for state. state must be in [0,255].
func (t *Table) Scores(state int) [rules.NumMoves]float32 {
	return t[state]
}

// Best returns the selected direction for state.
func (t *Table) Best(state int) int {
	return SelectAction(t[state])
}

// Select implements Selector.
func (t *Table) Select(p rules.Perception) int {
	return t.Best(p.Index())
}

// SelectAction returns the index of the highest score. The first index wins
// ties.
func SelectAction(scores [rules.NumMoves]float32) int {
	best := 0
	maxVal := scores[0]
	for i := 1; i < len(scores); i++ {
		if scores[i] > maxVal {
			maxVal = scores[i]
			best = i
		}
	}
	return best
}

// Selector picks a direction for a perception state.
type Selector interface {
	Select(p rules.Perception) int
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(p rules.Perception) int

func (f SelectorFunc) Select(p rules.Perception) int { return f(p) }

// Scorer exposes raw scores for status output. *Table implements it.
type Scorer interface {
	Scores(state int) [rules.NumMoves]float32
}
