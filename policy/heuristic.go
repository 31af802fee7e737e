package policy

import "github.com/brensch/snek8/rules"

// Heuristic builds a fixed table without any external data: blocked
// directions score -1, directions toward food score 1, the rest 0. It is the
// fallback when no table file is configured.
func Heuristic() *Table {
	t := &Table{}
	for state := 0; state < rules.NumStates; state++ {
		p := rules.PerceptionFromIndex(state)
		for dir := 0; dir < rules.NumMoves; dir++ {
			switch {
			case p.Blocked(dir):
				t[state][dir] = -1
			case p.FoodToward(dir):
				t[state][dir] = 1
			}
		}
	}
	return t
}
