// Package render holds the output collaborators of the game loop: the ASCII
// board dump, line-oriented status sinks, the terminal UI and the websocket
// spectator hub. None of them feed anything back into the game.
package render

import (
	"fmt"
	"strings"

	"github.com/brensch/snek8/game"
	"github.com/brensch/snek8/rules"
)

const frameRule = "+--------+"

// Glyph is the single character used for a cell in text output.
func Glyph(c game.Cell) byte {
	switch c {
	case game.Head:
		return 'H'
	case game.Body:
		return 'O'
	case game.Food:
		return '*'
	default:
		return ' '
	}
}

// Rows returns the board as one string per row, top row first.
func Rows(b *game.Board) []string {
	rows := make([]string, game.Height)
	var row [game.Width]byte
	for y := 0; y < game.Height; y++ {
		for x := 0; x < game.Width; x++ {
			row[x] = Glyph(b[y][x])
		}
		rows[y] = string(row[:])
	}
	return rows
}

// BoardLines frames the board rows for status output.
func BoardLines(b *game.Board) []string {
	lines := make([]string, 0, game.Height+2)
	lines = append(lines, frameRule)
	for _, r := range Rows(b) {
		lines = append(lines, "|"+r+"|")
	}
	lines = append(lines, frameRule)
	return lines
}

// StateLines describes a perception the way the board dump reports it.
func StateLines(p rules.Perception) []string {
	return []string{
		fmt.Sprintf("State: %d", p.Index()),
		"Direction bits: " + p.DirectionBits(),
		"Food bits: " + p.FoodBits(),
	}
}

func QValuesLine(q [rules.NumMoves]float32) string {
	return fmt.Sprintf("Q-values: Up: %.2f, Right: %.2f, Down: %.2f, Left: %.2f", q[0], q[1], q[2], q[3])
}

func ActionLine(step int, dir int) string {
	return fmt.Sprintf("Step %d: Chose action: %s", step, rules.MoveName(dir))
}

func RewardLine(reward, total, length int) string {
	return fmt.Sprintf("Reward: %d, Total: %d, Snake Length: %d", reward, total, length)
}

func GameOverLines(total, steps int) []string {
	return []string{"GAME OVER!", fmt.Sprintf("Final score: %d, Steps: %d", total, steps)}
}

// Dump renders a whole game for logs and tests.
func Dump(g *game.Game) string {
	var sb strings.Builder
	for _, l := range BoardLines(&g.Board) {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	for _, l := range StateLines(rules.Perception(g.State)) {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String()
}
