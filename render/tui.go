package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snek8/game"
)

const tuiLogLines = 12

type frameMsg game.Board

type lineMsg string

// TUI is a terminal renderer. Render and Emit never block: when the UI falls
// behind, frames and lines are dropped.
type TUI struct {
	msgs chan tea.Msg
}

func NewTUI() *TUI {
	return &TUI{msgs: make(chan tea.Msg, 64)}
}

func (t *TUI) Render(b game.Board) {
	select {
	case t.msgs <- frameMsg(b):
	default:
	}
}

func (t *TUI) Emit(line string) {
	select {
	case t.msgs <- lineMsg(line):
	default:
	}
}

// Run drives the terminal until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	p := tea.NewProgram(newTUIModel(t.msgs), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

type tuiModel struct {
	msgs   chan tea.Msg
	board  game.Board
	frames int
	lines  []string
}

func newTUIModel(msgs chan tea.Msg) tuiModel {
	return tuiModel{msgs: msgs}
}

func waitForMsg(msgs chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-msgs
	}
}

func (m tuiModel) Init() tea.Cmd {
	return waitForMsg(m.msgs)
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case frameMsg:
		m.board = game.Board(msg)
		m.frames++
		return m, waitForMsg(m.msgs)
	case lineMsg:
		m.lines = append(m.lines, string(msg))
		if len(m.lines) > tuiLogLines {
			m.lines = m.lines[len(m.lines)-tuiLogLines:]
		}
		return m, waitForMsg(m.msgs)
	}
	return m, nil
}

func (m tuiModel) View() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "snek8  frame %d\n\n", m.frames)
	for _, l := range BoardLines(&m.board) {
		sb.WriteString("  " + l + "\n")
	}
	sb.WriteString("\n")
	for _, l := range m.lines {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}
