package render

import (
	"io"
	"log/slog"
	"sync"

	"github.com/brensch/snek8/game"
)

// Status receives human-readable diagnostic lines. Implementations swallow
// their own failures.
type Status interface {
	Emit(line string)
}

// Renderer paints a board once per tick.
type Renderer interface {
	Render(b game.Board)
}

// LineWriter writes each line followed by CRLF, like a serial console.
type LineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

func (l *LineWriter) Emit(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line+"\r\n")
}

// LogStatus forwards lines to a structured logger at Info.
type LogStatus struct {
	Logger *slog.Logger
}

func (s LogStatus) Emit(line string) {
	s.Logger.Info(line)
}

// Discard drops everything. It satisfies both Status and Renderer.
type Discard struct{}

func (Discard) Emit(string)       {}
func (Discard) Render(game.Board) {}

// MultiStatus fans a line out to several sinks.
type MultiStatus []Status

func (m MultiStatus) Emit(line string) {
	for _, s := range m {
		s.Emit(line)
	}
}

// MultiRenderer fans a frame out to several renderers.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(b game.Board) {
	for _, r := range m {
		r.Render(b)
	}
}
