// Package viewer serves a read-only view of a running game: a websocket feed
// of board frames, an HTML snapshot, and JSON over stored results and traces.
package viewer

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/brensch/snek8/render"
	"github.com/brensch/snek8/store"
)

// Config wires the viewer to its data sources. Any of them may be nil/empty;
// the matching endpoints then answer 503.
type Config struct {
	Hub      *render.Hub
	Results  *store.Results
	TraceDir string
}

// Server bundles the router and its data sources.
type Server struct {
	r   *chi.Mux
	cfg Config
}

func New(cfg Config) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"ok": true})
	})

	// The websocket outlives any handler timeout, so it sits outside that group.
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(corsAny)

		r.Get("/", s.handleBoard)
		r.Get("/board", s.handleBoard)
		r.Get("/api/frame", s.handleFrame)
		r.Get("/api/results", s.handleResults)
		r.Get("/api/summary", s.handleSummary)
		r.Get("/api/traces", s.handleTraces)
		r.Get("/api/traces/{name}", s.handleTrace)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found: "+r.URL.Path)
	})
	return s
}

// Handler exposes the router (useful for tests).
func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "no live game")
		return
	}
	s.cfg.Hub.ServeHTTP(w, r)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "no live game")
		return
	}
	f, ok := s.cfg.Hub.Last()
	if !ok {
		writeError(w, http.StatusNotFound, "no frame yet")
		return
	}
	writeJSON(w, f)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Results == nil {
		writeError(w, http.StatusServiceUnavailable, "results ledger not configured")
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	if limit > 1000 {
		limit = 1000
	}

	var (
		games []store.GameResult
		err   error
	)
	switch strings.TrimSpace(r.URL.Query().Get("sort")) {
	case "", "recent":
		games, err = s.cfg.Results.Recent(r.Context(), limit)
	case "best":
		games, err = s.cfg.Results.Best(r.Context(), limit)
	default:
		writeError(w, http.StatusBadRequest, "sort must be recent or best")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]GameJSON, 0, len(games))
	for _, g := range games {
		out = append(out, gameJSON(g))
	}
	writeJSON(w, ResultsResponse{Games: out})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Results == nil {
		writeError(w, http.StatusServiceUnavailable, "results ledger not configured")
		return
	}
	sum, err := s.cfg.Results.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, SummaryResponse{
		Games:     sum.Games,
		MeanScore: sum.MeanScore,
		MaxScore:  sum.MaxScore,
		MaxLength: sum.MaxLength,
	})
}

func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	if s.cfg.TraceDir == "" {
		writeError(w, http.StatusServiceUnavailable, "trace dir not configured")
		return
	}
	files, err := findTraceFiles(s.cfg.TraceDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	writeJSON(w, TracesResponse{Files: names})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if s.cfg.TraceDir == "" {
		writeError(w, http.StatusServiceUnavailable, "trace dir not configured")
		return
	}
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".parquet") {
		writeError(w, http.StatusBadRequest, "bad trace name")
		return
	}
	rows, err := store.ReadTrace(filepath.Join(s.cfg.TraceDir, name))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	gameID := strings.TrimSpace(r.URL.Query().Get("game_id"))
	out := make([]TickJSON, 0, len(rows))
	for _, row := range rows {
		if gameID != "" && row.GameID != gameID {
			continue
		}
		out = append(out, tickJSON(row))
	}
	writeJSON(w, TraceResponse{File: name, Ticks: out})
}
