// internal/httpserver/server.go
//
// HTTP server wiring for the memory grid backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/leaderboard".
//   - Game endpoints (optional auth): /game/new and /game/{id}/... (routes_game.go).
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine (auth.go).
//   - Finished-game history and user stats in SQLite.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes still run for guests, who are tracked by an anonymous cookie.
//   - The long-poll route has its own, longer timeout.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/internal/config"
	"github.com/robalobadob/memorygame/internal/controller"
	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/leaderboard"
	"github.com/robalobadob/memorygame/internal/store"
)

const (
	requestTimeout = 10 * time.Second
	pollTimeout    = 30 * time.Second
	pollCap        = 25 * time.Second
)

// Server bundles router, session store, DB handle and the shared leaderboard.
type Server struct {
	r     *chi.Mux
	http  *http.Server
	cfg   config.Config
	store store.Store
	db    *sql.DB
	lb    *leaderboard.Leaderboard
	gen   *game.Generator

	ctlOpts []controller.Option
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithControllerOptions appends options to every controller the server creates.
func WithControllerOptions(opts ...controller.Option) Option {
	return func(s *Server) { s.ctlOpts = append(s.ctlOpts, opts...) }
}

// WithNow replaces the wall clock used for daily seeds.
func WithNow(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, lb *leaderboard.Leaderboard, gen *game.Generator, opts ...Option) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, store: st, db: db, lb: lb, gen: gen, now: time.Now}
	s.http = &http.Server{Handler: s.r, ReadHeaderTimeout: requestTimeout}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)   // add X-Request-ID
	s.r.Use(chimw.RealIP)      // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)   // recover from panics
	s.r.Use(jsonContentType)   // default JSON responses
	s.r.Use(s.cors)            // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth)

	// long-poll reads outlive the normal request budget
	s.r.With(chimw.Timeout(pollTimeout), s.withSession).Get("/game/{id}", s.handleGetGame)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service":   "memory-go",
				"endpoints": []string{"/health", "/leaderboard", "POST /game/new", "/game/{id}", "/auth/*"},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.store.Len()})
		})
		r.Get("/leaderboard", s.handleLeaderboard)

		s.mountGame(r)
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr. After Shutdown it returns
// http.ErrServerClosed.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones (including
// the leaderboard and history writes of a game lost inside them) and then
// closes every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if n := s.store.CloseAll(); n > 0 {
		log.Info().Int("sessions", n).Msg("closed live sessions")
	}
	return err
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ----------------------------- leaderboard ---------------------------------

// handleLeaderboard returns every difficulty, or one with ?difficulty=.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	all := s.lb.Snapshot()
	q := r.URL.Query().Get("difficulty")
	if q == "" {
		writeJSON(w, http.StatusOK, all)
		return
	}
	d, err := game.ParseDifficulty(q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[game.Difficulty][]game.Score{d: all[d]})
}

// ------------------------------- history -----------------------------------

// recordGame stores a finished game and, for accounts, bumps the user's
// counters. Best effort: failures are logged and absorbed.
func (s *Server) recordGame(userID, anonID string, d game.Difficulty, sc game.Score) {
	if s.db == nil {
		return
	}
	tx, err := s.db.Begin()
	if err != nil {
		log.Warn().Err(err).Msg("record game: begin")
		return
	}
	defer func() { _ = tx.Rollback() }()

	var user, anon any
	if userID != "" {
		user = userID
	} else {
		anon = anonID
	}
	if _, err := tx.Exec(`INSERT INTO games (id, user_id, anonymous_id, difficulty, rounds, elapsed_seconds, finished_at)
	                      VALUES (?,?,?,?,?,?,?)`,
		newID(), user, anon, string(d), sc.Rounds, sc.ElapsedSeconds, sc.RecordedAt.Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Msg("record game: insert")
		return
	}
	if userID != "" {
		if err := bumpStats(tx, userID, sc.Rounds); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("record game: commit")
	}
}

// bumpStats increments games played and raises the best round count (within tx).
func bumpStats(tx *sql.Tx, userID string, rounds int) error {
	_, err := tx.Exec(`UPDATE users SET games_played = games_played + 1, best_rounds = MAX(best_rounds, ?) WHERE id=?`,
		rounds, userID)
	return err
}

// ------------------------------- replies -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidDifficulty):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_difficulty"})
	case errors.Is(err, game.ErrInvalidCell):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_cell"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
}
