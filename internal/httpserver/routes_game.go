// internal/httpserver/routes_game.go
//
// HTTP routes for game sessions.
//   - POST   /game/new               → create a session, returns its id
//   - GET    /game/{id}?since=N      → snapshot; long-polls while version <= N
//   - POST   /game/{id}/start        → {difficulty, daily}
//   - POST   /game/{id}/select       → {cell}
//   - POST   /game/{id}/hint
//   - POST   /game/{id}/difficulty   → {difficulty}
//   - POST   /game/{id}/reset
//   - POST   /game/{id}/ack          → dismiss game over
//   - DELETE /game/{id}
//
// A session belongs to the account or anonymous cookie that created it;
// anyone else gets a 404. Out-of-phase actions answer 200 with the unchanged
// snapshot.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorygame/internal/controller"
	"github.com/robalobadob/memorygame/internal/daily"
	"github.com/robalobadob/memorygame/internal/game"
	"github.com/robalobadob/memorygame/internal/store"
)

type ctxSessionKey struct{}

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)

	g := r.With(s.withSession)
	g.Delete("/game/{id}", s.handleDeleteGame)
	g.Post("/game/{id}/start", s.handleStart)
	g.Post("/game/{id}/select", s.handleSelect)
	g.Post("/game/{id}/hint", s.action(func(c *controller.Controller) error { c.UseHint(); return nil }))
	g.Post("/game/{id}/difficulty", s.handleDifficulty)
	g.Post("/game/{id}/reset", s.action(func(c *controller.Controller) error { c.Reset(); return nil }))
	g.Post("/game/{id}/ack", s.action(func(c *controller.Controller) error { c.AcknowledgeGameOver(); return nil }))
}

// newGameReq is the optional body of POST /game/new.
type newGameReq struct {
	Difficulty string `json:"difficulty"`
}
type newGameRes struct {
	GameID string              `json:"gameId"`
	Game   controller.Snapshot `json:"game"`
}

// handleNewGame creates an idle controller owned by the caller.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	userID, anonID := s.requester(w, r)
	owner := userID
	if owner == "" {
		owner = anonID
	}

	// the account is resolved when the game ends, so a guest who logs in
	// mid-game is credited
	var sessRef atomic.Pointer[store.Session]
	opts := []controller.Option{
		controller.WithGenerator(s.gen),
		controller.WithTimings(s.cfg.Timings),
		controller.WithOnLost(func(d game.Difficulty, sc game.Score) {
			user := ""
			if sess := sessRef.Load(); sess != nil {
				user = sess.User()
			}
			s.recordGame(user, anonID, d, sc)
		}),
	}
	c := controller.New(s.lb, append(opts, s.ctlOpts...)...)
	if req.Difficulty != "" {
		d, err := game.ParseDifficulty(req.Difficulty)
		if err != nil {
			c.Close()
			writeError(w, err)
			return
		}
		_ = c.ChangeDifficulty(d)
	}

	sess, err := s.store.Create(r.Context(), owner, c)
	if err != nil {
		c.Close()
		writeError(w, err)
		return
	}
	if userID != "" {
		sess.Claim(userID)
	}
	sessRef.Store(sess)
	log.Debug().Str("gameId", sess.ID).Bool("guest", userID == "").Msg("session created")
	writeJSON(w, http.StatusOK, newGameRes{GameID: sess.ID, Game: c.Snapshot()})
}

// withSession resolves {id} to a session the caller owns.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if !s.owns(r, sess) {
			writeError(w, store.ErrNotFound)
			return
		}
		if me := currentUser(r); me != nil {
			sess.Claim(me.ID)
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *store.Session {
	sess, _ := r.Context().Value(ctxSessionKey{}).(*store.Session)
	return sess
}

// handleGetGame returns the snapshot. With ?since=N it waits for a newer
// version, returning the current snapshot when the wait times out.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r).Controller
	q := r.URL.Query().Get("since")
	if q == "" {
		writeJSON(w, http.StatusOK, c.Snapshot())
		return
	}
	since, err := strconv.ParseUint(q, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_since"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), pollCap)
	defer cancel()
	snap, _ := c.Wait(ctx, since)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), sessionFrom(r).ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// startReq is the body of POST /game/{id}/start.
type startReq struct {
	Difficulty string `json:"difficulty"`
	Daily      bool   `json:"daily"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	c := sessionFrom(r).Controller

	d := c.Snapshot().Difficulty
	if req.Difficulty != "" {
		var err error
		if d, err = game.ParseDifficulty(req.Difficulty); err != nil {
			writeError(w, err)
			return
		}
	}

	var err error
	if req.Daily {
		err = c.StartDaily(d, daily.Rand(s.now(), s.cfg.DailySalt))
	} else {
		err = c.StartGame(d)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// selectReq is the body of POST /game/{id}/select.
type selectReq struct {
	Cell *int `json:"cell"`
}
type selectRes struct {
	Outcome string              `json:"outcome"`
	Game    controller.Snapshot `json:"game"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cell == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	c := sessionFrom(r).Controller
	out, err := c.SelectCell(*req.Cell)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectRes{Outcome: out.String(), Game: c.Snapshot()})
}

// difficultyReq is the body of POST /game/{id}/difficulty.
type difficultyReq struct {
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	var req difficultyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	c := sessionFrom(r).Controller
	d, err := game.ParseDifficulty(req.Difficulty)
	if err == nil {
		err = c.ChangeDifficulty(d)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// action adapts a body-less controller call into a handler replying with
// the resulting snapshot.
func (s *Server) action(fn func(*controller.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := sessionFrom(r).Controller
		if err := fn(c); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

// owns reports whether the caller created sess, either as the logged-in user
// or through the anonymous cookie.
func (s *Server) owns(r *http.Request, sess *store.Session) bool {
	if me := currentUser(r); me != nil && me.ID == sess.Owner {
		return true
	}
	if c, err := r.Cookie(s.cfg.AnonCookieName); err == nil && c.Value == sess.Owner {
		return true
	}
	return false
}
