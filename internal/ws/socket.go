// Package ws pushes session state to browsers over socket.io.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/events"
	"github.com/kiliankoe/sketchdash/internal/game"
)

const (
	EventWatch   = "session:watch"
	EventUnwatch = "session:unwatch"
	EventReady   = "session:ready"
	EventVote    = "session:vote"
	EventState   = "session:state"
	EventError   = "error"
)

const requestTimeout = 10 * time.Second

// ConnCtx is what a connection is watching.
type ConnCtx struct {
	Code      string
	SessionID string
	PlayerID  string
}

type Server struct {
	svc *game.Service

	mu      sync.RWMutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
}

func New(svc *game.Service) *Server {
	return &Server{svc: svc, members: make(map[string]map[string]socketio.Conn)}
}

// Subscribe forwards every bus update to the connections watching that
// session. The returned func stops forwarding.
func (srv *Server) Subscribe(bus events.Bus) (func(), error) {
	return bus.Subscribe(srv.handleUpdate)
}

func (srv *Server) handleUpdate(u events.Update) {
	if u.Session == nil {
		return
	}
	srv.emitStateTo(u.Session, u.Reason)
}

// Mount attaches the socket.io server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Debug().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", EventWatch, func(s socketio.Conn, payload struct {
		Code     string `json:"code"`
		PlayerID string `json:"playerId"`
	}) map[string]any {
		return srv.watch(s, payload.Code, payload.PlayerID)
	})

	io.OnEvent("/", EventUnwatch, func(s socketio.Conn) map[string]any {
		srv.unwatch(s)
		return map[string]any{"ok": true}
	})

	// session:ready (player toggles their own flag)
	io.OnEvent("/", EventReady, func(s socketio.Conn, payload struct {
		Ready bool `json:"ready"`
	}) map[string]any {
		cc := connCtx(s)
		if cc.PlayerID == "" {
			return srv.err(s, "NotWatching", "watch a session as a player first")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := srv.svc.Lifecycle.SetPlayerReady(ctx, cc.SessionID, cc.PlayerID, payload.Ready); err != nil {
			return srv.fail(s, err)
		}
		return map[string]any{"ok": true}
	})

	// session:vote (ballot for the current round)
	io.OnEvent("/", EventVote, func(s socketio.Conn, payload struct {
		SubmissionID string `json:"submissionId"`
	}) map[string]any {
		cc := connCtx(s)
		if cc.PlayerID == "" {
			return srv.err(s, "NotWatching", "watch a session as a player first")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		sess, err := srv.svc.Lifecycle.GetSession(ctx, cc.SessionID)
		if err != nil {
			return srv.fail(s, err)
		}
		id, err := srv.svc.Voting.CastVote(ctx, sess.ID, cc.PlayerID, payload.SubmissionID, sess.CurrentRoundNumber)
		if err != nil {
			return srv.fail(s, err)
		}
		log.Info().Str("code", cc.Code).Str("playerId", cc.PlayerID).Msg("session:vote")
		return map[string]any{"ok": true, "voteId": id}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.unwatch(s)
		log.Debug().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io server stopped")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) watch(s socketio.Conn, code, playerID string) map[string]any {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	sess, err := srv.svc.Lifecycle.GetSessionByCode(ctx, code)
	if err != nil {
		return srv.fail(s, err)
	}
	if playerID != "" {
		if _, ok := sess.Player(playerID); !ok {
			// Spectators are allowed; an unknown player id is treated as one.
			playerID = ""
		}
	}
	srv.unwatch(s)
	s.SetContext(&ConnCtx{Code: sess.Code, SessionID: sess.ID, PlayerID: playerID})
	s.Join(sess.Code)
	srv.addMember(sess.Code, s)
	log.Info().Str("sid", s.ID()).Str("code", sess.Code).Str("playerId", playerID).Msg("session:watch")

	s.Emit(EventState, statePayload(sess, playerID, "watch"))
	return map[string]any{"ok": true, "sessionId": sess.ID}
}

func (srv *Server) unwatch(s socketio.Conn) {
	cc := connCtx(s)
	if cc.Code == "" {
		return
	}
	srv.removeMember(cc.Code, s)
	s.Leave(cc.Code)
	s.SetContext(&ConnCtx{})
}

func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, code)
		}
	}
}

func (srv *Server) emitStateTo(sess *game.Session, reason string) {
	srv.mu.RLock()
	conns := make([]socketio.Conn, 0, len(srv.members[sess.Code]))
	for _, c := range srv.members[sess.Code] {
		conns = append(conns, c)
	}
	srv.mu.RUnlock()

	for _, c := range conns {
		c.Emit(EventState, statePayload(sess, connCtx(c).PlayerID, reason))
	}
}

// statePayload is the session as one connection sees it.
func statePayload(sess *game.Session, playerID, reason string) map[string]any {
	you := map[string]any{"role": "spectator"}
	if p, ok := sess.Player(playerID); ok {
		you["playerId"] = p.UserID
		you["role"] = "player"
		if p.IsHost {
			you["role"] = "host"
		}
	}
	return map[string]any{
		"reason":      reason,
		"session":     sess,
		"leaderboard": game.Leaderboard(sess),
		"you":         you,
	}
}

func connCtx(s socketio.Conn) *ConnCtx {
	if cc, ok := s.Context().(*ConnCtx); ok && cc != nil {
		return cc
	}
	return &ConnCtx{}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit(EventError, map[string]any{"code": code, "message": message})
	return map[string]any{"error": code, "message": message}
}

func (srv *Server) fail(s socketio.Conn, err error) map[string]any {
	kind := "Internal"
	switch {
	case errors.Is(err, game.ErrNotFound):
		kind = "NotFound"
	case errors.Is(err, game.ErrInvalidPhase):
		kind = "InvalidPhase"
	case errors.Is(err, game.ErrExpired):
		kind = "Expired"
	case errors.Is(err, game.ErrDuplicateVote):
		kind = "DuplicateVote"
	case errors.Is(err, game.ErrSelfVote):
		kind = "SelfVote"
	default:
		log.Error().Err(err).Str("sid", s.ID()).Msg("socket request failed")
	}
	return srv.err(s, kind, err.Error())
}
