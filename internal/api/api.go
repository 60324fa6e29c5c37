// Package api exposes the game service over a JSON REST interface.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/sketchdash/internal/game"
)

type Options struct {
	// RateLimit is the sustained requests per second allowed per client IP
	// on /api. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// ExportFile receives a summary of every scored round when set.
	ExportFile string
}

type Handler struct {
	svc  *game.Service
	opts Options
}

func New(svc *game.Service, opts Options) *Handler {
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	return &Handler{svc: svc, opts: opts}
}

// Register mounts /health and every /api route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	if h.opts.RateLimit > 0 {
		api.Use(newIPLimiter(h.opts.RateLimit, h.opts.RateBurst).middleware())
	}

	api.POST("/sessions", h.createSession)
	api.POST("/sessions/join", h.joinSession)
	api.GET("/sessions/code/:code", h.getSessionByCode)

	s := api.Group("/sessions/:id")
	s.GET("", h.getSession)
	s.POST("/ready", h.setPlayerReady)
	s.POST("/start", h.startGame)
	s.POST("/voting", h.beginVoting)
	s.POST("/next", h.nextRound)
	s.POST("/complete", h.completeRound)
	s.POST("/end", h.endGame)
	s.GET("/leaderboard", h.leaderboard)

	rounds := s.Group("/rounds/:round", h.parseRound)
	rounds.POST("/submissions", h.submitScenes)
	rounds.GET("/submissions", h.listSubmissions)
	rounds.GET("/submissions/:playerId", h.playerSubmission)
	rounds.POST("/votes", h.castVote)
	rounds.GET("/votes", h.voteResults)
	rounds.GET("/votes/:voterId", h.playerVote)
	rounds.GET("/status", h.votingStatus)
	rounds.POST("/score", h.calculateScores)
	rounds.GET("/winner", h.roundWinner)

	api.GET("/submissions/:submissionId", h.getSubmission)
	api.PATCH("/submissions/:submissionId/video", h.updateVideo)
}

func (h *Handler) parseRound(c *gin.Context) {
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil || round < 1 {
		badRequest(c, "round must be a positive integer")
		return
	}
	c.Set("round", round)
	c.Next()
}

// respond writes v as JSON or maps err to an error response.
func respond[T any](c *gin.Context, status int, v T, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, v)
}
