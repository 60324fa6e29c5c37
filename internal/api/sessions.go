package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createSession(c *gin.Context) {
	var req struct {
		HostID       string `json:"hostId" binding:"required"`
		Nickname     string `json:"nickname" binding:"required"`
		RoundsTarget int    `json:"roundsTarget"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.Lifecycle.CreateSession(c.Request.Context(), req.HostID, req.Nickname, req.RoundsTarget)
	respond(c, http.StatusCreated, sess, err)
}

func (h *Handler) joinSession(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		PlayerID string `json:"playerId" binding:"required"`
		Nickname string `json:"nickname" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.Lifecycle.JoinSession(c.Request.Context(), req.Code, req.PlayerID, req.Nickname)
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.svc.Lifecycle.GetSession(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) getSessionByCode(c *gin.Context) {
	sess, err := h.svc.Lifecycle.GetSessionByCode(c.Request.Context(), c.Param("code"))
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) setPlayerReady(c *gin.Context) {
	var req struct {
		PlayerID string `json:"playerId" binding:"required"`
		Ready    *bool  `json:"ready" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	sess, err := h.svc.Lifecycle.SetPlayerReady(c.Request.Context(), c.Param("id"), req.PlayerID, *req.Ready)
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) startGame(c *gin.Context) {
	sess, err := h.svc.Lifecycle.StartGame(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) beginVoting(c *gin.Context) {
	sess, err := h.svc.Lifecycle.BeginVoting(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) nextRound(c *gin.Context) {
	sess, err := h.svc.Lifecycle.NextRound(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) completeRound(c *gin.Context) {
	var req struct {
		WinnerID string `json:"winnerId"`
	}
	// An empty body completes the round without a winner.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	sess, err := h.svc.Lifecycle.CompleteRound(c.Request.Context(), c.Param("id"), req.WinnerID)
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) endGame(c *gin.Context) {
	sess, err := h.svc.Lifecycle.EndGame(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, sess, err)
}

func (h *Handler) leaderboard(c *gin.Context) {
	board, err := h.svc.Voting.GetRoundLeaderboard(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, board, err)
}
