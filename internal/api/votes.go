package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/game"
)

func (h *Handler) castVote(c *gin.Context) {
	var req struct {
		VoterID      string `json:"voterId" binding:"required"`
		SubmissionID string `json:"submissionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	id, err := h.svc.Voting.CastVote(c.Request.Context(), c.Param("id"), req.VoterID, req.SubmissionID, c.GetInt("round"))
	respond(c, http.StatusCreated, gin.H{"voteId": id}, err)
}

func (h *Handler) voteResults(c *gin.Context) {
	counts, err := h.svc.Voting.GetVoteResults(c.Request.Context(), c.Param("id"), c.GetInt("round"))
	respond(c, http.StatusOK, counts, err)
}

// playerVote answers null when the voter has not voted yet.
func (h *Handler) playerVote(c *gin.Context) {
	v, err := h.svc.Voting.GetPlayerVote(c.Request.Context(), c.Param("id"), c.Param("voterId"), c.GetInt("round"))
	respond(c, http.StatusOK, v, err)
}

func (h *Handler) votingStatus(c *gin.Context) {
	st, err := h.svc.Voting.VotingStatus(c.Request.Context(), c.Param("id"), c.GetInt("round"))
	respond(c, http.StatusOK, st, err)
}

func (h *Handler) calculateScores(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID, round := c.Param("id"), c.GetInt("round")
	scores, err := h.svc.Voting.CalculateRoundScores(ctx, sessionID, round)
	if err != nil {
		writeError(c, err)
		return
	}
	if !scores.AlreadyCalculated && h.opts.ExportFile != "" {
		h.export(context.WithoutCancel(ctx), sessionID, round, scores)
	}
	c.JSON(http.StatusOK, scores)
}

// roundWinner answers null when nobody has voted.
func (h *Handler) roundWinner(c *gin.Context) {
	w, err := h.svc.Voting.GetRoundWinner(c.Request.Context(), c.Param("id"), c.GetInt("round"))
	respond(c, http.StatusOK, w, err)
}

func (h *Handler) export(ctx context.Context, sessionID string, round int, scores *game.RoundScores) {
	sess, err := h.svc.Lifecycle.GetSession(ctx, sessionID)
	if err == nil {
		var subs []*game.Submission
		subs, err = h.svc.Submissions.GetSessionSubmissions(ctx, sessionID, round)
		if err == nil {
			err = game.ExportRound(h.opts.ExportFile, sess, round, subs, scores)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Int("round", round).Msg("round export failed")
		return
	}
	log.Info().Str("code", sess.Code).Int("round", round).Str("file", h.opts.ExportFile).Msg("round exported")
}
