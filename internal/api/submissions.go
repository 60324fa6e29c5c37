package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/sketchdash/internal/game"
)

func (h *Handler) submitScenes(c *gin.Context) {
	var req struct {
		PlayerID            string `json:"playerId" binding:"required"`
		FirstSceneImage     string `json:"firstSceneImage" binding:"required"`
		SecondSceneImage    string `json:"secondSceneImage" binding:"required"`
		FirstSceneAnalysis  string `json:"firstSceneAnalysis"`
		SecondSceneAnalysis string `json:"secondSceneAnalysis"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	id, err := h.svc.Submissions.SubmitScenes(c.Request.Context(), c.Param("id"), req.PlayerID, c.GetInt("round"),
		req.FirstSceneImage, req.SecondSceneImage,
		game.SceneAnalyses{First: req.FirstSceneAnalysis, Second: req.SecondSceneAnalysis})
	respond(c, http.StatusCreated, gin.H{"submissionId": id}, err)
}

func (h *Handler) listSubmissions(c *gin.Context) {
	subs, err := h.svc.Submissions.GetSessionSubmissions(c.Request.Context(), c.Param("id"), c.GetInt("round"))
	respond(c, http.StatusOK, subs, err)
}

// playerSubmission answers null when the player has not submitted yet.
func (h *Handler) playerSubmission(c *gin.Context) {
	sub, err := h.svc.Submissions.GetPlayerSubmission(c.Request.Context(), c.Param("id"), c.Param("playerId"), c.GetInt("round"))
	respond(c, http.StatusOK, sub, err)
}

func (h *Handler) getSubmission(c *gin.Context) {
	sub, err := h.svc.Submissions.GetSubmission(c.Request.Context(), c.Param("submissionId"))
	respond(c, http.StatusOK, sub, err)
}

func (h *Handler) updateVideo(c *gin.Context) {
	var req struct {
		VideoURL    string           `json:"videoUrl"`
		VideoStatus game.VideoStatus `json:"videoStatus" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	id := c.Param("submissionId")
	if err := h.svc.Submissions.UpdateSubmissionVideo(c.Request.Context(), id, req.VideoURL, req.VideoStatus); err != nil {
		writeError(c, err)
		return
	}
	sub, err := h.svc.Submissions.GetSubmission(c.Request.Context(), id)
	respond(c, http.StatusOK, sub, err)
}
