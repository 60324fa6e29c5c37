package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/game"
)

// Error kinds returned in the "error" field of every failed request.
const (
	KindNotFound            = "NotFound"
	KindInvalidPhase        = "InvalidPhase"
	KindExpired             = "Expired"
	KindInsufficientPlayers = "InsufficientPlayers"
	KindDuplicateVote       = "DuplicateVote"
	KindSelfVote            = "SelfVote"
	KindInvalidArgument     = "InvalidArgument"
	KindConflict            = "Conflict"
	KindUnavailable         = "Unavailable"
	KindRateLimited         = "RateLimited"
	KindTimeout             = "Timeout"
	KindInternal            = "Internal"
)

var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{game.ErrNotFound, http.StatusNotFound, KindNotFound},
	{game.ErrInvalidPhase, http.StatusConflict, KindInvalidPhase},
	{game.ErrExpired, http.StatusGone, KindExpired},
	{game.ErrInsufficientPlayers, http.StatusConflict, KindInsufficientPlayers},
	{game.ErrDuplicateVote, http.StatusConflict, KindDuplicateVote},
	{game.ErrSelfVote, http.StatusUnprocessableEntity, KindSelfVote},
	{game.ErrInvalidArgument, http.StatusBadRequest, KindInvalidArgument},
	{game.ErrDuplicateSubmission, http.StatusConflict, KindConflict},
	{game.ErrConflict, http.StatusConflict, KindConflict},
	{game.ErrCodeTaken, http.StatusServiceUnavailable, KindUnavailable},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, KindTimeout},
}

func writeError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.AbortWithStatusJSON(k.status, gin.H{"error": k.kind, "message": err.Error()})
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		c.AbortWithStatus(499)
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": KindInternal, "message": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": KindInvalidArgument, "message": msg})
}
