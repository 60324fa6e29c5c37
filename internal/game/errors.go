package game

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidPhase        = errors.New("invalid phase for action")
	ErrExpired             = errors.New("session expired")
	ErrInsufficientPlayers = errors.New("need at least 2 players")
	ErrDuplicateVote       = errors.New("already voted this round")
	ErrSelfVote            = errors.New("cannot vote for own submission")

	// Returned by stores.
	ErrCodeTaken           = errors.New("session code in use")
	ErrDuplicateSubmission = errors.New("submission already exists")
	ErrConflict            = errors.New("concurrent update")
)

// ErrInvalidArgument marks malformed caller input.
var ErrInvalidArgument = errors.New("invalid argument")
