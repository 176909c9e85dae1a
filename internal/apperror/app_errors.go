package apperror

import "errors"

var (
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrMalformedMove    = errors.New("malformed move")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrRecordNotFound   = errors.New("game record not found")
)
