package model

import "errors"

var (
	ErrIllegalMove        = errors.New("invalid move, not legal")
	ErrOutOfBounds        = errors.New("out of bounds")
	ErrNoPiece            = errors.New("no piece at from square")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrGameOver           = errors.New("game is over")
	ErrPromotionPending   = errors.New("promotion pending")
	ErrNoPromotion        = errors.New("no promotion pending on that square")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrInvalidFEN         = errors.New("invalid FEN")
	ErrReplyFailed        = errors.New("automated reply failed")
	ErrInvariantViolation = errors.New("board invariant violated")
)
