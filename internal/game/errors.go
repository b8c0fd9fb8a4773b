package game

import "errors"

var (
	ErrTableFull     = errors.New("table is full")
	ErrSeatTaken     = errors.New("seat is taken")
	ErrAlreadySeated = errors.New("already seated at this table")
	ErrNotSeated     = errors.New("not seated at this table")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrNoActiveHand  = errors.New("no hand in progress")
	ErrCannotCheck   = errors.New("cannot check, there is a bet to call")
	ErrNothingToCall = errors.New("nothing to call")
	ErrRaiseTooSmall = errors.New("raise below minimum")
	ErrCannotAct     = errors.New("action not allowed in current phase")
)
