package game

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPaused             = errors.New("paused")
	ErrNotPaused          = errors.New("not paused")
	ErrInvalidEpoch       = errors.New("invalid epoch")
	ErrRoundNotBettable   = errors.New("round not bettable")
	ErrRoundStillBettable = errors.New("round still bettable")
	ErrStakeTooLow        = errors.New("stake too low")
	ErrAlreadyBet         = errors.New("already bet")
	ErrNoBet              = errors.New("no bet")
	ErrAlreadyClaimed     = errors.New("already claimed")
	ErrNotWinningSide     = errors.New("not winning side")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrInvalidSide        = errors.New("invalid side")
	ErrNotFound           = errors.New("not found")
)
