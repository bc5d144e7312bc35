// Package errs holds the error kinds shared by the engines and the event adapters.
package errs

import "errors"

var (
	ErrConfigUnavailable = errors.New("config unavailable")
	ErrInsufficientRank  = errors.New("insufficient rank")
	ErrTargetNotFound    = errors.New("target not found")
	ErrRenderFailure     = errors.New("render failure")
	ErrActionFailed      = errors.New("action side effect failed")
	ErrLogWriteFailed    = errors.New("moderation log write failed")
	ErrInvalidArgument   = errors.New("invalid argument")
)
