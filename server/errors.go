package server

import (
	"github.com/pkg/errors"
)

var (
	ErrNotStarted         = errors.New("match has not started")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrGameOver           = errors.New("game is over")
	ErrAlreadyRevealed    = errors.New("cell already revealed or flagged")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrMissingCoordinates = errors.New("missing coordinates")
	ErrRateLimited        = errors.New("too many messages")

	ErrSessionFull    = errors.New("session already has two peers")
	ErrRegistryClosed = errors.New("registry is shut down")
)

// ProtocolViolation wraps a message that was well-formed but not acceptable
// in the current match state. By default such messages are dropped.
type ProtocolViolation struct {
	Err error
}

func (v *ProtocolViolation) Error() string {
	return "protocol violation: " + v.Err.Error()
}

func (v *ProtocolViolation) Unwrap() error {
	return v.Err
}

func violation(err error) error {
	return &ProtocolViolation{Err: err}
}

func IsProtocolViolation(err error) bool {
	var v *ProtocolViolation
	return errors.As(err, &v)
}
