package storage

import "errors"

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrUnresolved  = errors.New("storage: name unresolved")
	ErrTimeout     = errors.New("storage: timed out")
	ErrUnavailable = errors.New("storage: store unavailable")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
)

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsUnresolved(err error) bool { return errors.Is(err, ErrUnresolved) }
func IsTimeout(err error) bool    { return errors.Is(err, ErrTimeout) }
