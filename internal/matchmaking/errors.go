package matchmaking

import "errors"

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNoMentorAvailable   = errors.New("no mentor available")
	ErrActiveSessionExists = errors.New("caller already has an open anonymous session")
	ErrNotFound            = errors.New("anonymous session not found")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Reason says why the pool was empty. Clients show a different message for each.
type Reason string

const (
	ReasonNoneOnline Reason = "none_online"
	ReasonAllBusy    Reason = "all_busy"
)

// NoMentorError is returned when the eligible pool is empty. It matches
// ErrNoMentorAvailable under errors.Is.
type NoMentorError struct {
	Reason Reason
}

func (e *NoMentorError) Error() string { return e.Message() }

func (e *NoMentorError) Is(target error) bool { return target == ErrNoMentorAvailable }

func (e *NoMentorError) Message() string {
	switch e.Reason {
	case ReasonNoneOnline:
		return "No mentors are currently online. Please try again later."
	case ReasonAllBusy:
		return "All mentors are currently busy. Please try again in a few minutes."
	default:
		return ErrNoMentorAvailable.Error()
	}
}
