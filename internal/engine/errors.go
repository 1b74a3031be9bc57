package engine

import (
	"errors"
	"fmt"

	"shiftlog/internal/domain"
	"shiftlog/internal/repo"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = repo.ErrNotFound
	ErrConflict          = repo.ErrConflict
)

// UnauthorizedError reports an actor lacking permission for Action.
type UnauthorizedError struct {
	Action string
}

func (e UnauthorizedError) Error() string {
	if e.Action == "" {
		return "not authorized"
	}
	return fmt.Sprintf("not authorized to %s", e.Action)
}

func (e UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// InvalidTransitionError reports a state change the workflow refuses.
type InvalidTransitionError struct {
	From   domain.FeatureStatus
	To     domain.FeatureStatus
	Reason string
}

func (e InvalidTransitionError) Error() string {
	switch {
	case e.From != "" && e.To != "" && e.Reason != "":
		return fmt.Sprintf("invalid status transition %s -> %s: %s", e.From, e.To, e.Reason)
	case e.From != "" && e.To != "":
		return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
	case e.Reason != "":
		return "invalid transition: " + e.Reason
	default:
		return "invalid transition"
	}
}

func (e InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ValidationError reports bad input on Field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
