package service

import (
	"strings"

	"github.com/pkg/errors"

	"eduplatform/internal/repository"
)

// Error kinds. Every error returned by a service classifies as one of these
// (or as an internal error) through Kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("permission denied")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrConflict        = errors.New("state conflict")
)

var (
	ErrAlreadyCompleted = newKindError(ErrConflict, "attempt already completed")
	ErrAttemptLimit     = newKindError(ErrConflict, "attempt limit reached")
	ErrInviteExhausted  = newKindError(ErrConflict, "invite has no uses left")
	ErrAlreadyInvited   = newKindError(ErrConflict, "user already participates in the meeting")
	ErrVersionConflict  = newKindError(ErrConflict, "record was modified concurrently, retry")
	ErrNotInRoom        = newKindError(ErrConflict, "connection has not joined a room")
	ErrWrongPassword    = newKindError(ErrForbidden, "incorrect test password")
	ErrInvalidToken     = newKindError(ErrUnauthenticated, "invalid or expired token")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// FieldError is a validation failure of one input field
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError describes rejected input
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, fields ...FieldError) *ValidationError {
	return &ValidationError{Err: err, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return e.Err.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrorKind is the coarse category of a service error
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Kind classifies err. Repository sentinels map onto their service kind.
func Kind(err error) ErrorKind {
	var verr *ValidationError
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrInviteExhausted):
		return KindConflict
	default:
		return KindInternal
	}
}

// translateRepoErr maps storage sentinels to service errors
func translateRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, repository.ErrInviteExhausted):
		return ErrInviteExhausted
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}
