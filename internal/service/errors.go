package service

import (
	"errors"

	"storefront-service/internal/store"
)

// ErrorKind classifies service failures so the HTTP layer can map them
// to status codes without string matching.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindNotFound
	KindConflict
	KindBusinessRule
	KindInternal
)

// Error is a service-level failure with a client-safe message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a service error with a client-safe message.
func E(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wrapInternal hides the underlying error from clients but keeps it on
// the chain for logging.
func wrapInternal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicate)
}

// notFoundOr maps a store lookup error: ErrNotFound becomes a 404 with
// the given message, everything else an internal error.
func notFoundOr(err error, message string) *Error {
	if errors.Is(err, store.ErrNotFound) {
		return E(KindNotFound, message)
	}
	return wrapInternal(err, "Unexpected error")
}
