package delivery

import (
	"context"
	"errors"
	"fmt"

	"marketplaceDelivery/internal/db"
	"marketplaceDelivery/repository"
)

// Kind classifies a failed operation. Callers branch on the kind and show the message.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindAlreadyAssigned    Kind = "already_assigned"
	KindInvalidOTP         Kind = "invalid_otp"
	KindPartnerUnavailable Kind = "partner_unavailable"
	KindInvalidState       Kind = "invalid_state"
	KindTransient          Kind = "transient"
	KindInternal           Kind = "internal"
)

// Error is the failure result of every Service operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of err. Errors not produced by this package are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// storeError converts an unexpected repository failure into an *Error.
func storeError(msg string, err error) *Error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), db.IsTransient(err):
		return wrapError(KindTransient, msg+": store temporarily unavailable", err)
	case errors.Is(err, repository.ErrNotFound):
		return wrapError(KindNotFound, msg+": not found", err)
	default:
		return wrapError(KindInternal, msg, err)
	}
}

// msgInvalidCode is shown for a wrong code and for a missing assignment alike.
const msgInvalidCode = "invalid code, try again"
