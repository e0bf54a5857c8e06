// Package errs defines the error kinds shared by both services.
//
// Every domain-rule violation is an *Error carrying a Kind; handlers map the
// kind to a response code and never inspect messages. Anything that is not an
// *Error is treated as an infrastructure failure (KindUnavailable).
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnavailable Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
	KindInsufficientFunds
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unavailable"
	}
}

// Error is a typed failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind and message so a wrapped copy of a sentinel still
// satisfies errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Invalid(format string, args ...any) *Error {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable marks a storage or bus failure.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// KindOf classifies err. Errors that carry no kind are infrastructure failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnavailable
}

var (
	ErrAccountNotFound        = New(KindNotFound, "account not found")
	ErrCustomerNotFound       = New(KindNotFound, "customer not found")
	ErrDuplicateAccountNumber = New(KindConflict, "an account with this number already exists")
	ErrDuplicateNationalID    = New(KindConflict, "a customer with this national id already exists")
	ErrInvalidOpeningBalance  = New(KindInvalidInput, "opening balance must not be negative")
	ErrInvalidAccountType     = New(KindInvalidInput, "account type must be SAVINGS or CHECKING")
	ErrAccountInactive        = New(KindInvalidInput, "account is not active")
	ErrInvalidDateRange       = New(KindInvalidInput, "from date must not be after to date")
	ErrOpeningBalanceLocked   = New(KindInvalidInput, "opening balance cannot change once the account has movements")
	ErrInsufficientFunds      = New(KindInsufficientFunds, "insufficient funds")
)
