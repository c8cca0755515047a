package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures by how the client reacts to them.
type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindCancelled           Kind = "cancelled"
	KindRemoteRejected      Kind = "remote_rejected"
	KindTransport           Kind = "transport"
	KindMalformed           Kind = "malformed"
	KindInvalidInput        Kind = "invalid_input"
)

// Error carries the kind plus whatever diagnostic the failing layer had.
// StatusCode and Body are set for remote rejections, Code for transport failures.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	StatusCode int
	Body       []byte
	Code       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an error of the given kind.
func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Cancelled is returned when the job owner asked to stop.
func Cancelled(op string) error {
	return &Error{Kind: KindCancelled, Op: op, Message: "cancelled by user"}
}

// KindOf returns the kind of the outermost *Error in the chain, or "".
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsGuard reports whether err was raised locally before any network call.
func IsGuard(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) || ae.StatusCode != 0 {
		return false
	}
	switch ae.Kind {
	case KindUnauthenticated, KindInsufficientBalance, KindInvalidInput:
		return true
	}
	return false
}

// StatusCode returns the HTTP status attached to err, or 0.
func StatusCode(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// UserMessage maps any error to the short text shown in a toast.
// Diagnostics never reach the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindUnauthenticated:
		return "Please sign in first"
	case KindInsufficientBalance:
		return "Not enough credits, please top up"
	case KindCancelled:
		return "Cancelled"
	case KindInvalidInput:
		return "Nothing to analyze"
	default:
		return "Something went wrong, please try again"
	}
}
