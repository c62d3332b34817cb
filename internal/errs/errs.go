package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at the point it originates, so downstream
// components never have to inspect error text to decide how to react.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetworkTimeout
	KindServiceUnavailable
	KindRateLimitExceeded
	KindConnectionError
	KindValidation
	KindFunds
	KindRateUnavailable
	KindCircuitOpen
	KindManualReview
)

func (k Kind) String() string {
	switch k {
	case KindNetworkTimeout:
		return "NETWORK_TIMEOUT"
	case KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case KindRateLimitExceeded:
		return "RATE_LIMIT_EXCEEDED"
	case KindConnectionError:
		return "CONNECTION_ERROR"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindFunds:
		return "FUNDS_ERROR"
	case KindRateUnavailable:
		return "RATE_UNAVAILABLE"
	case KindCircuitOpen:
		return "CIRCUIT_OPEN"
	case KindManualReview:
		return "MANUAL_REVIEW_REQUIRED"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether a failure of this kind may succeed on a later
// attempt. Validation, funds and exchange-rate failures are terminal.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetworkTimeout, KindServiceUnavailable, KindRateLimitExceeded, KindConnectionError:
		return true
	default:
		return false
	}
}

// Error is a classified failure. Rail names the external target involved,
// when there is one.
type Error struct {
	Kind Kind
	Rail string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Rail != "" && e.Err != nil:
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Rail, e.Msg, e.Err)
	case e.Rail != "":
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Rail, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and rail name to an underlying error.
func Wrap(kind Kind, rail string, err error) *Error {
	return &Error{Kind: kind, Rail: rail, Msg: "rail call failed", Err: err}
}

// KindOf extracts the classification from err, walking the wrap chain.
// Unclassified errors map to KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return KindOf(err).Retryable()
}
