// Package orchestrator defines the error taxonomy shared across the
// session store, ReAct loop, tool dispatcher, and stdio server.
package orchestrator

import "fmt"

// Kind classifies an Error so callers can branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidationError
	KindLockTimeout
	KindLMTransportError
	KindToolFailure
	KindContextOverflow
	KindProtocolError
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidationError:
		return "validation_error"
	case KindLockTimeout:
		return "lock_timeout"
	case KindLMTransportError:
		return "lm_transport_error"
	case KindToolFailure:
		return "tool_failure"
	case KindContextOverflow:
		return "context_overflow"
	case KindProtocolError:
		return "protocol_error"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the typed error carried across package boundaries.
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

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFoundf(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Validationf(format string, args ...any) *Error {
	return newf(KindValidationError, format, args...)
}

func LockTimeoutf(format string, args ...any) *Error {
	return newf(KindLockTimeout, format, args...)
}

func LMTransportf(err error, format string, args ...any) *Error {
	return wrapf(KindLMTransportError, err, format, args...)
}

func ToolFailuref(format string, args ...any) *Error {
	return newf(KindToolFailure, format, args...)
}

func ContextOverflowf(format string, args ...any) *Error {
	return newf(KindContextOverflow, format, args...)
}

func ProtocolErrorf(format string, args ...any) *Error {
	return newf(KindProtocolError, format, args...)
}

func Fatalf(err error, format string, args ...any) *Error {
	return wrapf(KindFatal, err, format, args...)
}

// As extracts an *Error from err via errors.As semantics without importing
// the errors package at call sites.
func As(err error) (*Error, bool) {
	for err != nil {
		if oe, ok := err.(*Error); ok {
			return oe, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// ExitCode maps a Kind to the CLI exit code convention: 0 success (never
// produced here), 1 retryable, 2 permanent/abort.
func (k Kind) ExitCode() int {
	switch k {
	case KindLockTimeout, KindLMTransportError:
		return 1
	default:
		return 2
	}
}

// JSONRPCCode maps a Kind to the stdio tool server's JSON-RPC error code.
func (k Kind) JSONRPCCode() int {
	if k == KindToolFailure {
		return -32000
	}
	return -32603
}
