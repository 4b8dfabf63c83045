package backend

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is classification of *Error.
var (
	ErrRequestFailed = errors.New("request failed")
	ErrDecodeFailed  = errors.New("response decode failed")
)

// Kind classifies a failed call.
type Kind int

const (
	// KindRequest covers transport failures and non-2xx responses.
	KindRequest Kind = iota
	// KindDecode covers empty or non-JSON response bodies.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request_failed"
	case KindDecode:
		return "decode_failed"
	default:
		return "unknown"
	}
}

// Error is returned by Client.TestIndicators for every failure.
type Error struct {
	Kind       Kind
	StatusCode int    // 0 when no response was received
	Body       string // excerpt of a non-2xx body
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Kind == KindRequest:
		if e.Body != "" {
			return fmt.Sprintf("%s: status %d: %s", e.sentinel(), e.StatusCode, e.Body)
		}
		return fmt.Sprintf("%s: status %d", e.sentinel(), e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
	default:
		return e.sentinel().Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrRequestFailed or ErrDecodeFailed according to Kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	if e.Kind == KindDecode {
		return ErrDecodeFailed
	}
	return ErrRequestFailed
}

// KindOf returns the Kind of err and whether err is a backend *Error.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return KindRequest, false
}
