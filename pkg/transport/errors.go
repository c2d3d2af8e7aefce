package transport

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// ErrExchangeFailed matches every error returned by a Transport.
var ErrExchangeFailed = errors.New("chat exchange failed")

// Kind classifies why an exchange failed. Callers that only need the
// fallback behaviour can ignore it.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindStatus   Kind = "status"
	KindDecode   Kind = "decode"
	KindCanceled Kind = "canceled"
)

type ExchangeError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func newExchangeError(kind Kind, status int, err error) *ExchangeError {
	return &ExchangeError{Kind: kind, StatusCode: status, Err: err}
}

// classify turns an I/O error into a canceled or network failure depending on ctx.
func classify(ctx context.Context, err error) *ExchangeError {
	if ctx.Err() != nil {
		return newExchangeError(KindCanceled, 0, errors.Wrap(ctx.Err(), err.Error()))
	}
	return newExchangeError(KindNetwork, 0, err)
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", ErrExchangeFailed, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrExchangeFailed, e.Kind, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

func (e *ExchangeError) Is(target error) bool {
	return target == ErrExchangeFailed
}

// Transient reports whether sending the same message again might succeed.
func (e *ExchangeError) Transient() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindStatus:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// KindOf returns the failure kind of err, or "" if err is not an exchange error.
func KindOf(err error) Kind {
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
