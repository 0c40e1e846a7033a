package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often a single remote call is attempted.
// MaxRetries <= 0 means exactly one attempt.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPStatusError is implemented by upstream errors that carry a response status.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// Do runs op under p. Only errors accepted by Retryable are attempted again.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	if p.MaxRetries <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	return backoff.Retry(ctx, func() (T, error) {
		res, err := op()
		if err != nil && !Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(p.MaxRetries)+1))
}

// Retryable reports whether err looks transient: transport failures,
// 429 and 5xx responses. Context cancellation is never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr HTTPStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatus()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return true
}
