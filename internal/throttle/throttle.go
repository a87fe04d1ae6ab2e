// Package throttle bounds the number of API requests in flight across
// every emulator instance sharing a token pool.
package throttle

import (
	"context"
	"errors"
)

// TokenManager hands out request tokens from a fixed pool. Acquire on
// an empty pool fails immediately with ErrThrottled rather than
// blocking; the caller turns that into a throttling response.
type TokenManager interface {
	Acquire(ctx context.Context) error

	Release(ctx context.Context) error

	// Initialize resets the pool to the given size.
	Initialize(ctx context.Context, count int) error
}

var ErrThrottled = errors.New("no request token available")
