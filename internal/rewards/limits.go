package rewards

import (
	"context"
)

// LimitStore tracks per-wallet daily reward usage in base units. Reserve is
// the only admission path: it atomically charges the requested amount against
// the day's cap, so when two requests race for the last remaining allowance
// exactly one wins. A reservation charged for a grant that later fails is
// returned with Release.
type LimitStore interface {
	// Reserve charges amount against the wallet's usage for the given UTC
	// day. It returns the usage after the call and whether the reservation
	// fit under limit. When it does not fit, usage is left unchanged.
	Reserve(ctx context.Context, wallet, day string, amount, limit int64) (used int64, ok bool, err error)

	// Release returns a previously reserved amount, clamping at zero.
	Release(ctx context.Context, wallet, day string, amount int64) error

	// Usage reports the wallet's charged usage for the day.
	Usage(ctx context.Context, wallet, day string) (int64, error)
}
