package rewards

import (
	"context"
)

// GrantStore persists completed payouts for audit and history queries.
type GrantStore interface {
	// Insert records a grant. The caller fills every field except ID and
	// CreatedAt, which the store assigns.
	Insert(ctx context.Context, grant *Grant) error

	// ListByWallet returns the wallet's grants, newest first.
	ListByWallet(ctx context.Context, wallet string, limit int) ([]Grant, error)
}
