package rewards

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresGrantStore is a GrantStore backed by PostgreSQL.
type PostgresGrantStore struct {
	db *sql.DB
}

// NewPostgresGrantStore creates a Postgres-backed grant store.
func NewPostgresGrantStore(db *sql.DB) *PostgresGrantStore {
	return &PostgresGrantStore{db: db}
}

// EnsureSchema creates the grants table when missing.
func (s *PostgresGrantStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reward_grants (
			id              TEXT PRIMARY KEY,
			wallet_address  TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			gross_amount    BIGINT NOT NULL,
			user_amount     BIGINT NOT NULL,
			burn_amount     BIGINT NOT NULL,
			user_tx         TEXT NOT NULL,
			burn_tx         TEXT NOT NULL DEFAULT '',
			warning         TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS reward_grants_wallet_idx
			ON reward_grants (wallet_address, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure reward_grants schema: %w", err)
	}
	return nil
}

// Insert implements GrantStore.
func (s *PostgresGrantStore) Insert(ctx context.Context, grant *Grant) error {
	grant.ID = uuid.NewString()
	grant.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reward_grants
			(id, wallet_address, conversation_id, gross_amount, user_amount,
			 burn_amount, user_tx, burn_tx, warning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		grant.ID, grant.WalletAddress, grant.ConversationID, grant.GrossAmount,
		grant.UserAmount, grant.BurnAmount, grant.UserTx, grant.BurnTx,
		grant.Warning, grant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reward grant: %w", err)
	}
	return nil
}

// ListByWallet implements GrantStore.
func (s *PostgresGrantStore) ListByWallet(ctx context.Context, wallet string, limit int) ([]Grant, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_address, conversation_id, gross_amount, user_amount,
		       burn_amount, user_tx, burn_tx, warning, created_at
		FROM reward_grants
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reward grants: %w", err)
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.WalletAddress, &g.ConversationID,
			&g.GrossAmount, &g.UserAmount, &g.BurnAmount,
			&g.UserTx, &g.BurnTx, &g.Warning, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reward grant: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward grants: %w", err)
	}
	return grants, nil
}

var _ GrantStore = (*PostgresGrantStore)(nil)
