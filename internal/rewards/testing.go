package rewards

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/convoai/reward-layer/internal/chain"
	"github.com/convoai/reward-layer/internal/token"
	"github.com/convoai/reward-layer/internal/treasury"
)

// MemoryGrantStore is an in-memory GrantStore for tests and single-node runs
// without Postgres.
type MemoryGrantStore struct {
	mu     sync.Mutex
	grants []Grant
}

// NewMemoryGrantStore creates an empty grant store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{}
}

// Insert implements GrantStore.
func (s *MemoryGrantStore) Insert(ctx context.Context, grant *Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant.ID = uuid.NewString()
	s.grants = append(s.grants, *grant)
	return nil
}

// ListByWallet implements GrantStore.
func (s *MemoryGrantStore) ListByWallet(ctx context.Context, wallet string, limit int) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []Grant
	for i := len(s.grants) - 1; i >= 0 && len(out) < limit; i-- {
		if s.grants[i].WalletAddress == wallet {
			out = append(out, s.grants[i])
		}
	}
	return out, nil
}

// All returns every stored grant in insertion order.
func (s *MemoryGrantStore) All() []Grant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Grant, len(s.grants))
	copy(out, s.grants)
	return out
}

var _ GrantStore = (*MemoryGrantStore)(nil)

// FakeEngine is an in-memory TreasuryEngine for service tests. Transfers
// succeed with synthetic signatures unless a failure is scripted.
type FakeEngine struct {
	mu sync.Mutex

	// TransferErr fails user payouts.
	TransferErr error
	// BurnErr fails burn legs.
	BurnErr error

	transfers []fakeTransfer
	burns     []token.Amount

	balances map[string]uint64
	history  map[string][]chain.TransactionInfo
}

type fakeTransfer struct {
	recipient string
	amount    token.Amount
}

// NewFakeEngine creates an empty fake engine.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		balances: make(map[string]uint64),
		history:  make(map[string][]chain.TransactionInfo),
	}
}

// Transfers returns the user payouts attempted so far.
func (f *FakeEngine) Transfers() []token.Amount {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]token.Amount, len(f.transfers))
	for i, t := range f.transfers {
		out[i] = t.amount
	}
	return out
}

// Burns returns the burn amounts attempted so far.
func (f *FakeEngine) Burns() []token.Amount {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]token.Amount, len(f.burns))
	copy(out, f.burns)
	return out
}

// SetBalance sets a wallet's token balance in base units.
func (f *FakeEngine) SetBalance(wallet string, baseUnits uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[wallet] = baseUnits
}

func fakeSignature() string {
	return solana.NewWallet().PublicKey().String()
}

func (f *FakeEngine) Transfer(ctx context.Context, recipientAddress string, amount token.Amount) (treasury.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TransferErr != nil {
		return treasury.TransferResult{}, f.TransferErr
	}
	f.transfers = append(f.transfers, fakeTransfer{recipient: recipientAddress, amount: amount})
	return treasury.TransferResult{Signature: fakeSignature(), Confirmed: true}, nil
}

func (f *FakeEngine) Burn(ctx context.Context, amount token.Amount) (treasury.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BurnErr != nil {
		return treasury.TransferResult{Signature: fakeSignature()}, f.BurnErr
	}
	f.burns = append(f.burns, amount)
	return treasury.TransferResult{Signature: fakeSignature(), Confirmed: true}, nil
}

func (f *FakeEngine) UserTokenBalance(ctx context.Context, walletAddress string) (uint64, error) {
	if _, err := solana.PublicKeyFromBase58(walletAddress); err != nil {
		return 0, fmt.Errorf("%w: %q", treasury.ErrInvalidAddress, walletAddress)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[walletAddress], nil
}

func (f *FakeEngine) TreasuryBalances(ctx context.Context) (treasury.Balances, error) {
	return treasury.Balances{Lamports: 1_000_000_000, Tokens: 1_000_000_000_000}, nil
}

func (f *FakeEngine) TransactionHistory(ctx context.Context, walletAddress string, limit int) ([]chain.TransactionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	infos := f.history[walletAddress]
	if len(infos) > limit {
		infos = infos[:limit]
	}
	out := make([]chain.TransactionInfo, len(infos))
	copy(out, infos)
	return out, nil
}

var _ TreasuryEngine = (*FakeEngine)(nil)
