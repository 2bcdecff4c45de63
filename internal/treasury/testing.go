package treasury

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/convoai/reward-layer/internal/chain"
)

// FakeChainClient is an in-memory ChainClient for tests. Accounts marked as
// existing are reported by AccountExists; submitted transactions confirm
// after ConfirmAfterPolls status polls unless a failure is scripted.
type FakeChainClient struct {
	mu sync.Mutex

	existing map[solana.PublicKey]bool
	lamports map[solana.PublicKey]uint64
	tokens   map[solana.PublicKey]uint64
	history  map[solana.PublicKey][]chain.TransactionInfo

	// ConfirmAfterPolls delays confirmation by that many status polls.
	ConfirmAfterPolls int
	// NeverConfirm keeps every submitted signature unconfirmed.
	NeverConfirm bool
	// SendErr makes SendTransaction fail.
	SendErr error
	// StatusErr is reported as the on-chain error of every transaction.
	StatusErr string

	submitted []*solana.Transaction
	polls     map[solana.Signature]int
}

// NewFakeChainClient creates an empty fake cluster.
func NewFakeChainClient() *FakeChainClient {
	return &FakeChainClient{
		existing: make(map[solana.PublicKey]bool),
		lamports: make(map[solana.PublicKey]uint64),
		tokens:   make(map[solana.PublicKey]uint64),
		history:  make(map[solana.PublicKey][]chain.TransactionInfo),
		polls:    make(map[solana.Signature]int),
	}
}

// AddAccount marks an account as existing on chain.
func (f *FakeChainClient) AddAccount(account solana.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing[account] = true
}

// SetLamports sets an account's SOL balance.
func (f *FakeChainClient) SetLamports(account solana.PublicKey, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing[account] = true
	f.lamports[account] = lamports
}

// SetTokenBalance sets a token account's balance in base units.
func (f *FakeChainClient) SetTokenBalance(account solana.PublicKey, baseUnits uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing[account] = true
	f.tokens[account] = baseUnits
}

// AddHistory appends a history entry for an account.
func (f *FakeChainClient) AddHistory(account solana.PublicKey, info chain.TransactionInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[account] = append(f.history[account], info)
}

// Submitted returns the transactions sent so far.
func (f *FakeChainClient) Submitted() []*solana.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*solana.Transaction, len(f.submitted))
	copy(out, f.submitted)
	return out
}

func (f *FakeChainClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var h solana.Hash
	if _, err := rand.Read(h[:]); err != nil {
		return solana.Hash{}, err
	}
	return h, nil
}

func (f *FakeChainClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return solana.Signature{}, f.SendErr
	}
	f.submitted = append(f.submitted, tx)
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, fmt.Errorf("unsigned transaction")
	}
	return tx.Signatures[0], nil
}

func (f *FakeChainClient) SignatureStatus(ctx context.Context, sig solana.Signature) (chain.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusErr != "" {
		return chain.SignatureStatus{Err: f.StatusErr}, nil
	}
	if f.NeverConfirm {
		return chain.SignatureStatus{}, nil
	}
	f.polls[sig]++
	if f.polls[sig] <= f.ConfirmAfterPolls {
		return chain.SignatureStatus{}, nil
	}
	return chain.SignatureStatus{Confirmed: true}, nil
}

func (f *FakeChainClient) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[account], nil
}

func (f *FakeChainClient) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lamports[account], nil
}

func (f *FakeChainClient) TokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.existing[account] {
		return 0, 0, fmt.Errorf("account %s not found", account)
	}
	return f.tokens[account], 6, nil
}

func (f *FakeChainClient) SignaturesForAddress(ctx context.Context, account solana.PublicKey, limit int) ([]chain.TransactionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	infos := f.history[account]
	if len(infos) > limit {
		infos = infos[:limit]
	}
	out := make([]chain.TransactionInfo, len(infos))
	copy(out, infos)
	return out, nil
}

var _ ChainClient = (*FakeChainClient)(nil)
