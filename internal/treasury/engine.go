// Package treasury builds, signs, submits, and confirms token transfers from
// the treasury account. The engine owns the treasury keypair and never
// exposes it to callers; retry policy is left to the caller.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	spltoken "github.com/gagliardetto/solana-go/programs/token"

	"github.com/convoai/reward-layer/internal/chain"
	"github.com/convoai/reward-layer/internal/keys"
	"github.com/convoai/reward-layer/internal/token"
	"github.com/convoai/reward-layer/pkg/logger"
)

// MinFeeLamports is the minimum SOL balance the treasury must hold to pay
// transaction fees (0.01 SOL).
const MinFeeLamports = 10_000_000

// Default confirmation polling parameters.
const (
	DefaultConfirmTimeout = 45 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

// Errors
var (
	ErrInvalidAddress   = errors.New("invalid account address")
	ErrInvalidAmount    = errors.New("transfer amount must be positive")
	ErrTransferFailed   = errors.New("transfer failed")
	ErrTreasuryNotReady = errors.New("treasury account not ready")
)

// ChainClient is the narrow network surface the engine depends on.
type ChainClient interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (chain.SignatureStatus, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	TokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error)
	SignaturesForAddress(ctx context.Context, account solana.PublicKey, limit int) ([]chain.TransactionInfo, error)
}

// TransferResult is the outcome of one on-chain transfer attempt. On failure
// after submission the signature is still populated so operators can decide
// whether a retry risks a double spend.
type TransferResult struct {
	Signature string
	Confirmed bool
}

// Balances holds the treasury's fee and token balances.
type Balances struct {
	Lamports uint64 `json:"lamports"`
	Tokens   uint64 `json:"tokens"`
}

// Config holds engine configuration.
type Config struct {
	Mint        solana.PublicKey
	BurnAddress solana.PublicKey

	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Engine executes treasury transfers. Submissions are serialized through a
// single outbound queue: concurrent transactions from one fee payer risk
// blockhash and ordering conflicts on the cluster.
type Engine struct {
	client   ChainClient
	treasury *keys.Treasury
	cfg      Config
	log      *logger.Logger

	submitMu sync.Mutex
}

// NewEngine constructs a transfer engine.
func NewEngine(client ChainClient, treasury *keys.Treasury, cfg Config, log *logger.Logger) *Engine {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if log == nil {
		log = logger.NewDefault("treasury")
	}
	return &Engine{
		client:   client,
		treasury: treasury,
		cfg:      cfg,
		log:      log,
	}
}

// PublicKey returns the treasury account public key.
func (e *Engine) PublicKey() (solana.PublicKey, error) {
	return e.treasury.PublicKey()
}

// Validate checks that the treasury is usable: the seed phrase derives, the
// account holds enough SOL for fees, and its token account exists. Called at
// startup so configuration faults fail fast.
func (e *Engine) Validate(ctx context.Context) error {
	kp, err := e.treasury.Keypair()
	if err != nil {
		return err
	}

	lamports, err := e.client.Balance(ctx, kp.PublicKey)
	if err != nil {
		return fmt.Errorf("treasury balance: %w", err)
	}
	if lamports < MinFeeLamports {
		return fmt.Errorf("%w: fee balance %d lamports below minimum %d", ErrTreasuryNotReady, lamports, MinFeeLamports)
	}

	ata, _, err := solana.FindAssociatedTokenAddress(kp.PublicKey, e.cfg.Mint)
	if err != nil {
		return fmt.Errorf("derive treasury token account: %w", err)
	}
	exists, err := e.client.AccountExists(ctx, ata)
	if err != nil {
		return fmt.Errorf("treasury token account: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: no associated token account for mint %s", ErrTreasuryNotReady, e.cfg.Mint)
	}

	e.log.WithField("treasury", kp.PublicKey.String()).
		WithField("fee_lamports", lamports).
		Info("treasury validated")
	return nil
}

// Transfer moves amount (base units) from the treasury token account to the
// recipient's associated token account, creating the recipient account when
// missing. It blocks until the transaction is confirmed or the confirmation
// timeout elapses. The engine never retries; a timeout is reported as
// ErrTransferFailed with the submitted signature attached.
func (e *Engine) Transfer(ctx context.Context, recipientAddress string, amount token.Amount) (TransferResult, error) {
	recipient, err := solana.PublicKeyFromBase58(recipientAddress)
	if err != nil {
		return TransferResult{}, fmt.Errorf("%w: %q", ErrInvalidAddress, recipientAddress)
	}
	return e.transfer(ctx, recipient, amount)
}

// Burn moves amount to the configured burn address, permanently removing it
// from circulation.
func (e *Engine) Burn(ctx context.Context, amount token.Amount) (TransferResult, error) {
	return e.transfer(ctx, e.cfg.BurnAddress, amount)
}

func (e *Engine) transfer(ctx context.Context, recipient solana.PublicKey, amount token.Amount) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, ErrInvalidAmount
	}

	kp, err := e.treasury.Keypair()
	if err != nil {
		return TransferResult{}, err
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(kp.PublicKey, e.cfg.Mint)
	if err != nil {
		return TransferResult{}, fmt.Errorf("derive treasury token account: %w", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, e.cfg.Mint)
	if err != nil {
		return TransferResult{}, fmt.Errorf("derive recipient token account: %w", err)
	}

	destExists, err := e.client.AccountExists(ctx, destATA)
	if err != nil {
		return TransferResult{}, fmt.Errorf("%w: check recipient token account: %v", ErrTransferFailed, err)
	}

	instructions := make([]solana.Instruction, 0, 2)
	if !destExists {
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(kp.PublicKey, recipient, e.cfg.Mint).Build())
	}
	instructions = append(instructions,
		spltoken.NewTransferInstruction(uint64(amount.BaseUnits()), sourceATA, destATA, kp.PublicKey, nil).Build())

	sig, err := e.submit(ctx, kp, instructions)
	if err != nil {
		return TransferResult{}, err
	}

	e.log.WithField("signature", sig.String()).
		WithField("recipient", recipient.String()).
		WithField("amount", amount.String()).
		Info("transfer submitted")

	if err := e.awaitConfirmation(ctx, sig); err != nil {
		return TransferResult{Signature: sig.String()}, err
	}
	return TransferResult{Signature: sig.String(), Confirmed: true}, nil
}

// submit builds, signs, and sends one transaction under the outbound lock.
func (e *Engine) submit(ctx context.Context, kp keys.Keypair, instructions []solana.Instruction) (solana.Signature, error) {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	blockhash, err := e.client.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(kp.PublicKey))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: build transaction: %v", ErrTransferFailed, err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(kp.PublicKey) {
			return &kp.PrivateKey
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: sign transaction: %v", ErrTransferFailed, err)
	}

	sig, err := e.client.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return sig, nil
}

// awaitConfirmation polls the signature status until the transaction is
// confirmed, rejected, or the bounded timeout elapses. A submitted
// transaction cannot be cancelled, only abandoned.
func (e *Engine) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.NewTimer(e.cfg.ConfirmTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(e.cfg.PollInterval)
	defer tick.Stop()

	for {
		status, err := e.client.SignatureStatus(ctx, sig)
		if err == nil {
			if status.Err != "" {
				return fmt.Errorf("%w: transaction %s rejected: %s", ErrTransferFailed, sig, status.Err)
			}
			if status.Confirmed {
				return nil
			}
		} else {
			e.log.WithError(err).WithField("signature", sig.String()).Warn("signature status poll failed")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: confirmation aborted for %s: %v", ErrTransferFailed, sig, ctx.Err())
		case <-deadline.C:
			return fmt.Errorf("%w: confirmation timeout for %s after %s", ErrTransferFailed, sig, e.cfg.ConfirmTimeout)
		case <-tick.C:
		}
	}
}

// =============================================================================
// Read-only queries
// =============================================================================

// UserTokenBalance returns the token balance (base units) of the wallet's
// associated token account, or zero when the account does not exist yet.
func (e *Engine) UserTokenBalance(ctx context.Context, walletAddress string) (uint64, error) {
	wallet, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, walletAddress)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, e.cfg.Mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}
	exists, err := e.client.AccountExists(ctx, ata)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	balance, _, err := e.client.TokenAccountBalance(ctx, ata)
	return balance, err
}

// TreasuryBalances returns the treasury's lamport and token balances.
func (e *Engine) TreasuryBalances(ctx context.Context) (Balances, error) {
	kp, err := e.treasury.Keypair()
	if err != nil {
		return Balances{}, err
	}
	lamports, err := e.client.Balance(ctx, kp.PublicKey)
	if err != nil {
		return Balances{}, err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(kp.PublicKey, e.cfg.Mint)
	if err != nil {
		return Balances{}, err
	}
	tokens, _, err := e.client.TokenAccountBalance(ctx, ata)
	if err != nil {
		return Balances{}, err
	}
	return Balances{Lamports: lamports, Tokens: tokens}, nil
}

// TransactionHistory returns the wallet's recent transactions, newest first.
func (e *Engine) TransactionHistory(ctx context.Context, walletAddress string, limit int) ([]chain.TransactionInfo, error) {
	wallet, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, walletAddress)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 1000 {
		limit = 1000
	}
	return e.client.SignaturesForAddress(ctx, wallet, limit)
}
