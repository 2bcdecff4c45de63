// Package chain provides Solana network interaction for the reward layer.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Known RPC endpoints.
const (
	MainnetRPCURL = "https://api.mainnet-beta.solana.com"
	DevnetRPCURL  = "https://api.devnet.solana.com"
)

// Client wraps a Solana JSON-RPC client at a fixed commitment level.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

// Config holds client configuration.
type Config struct {
	RPCURL     string
	Commitment rpc.CommitmentType // defaults to confirmed
}

// NewClient creates a new Solana RPC client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}
	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{
		rpc:        rpc.New(cfg.RPCURL),
		commitment: commitment,
	}, nil
}

// SignatureStatus reports the confirmation state of a submitted transaction.
type SignatureStatus struct {
	Confirmed bool
	Finalized bool
	Err       string // non-empty when the cluster rejected the transaction
}

// TransactionInfo is a single entry of an account's transaction history.
type TransactionInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime int64  `json:"blockTime,omitempty"`
	Err       string `json:"err,omitempty"`
}

// =============================================================================
// Transaction submission
// =============================================================================

// LatestBlockhash returns a recent blockhash to anchor a new transaction.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// SignatureStatus looks up the confirmation status of a signature. A zero
// status with nil error means the cluster does not know the signature yet.
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (SignatureStatus, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return SignatureStatus{}, fmt.Errorf("get signature status: %w", err)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return SignatureStatus{}, nil
	}
	st := out.Value[0]

	var status SignatureStatus
	if st.Err != nil {
		status.Err = fmt.Sprintf("%v", st.Err)
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed:
		status.Confirmed = true
	case rpc.ConfirmationStatusFinalized:
		status.Confirmed = true
		status.Finalized = true
	}
	return status, nil
}

// =============================================================================
// Account queries
// =============================================================================

// AccountExists reports whether an account is present on chain.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get account info: %w", err)
	}
	return true, nil
}

// Balance returns the lamport balance of an account.
func (c *Client) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, account, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}

// TokenAccountBalance returns the token balance of a token account in base
// units, together with the mint's decimal precision.
func (c *Client) TokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	out, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	if err != nil {
		return 0, 0, fmt.Errorf("get token account balance: %w", err)
	}
	if out == nil || out.Value == nil {
		return 0, 0, fmt.Errorf("get token account balance: empty response")
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse token amount %q: %w", out.Value.Amount, err)
	}
	return amount, out.Value.Decimals, nil
}

// SignaturesForAddress returns the most recent transactions touching the
// account, newest first.
func (c *Client) SignaturesForAddress(ctx context.Context, account solana.PublicKey, limit int) ([]TransactionInfo, error) {
	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, account, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("get signatures for address: %w", err)
	}

	infos := make([]TransactionInfo, 0, len(out))
	for _, sig := range out {
		info := TransactionInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
		}
		if sig.BlockTime != nil {
			info.BlockTime = sig.BlockTime.Time().Unix()
		}
		if sig.Err != nil {
			info.Err = fmt.Sprintf("%v", sig.Err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
