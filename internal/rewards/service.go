package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/convoai/reward-layer/internal/chain"
	"github.com/convoai/reward-layer/internal/metrics"
	"github.com/convoai/reward-layer/internal/middleware"
	"github.com/convoai/reward-layer/internal/token"
	"github.com/convoai/reward-layer/internal/treasury"
	"github.com/convoai/reward-layer/pkg/logger"
)

// TreasuryEngine is the treasury surface the service depends on.
type TreasuryEngine interface {
	Transfer(ctx context.Context, recipientAddress string, amount token.Amount) (treasury.TransferResult, error)
	Burn(ctx context.Context, amount token.Amount) (treasury.TransferResult, error)
	UserTokenBalance(ctx context.Context, walletAddress string) (uint64, error)
	TreasuryBalances(ctx context.Context) (treasury.Balances, error)
	TransactionHistory(ctx context.Context, walletAddress string, limit int) ([]chain.TransactionInfo, error)
}

// Config holds service configuration.
type Config struct {
	// DailyCapTokens bounds gross rewards per wallet per UTC day.
	DailyCapTokens int64
	// RequestsPerMinute bounds reward requests per wallet.
	RequestsPerMinute int
}

// Service orchestrates reward grants: validation, rate limiting, reward
// calculation, the daily cap, the two on-chain transfer legs, and the audit
// record.
type Service struct {
	engine  TreasuryEngine
	limits  LimitStore
	grants  GrantStore
	limiter *middleware.RateLimiter
	log     *logger.Logger
	cfg     Config

	now func() time.Time
}

// NewService constructs the reward service.
func NewService(engine TreasuryEngine, limits LimitStore, grants GrantStore, cfg Config, log *logger.Logger) *Service {
	if cfg.DailyCapTokens <= 0 {
		cfg.DailyCapTokens = DefaultDailyCapTokens
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = MaxRequestsPerMinute
	}
	if log == nil {
		log = logger.NewDefault("rewards")
	}
	return &Service{
		engine:  engine,
		limits:  limits,
		grants:  grants,
		limiter: middleware.NewPerMinuteRateLimiter(cfg.RequestsPerMinute),
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// RateLimiter exposes the per-wallet limiter for background cleanup.
func (s *Service) RateLimiter() *middleware.RateLimiter { return s.limiter }

// ProcessReward runs one reward grant end to end. The gross reward is always
// recomputed server side from the conversation length and plan; the client's
// rewardAmount is only a sanity check. The daily allowance is reserved before
// any transfer and returned if the user payout fails, so a failed run charges
// nothing. A confirmed user payout with a failed burn leg still succeeds,
// with the burn flagged in the result for later reconciliation.
func (s *Service) ProcessReward(ctx context.Context, req RewardRequest) (RewardResult, error) {
	start := s.now()

	if err := validateRequest(req); err != nil {
		metrics.RecordGrant("rejected_validation", s.now().Sub(start), 0, 0)
		return RewardResult{}, err
	}

	if !s.limiter.Allow(req.WalletAddress) {
		metrics.RecordGrant("rejected_rate_limit", s.now().Sub(start), 0, 0)
		return RewardResult{}, ErrRateLimited
	}

	plan := req.Plan
	if plan == "" {
		plan = PlanNone
	}
	gross, err := ComputeGross(req.ConversationLength, plan)
	if err != nil {
		metrics.RecordGrant("rejected_validation", s.now().Sub(start), 0, 0)
		return RewardResult{}, err
	}
	userAmount, burnAmount := Split(gross)

	log := s.log.WithField("wallet", req.WalletAddress).
		WithField("conversation_id", req.ConversationID).
		WithField("gross", gross.String())

	// A conversation too short to earn anything is a successful no-op, not
	// an error. No reservation, no transaction. Checked on the split rather
	// than the gross: a one-token gross floors to zero on both legs.
	if userAmount.IsZero() && burnAmount.IsZero() {
		log.Info("conversation below reward threshold")
		metrics.RecordGrant("zero", s.now().Sub(start), 0, 0)
		return RewardResult{Success: true}, nil
	}

	day := UTCDay(s.now())
	capUnits := s.cfg.DailyCapTokens * token.UnitsPerToken
	used, ok, err := s.limits.Reserve(ctx, req.WalletAddress, day, gross.BaseUnits(), capUnits)
	if err != nil {
		metrics.RecordGrant("failed_limit_store", s.now().Sub(start), 0, 0)
		return RewardResult{}, fmt.Errorf("reserve daily allowance: %w", err)
	}
	if !ok {
		metrics.RecordGrant("rejected_daily_limit", s.now().Sub(start), 0, 0)
		return RewardResult{}, &DailyLimitError{
			Remaining: capUnits - used,
			ResetAt:   NextUTCMidnight(s.now()),
		}
	}

	userRes, err := s.engine.Transfer(ctx, req.WalletAddress, userAmount)
	if err != nil {
		// The reservation is returned so the wallet is not charged for a
		// payout that never landed.
		if relErr := s.limits.Release(ctx, req.WalletAddress, day, gross.BaseUnits()); relErr != nil {
			log.WithError(relErr).Error("failed to release daily allowance after transfer failure")
		}
		log.WithError(err).WithField("signature", userRes.Signature).Error("user payout failed")
		metrics.RecordGrant("failed_transfer", s.now().Sub(start), 0, 0)
		return RewardResult{UserRewardTx: userRes.Signature}, err
	}

	result := RewardResult{
		Success:          true,
		UserRewardAmount: userAmount.BaseUnits(),
		BurnAmount:       burnAmount.BaseUnits(),
		UserRewardTx:     userRes.Signature,
	}

	status := "completed"
	grantBurnTx := ""
	if burnAmount.IsPositive() {
		burnRes, burnErr := s.engine.Burn(ctx, burnAmount)
		grantBurnTx = burnRes.Signature
		if burnErr != nil {
			// The user payout is already on chain, so the grant stands and
			// the usage reservation stays charged in full. The response
			// carries no burn signature; an unconfirmed submission goes to
			// the warning and the grant record for reconciliation.
			result.Warning = fmt.Sprintf("burn transfer failed: %v", burnErr)
			if burnRes.Signature != "" {
				result.Warning = fmt.Sprintf("burn transfer failed (tx %s): %v", burnRes.Signature, burnErr)
			}
			status = "partial"
			log.WithError(burnErr).Warn("burn leg failed after user payout")
		} else {
			result.BurnTx = burnRes.Signature
		}
	}

	grant := &Grant{
		WalletAddress:  req.WalletAddress,
		ConversationID: req.ConversationID,
		GrossAmount:    gross.BaseUnits(),
		UserAmount:     userAmount.BaseUnits(),
		BurnAmount:     burnAmount.BaseUnits(),
		UserTx:         result.UserRewardTx,
		BurnTx:         grantBurnTx,
		Warning:        result.Warning,
	}
	if err := s.grants.Insert(ctx, grant); err != nil {
		// The payout landed; a lost audit row must not fail the grant.
		log.WithError(err).Error("failed to record reward grant")
	}

	burnedUnits := int64(0)
	if status == "completed" {
		burnedUnits = burnAmount.BaseUnits()
	}
	metrics.RecordGrant(status, s.now().Sub(start), userAmount.BaseUnits(), burnedUnits)

	log.WithField("user_tx", result.UserRewardTx).
		WithField("burn_tx", result.BurnTx).
		WithField("status", status).
		Info("reward granted")
	return result, nil
}

func validateRequest(req RewardRequest) error {
	if req.WalletAddress == "" {
		return fmt.Errorf("%w: userWalletAddress is required", ErrValidation)
	}
	if _, err := solana.PublicKeyFromBase58(req.WalletAddress); err != nil {
		return fmt.Errorf("%w: invalid wallet address %q", ErrValidation, req.WalletAddress)
	}
	if req.ConversationID == "" {
		return fmt.Errorf("%w: conversationId is required", ErrValidation)
	}
	if req.ConversationLength <= 0 {
		return fmt.Errorf("%w: conversationLength must be positive", ErrValidation)
	}
	if req.RewardAmount <= 0 {
		return fmt.Errorf("%w: rewardAmount must be positive", ErrValidation)
	}
	if _, err := ParsePlanTier(string(req.Plan)); err != nil {
		return err
	}
	return nil
}

// DailyLimit reports the wallet's standing against the daily cap.
func (s *Service) DailyLimit(ctx context.Context, wallet string) (DailyInfo, error) {
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return DailyInfo{}, fmt.Errorf("%w: invalid wallet address %q", ErrValidation, wallet)
	}
	now := s.now()
	used, err := s.limits.Usage(ctx, wallet, UTCDay(now))
	if err != nil {
		return DailyInfo{}, fmt.Errorf("read daily usage: %w", err)
	}
	capUnits := s.cfg.DailyCapTokens * token.UnitsPerToken
	remaining := capUnits - used
	if remaining < 0 {
		remaining = 0
	}
	return DailyInfo{
		Used:      used,
		Limit:     capUnits,
		Remaining: remaining,
		ResetAt:   NextUTCMidnight(now),
	}, nil
}

// Balance returns the wallet's token balance in base units.
func (s *Service) Balance(ctx context.Context, wallet string) (uint64, error) {
	return s.engine.UserTokenBalance(ctx, wallet)
}

// TreasuryBalances returns the treasury's fee and token balances.
func (s *Service) TreasuryBalances(ctx context.Context) (treasury.Balances, error) {
	return s.engine.TreasuryBalances(ctx)
}

// TransactionHistory returns the wallet's recent on-chain transactions.
func (s *Service) TransactionHistory(ctx context.Context, wallet string, limit int) ([]chain.TransactionInfo, error) {
	return s.engine.TransactionHistory(ctx, wallet, limit)
}

// Grants returns the wallet's recorded reward grants, newest first.
func (s *Service) Grants(ctx context.Context, wallet string, limit int) ([]Grant, error) {
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return nil, fmt.Errorf("%w: invalid wallet address %q", ErrValidation, wallet)
	}
	return s.grants.ListByWallet(ctx, wallet, limit)
}
