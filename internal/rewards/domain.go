// Package rewards implements the conversation reward pipeline: computing a
// gross reward from conversation activity, splitting it into a user payout
// and a burn, enforcing the per-wallet daily cap, and driving the treasury
// transfer engine.
package rewards

import (
	"errors"
	"fmt"
	"time"
)

// PlanTier is a subscription tier with a fixed reward multiplier.
type PlanTier string

const (
	PlanNone    PlanTier = "none"
	PlanPro     PlanTier = "pro"
	PlanPremium PlanTier = "premium"
)

// Reward configuration.
const (
	// CharsPerToken is the conversation length earning one gross token.
	CharsPerToken = 100
	// UserSharePercent of the gross goes to the user; the rest is burned.
	UserSharePercent = 90
	// BurnSharePercent of the gross is sent to the burn address.
	BurnSharePercent = 10
	// DefaultDailyCapTokens bounds the gross reward per wallet per UTC day.
	DefaultDailyCapTokens = 1000
	// MaxRequestsPerMinute bounds reward requests per wallet.
	MaxRequestsPerMinute = 10
)

// RewardRequest is one reward grant attempt for a conversation.
type RewardRequest struct {
	WalletAddress      string   `json:"userWalletAddress"`
	RewardAmount       int64    `json:"rewardAmount"` // client hint in display tokens, never authoritative
	ConversationID     string   `json:"conversationId"`
	ConversationLength int      `json:"conversationLength"` // user+assistant characters
	Plan               PlanTier `json:"plan,omitempty"`
	Timestamp          int64    `json:"timestamp"` // epoch millis
}

// RewardResult is the outcome of a processed reward. Amounts are base units.
// A populated Warning with Success=true means the user payout landed but the
// burn leg failed; downstream accounting reconciles burns separately.
type RewardResult struct {
	Success          bool   `json:"success"`
	UserRewardAmount int64  `json:"userRewardAmount"`
	BurnAmount       int64  `json:"burnAmount"`
	UserRewardTx     string `json:"userRewardTx,omitempty"`
	BurnTx           string `json:"burnTx,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

// DailyInfo reports a wallet's standing against the daily cap, in base units.
type DailyInfo struct {
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// Grant records one completed payout.
type Grant struct {
	ID             string    `json:"id"`
	WalletAddress  string    `json:"wallet_address"`
	ConversationID string    `json:"conversation_id"`
	GrossAmount    int64     `json:"gross_amount"` // base units
	UserAmount     int64     `json:"user_amount"`
	BurnAmount     int64     `json:"burn_amount"`
	UserTx         string    `json:"user_tx"`
	BurnTx         string    `json:"burn_tx,omitempty"`
	Warning        string    `json:"warning,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Errors
var (
	ErrValidation  = errors.New("validation failed")
	ErrRateLimited = errors.New("too many reward requests, slow down")
)

// DailyLimitError rejects a grant that would exceed the daily cap.
type DailyLimitError struct {
	Remaining int64     // base units still grantable today
	ResetAt   time.Time // next UTC midnight
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily reward limit exceeded: %d base units remaining until %s",
		e.Remaining, e.ResetAt.Format(time.RFC3339))
}

// ParsePlanTier maps a wire value to a tier; empty input means no plan.
func ParsePlanTier(s string) (PlanTier, error) {
	switch PlanTier(s) {
	case "":
		return PlanNone, nil
	case PlanNone, PlanPro, PlanPremium:
		return PlanTier(s), nil
	default:
		return "", fmt.Errorf("%w: unknown plan %q", ErrValidation, s)
	}
}

// UTCDay formats the UTC calendar date used as the daily-limit key.
func UTCDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextUTCMidnight returns the instant the daily cap resets.
func NextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
