package rewards

import (
	"fmt"

	"github.com/convoai/reward-layer/internal/token"
)

// Plan multipliers as integer ratios. Integer arithmetic keeps the gross
// exact at any conversation length; floating point would drift on large
// inputs.
var planMultipliers = map[PlanTier]struct{ num, den int64 }{
	PlanNone:    {1, 2},
	PlanPro:     {1, 1},
	PlanPremium: {2, 1},
}

// ComputeGross calculates the gross reward for a conversation: one token per
// CharsPerToken characters, scaled by the plan multiplier, floored to whole
// tokens. A conversation too short to earn anything yields zero.
func ComputeGross(conversationLength int, plan PlanTier) (token.Amount, error) {
	if conversationLength < 0 {
		return token.Amount{}, fmt.Errorf("%w: negative conversation length %d", ErrValidation, conversationLength)
	}
	mult, ok := planMultipliers[plan]
	if !ok {
		return token.Amount{}, fmt.Errorf("%w: unknown plan %q", ErrValidation, plan)
	}

	baseTokens := int64(conversationLength) / CharsPerToken
	return token.FromTokens(baseTokens * mult.num / mult.den), nil
}

// Split divides a gross reward into the user payout and the burn amount,
// each floored to whole tokens. Both floors truncate independently, so up to
// one token of the gross stays in the treasury; the sum never exceeds the
// gross.
func Split(gross token.Amount) (user, burn token.Amount) {
	g := gross.Tokens()
	return token.FromTokens(g * UserSharePercent / 100), token.FromTokens(g * BurnSharePercent / 100)
}
