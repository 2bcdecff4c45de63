package rewards

import (
	"errors"
	"testing"

	"github.com/convoai/reward-layer/internal/token"
)

func TestComputeGross(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		plan      PlanTier
		wantUnits int64
	}{
		{"no plan halves the base rate", 1500, PlanNone, 7_000_000},
		{"pro pays the base rate", 1500, PlanPro, 15_000_000},
		{"premium doubles the base rate", 1500, PlanPremium, 30_000_000},
		{"partial hundred earns nothing extra", 1599, PlanPro, 15_000_000},
		{"below threshold earns zero", 99, PlanPremium, 0},
		{"zero length earns zero", 0, PlanPro, 0},
		{"half token floors to zero", 100, PlanNone, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gross, err := ComputeGross(tc.length, tc.plan)
			if err != nil {
				t.Fatalf("ComputeGross failed: %v", err)
			}
			if gross.BaseUnits() != tc.wantUnits {
				t.Errorf("got %d base units, want %d", gross.BaseUnits(), tc.wantUnits)
			}
		})
	}
}

func TestComputeGrossMonotonicInPlan(t *testing.T) {
	for _, length := range []int{100, 1000, 1500, 123456} {
		none, _ := ComputeGross(length, PlanNone)
		pro, _ := ComputeGross(length, PlanPro)
		premium, _ := ComputeGross(length, PlanPremium)
		if none.BaseUnits() > pro.BaseUnits() || pro.BaseUnits() > premium.BaseUnits() {
			t.Errorf("length %d: multipliers not monotone: %d/%d/%d",
				length, none.BaseUnits(), pro.BaseUnits(), premium.BaseUnits())
		}
	}
}

func TestComputeGrossInvalidInputs(t *testing.T) {
	if _, err := ComputeGross(-1, PlanPro); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative length, got %v", err)
	}
	if _, err := ComputeGross(100, PlanTier("gold")); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown plan, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	user, burn := Split(token.FromTokens(15))
	if user.Tokens() != 13 {
		t.Errorf("user share: got %d tokens, want 13", user.Tokens())
	}
	if burn.Tokens() != 1 {
		t.Errorf("burn share: got %d tokens, want 1", burn.Tokens())
	}
}

func TestSplitLossBound(t *testing.T) {
	for _, g := range []int64{0, 1, 7, 10, 15, 99, 100, 1000, 13_371_337} {
		gross := token.FromTokens(g)
		user, burn := Split(gross)
		sum := user.Tokens() + burn.Tokens()
		if sum > g {
			t.Errorf("split of %d exceeds gross: user %d + burn %d", g, user.Tokens(), burn.Tokens())
		}
		if g-sum > 1 {
			t.Errorf("split of %d loses %d tokens, more than the rounding bound", g, g-sum)
		}
	}
}

func TestParsePlanTier(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want PlanTier
	}{
		{"", PlanNone},
		{"none", PlanNone},
		{"pro", PlanPro},
		{"premium", PlanPremium},
	} {
		got, err := ParsePlanTier(tc.in)
		if err != nil {
			t.Fatalf("ParsePlanTier(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParsePlanTier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParsePlanTier("platinum"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown tier, got %v", err)
	}
}
