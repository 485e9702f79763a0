package keeper

import (
	"errors"
	"testing"

	"cosmossdk.io/math"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
	margintypes "github.com/openalpha/clearing-core/x/margin/types"
)

func TestDutchPenaltyParameter(t *testing.T) {
	dMin := math.LegacyNewDecWithPrec(5, 2)
	dSlope := math.LegacyNewDecWithPrec(50, 2)

	tests := []struct {
		name   string
		health math.LegacyDec
		want   math.LegacyDec
	}{
		{"full health", math.LegacyOneDec(), dMin},
		{"half health", math.LegacyNewDecWithPrec(5, 1), math.LegacyNewDecWithPrec(30, 2)},
		{"zero health", math.LegacyZeroDec(), math.LegacyNewDecWithPrec(55, 2)},
		{"deep insolvency caps at one", math.LegacyNewDec(-2), math.LegacyOneDec()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := dutchPenaltyParameter(tc.health, dMin, dSlope)
			if !got.Equal(tc.want) {
				t.Errorf("health %s: expected %s, got %s", tc.health.String(), tc.want.String(), got.String())
			}
		})
	}
}

func TestExecuteDutchLiquidation(t *testing.T) {
	env, ctx := setupEnv(t)
	// 100 against LM 200: health 0.5, below the dutch threshold, above ADL.
	env.setExposure(t, ctx, liquidateeID, 400, 0)
	env.deposit(t, ctx, liquidateeID, "usdc", 100)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	result, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", testMarketID, nil)
	if err != nil {
		t.Fatalf("ExecuteDutchLiquidation failed: %v", err)
	}
	// 0.05 + (1 - 0.5) * 0.5 = 0.30.
	if !result.PenaltyParameter.Equal(math.LegacyNewDecWithPrec(30, 2)) {
		t.Errorf("expected penalty parameter 0.30, got %s", result.PenaltyParameter.String())
	}
	// LM delta moved from -100 to 100, so penalty = 0.30 * 200 = 60.
	if !result.Penalty.Equal(math.LegacyNewDec(60)) {
		t.Errorf("expected penalty 60, got %s", result.Penalty.String())
	}
	if !result.Distribution.Keeper.IsZero() {
		t.Errorf("dutch path pays no keeper share, got %s", result.Distribution.Keeper.String())
	}
	if !result.Distribution.Liquidator.Equal(math.LegacyNewDec(36)) {
		t.Errorf("expected liquidator share 36, got %s", result.Distribution.Liquidator.String())
	}
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(40)) {
		t.Errorf("expected liquidatee balance 40, got %s", got.String())
	}
	if got := env.balance(ctx, liquidatorID, "usdc"); !got.Equal(math.LegacyNewDec(1036)) {
		t.Errorf("expected liquidator balance 1036, got %s", got.String())
	}
	if env.market.liquidations != 1 {
		t.Errorf("expected 1 liquidation order, got %d", env.market.liquidations)
	}
}

func TestDutchWorseningFillRejected(t *testing.T) {
	env, ctx := setupEnv(t)
	env.setExposure(t, ctx, liquidateeID, 400, 0)
	env.deposit(t, ctx, liquidateeID, "usdc", 100)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	// The fill doubles the exposure instead of reducing it.
	env.market.execShift[liquidateeID] = []margintypes.ExposurePair{{
		Lower: margintypes.MarketExposure{
			AnnualizedNotional: math.LegacyNewDec(800),
			UnrealizedLoss:     math.LegacyZeroDec(),
		},
		Upper: margintypes.MarketExposure{
			AnnualizedNotional: math.LegacyNewDec(800),
			UnrealizedLoss:     math.LegacyZeroDec(),
		},
	}}

	_, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", testMarketID, nil)
	if !errors.Is(err, types.ErrNegativeLmDeltaChange) {
		t.Fatalf("expected the improvement fence to reject the step, got %v", err)
	}
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(100)) {
		t.Errorf("expected no penalty charged, balance 100, got %s", got.String())
	}
}

func TestDutchBlockedByLiveBidQueueAboveThreshold(t *testing.T) {
	env, ctx := setupEnv(t)
	// 250 against LM 200: dutch delta +90, still a candidate for the
	// ranked auction.
	env.distressedLiquidatee(t, ctx)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)
	env.submitBid(t, ctx, "0.5")

	if _, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", testMarketID, nil); err == nil {
		t.Fatal("expected dutch step to be blocked by the live bid queue")
	}
}

func TestDutchRejections(t *testing.T) {
	t.Run("above MMR", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 1000)
		env.deposit(t, ctx, liquidatorID, "usdc", 1000)
		if _, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", testMarketID, nil); err == nil {
			t.Error("expected healthy account to be rejected")
		}
	})

	t.Run("below ADL", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 50)
		env.deposit(t, ctx, liquidatorID, "usdc", 1000)
		if _, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", testMarketID, nil); err == nil {
			t.Error("expected account below ADL to be routed to the backstop")
		}
	})

	t.Run("unfilled orders", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 100)
		env.deposit(t, ctx, liquidatorID, "usdc", 1000)
		env.market.unfilled[liquidateeID] = true
		if _, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", testMarketID, nil); err == nil {
			t.Error("expected unfilled orders to block the dutch step")
		}
	})

	t.Run("sender without admin", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 100)
		env.deposit(t, ctx, liquidatorID, "usdc", 1000)
		if _, err := env.keeper.ExecuteDutchLiquidation(ctx, "mallory", liquidateeID, liquidatorID, "usdc", testMarketID, nil); err == nil {
			t.Error("expected non-admin sender to be rejected")
		}
	})

	t.Run("quote token mismatch", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 100)
		env.deposit(t, ctx, liquidatorID, "usdc", 1000)
		ethMarketID := uint64(11)
		env.marginKeeper.RegisterMarket(ethMarketID, newStubMarket("eth", math.LegacyNewDecWithPrec(5, 1)))
		if _, err := env.keeper.ExecuteDutchLiquidation(ctx, "bob", liquidateeID, liquidatorID, "usdc", ethMarketID, nil); err == nil {
			t.Error("expected quote token mismatch to be rejected")
		}
	})
}
