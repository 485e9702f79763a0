package keeper

import (
	"testing"

	"cosmossdk.io/math"

	margintypes "github.com/openalpha/clearing-core/x/margin/types"
)

func TestCloseAllUnfilledOrders(t *testing.T) {
	env, ctx := setupEnv(t)
	env.deposit(t, ctx, liquidatorID, "usdc", 1000)

	// Resting orders inflate the upper exposure to 600 (LM 300, MMR 450)
	// against a 300 balance; closing them collapses both sides to 400
	// (LM 200), releasing 100 of requirement.
	env.market.exposures[liquidateeID] = []margintypes.ExposurePair{{
		Lower: margintypes.MarketExposure{
			AnnualizedNotional: math.LegacyNewDec(400),
			UnrealizedLoss:     math.LegacyZeroDec(),
		},
		Upper: margintypes.MarketExposure{
			AnnualizedNotional: math.LegacyNewDec(600),
			UnrealizedLoss:     math.LegacyZeroDec(),
		},
	}}
	env.market.closeShift[liquidateeID] = []margintypes.ExposurePair{{
		Lower: margintypes.MarketExposure{
			AnnualizedNotional: math.LegacyNewDec(400),
			UnrealizedLoss:     math.LegacyZeroDec(),
		},
		Upper: margintypes.MarketExposure{
			AnnualizedNotional: math.LegacyNewDec(400),
			UnrealizedLoss:     math.LegacyZeroDec(),
		},
	}}
	env.market.unfilled[liquidateeID] = true
	account := env.collateralKeeper.GetAccount(ctx, liquidateeID)
	account.ActivateMarket("usdc", testMarketID)
	env.collateralKeeper.SetAccount(ctx, account)
	env.deposit(t, ctx, liquidateeID, "usdc", 300)

	penalty, err := env.keeper.CloseAllUnfilledOrders(ctx, "bob", liquidateeID, liquidatorID)
	if err != nil {
		t.Fatalf("CloseAllUnfilledOrders failed: %v", err)
	}
	// 0.05 * 100 released requirement.
	if !penalty.Equal(math.LegacyNewDec(5)) {
		t.Errorf("expected penalty 5, got %s", penalty.String())
	}
	if env.market.unfilled[liquidateeID] {
		t.Error("unfilled orders must be closed")
	}
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(295)) {
		t.Errorf("expected liquidatee balance 295, got %s", got.String())
	}
	// 5 - 1 insurance - 1 backstop lp = 3 to the liquidator.
	if got := env.balance(ctx, liquidatorID, "usdc"); !got.Equal(math.LegacyNewDec(1003)) {
		t.Errorf("expected liquidator balance 1003, got %s", got.String())
	}
}

func TestCloseAllUnfilledOrdersRequiresBreachAndOrders(t *testing.T) {
	t.Run("above MMR", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 1000)
		env.deposit(t, ctx, liquidatorID, "usdc", 100)
		env.market.unfilled[liquidateeID] = true
		if _, err := env.keeper.CloseAllUnfilledOrders(ctx, "bob", liquidateeID, liquidatorID); err == nil {
			t.Error("expected healthy account to be rejected")
		}
	})

	t.Run("no unfilled orders", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.distressedLiquidatee(t, ctx)
		env.deposit(t, ctx, liquidatorID, "usdc", 100)
		if _, err := env.keeper.CloseAllUnfilledOrders(ctx, "bob", liquidateeID, liquidatorID); err == nil {
			t.Error("expected account without resting orders to be rejected")
		}
	})

	t.Run("sender without admin", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.distressedLiquidatee(t, ctx)
		env.deposit(t, ctx, liquidatorID, "usdc", 100)
		env.market.unfilled[liquidateeID] = true
		if _, err := env.keeper.CloseAllUnfilledOrders(ctx, "mallory", liquidateeID, liquidatorID); err == nil {
			t.Error("expected non-admin sender to be rejected")
		}
	})
}
