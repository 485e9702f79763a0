package keeper

import (
	"testing"

	"cosmossdk.io/math"
)

func TestDistributePenaltySplit(t *testing.T) {
	env, ctx := setupEnv(t)
	env.deposit(t, ctx, liquidateeID, "usdc", 500)

	dist, err := env.keeper.distributePenalty(ctx, liquidateeID, "usdc", env.pool.ID,
		math.LegacyNewDec(100), keeperAcctID, liquidatorID)
	if err != nil {
		t.Fatalf("distributePenalty failed: %v", err)
	}
	if !dist.InsuranceFund.Equal(math.LegacyNewDec(20)) ||
		!dist.BackstopLp.Equal(math.LegacyNewDec(20)) ||
		!dist.Keeper.Equal(math.LegacyNewDec(5)) ||
		!dist.Liquidator.Equal(math.LegacyNewDec(55)) {
		t.Errorf("expected split 20/20/5/55, got %s/%s/%s/%s",
			dist.InsuranceFund.String(), dist.BackstopLp.String(), dist.Keeper.String(), dist.Liquidator.String())
	}
	if dist.BackstopSkipped {
		t.Error("backstop lp above its floor must not be skipped")
	}
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(400)) {
		t.Errorf("expected liquidatee balance 400, got %s", got.String())
	}

	fund := env.keeper.GetInsuranceFund(ctx, env.pool.ID, "usdc")
	if !fund.TotalCollected.Equal(math.LegacyNewDec(20)) {
		t.Errorf("expected insurance fund collection 20, got %s", fund.TotalCollected.String())
	}
}

func TestDistributePenaltySkipsBackstopBelowFloor(t *testing.T) {
	env, ctx := setupEnv(t)
	env.pool.Insurance.MinBackstopLpFreeCollateral = math.LegacyNewDec(1000)
	env.collateralKeeper.SetCollateralPool(ctx, env.pool)
	env.deposit(t, ctx, liquidateeID, "usdc", 500)
	env.deposit(t, ctx, backstopLpID, "usdc", 500)

	dist, err := env.keeper.distributePenalty(ctx, liquidateeID, "usdc", env.pool.ID,
		math.LegacyNewDec(100), 0, liquidatorID)
	if err != nil {
		t.Fatalf("distributePenalty failed: %v", err)
	}
	if !dist.BackstopSkipped {
		t.Error("expected backstop share to be skipped below the floor")
	}
	if !dist.BackstopLp.IsZero() {
		t.Errorf("expected zero backstop share, got %s", dist.BackstopLp.String())
	}
	// The skipped share falls through to the liquidator: 100 - 20 - 0 - 0.
	if !dist.Liquidator.Equal(math.LegacyNewDec(80)) {
		t.Errorf("expected liquidator share 80, got %s", dist.Liquidator.String())
	}
	if got := env.balance(ctx, backstopLpID, "usdc"); !got.Equal(math.LegacyNewDec(500)) {
		t.Errorf("expected backstop lp balance unchanged at 500, got %s", got.String())
	}
}

func TestDistributePenaltyNoKeeper(t *testing.T) {
	env, ctx := setupEnv(t)
	env.deposit(t, ctx, liquidateeID, "usdc", 500)

	dist, err := env.keeper.distributePenalty(ctx, liquidateeID, "usdc", env.pool.ID,
		math.LegacyNewDec(100), 0, liquidatorID)
	if err != nil {
		t.Fatalf("distributePenalty failed: %v", err)
	}
	if !dist.Keeper.IsZero() {
		t.Errorf("expected zero keeper share, got %s", dist.Keeper.String())
	}
	if !dist.Liquidator.Equal(math.LegacyNewDec(60)) {
		t.Errorf("expected liquidator share 60, got %s", dist.Liquidator.String())
	}
}

func TestDistributePenaltyZeroIsNoOp(t *testing.T) {
	env, ctx := setupEnv(t)
	env.deposit(t, ctx, liquidateeID, "usdc", 500)

	dist, err := env.keeper.distributePenalty(ctx, liquidateeID, "usdc", env.pool.ID,
		math.LegacyZeroDec(), keeperAcctID, liquidatorID)
	if err != nil {
		t.Fatalf("distributePenalty failed: %v", err)
	}
	if !dist.Penalty.IsZero() || !dist.Liquidator.IsZero() {
		t.Error("zero penalty must distribute nothing")
	}
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(500)) {
		t.Errorf("expected liquidatee balance unchanged at 500, got %s", got.String())
	}
}

func TestDistributePenaltyAllowsLiquidateeDeficit(t *testing.T) {
	env, ctx := setupEnv(t)

	if _, err := env.keeper.distributePenalty(ctx, liquidateeID, "usdc", env.pool.ID,
		math.LegacyNewDec(100), 0, liquidatorID); err != nil {
		t.Fatalf("distributePenalty failed: %v", err)
	}
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(-100)) {
		t.Errorf("expected liquidatee forced into -100 deficit, got %s", got.String())
	}
}
