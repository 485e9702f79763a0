package keeper

import (
	"testing"

	"cosmossdk.io/math"
)

func TestIsEligibleForAutoExchange(t *testing.T) {
	t.Run("single token shortfall above threshold", func(t *testing.T) {
		env, ctx := setupEnv(t)
		// LM 1000 against an empty usdc balance: IM delta -2000, worth
		// $2000 against the $1000 threshold.
		env.setExposure(t, ctx, liquidateeID, 2000, 0)
		eligible, err := env.keeper.IsEligibleForAutoExchange(ctx, liquidateeID, "usdc")
		if err != nil {
			t.Fatalf("IsEligibleForAutoExchange failed: %v", err)
		}
		if !eligible {
			t.Error("expected eligibility from the single-token shortfall")
		}
	})

	t.Run("single token shortfall below threshold", func(t *testing.T) {
		env, ctx := setupEnv(t)
		// IM delta -800 is worth less than the $1000 threshold.
		env.setExposure(t, ctx, liquidateeID, 800, 0)
		eligible, err := env.keeper.IsEligibleForAutoExchange(ctx, liquidateeID, "usdc")
		if err != nil {
			t.Fatalf("IsEligibleForAutoExchange failed: %v", err)
		}
		if eligible {
			t.Error("expected shortfall below threshold to be ineligible")
		}
	})

	t.Run("aggregate deficit above absolute threshold", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.deposit(t, ctx, liquidatorID, "usdc", 10)
		// Force a 6000 usdc deficit, above the $5000 aggregate threshold.
		// Checking the eth side skips the single-token clause entirely.
		if err := env.collateralKeeper.TransferCollateral(ctx, liquidateeID, liquidatorID, "usdc", math.LegacyNewDec(6000), true); err != nil {
			t.Fatalf("TransferCollateral failed: %v", err)
		}
		eligible, err := env.keeper.IsEligibleForAutoExchange(ctx, liquidateeID, "eth")
		if err != nil {
			t.Fatalf("IsEligibleForAutoExchange failed: %v", err)
		}
		if !eligible {
			t.Error("expected eligibility from the aggregate deficit")
		}
	})

	t.Run("aggregate deficit above value ratio", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.deposit(t, ctx, liquidatorID, "usdc", 10)
		env.deposit(t, ctx, liquidateeID, "eth", 2)
		// 600 usdc deficit against $4000 of eth: over the 10% ratio,
		// under both absolute thresholds.
		if err := env.collateralKeeper.TransferCollateral(ctx, liquidateeID, liquidatorID, "usdc", math.LegacyNewDec(600), true); err != nil {
			t.Fatalf("TransferCollateral failed: %v", err)
		}
		eligible, err := env.keeper.IsEligibleForAutoExchange(ctx, liquidateeID, "usdc")
		if err != nil {
			t.Fatalf("IsEligibleForAutoExchange failed: %v", err)
		}
		if !eligible {
			t.Error("expected eligibility from the value-ratio clause")
		}
	})

	t.Run("small deficit is ineligible", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.deposit(t, ctx, liquidatorID, "usdc", 10)
		env.deposit(t, ctx, liquidateeID, "eth", 2)
		// 300 usdc deficit stays under every clause.
		if err := env.collateralKeeper.TransferCollateral(ctx, liquidateeID, liquidatorID, "usdc", math.LegacyNewDec(300), true); err != nil {
			t.Fatalf("TransferCollateral failed: %v", err)
		}
		eligible, err := env.keeper.IsEligibleForAutoExchange(ctx, liquidateeID, "usdc")
		if err != nil {
			t.Fatalf("IsEligibleForAutoExchange failed: %v", err)
		}
		if eligible {
			t.Error("expected small deficit to be ineligible")
		}
	})
}

func TestGetMaxAmountToExchangeQuote(t *testing.T) {
	env, ctx := setupEnv(t)
	// IM delta -2000 in usdc, 2 eth of covering collateral at price 2000.
	env.setExposure(t, ctx, liquidateeID, 2000, 0)
	env.deposit(t, ctx, liquidateeID, "eth", 2)

	covering, auto, err := env.keeper.GetMaxAmountToExchangeQuote(ctx, liquidateeID, "eth", "usdc")
	if err != nil {
		t.Fatalf("GetMaxAmountToExchangeQuote failed: %v", err)
	}
	if !auto.Equal(math.LegacyNewDec(2000)) {
		t.Errorf("expected max auto-exchanged 2000, got %s", auto.String())
	}
	if !covering.Equal(math.LegacyOneDec()) {
		t.Errorf("expected covering amount 1, got %s", covering.String())
	}
}

func TestGetMaxAmountToExchangeQuoteDiscount(t *testing.T) {
	env, ctx := setupEnv(t)
	env.pool.AutoExchange.DiscountRatio = math.LegacyNewDecWithPrec(20, 2)
	env.collateralKeeper.SetCollateralPool(ctx, env.pool)
	env.setExposure(t, ctx, liquidateeID, 2000, 0)
	env.deposit(t, ctx, liquidateeID, "eth", 2)

	covering, auto, err := env.keeper.GetMaxAmountToExchangeQuote(ctx, liquidateeID, "eth", "usdc")
	if err != nil {
		t.Fatalf("GetMaxAmountToExchangeQuote failed: %v", err)
	}
	if !auto.Equal(math.LegacyNewDec(2000)) {
		t.Errorf("expected max auto-exchanged 2000, got %s", auto.String())
	}
	// Effective eth price 2000 * 0.8 = 1600, so covering 2000/1600 = 1.25.
	if !covering.Equal(math.LegacyNewDecWithPrec(125, 2)) {
		t.Errorf("expected covering amount 1.25, got %s", covering.String())
	}
}

func TestGetMaxAmountCappedByCoveringBalance(t *testing.T) {
	env, ctx := setupEnv(t)
	env.setExposure(t, ctx, liquidateeID, 8000, 0)
	env.deposit(t, ctx, liquidateeID, "eth", 1)

	// IM delta -8000 but only 1 eth = 2000 of covering value.
	covering, auto, err := env.keeper.GetMaxAmountToExchangeQuote(ctx, liquidateeID, "eth", "usdc")
	if err != nil {
		t.Fatalf("GetMaxAmountToExchangeQuote failed: %v", err)
	}
	if !auto.Equal(math.LegacyNewDec(2000)) {
		t.Errorf("expected covering cap to bind at 2000, got %s", auto.String())
	}
	if !covering.Equal(math.LegacyOneDec()) {
		t.Errorf("expected covering amount 1, got %s", covering.String())
	}
}

func TestTriggerAutoExchange(t *testing.T) {
	env, ctx := setupEnv(t)
	env.setExposure(t, ctx, liquidateeID, 2000, 0)
	env.deposit(t, ctx, liquidateeID, "eth", 2)
	env.deposit(t, ctx, exchangerID, "usdc", 5000)

	covering, auto, err := env.keeper.TriggerAutoExchange(
		ctx, "carol", liquidateeID, exchangerID, "eth", "usdc", math.LegacyNewDec(2000))
	if err != nil {
		t.Fatalf("TriggerAutoExchange failed: %v", err)
	}
	if !auto.Equal(math.LegacyNewDec(2000)) || !covering.Equal(math.LegacyOneDec()) {
		t.Errorf("expected exchange 2000 usdc for 1 eth, got %s for %s", auto.String(), covering.String())
	}

	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(2000)) {
		t.Errorf("expected account usdc balance 2000, got %s", got.String())
	}
	if got := env.balance(ctx, liquidateeID, "eth"); !got.Equal(math.LegacyOneDec()) {
		t.Errorf("expected account eth balance 1, got %s", got.String())
	}
	if got := env.balance(ctx, exchangerID, "usdc"); !got.Equal(math.LegacyNewDec(3000)) {
		t.Errorf("expected exchanger usdc balance 3000, got %s", got.String())
	}
	if got := env.balance(ctx, exchangerID, "eth"); !got.Equal(math.LegacyOneDec()) {
		t.Errorf("expected exchanger eth balance 1, got %s", got.String())
	}
	if got := env.keeper.GetPendingAutoExchange(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(2000)) {
		t.Errorf("expected pending auto-exchange 2000, got %s", got.String())
	}
}

func TestTriggerAutoExchangeRejections(t *testing.T) {
	t.Run("amount above max", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 2000, 0)
		env.deposit(t, ctx, liquidateeID, "eth", 2)
		env.deposit(t, ctx, exchangerID, "usdc", 5000)
		if _, _, err := env.keeper.TriggerAutoExchange(
			ctx, "carol", liquidateeID, exchangerID, "eth", "usdc", math.LegacyNewDec(2500)); err == nil {
			t.Error("expected amount above the cap to be rejected")
		}
	})

	t.Run("ineligible account", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 800, 0)
		env.deposit(t, ctx, liquidateeID, "eth", 2)
		env.deposit(t, ctx, exchangerID, "usdc", 5000)
		if _, _, err := env.keeper.TriggerAutoExchange(
			ctx, "carol", liquidateeID, exchangerID, "eth", "usdc", math.LegacyNewDec(100)); err == nil {
			t.Error("expected ineligible account to be rejected")
		}
	})

	t.Run("sender without admin", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 2000, 0)
		env.deposit(t, ctx, liquidateeID, "eth", 2)
		env.deposit(t, ctx, exchangerID, "usdc", 5000)
		if _, _, err := env.keeper.TriggerAutoExchange(
			ctx, "mallory", liquidateeID, exchangerID, "eth", "usdc", math.LegacyNewDec(100)); err == nil {
			t.Error("expected non-admin sender to be rejected")
		}
	})
}
