package keeper

import (
	"testing"

	"cosmossdk.io/math"

	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

func TestAdlRankOrdering(t *testing.T) {
	cmp := adlRankDesc{}
	hi := adlRankKey{Upnl: math.LegacyNewDec(200), MarketID: 12}
	lo := adlRankKey{Upnl: math.LegacyNewDec(100), MarketID: 11}
	if cmp.Compare(hi, lo) >= 0 {
		t.Error("higher upnl must rank first")
	}
	a := adlRankKey{Upnl: math.LegacyNewDec(100), MarketID: 11}
	b := adlRankKey{Upnl: math.LegacyNewDec(100), MarketID: 12}
	if cmp.Compare(a, b) >= 0 {
		t.Error("equal upnl must break ties by market id ascending")
	}
	if cmp.Compare(a, a) != 0 {
		t.Error("identical keys must compare equal")
	}
}

func TestBackstopSolventAssignsToLp(t *testing.T) {
	env, ctx := setupEnv(t)
	// 50 against LM 200: below ADL (requirement 100) but the raw balance
	// is still non-negative, so the account is solvent.
	env.setExposure(t, ctx, liquidateeID, 400, 0)
	env.deposit(t, ctx, liquidateeID, "usdc", 50)
	env.market.open[liquidateeID] = true

	solvent, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc", nil)
	if err != nil {
		t.Fatalf("ExecuteBackstopLiquidation failed: %v", err)
	}
	if !solvent {
		t.Fatal("expected the solvent path")
	}
	if len(env.market.assigns) != 1 {
		t.Fatalf("expected 1 position assignment, got %d", len(env.market.assigns))
	}
	if got := env.market.assigns[0]; got != [2]uint64{liquidateeID, backstopLpID} {
		t.Errorf("expected assignment from %d to %d, got %v", liquidateeID, backstopLpID, got)
	}
	if env.market.open[liquidateeID] {
		t.Error("expected position to be closed out")
	}
}

func TestBackstopSolventRunsCallerOrders(t *testing.T) {
	env, ctx := setupEnv(t)
	env.setExposure(t, ctx, liquidateeID, 400, 0)
	env.deposit(t, ctx, liquidateeID, "usdc", 50)

	solvent, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc",
		[]types.BidOrder{{MarketID: testMarketID}})
	if err != nil {
		t.Fatalf("ExecuteBackstopLiquidation failed: %v", err)
	}
	if !solvent {
		t.Fatal("expected the solvent path")
	}
	if env.market.liquidations != 1 {
		t.Errorf("expected 1 liquidation order run as the backstop lp, got %d", env.market.liquidations)
	}
	if len(env.market.assigns) != 0 {
		t.Errorf("expected no assignments once orders flattened the book, got %d", len(env.market.assigns))
	}
}

func TestBackstopSolventStopsAtLpBuffer(t *testing.T) {
	env, ctx := setupEnv(t)
	env.pool.BackstopLp.ImBuffer = math.LegacyNewDec(1000)
	env.collateralKeeper.SetCollateralPool(ctx, env.pool)
	env.setExposure(t, ctx, liquidateeID, 400, 0)
	env.deposit(t, ctx, liquidateeID, "usdc", 50)
	env.deposit(t, ctx, backstopLpID, "usdc", 500)
	env.market.open[liquidateeID] = true

	if _, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc", nil); err == nil {
		t.Fatal("expected assignment to stop at the lp's im buffer")
	}
}

func TestBackstopInsolventInsuranceCover(t *testing.T) {
	env, ctx := setupEnv(t)
	// 100 of collateral against a 300 unrealized loss: raw margin -200.
	env.setExposure(t, ctx, liquidateeID, 400, 300)
	env.deposit(t, ctx, liquidateeID, "usdc", 100)
	env.market.open[liquidateeID] = true
	env.market.upnl[liquidateeID] = math.LegacyNewDec(-300)

	env.deposit(t, ctx, insuranceID, "usdc", 1000)
	fund := env.keeper.GetInsuranceFund(ctx, env.pool.ID, "usdc")
	fund.Collect(math.LegacyNewDec(1000), ctx.BlockTime())
	env.keeper.SetInsuranceFund(ctx, fund)

	solvent, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc", nil)
	if err != nil {
		t.Fatalf("ExecuteBackstopLiquidation failed: %v", err)
	}
	if solvent {
		t.Fatal("expected the insolvent path")
	}

	// The fund covers the full 200 shortfall.
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(300)) {
		t.Errorf("expected liquidatee balance 300 after cover, got %s", got.String())
	}
	if got := env.balance(ctx, insuranceID, "usdc"); !got.Equal(math.LegacyNewDec(800)) {
		t.Errorf("expected insurance balance 800, got %s", got.String())
	}
	fund = env.keeper.GetInsuranceFund(ctx, env.pool.ID, "usdc")
	if !fund.Capacity.Equal(math.LegacyNewDec(800)) {
		t.Errorf("expected fund capacity 800, got %s", fund.Capacity.String())
	}
	if !fund.TotalCovered.Equal(math.LegacyNewDec(200)) {
		t.Errorf("expected total covered 200, got %s", fund.TotalCovered.String())
	}

	// Losing positions unwind at market price: no bankruptcy arguments.
	if len(env.market.adlCalls) != 1 {
		t.Fatalf("expected 1 adl call, got %d", len(env.market.adlCalls))
	}
	call := env.market.adlCalls[0]
	if !call.negativeUpnl || call.positiveUpnl {
		t.Errorf("expected losing-side adl, got negative=%t positive=%t", call.negativeUpnl, call.positiveUpnl)
	}
	if !call.totalLoss.IsZero() || !call.realBalance.IsZero() {
		t.Errorf("fully covered settlement must not pass bankruptcy terms, got %s/%s",
			call.totalLoss.String(), call.realBalance.String())
	}
}

func TestBackstopInsolventBankruptcy(t *testing.T) {
	env, ctx := setupEnv(t)
	env.setExposure(t, ctx, liquidateeID, 400, 300)
	env.deposit(t, ctx, liquidateeID, "usdc", 100)
	env.market.open[liquidateeID] = true
	env.market.upnl[liquidateeID] = math.LegacyNewDec(-300)

	// The fund can only cover 50 of the 200 shortfall.
	env.deposit(t, ctx, insuranceID, "usdc", 50)
	fund := env.keeper.GetInsuranceFund(ctx, env.pool.ID, "usdc")
	fund.Collect(math.LegacyNewDec(50), ctx.BlockTime())
	env.keeper.SetInsuranceFund(ctx, fund)

	env.keeper.addPendingAutoExchange(ctx, liquidateeID, "usdc", math.LegacyNewDec(75))

	solvent, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc", nil)
	if err != nil {
		t.Fatalf("ExecuteBackstopLiquidation failed: %v", err)
	}
	if solvent {
		t.Fatal("expected the insolvent path")
	}

	// Partial cover lands on the account; the pending bucket is drained
	// into the settlement.
	if got := env.balance(ctx, liquidateeID, "usdc"); !got.Equal(math.LegacyNewDec(150)) {
		t.Errorf("expected liquidatee balance 150, got %s", got.String())
	}
	if got := env.keeper.GetPendingAutoExchange(ctx, liquidateeID, "usdc"); !got.IsZero() {
		t.Errorf("expected pending auto-exchange drained, got %s", got.String())
	}
	fund = env.keeper.GetInsuranceFund(ctx, env.pool.ID, "usdc")
	if !fund.Capacity.IsZero() {
		t.Errorf("expected fund exhausted, got %s", fund.Capacity.String())
	}

	if len(env.market.adlCalls) != 1 {
		t.Fatalf("expected 1 adl call, got %d", len(env.market.adlCalls))
	}
	call := env.market.adlCalls[0]
	if !call.negativeUpnl {
		t.Error("expected losing-side adl")
	}
	if !call.totalLoss.Equal(math.LegacyNewDec(300)) {
		t.Errorf("expected total unrealized loss 300, got %s", call.totalLoss.String())
	}
	if !call.realBalance.Equal(math.LegacyNewDec(150)) {
		t.Errorf("expected distributable balance 150, got %s", call.realBalance.String())
	}
}

func TestBackstopGuards(t *testing.T) {
	t.Run("above ADL", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.distressedLiquidatee(t, ctx)
		if _, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc", nil); err == nil {
			t.Error("expected account above ADL to be rejected")
		}
	})

	t.Run("unfilled orders", func(t *testing.T) {
		env, ctx := setupEnv(t)
		env.setExposure(t, ctx, liquidateeID, 400, 0)
		env.deposit(t, ctx, liquidateeID, "usdc", 50)
		env.market.unfilled[liquidateeID] = true
		if _, err := env.keeper.ExecuteBackstopLiquidation(ctx, "keeper", liquidateeID, "usdc", nil); err == nil {
			t.Error("expected unfilled orders to block the backstop")
		}
	})
}
