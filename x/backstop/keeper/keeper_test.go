package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateralkeeper "github.com/openalpha/clearing-core/x/collateral/keeper"
	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	marginkeeper "github.com/openalpha/clearing-core/x/margin/keeper"
)

const (
	backstopAcctID = uint64(101)
	aliceAcctID    = uint64(5)
	bobAcctID      = uint64(6)

	testRedemptionDelay = time.Hour
)

type testEnv struct {
	keeper           *Keeper
	collateralKeeper *collateralkeeper.Keeper
}

func setupKeeper(tb testing.TB) (*testEnv, sdk.Context) {
	tb.Helper()

	collateralStoreKey := storetypes.NewKVStoreKey("collateral")
	backstopStoreKey := storetypes.NewKVStoreKey("backstop")
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(collateralStoreKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(backstopStoreKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		tb.Fatalf("failed to load store: %v", err)
	}
	ctx := sdk.NewContext(stateStore, cmtproto.Header{Time: time.Now().UTC()}, false, log.NewNopLogger())

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	collateralKeeper := collateralkeeper.NewKeeper(cdc, collateralStoreKey, log.NewNopLogger())
	marginKeeper := marginkeeper.NewKeeper(collateralKeeper, log.NewNopLogger())
	collateralKeeper.SetMarginKeeper(marginKeeper)
	keeper := NewKeeper(cdc, backstopStoreKey, collateralKeeper, marginKeeper, log.NewNopLogger())

	pool := collateraltypes.DefaultCollateralPool(1, "pool-owner")
	if err := collateralKeeper.CreateCollateralPool(ctx, pool); err != nil {
		tb.Fatalf("failed to create pool: %v", err)
	}
	usdc := collateraltypes.CollateralConfig{
		Token:         "usdc",
		Parent:        collateraltypes.RootToken,
		ExchangePrice: math.LegacyOneDec(),
		Haircut:       math.LegacyZeroDec(),
	}
	if err := collateralKeeper.SetCollateralConfig(ctx, pool.ID, usdc); err != nil {
		tb.Fatalf("failed to configure usdc: %v", err)
	}

	owners := map[uint64]string{
		backstopAcctID: "protocol",
		aliceAcctID:    "lp-alice",
		bobAcctID:      "lp-bob",
	}
	for id, owner := range owners {
		if _, err := collateralKeeper.CreateAccount(ctx, id, owner, pool.ID, collateraltypes.AccountModeMultiToken); err != nil {
			tb.Fatalf("CreateAccount %d failed: %v", id, err)
		}
	}
	for _, id := range []uint64{aliceAcctID, bobAcctID} {
		if err := collateralKeeper.Deposit(ctx, id, "usdc", math.LegacyNewDec(2000)); err != nil {
			tb.Fatalf("seed deposit for %d failed: %v", id, err)
		}
	}

	return &testEnv{keeper: keeper, collateralKeeper: collateralKeeper}, ctx
}

func (e *testEnv) createPool(tb testing.TB, ctx sdk.Context, minFree int64) {
	tb.Helper()
	if _, err := e.keeper.CreateBackstopPool(
		ctx, 1, backstopAcctID, "usdc", testRedemptionDelay, math.LegacyNewDec(minFree)); err != nil {
		tb.Fatalf("CreateBackstopPool failed: %v", err)
	}
}

func TestCreateBackstopPoolDuplicate(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)
	if _, err := env.keeper.CreateBackstopPool(
		ctx, 1, backstopAcctID, "usdc", testRedemptionDelay, math.LegacyZeroDec()); err == nil {
		t.Fatal("expected duplicate pool to be rejected")
	}
}

func TestDepositMintsAtNAV(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)

	// First deposit mints one share per unit.
	shares, nav, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(1000))
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if !shares.Equal(math.LegacyNewDec(1000)) || !nav.Equal(math.LegacyOneDec()) {
		t.Errorf("expected 1000 shares at nav 1, got %s at %s", shares.String(), nav.String())
	}

	// Earnings double the pool value: NAV 2, so the same amount mints
	// half the shares.
	if err := env.collateralKeeper.TransferCollateral(ctx, bobAcctID, backstopAcctID, "usdc", math.LegacyNewDec(1000), false); err != nil {
		t.Fatalf("TransferCollateral failed: %v", err)
	}
	shares, nav, err = env.keeper.Deposit(ctx, "lp-bob", 1, bobAcctID, math.LegacyNewDec(1000))
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if !nav.Equal(math.LegacyNewDec(2)) {
		t.Errorf("expected nav 2, got %s", nav.String())
	}
	if !shares.Equal(math.LegacyNewDec(500)) {
		t.Errorf("expected 500 shares, got %s", shares.String())
	}

	pool := env.keeper.GetBackstopPool(ctx, 1)
	if !pool.TotalShares.Equal(math.LegacyNewDec(1500)) {
		t.Errorf("expected 1500 total shares, got %s", pool.TotalShares.String())
	}
	if got := env.keeper.GetDepositorShares(ctx, 1, "lp-alice"); !got.Equal(math.LegacyNewDec(1000)) {
		t.Errorf("expected alice to hold 1000 shares, got %s", got.String())
	}
	if got := env.keeper.GetDepositorShares(ctx, 1, "lp-bob"); !got.Equal(math.LegacyNewDec(500)) {
		t.Errorf("expected bob to hold 500 shares, got %s", got.String())
	}
	if got := env.collateralKeeper.GetCollateralBalance(ctx, backstopAcctID, "usdc"); !got.Equal(math.LegacyNewDec(3000)) {
		t.Errorf("expected backstop balance 3000, got %s", got.String())
	}
}

func TestDepositValidation(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)

	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyZeroDec()); err == nil {
		t.Error("expected zero deposit to be rejected")
	}
	if _, _, err := env.keeper.Deposit(ctx, "mallory", 1, aliceAcctID, math.LegacyNewDec(100)); err == nil {
		t.Error("expected non-admin sender to be rejected")
	}
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 2, aliceAcctID, math.LegacyNewDec(100)); err == nil {
		t.Error("expected deposit into unknown pool to be rejected")
	}
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(5000)); err == nil {
		t.Error("expected deposit beyond the depositor balance to be rejected")
	}
}

func TestRequestWithdrawalLocksShares(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(1000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	withdrawal, err := env.keeper.RequestWithdrawal(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(400))
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if got := env.keeper.GetDepositorShares(ctx, 1, "lp-alice"); !got.Equal(math.LegacyNewDec(600)) {
		t.Errorf("expected shares locked down to 600, got %s", got.String())
	}
	if !withdrawal.NAVAtRequest.Equal(math.LegacyOneDec()) {
		t.Errorf("expected nav 1 at request, got %s", withdrawal.NAVAtRequest.String())
	}
	if want := ctx.BlockTime().Add(testRedemptionDelay); !withdrawal.AvailableAt.Equal(want) {
		t.Errorf("expected availability at %s, got %s", want, withdrawal.AvailableAt)
	}

	// The remaining 600 cannot back a 700-share request.
	if _, err := env.keeper.RequestWithdrawal(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(700)); err == nil {
		t.Error("expected request beyond held shares to be rejected")
	}
}

func TestClaimWithdrawal(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(1000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	withdrawal, err := env.keeper.RequestWithdrawal(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(400))
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	// Before the delay elapses the claim is refused.
	if _, err := env.keeper.ClaimWithdrawal(ctx, "lp-alice", withdrawal.ID); err == nil {
		t.Fatal("expected claim before maturity to be refused")
	}

	later := ctx.WithBlockTime(ctx.BlockTime().Add(testRedemptionDelay + time.Minute))
	if _, err := env.keeper.ClaimWithdrawal(later, "mallory", withdrawal.ID); err == nil {
		t.Error("expected claim by a stranger to be refused")
	}

	amount, err := env.keeper.ClaimWithdrawal(later, "lp-alice", withdrawal.ID)
	if err != nil {
		t.Fatalf("ClaimWithdrawal failed: %v", err)
	}
	if !amount.Equal(math.LegacyNewDec(400)) {
		t.Errorf("expected payout 400, got %s", amount.String())
	}
	if got := env.collateralKeeper.GetCollateralBalance(later, aliceAcctID, "usdc"); !got.Equal(math.LegacyNewDec(1400)) {
		t.Errorf("expected alice balance 1400, got %s", got.String())
	}
	pool := env.keeper.GetBackstopPool(later, 1)
	if !pool.TotalShares.Equal(math.LegacyNewDec(600)) {
		t.Errorf("expected 600 shares outstanding, got %s", pool.TotalShares.String())
	}

	// A completed withdrawal cannot be claimed again.
	if _, err := env.keeper.ClaimWithdrawal(later, "lp-alice", withdrawal.ID); err == nil {
		t.Error("expected double claim to be refused")
	}
}

func TestClaimWithdrawalPaysCurrentNAV(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(1000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	withdrawal, err := env.keeper.RequestWithdrawal(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(400))
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	// Pool value doubles while the request matures; the payout follows
	// the claim-time NAV, not the request-time one.
	if err := env.collateralKeeper.TransferCollateral(ctx, bobAcctID, backstopAcctID, "usdc", math.LegacyNewDec(1000), false); err != nil {
		t.Fatalf("TransferCollateral failed: %v", err)
	}
	later := ctx.WithBlockTime(ctx.BlockTime().Add(testRedemptionDelay + time.Minute))
	amount, err := env.keeper.ClaimWithdrawal(later, "lp-alice", withdrawal.ID)
	if err != nil {
		t.Fatalf("ClaimWithdrawal failed: %v", err)
	}
	if !amount.Equal(math.LegacyNewDec(800)) {
		t.Errorf("expected payout 800 at nav 2, got %s", amount.String())
	}
}

func TestClaimWithdrawalViabilityGate(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 800)
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(1000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	withdrawal, err := env.keeper.RequestWithdrawal(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(400))
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}

	// Paying out 400 would leave 600 of free collateral, under the 800
	// minimum the pool must keep as a liquidation backstop.
	later := ctx.WithBlockTime(ctx.BlockTime().Add(testRedemptionDelay + time.Minute))
	if _, err := env.keeper.ClaimWithdrawal(later, "lp-alice", withdrawal.ID); err == nil {
		t.Fatal("expected claim below the viability floor to be refused")
	}
}

func TestPoolNAVFloorsAtZero(t *testing.T) {
	env, ctx := setupKeeper(t)
	env.createPool(t, ctx, 0)
	if _, _, err := env.keeper.Deposit(ctx, "lp-alice", 1, aliceAcctID, math.LegacyNewDec(1000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	// Socialized losses can drive the backstop account into deficit; the
	// shares are then worthless rather than negatively priced.
	if err := env.collateralKeeper.TransferCollateral(ctx, backstopAcctID, bobAcctID, "usdc", math.LegacyNewDec(1200), true); err != nil {
		t.Fatalf("TransferCollateral failed: %v", err)
	}
	pool := env.keeper.GetBackstopPool(ctx, 1)
	if got := env.keeper.PoolNAV(ctx, pool); !got.IsZero() {
		t.Errorf("expected nav 0 on a deficit pool, got %s", got.String())
	}
}
