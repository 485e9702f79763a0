package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/collateral/types"

	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
)

// setupKeeper creates a test keeper with an in-memory store
func setupKeeper(tb testing.TB) (*Keeper, sdk.Context) {
	tb.Helper()

	storeKey := storetypes.NewKVStoreKey("collateral")
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		tb.Fatalf("failed to load store: %v", err)
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Time: time.Now().UTC()}, false, log.NewNopLogger())

	interfaceRegistry := codectypes.NewInterfaceRegistry()
	cdc := codec.NewProtoCodec(interfaceRegistry)

	return NewKeeper(cdc, storeKey, log.NewNopLogger()), ctx
}

// setupKeeperWithPool creates a keeper with a default pool and a USDC root
// bubble configured.
func setupKeeperWithPool(tb testing.TB) (*Keeper, sdk.Context, *types.CollateralPool) {
	tb.Helper()

	k, ctx := setupKeeper(tb)
	pool := types.DefaultCollateralPool(1, "pool-owner")
	if err := k.CreateCollateralPool(ctx, pool); err != nil {
		tb.Fatalf("failed to create pool: %v", err)
	}
	err := k.SetCollateralConfig(ctx, pool.ID, types.CollateralConfig{
		Token:         "usdc",
		Parent:        types.RootToken,
		ExchangePrice: math.LegacyOneDec(),
		Haircut:       math.LegacyZeroDec(),
	})
	if err != nil {
		tb.Fatalf("failed to configure usdc: %v", err)
	}
	return k, ctx, pool
}

func TestCreateAccount(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	account, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if account.ID != 1 {
		t.Errorf("expected account id 1, got %d", account.ID)
	}
	if account.Owner != "alice" {
		t.Errorf("expected owner alice, got %s", account.Owner)
	}
	if !account.HasPermission(types.PermissionAdmin, "alice") {
		t.Error("owner should hold admin permission")
	}

	stored := k.GetAccount(ctx, 1)
	if stored == nil {
		t.Fatal("account not found after creation")
	}
	if stored.CollateralPoolID != pool.ID {
		t.Errorf("expected pool id %d, got %d", pool.ID, stored.CollateralPoolID)
	}
}

func TestCreateAccountDuplicateID(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken); err != nil {
		t.Fatalf("first CreateAccount failed: %v", err)
	}
	if _, err := k.CreateAccount(ctx, 1, "bob", pool.ID, types.AccountModeMultiToken); err == nil {
		t.Error("expected duplicate account id to be rejected")
	}
}

func TestCreateAccountUnknownPool(t *testing.T) {
	k, ctx := setupKeeper(t)

	if _, err := k.CreateAccount(ctx, 1, "alice", 99, types.AccountModeMultiToken); err == nil {
		t.Error("expected unknown pool to be rejected")
	}
}

func TestAccountPermissions(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	// Non-admin cannot grant.
	if err := k.GrantAccountPermission(ctx, 1, "bob", types.PermissionAdmin, "carol"); err == nil {
		t.Error("expected grant by non-admin to fail")
	}

	if err := k.GrantAccountPermission(ctx, 1, "alice", types.PermissionAdmin, "bob"); err != nil {
		t.Fatalf("grant by owner failed: %v", err)
	}
	account := k.GetAccount(ctx, 1)
	if !account.HasPermission(types.PermissionAdmin, "bob") {
		t.Error("bob should hold admin after grant")
	}

	// Granted admin can grant further.
	if err := k.GrantAccountPermission(ctx, 1, "bob", types.PermissionAdmin, "carol"); err != nil {
		t.Errorf("grant by granted admin failed: %v", err)
	}

	if err := k.RevokeAccountPermission(ctx, 1, "alice", types.PermissionAdmin, "bob"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	account = k.GetAccount(ctx, 1)
	if account.HasPermission(types.PermissionAdmin, "bob") {
		t.Error("bob should not hold admin after revoke")
	}
	// Owner admin is implicit and survives revocation attempts.
	if err := k.RevokeAccountPermission(ctx, 1, "carol", types.PermissionAdmin, "alice"); err != nil {
		t.Fatalf("revoke of owner failed: %v", err)
	}
	account = k.GetAccount(ctx, 1)
	if !account.HasPermission(types.PermissionAdmin, "alice") {
		t.Error("owner admin should be implicit")
	}
}

func TestCreateCollateralPoolDuplicate(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	if err := k.CreateCollateralPool(ctx, types.DefaultCollateralPool(pool.ID, "other")); err == nil {
		t.Error("expected duplicate pool id to be rejected")
	}
}

func TestUpdateCollateralPoolOwnerOnly(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	updated := *pool
	updated.MaxBidsPerQueue = 10
	if err := k.UpdateCollateralPool(ctx, "mallory", &updated); err == nil {
		t.Error("expected update by non-owner to fail")
	}
	if err := k.UpdateCollateralPool(ctx, "pool-owner", &updated); err != nil {
		t.Fatalf("update by owner failed: %v", err)
	}
	stored := k.GetCollateralPool(ctx, pool.ID)
	if stored.MaxBidsPerQueue != 10 {
		t.Errorf("expected MaxBidsPerQueue 10, got %d", stored.MaxBidsPerQueue)
	}
	if stored.Owner != "pool-owner" {
		t.Errorf("owner must not change on update, got %s", stored.Owner)
	}
}

func TestPoolForAccount(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	if _, err := k.CreateAccount(ctx, 7, "alice", pool.ID, types.AccountModeSingleToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	account, resolved, err := k.PoolForAccount(ctx, 7)
	if err != nil {
		t.Fatalf("PoolForAccount failed: %v", err)
	}
	if account.ID != 7 || resolved.ID != pool.ID {
		t.Errorf("unexpected resolution: account %d pool %d", account.ID, resolved.ID)
	}

	if _, _, err := k.PoolForAccount(ctx, 99); err == nil {
		t.Error("expected unknown account to fail")
	}
}

func TestTokenAdapterDefault(t *testing.T) {
	k, _ := setupKeeper(t)

	adapter := k.TokenAdapter("unregistered")
	if got := adapter.SharesForAssets(math.LegacyNewDec(100)); !got.Equal(math.LegacyNewDec(100)) {
		t.Errorf("default adapter should convert 1:1, got %s", got.String())
	}

	k.RegisterTokenAdapter("steth", types.RebasingAdapter{Rate: math.LegacyNewDec(2)})
	adapter = k.TokenAdapter("steth")
	if got := adapter.SharesForAssets(math.LegacyNewDec(100)); !got.Equal(math.LegacyNewDec(50)) {
		t.Errorf("rebasing adapter at rate 2 should halve shares, got %s", got.String())
	}
	if got := adapter.AssetsForShares(math.LegacyNewDec(50)); !got.Equal(math.LegacyNewDec(100)) {
		t.Errorf("rebasing adapter round trip broken, got %s", got.String())
	}
}
