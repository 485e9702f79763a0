package keeper

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

// Store key prefixes
var (
	AccountKeyPrefix          = []byte{0x01}
	CollateralPositionPrefix  = []byte{0x02}
	NetDepositsPrefix         = []byte{0x03}
	CollateralPoolKeyPrefix   = []byte{0x04}
	CollateralConfigKeyPrefix = []byte{0x05}
)

// MarginKeeper is the expected interface of the margin module, wired in
// after construction to break the dependency cycle between the ledger and
// the aggregator.
type MarginKeeper interface {
	GetWithdrawableCollateralBalance(ctx sdk.Context, accountID uint64, token string) (math.LegacyDec, error)
}

// Keeper manages accounts, the share-based collateral ledger, collateral
// pools and their bubble trees.
type Keeper struct {
	cdc      codec.BinaryCodec
	storeKey storetypes.StoreKey
	logger   log.Logger

	marginKeeper MarginKeeper

	// adapters maps a token to its share conversion adapter. Registered at
	// wiring time; tokens without an adapter convert 1:1.
	adapters map[string]types.TokenAdapter
}

// NewKeeper creates a new collateral keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:      cdc,
		storeKey: storeKey,
		logger:   logger.With("module", "x/collateral"),
		adapters: make(map[string]types.TokenAdapter),
	}
}

// SetMarginKeeper wires the margin module in after construction.
func (k *Keeper) SetMarginKeeper(marginKeeper MarginKeeper) {
	k.marginKeeper = marginKeeper
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// RegisterTokenAdapter registers the share conversion adapter for a token.
func (k *Keeper) RegisterTokenAdapter(token string, adapter types.TokenAdapter) {
	k.adapters[token] = adapter
}

// TokenAdapter returns the adapter for a token, defaulting to the 1:1
// standard adapter.
func (k *Keeper) TokenAdapter(token string) types.TokenAdapter {
	if adapter, ok := k.adapters[token]; ok {
		return adapter
	}
	return types.StandardAdapter{}
}

func uint64Key(id uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, id)
	return bz
}

func accountKey(accountID uint64) []byte {
	return append(AccountKeyPrefix, uint64Key(accountID)...)
}

func positionKey(accountID uint64, token string) []byte {
	key := append(CollateralPositionPrefix, uint64Key(accountID)...)
	return append(key, []byte(token)...)
}

func netDepositsKey(accountID uint64, token string) []byte {
	key := append(NetDepositsPrefix, uint64Key(accountID)...)
	return append(key, []byte(token)...)
}

func poolKey(poolID uint64) []byte {
	return append(CollateralPoolKeyPrefix, uint64Key(poolID)...)
}

func collateralConfigKey(poolID uint64, token string) []byte {
	key := append(CollateralConfigKeyPrefix, uint64Key(poolID)...)
	return append(key, []byte(token)...)
}

// ============ Account Store Operations ============

// SetAccount saves an account to the store
func (k *Keeper) SetAccount(ctx sdk.Context, account *types.Account) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(account)
	store.Set(accountKey(account.ID), bz)
}

// GetAccount retrieves an account, or nil when it does not exist.
func (k *Keeper) GetAccount(ctx sdk.Context, accountID uint64) *types.Account {
	store := k.GetStore(ctx)
	bz := store.Get(accountKey(accountID))
	if bz == nil {
		return nil
	}
	var account types.Account
	if err := json.Unmarshal(bz, &account); err != nil {
		return nil
	}
	return &account
}

// CreateAccount registers a new account. Creation is idempotent on the id:
// a colliding id is rejected rather than overwritten.
func (k *Keeper) CreateAccount(ctx sdk.Context, accountID uint64, owner string, poolID uint64, mode types.AccountMode) (*types.Account, error) {
	if mode != types.AccountModeSingleToken && mode != types.AccountModeMultiToken {
		return nil, types.ErrSingleTokenViolation.Wrapf("unknown account mode %d", mode)
	}
	if k.GetAccount(ctx, accountID) != nil {
		return nil, types.ErrAccountAlreadyExists.Wrapf("account %d", accountID)
	}
	if k.GetCollateralPool(ctx, poolID) == nil {
		return nil, types.ErrPoolNotFound.Wrapf("pool %d", poolID)
	}

	account := types.NewAccount(accountID, owner, poolID, mode, ctx.BlockTime())
	k.SetAccount(ctx, account)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"account_created",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("owner", owner),
			sdk.NewAttribute("pool_id", fmt.Sprintf("%d", poolID)),
			sdk.NewAttribute("mode", mode.String()),
		),
	)
	return account, nil
}

// GrantAccountPermission grants a named permission; only addresses already
// holding admin may grant.
func (k *Keeper) GrantAccountPermission(ctx sdk.Context, accountID uint64, sender, permission, grantee string) error {
	account := k.GetAccount(ctx, accountID)
	if account == nil {
		return types.ErrAccountNotFound.Wrapf("account %d", accountID)
	}
	if !account.HasPermission(types.PermissionAdmin, sender) {
		return types.ErrUnauthorized.Wrapf("account %d: %s", accountID, sender)
	}
	account.GrantPermission(permission, grantee)
	k.SetAccount(ctx, account)
	return nil
}

// RevokeAccountPermission revokes a named permission; only admin holders
// may revoke.
func (k *Keeper) RevokeAccountPermission(ctx sdk.Context, accountID uint64, sender, permission, grantee string) error {
	account := k.GetAccount(ctx, accountID)
	if account == nil {
		return types.ErrAccountNotFound.Wrapf("account %d", accountID)
	}
	if !account.HasPermission(types.PermissionAdmin, sender) {
		return types.ErrUnauthorized.Wrapf("account %d: %s", accountID, sender)
	}
	account.RevokePermission(permission, grantee)
	k.SetAccount(ctx, account)
	return nil
}

// ============ Collateral Pool Store Operations ============

// SetCollateralPool saves a pool to the store
func (k *Keeper) SetCollateralPool(ctx sdk.Context, pool *types.CollateralPool) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(pool)
	store.Set(poolKey(pool.ID), bz)
}

// GetCollateralPool retrieves a pool, or nil when it does not exist.
func (k *Keeper) GetCollateralPool(ctx sdk.Context, poolID uint64) *types.CollateralPool {
	store := k.GetStore(ctx)
	bz := store.Get(poolKey(poolID))
	if bz == nil {
		return nil
	}
	var pool types.CollateralPool
	if err := json.Unmarshal(bz, &pool); err != nil {
		return nil
	}
	return &pool
}

// CreateCollateralPool registers a new pool; a colliding id is rejected.
func (k *Keeper) CreateCollateralPool(ctx sdk.Context, pool *types.CollateralPool) error {
	if k.GetCollateralPool(ctx, pool.ID) != nil {
		return types.ErrPoolAlreadyExists.Wrapf("pool %d", pool.ID)
	}
	k.SetCollateralPool(ctx, pool)
	return nil
}

// UpdateCollateralPool replaces pool configuration; only the owner may.
func (k *Keeper) UpdateCollateralPool(ctx sdk.Context, sender string, pool *types.CollateralPool) error {
	existing := k.GetCollateralPool(ctx, pool.ID)
	if existing == nil {
		return types.ErrPoolNotFound.Wrapf("pool %d", pool.ID)
	}
	if existing.Owner != sender {
		return types.ErrPoolOwnerOnly.Wrapf("pool %d: %s", pool.ID, sender)
	}
	pool.Owner = existing.Owner
	k.SetCollateralPool(ctx, pool)
	return nil
}

// PoolForAccount resolves the pool an account belongs to.
func (k *Keeper) PoolForAccount(ctx sdk.Context, accountID uint64) (*types.Account, *types.CollateralPool, error) {
	account := k.GetAccount(ctx, accountID)
	if account == nil {
		return nil, nil, types.ErrAccountNotFound.Wrapf("account %d", accountID)
	}
	pool := k.GetCollateralPool(ctx, account.CollateralPoolID)
	if pool == nil {
		return nil, nil, types.ErrPoolNotFound.Wrapf("pool %d", account.CollateralPoolID)
	}
	return account, pool, nil
}
