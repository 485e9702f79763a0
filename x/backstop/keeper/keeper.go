package keeper

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/backstop/types"
	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	margintypes "github.com/openalpha/clearing-core/x/margin/types"
)

// Store key prefixes
var (
	BackstopPoolKeyPrefix = []byte{0x01}
	SharesKeyPrefix       = []byte{0x02}
	WithdrawalKeyPrefix   = []byte{0x03}
)

// CollateralKeeper defines the expected interface for the collateral module
type CollateralKeeper interface {
	GetAccount(ctx sdk.Context, accountID uint64) *collateraltypes.Account
	GetCollateralBalance(ctx sdk.Context, accountID uint64, token string) math.LegacyDec
	TransferCollateral(ctx sdk.Context, fromID, toID uint64, token string, assets math.LegacyDec, allowDeficit bool) error
}

// MarginKeeper defines the expected interface for the margin module
type MarginKeeper interface {
	GetRequirementDeltasByBubble(ctx sdk.Context, accountID uint64, token string) (margintypes.MarginRequirementDeltas, error)
}

// Keeper manages backstop LP pools: share accounting over the backstop
// account's collateral.
type Keeper struct {
	cdc      codec.BinaryCodec
	storeKey storetypes.StoreKey
	logger   log.Logger

	collateralKeeper CollateralKeeper
	marginKeeper     MarginKeeper
}

// NewKeeper creates a new backstop keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	collateralKeeper CollateralKeeper,
	marginKeeper MarginKeeper,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:              cdc,
		storeKey:         storeKey,
		collateralKeeper: collateralKeeper,
		marginKeeper:     marginKeeper,
		logger:           logger.With("module", "x/backstop"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

func uint64Key(id uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, id)
	return bz
}

func backstopPoolKey(collateralPoolID uint64) []byte {
	return append(BackstopPoolKeyPrefix, uint64Key(collateralPoolID)...)
}

func sharesKey(collateralPoolID uint64, depositor string) []byte {
	key := append(SharesKeyPrefix, uint64Key(collateralPoolID)...)
	return append(key, []byte(depositor)...)
}

func withdrawalKey(id string) []byte {
	return append(WithdrawalKeyPrefix, []byte(id)...)
}

func (k *Keeper) storeJSON(ctx sdk.Context, key []byte, value interface{}) {
	bz, _ := json.Marshal(value)
	k.GetStore(ctx).Set(key, bz)
}

func (k *Keeper) loadJSON(ctx sdk.Context, key []byte, value interface{}) bool {
	bz := k.GetStore(ctx).Get(key)
	if bz == nil {
		return false
	}
	return json.Unmarshal(bz, value) == nil
}

// GetBackstopPool returns the backstop pool for a collateral pool, or nil.
func (k *Keeper) GetBackstopPool(ctx sdk.Context, collateralPoolID uint64) *types.BackstopPool {
	var pool types.BackstopPool
	if !k.loadJSON(ctx, backstopPoolKey(collateralPoolID), &pool) {
		return nil
	}
	return &pool
}

// SetBackstopPool persists a backstop pool.
func (k *Keeper) SetBackstopPool(ctx sdk.Context, pool *types.BackstopPool) {
	k.storeJSON(ctx, backstopPoolKey(pool.CollateralPoolID), pool)
}

// CreateBackstopPool registers the share ledger for a collateral pool's
// backstop account.
func (k *Keeper) CreateBackstopPool(
	ctx sdk.Context,
	collateralPoolID uint64,
	accountID uint64,
	quoteToken string,
	redemptionDelay time.Duration,
	minFreeCollateral math.LegacyDec,
) (*types.BackstopPool, error) {
	if k.GetBackstopPool(ctx, collateralPoolID) != nil {
		return nil, types.ErrPoolAlreadyExists.Wrapf("collateral pool %d", collateralPoolID)
	}
	now := ctx.BlockTime()
	pool := &types.BackstopPool{
		CollateralPoolID:  collateralPoolID,
		AccountID:         accountID,
		QuoteToken:        quoteToken,
		TotalShares:       math.LegacyZeroDec(),
		RedemptionDelay:   redemptionDelay,
		MinFreeCollateral: minFreeCollateral,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	k.SetBackstopPool(ctx, pool)
	k.logger.Info("backstop pool created",
		"collateral_pool_id", collateralPoolID,
		"account_id", accountID,
		"quote_token", quoteToken,
	)
	return pool, nil
}

// GetDepositorShares returns a depositor's share balance in a pool.
func (k *Keeper) GetDepositorShares(ctx sdk.Context, collateralPoolID uint64, depositor string) math.LegacyDec {
	var record sharesRecord
	if !k.loadJSON(ctx, sharesKey(collateralPoolID, depositor), &record) {
		return math.LegacyZeroDec()
	}
	return record.Shares
}

type sharesRecord struct {
	Shares math.LegacyDec `json:"shares"`
}

func (k *Keeper) setDepositorShares(ctx sdk.Context, collateralPoolID uint64, depositor string, shares math.LegacyDec) {
	if shares.IsZero() {
		k.GetStore(ctx).Delete(sharesKey(collateralPoolID, depositor))
		return
	}
	k.storeJSON(ctx, sharesKey(collateralPoolID, depositor), sharesRecord{Shares: shares})
}

// PoolNAV prices one share in quote token: the backstop account's balance
// over shares outstanding, one before any share exists.
func (k *Keeper) PoolNAV(ctx sdk.Context, pool *types.BackstopPool) math.LegacyDec {
	if pool.TotalShares.IsZero() {
		return math.LegacyOneDec()
	}
	value := k.collateralKeeper.GetCollateralBalance(ctx, pool.AccountID, pool.QuoteToken)
	if !value.IsPositive() {
		return math.LegacyZeroDec()
	}
	return value.Quo(pool.TotalShares)
}
