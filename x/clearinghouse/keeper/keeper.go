package keeper

import (
	"encoding/binary"
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
	margintypes "github.com/openalpha/clearing-core/x/margin/types"
)

// Store key prefixes
var (
	QueueHeadKeyPrefix        = []byte{0x01}
	BidQueueKeyPrefix         = []byte{0x02}
	InsuranceFundKeyPrefix    = []byte{0x03}
	PendingAutoExchangePrefix = []byte{0x04}
	LiquidationCounterKey     = []byte{0x05}
)

// CollateralKeeper defines the expected interface for the collateral module
type CollateralKeeper interface {
	GetAccount(ctx sdk.Context, accountID uint64) *collateraltypes.Account
	SetAccount(ctx sdk.Context, account *collateraltypes.Account)
	GetCollateralPool(ctx sdk.Context, poolID uint64) *collateraltypes.CollateralPool
	PoolForAccount(ctx sdk.Context, accountID uint64) (*collateraltypes.Account, *collateraltypes.CollateralPool, error)
	GetCollateralBalance(ctx sdk.Context, accountID uint64, token string) math.LegacyDec
	TransferCollateral(ctx sdk.Context, fromID, toID uint64, token string, assets math.LegacyDec, allowDeficit bool) error
	GetCollateralConfig(ctx sdk.Context, poolID uint64, token string) (collateraltypes.CollateralConfig, error)
	TokenPriceInRoot(ctx sdk.Context, poolID uint64, token string) (math.LegacyDec, error)
	ExchangePriceBetween(ctx sdk.Context, poolID uint64, a, b string) (math.LegacyDec, error)
}

// MarginKeeper defines the expected interface for the margin module
type MarginKeeper interface {
	GetMarginInfoByBubble(ctx sdk.Context, accountID uint64, token string) (margintypes.MarginInfo, error)
	GetRequirementDeltasByBubble(ctx sdk.Context, accountID uint64, token string) (margintypes.MarginRequirementDeltas, error)
	GetTokenMarginInfo(ctx sdk.Context, accountID uint64, token string) (margintypes.MarginInfo, error)
	Market(marketID uint64) (margintypes.MarketManager, error)
}

// Keeper orchestrates the liquidation engine, auto-exchange and penalty
// distribution.
type Keeper struct {
	cdc      codec.BinaryCodec
	storeKey storetypes.StoreKey
	logger   log.Logger

	collateralKeeper CollateralKeeper
	marginKeeper     MarginKeeper

	// hooks maps a hook address to its implementation. Registered at
	// wiring time; a bid naming an unregistered address is rejected.
	hooks map[string]types.LiquidationHook
}

// NewKeeper creates a new clearinghouse keeper
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
		logger:           logger.With("module", "x/clearinghouse"),
		hooks:            make(map[string]types.LiquidationHook),
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

// RegisterLiquidationHook registers a hook implementation at an address.
func (k *Keeper) RegisterLiquidationHook(address string, hook types.LiquidationHook) {
	k.hooks[address] = hook
}

// Hook resolves a registered liquidation hook.
func (k *Keeper) Hook(address string) (types.LiquidationHook, error) {
	hook, ok := k.hooks[address]
	if !ok {
		return nil, types.ErrHookNotRegistered.Wrapf("hook %s", address)
	}
	return hook, nil
}

func uint64Key(id uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, id)
	return bz
}

func queueHeadKey(accountID uint64, quoteToken string) []byte {
	key := append(QueueHeadKeyPrefix, uint64Key(accountID)...)
	return append(key, []byte(quoteToken)...)
}

func bidQueueKey(accountID uint64, quoteToken string, queueID uint64) []byte {
	key := append(BidQueueKeyPrefix, uint64Key(accountID)...)
	key = append(key, []byte(quoteToken)...)
	return append(key, uint64Key(queueID)...)
}

func insuranceFundKey(poolID uint64) []byte {
	return append(InsuranceFundKeyPrefix, uint64Key(poolID)...)
}

func pendingAutoExchangeKey(accountID uint64, token string) []byte {
	key := append(PendingAutoExchangePrefix, uint64Key(accountID)...)
	return append(key, []byte(token)...)
}

// nextLiquidationSeq returns a module-wide monotonic sequence, used for
// event correlation ids.
func (k *Keeper) nextLiquidationSeq(ctx sdk.Context) uint64 {
	store := k.GetStore(ctx)
	var counter uint64
	if bz := store.Get(LiquidationCounterKey); bz != nil {
		counter = binary.BigEndian.Uint64(bz)
	}
	counter++
	store.Set(LiquidationCounterKey, uint64Key(counter))
	return counter
}

// hasUnfilledOrders reports whether the account has resting orders in any
// active market under the quote token.
func (k *Keeper) hasUnfilledOrders(ctx sdk.Context, account *collateraltypes.Account, quoteToken string) (bool, error) {
	for _, marketID := range account.ActiveMarkets[quoteToken] {
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return false, err
		}
		unfilled, err := manager.HasUnfilledOrders(ctx, marketID, account.ID)
		if err != nil {
			return false, err
		}
		if unfilled {
			return true, nil
		}
	}
	return false, nil
}

// storeJSON and loadJSON keep the KVStore marshaling in one place.
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
