package keeper

import (
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/margin/types"
)

// CollateralKeeper defines the expected interface for the collateral module
type CollateralKeeper interface {
	GetAccount(ctx sdk.Context, accountID uint64) *collateraltypes.Account
	GetCollateralPool(ctx sdk.Context, poolID uint64) *collateraltypes.CollateralPool
	PoolForAccount(ctx sdk.Context, accountID uint64) (*collateraltypes.Account, *collateraltypes.CollateralPool, error)
	GetCollateralBalance(ctx sdk.Context, accountID uint64, token string) math.LegacyDec
	GetAccountNetCollateralDeposits(ctx sdk.Context, accountID uint64, token string) math.LegacyDec
	GetCollateralConfig(ctx sdk.Context, poolID uint64, token string) (collateraltypes.CollateralConfig, error)
	GetBubbleChildren(ctx sdk.Context, poolID uint64, token string) []collateraltypes.CollateralConfig
	TokenPriceInRoot(ctx sdk.Context, poolID uint64, token string) (math.LegacyDec, error)
}

// Keeper aggregates account exposures across markets and the collateral
// bubble tree. It holds no state of its own beyond the market registry.
type Keeper struct {
	collateralKeeper CollateralKeeper
	logger           log.Logger

	// markets maps a market id to its manager. Registered at wiring time.
	markets map[uint64]types.MarketManager
}

// NewKeeper creates a new margin keeper
func NewKeeper(collateralKeeper CollateralKeeper, logger log.Logger) *Keeper {
	return &Keeper{
		collateralKeeper: collateralKeeper,
		logger:           logger.With("module", "x/margin"),
		markets:          make(map[uint64]types.MarketManager),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// RegisterMarket plugs a market manager into the registry.
func (k *Keeper) RegisterMarket(marketID uint64, manager types.MarketManager) {
	k.markets[marketID] = manager
}

// Market resolves a market manager, failing when none is registered. The
// external component may not exist; callers validate before use.
func (k *Keeper) Market(marketID uint64) (types.MarketManager, error) {
	manager, ok := k.markets[marketID]
	if !ok {
		return nil, types.ErrMarketManagerNotFound.Wrapf("market %d", marketID)
	}
	return manager, nil
}
