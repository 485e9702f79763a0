package keeper

import (
	"encoding/json"
	"sort"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

// GetCollateralConfig returns the bubble node for (pool, token).
func (k *Keeper) GetCollateralConfig(ctx sdk.Context, poolID uint64, token string) (types.CollateralConfig, error) {
	store := k.GetStore(ctx)
	bz := store.Get(collateralConfigKey(poolID, token))
	if bz == nil {
		return types.CollateralConfig{}, types.ErrTokenNotConfigured.Wrapf("pool %d token %s", poolID, token)
	}
	var config types.CollateralConfig
	if err := json.Unmarshal(bz, &config); err != nil {
		return types.CollateralConfig{}, types.ErrTokenNotConfigured.Wrapf("pool %d token %s", poolID, token)
	}
	return config, nil
}

// SetCollateralConfig inserts or replaces a bubble node. The parent must
// already be configured (or be the root sentinel) and the resulting parent
// chain must stay acyclic; the tree invariant is enforced here, at
// configuration time, so aggregation never has to re-check it.
func (k *Keeper) SetCollateralConfig(ctx sdk.Context, poolID uint64, config types.CollateralConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Parent != types.RootToken {
		if _, err := k.GetCollateralConfig(ctx, poolID, config.Parent); err != nil {
			return types.ErrUnknownParentToken.Wrapf("pool %d token %s parent %s", poolID, config.Token, config.Parent)
		}
	}

	// Walk the parent chain from the proposed parent; reaching the token
	// being configured means the edge would close a cycle.
	seen := map[string]bool{config.Token: true}
	current := config.Parent
	for current != types.RootToken {
		if seen[current] {
			return types.ErrBubbleCycle.Wrapf("pool %d token %s", poolID, config.Token)
		}
		seen[current] = true
		parentConfig, err := k.GetCollateralConfig(ctx, poolID, current)
		if err != nil {
			return err
		}
		current = parentConfig.Parent
	}

	store := k.GetStore(ctx)
	bz, _ := json.Marshal(config)
	store.Set(collateralConfigKey(poolID, config.Token), bz)
	return nil
}

// GetBubbleChildren returns the configured children of token within the
// pool, in deterministic (token-sorted) order.
func (k *Keeper) GetBubbleChildren(ctx sdk.Context, poolID uint64, token string) []types.CollateralConfig {
	store := k.GetStore(ctx)
	prefix := append(CollateralConfigKeyPrefix, uint64Key(poolID)...)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var children []types.CollateralConfig
	for ; iterator.Valid(); iterator.Next() {
		var config types.CollateralConfig
		if err := json.Unmarshal(iterator.Value(), &config); err != nil {
			continue
		}
		if config.Parent == token && config.Token != token {
			children = append(children, config)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Token < children[j].Token })
	return children
}

// TokenPriceInRoot converts one unit of token into root (USD-equivalent)
// terms by walking the parent chain without haircuts.
func (k *Keeper) TokenPriceInRoot(ctx sdk.Context, poolID uint64, token string) (math.LegacyDec, error) {
	price := math.LegacyOneDec()
	current := token
	for current != types.RootToken {
		config, err := k.GetCollateralConfig(ctx, poolID, current)
		if err != nil {
			return math.LegacyZeroDec(), err
		}
		price = price.Mul(config.ExchangePrice)
		current = config.Parent
	}
	return price, nil
}

// ExchangePriceBetween returns the price of one unit of token a in units of
// token b, via their common root.
func (k *Keeper) ExchangePriceBetween(ctx sdk.Context, poolID uint64, a, b string) (math.LegacyDec, error) {
	priceA, err := k.TokenPriceInRoot(ctx, poolID, a)
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	priceB, err := k.TokenPriceInRoot(ctx, poolID, b)
	if err != nil {
		return math.LegacyZeroDec(), err
	}
	if priceB.IsZero() {
		return math.LegacyZeroDec(), types.ErrInvalidExchangePrice.Wrapf("pool %d token %s", poolID, b)
	}
	return priceA.Quo(priceB), nil
}
