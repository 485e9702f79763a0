package app

import (
	"fmt"

	clearinghousetypes "github.com/openalpha/clearing-core/x/clearinghouse/types"
	margintypes "github.com/openalpha/clearing-core/x/margin/types"
)

// RegisterMarketManager plugs an external market implementation into the
// margin keeper's registry. Markets are wiring-time collaborators, not
// modules of this app; every exposure and liquidation call for the market
// id is routed through the given manager.
func (app *App) RegisterMarketManager(marketID uint64, manager margintypes.MarketManager) error {
	if manager == nil {
		return fmt.Errorf("nil market manager for market %d", marketID)
	}
	if _, err := app.MarginKeeper.Market(marketID); err == nil {
		return fmt.Errorf("market %d already registered", marketID)
	}

	app.MarginKeeper.RegisterMarket(marketID, manager)
	return nil
}

// RegisterLiquidationHook makes a hook implementation addressable from
// liquidation bids. Bids naming an unregistered address are rejected at
// submission.
func (app *App) RegisterLiquidationHook(address string, hook clearinghousetypes.LiquidationHook) error {
	if address == "" {
		return fmt.Errorf("empty hook address")
	}
	if hook == nil {
		return fmt.Errorf("nil liquidation hook for address %s", address)
	}

	app.ClearinghouseKeeper.RegisterLiquidationHook(address, hook)
	return nil
}
