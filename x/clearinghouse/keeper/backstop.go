package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/huandu/skiplist"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// adlRankKey orders ADL candidates by unrealized profit descending, so
// the most profitable positions are socialized first. Market id breaks
// ties deterministically.
type adlRankKey struct {
	Upnl     math.LegacyDec
	MarketID uint64
}

type adlRankDesc struct{}

func (adlRankDesc) Compare(lhs, rhs interface{}) int {
	l := lhs.(adlRankKey)
	r := rhs.(adlRankKey)
	if l.Upnl.GT(r.Upnl) {
		return -1
	}
	if l.Upnl.LT(r.Upnl) {
		return 1
	}
	if l.MarketID < r.MarketID {
		return -1
	}
	if l.MarketID > r.MarketID {
		return 1
	}
	return 0
}

func (adlRankDesc) CalcScore(key interface{}) float64 {
	f, _ := key.(adlRankKey).Upnl.Float64()
	return -f
}

// ExecuteBackstopLiquidation unwinds an account that has fallen below its
// ADL margin requirement. Solvent accounts are absorbed by the backstop
// LP; insolvent accounts are resolved through ADL, the insurance fund and
// finally bankruptcy-priced ADL that shares the shortfall pro rata.
// Returns whether the solvent path ran.
func (k *Keeper) ExecuteBackstopLiquidation(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	quoteToken string,
	orders []types.BidOrder,
) (bool, error) {
	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return false, err
	}

	unfilled, err := k.hasUnfilledOrders(ctx, account, quoteToken)
	if err != nil {
		return false, err
	}
	if unfilled {
		return false, types.ErrAccountHasUnfilledOrders.Wrapf("account %d token %s", accountID, quoteToken)
	}

	deltas, err := k.marginKeeper.GetRequirementDeltasByBubble(ctx, accountID, quoteToken)
	if err != nil {
		return false, err
	}
	if !deltas.Adl.IsNegative() {
		return false, types.ErrAccountNotBelowAdl.Wrapf(
			"account %d token %s: adl delta %s", accountID, quoteToken, deltas.Adl.String())
	}

	// Solvency is judged on the single-token raw margin balance: no
	// haircuts, no bubble descent. A negative value means the account's
	// own assets cannot cover its losses.
	tokenInfo, err := k.marginKeeper.GetTokenMarginInfo(ctx, accountID, quoteToken)
	if err != nil {
		return false, err
	}
	seq := k.nextLiquidationSeq(ctx)
	solvent := !tokenInfo.RawMarginBalance.IsNegative()

	if solvent {
		err = k.backstopSolvent(ctx, accountID, quoteToken, pool.BackstopLp.AccountID, pool.BackstopLp.ImBuffer, orders)
	} else {
		err = k.backstopInsolvent(ctx, accountID, quoteToken, pool.ID)
	}
	if err != nil {
		return solvent, err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"backstop_liquidation_executed",
			sdk.NewAttribute("liquidation_seq", fmt.Sprintf("%d", seq)),
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("quote_token", quoteToken),
			sdk.NewAttribute("solvent", fmt.Sprintf("%t", solvent)),
		),
	)
	k.logger.Info("backstop liquidation executed",
		"liquidation_seq", seq,
		"account_id", accountID,
		"quote_token", quoteToken,
		"solvent", solvent,
	)
	return solvent, nil
}

// backstopSolvent runs the caller-specified orders as the backstop LP,
// then assigns any residual open position to the LP at market price, one
// market at a time, for as long as the LP keeps its initial-margin buffer.
// The active market set is re-queried after every assignment because an
// assignment can close out markets.
func (k *Keeper) backstopSolvent(
	ctx sdk.Context,
	accountID uint64,
	quoteToken string,
	backstopLpAccountID uint64,
	imBuffer math.LegacyDec,
	orders []types.BidOrder,
) error {
	for _, order := range orders {
		manager, err := k.marginKeeper.Market(order.MarketID)
		if err != nil {
			return err
		}
		if err := manager.ExecuteLiquidationOrder(ctx, order.MarketID, accountID, backstopLpAccountID, order.Inputs); err != nil {
			return err
		}
	}

	for {
		marketID, found, err := k.nextOpenMarket(ctx, accountID, quoteToken)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return err
		}

		// Try the assignment on a cache context so an absorption that
		// would breach the LP's buffer can be discarded cleanly.
		cacheCtx, write := ctx.CacheContext()
		if err := manager.AssignPositionAtMarketPrice(cacheCtx, marketID, accountID, backstopLpAccountID); err != nil {
			return err
		}
		lpDeltas, err := k.marginKeeper.GetRequirementDeltasByBubble(cacheCtx, backstopLpAccountID, quoteToken)
		if err != nil {
			return err
		}
		if lpDeltas.Initial.LT(imBuffer) {
			return types.ErrBackstopLpBelowIm.Wrapf(
				"backstop lp %d token %s: im delta %s, buffer %s",
				backstopLpAccountID, quoteToken, lpDeltas.Initial.String(), imBuffer.String())
		}
		write()
	}
}

// backstopInsolvent socializes an insolvent account: profitable positions
// are ADL'd first (most profitable first), the insurance fund then covers
// as much of the raw shortfall as it can, and whatever loss remains is
// shared by ADL'ing losing positions at the bankruptcy price.
func (k *Keeper) backstopInsolvent(
	ctx sdk.Context,
	accountID uint64,
	quoteToken string,
	poolID uint64,
) error {
	pool := k.collateralKeeper.GetCollateralPool(ctx, poolID)
	zero := math.LegacyZeroDec()

	ranking := skiplist.New(adlRankDesc{})
	account := k.collateralKeeper.GetAccount(ctx, accountID)
	if account == nil {
		return collateraltypes.ErrAccountNotFound.Wrapf("account %d", accountID)
	}
	for _, marketID := range account.ActiveMarkets[quoteToken] {
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return err
		}
		open, err := manager.HasOpenPosition(ctx, marketID, accountID)
		if err != nil {
			return err
		}
		if !open {
			continue
		}
		upnl, err := manager.GetAccountUnrealizedPnL(ctx, marketID, accountID)
		if err != nil {
			return err
		}
		if upnl.IsPositive() {
			ranking.Set(adlRankKey{Upnl: upnl, MarketID: marketID}, marketID)
		}
	}
	for elem := ranking.Front(); elem != nil; elem = elem.Next() {
		marketID := elem.Value.(uint64)
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return err
		}
		if err := manager.ExecuteADLOrder(ctx, marketID, accountID, false, true, zero, zero); err != nil {
			return err
		}
	}

	// Realizing profits may have restored solvency.
	tokenInfo, err := k.marginKeeper.GetTokenMarginInfo(ctx, accountID, quoteToken)
	if err != nil {
		return err
	}
	shortfall := zero
	if tokenInfo.RawMarginBalance.IsNegative() {
		shortfall = tokenInfo.RawMarginBalance.Neg()
	}

	fund := k.GetInsuranceFund(ctx, poolID, quoteToken)
	fullyCovered := fund.CanCover(shortfall)
	covered := fund.Cover(shortfall, ctx.BlockTime())
	k.SetInsuranceFund(ctx, fund)
	if covered.IsPositive() {
		if err := k.collateralKeeper.TransferCollateral(ctx, pool.Insurance.AccountID, accountID, quoteToken, covered, false); err != nil {
			return err
		}
	}

	if fullyCovered {
		// The fund absorbed the whole shortfall; losing positions unwind
		// at market price.
		return k.adlLosingPositions(ctx, accountID, quoteToken, false, zero, zero)
	}

	// The fund is exhausted. Pending auto-exchange inflows are claimed
	// for the settlement and losing positions unwind at the bankruptcy
	// price, sharing whatever value is left pro rata over the loss.
	pending := k.pullPendingAutoExchange(ctx, accountID, quoteToken)

	totalUnrealizedLoss := zero
	account = k.collateralKeeper.GetAccount(ctx, accountID)
	for _, marketID := range account.ActiveMarkets[quoteToken] {
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return err
		}
		upnl, err := manager.GetAccountUnrealizedPnL(ctx, marketID, accountID)
		if err != nil {
			return err
		}
		if upnl.IsNegative() {
			totalUnrealizedLoss = totalUnrealizedLoss.Add(upnl.Neg())
		}
	}

	infoAfterCover, err := k.marginKeeper.GetTokenMarginInfo(ctx, accountID, quoteToken)
	if err != nil {
		return err
	}
	realBalanceAndIF := infoAfterCover.RealBalance
	if realBalanceAndIF.IsNegative() {
		realBalanceAndIF = zero
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"backstop_bankruptcy_settlement",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("quote_token", quoteToken),
			sdk.NewAttribute("insurance_covered", covered.String()),
			sdk.NewAttribute("pending_auto_exchange", pending.String()),
			sdk.NewAttribute("total_unrealized_loss", totalUnrealizedLoss.String()),
			sdk.NewAttribute("distributable", realBalanceAndIF.String()),
		),
	)
	return k.adlLosingPositions(ctx, accountID, quoteToken, true, totalUnrealizedLoss, realBalanceAndIF)
}

// adlLosingPositions unwinds every losing open position of the account
// under the quote token, at bankruptcy price when requested.
func (k *Keeper) adlLosingPositions(
	ctx sdk.Context,
	accountID uint64,
	quoteToken string,
	bankruptcy bool,
	totalUnrealizedLoss math.LegacyDec,
	realBalanceAndIF math.LegacyDec,
) error {
	account := k.collateralKeeper.GetAccount(ctx, accountID)
	if account == nil {
		return collateraltypes.ErrAccountNotFound.Wrapf("account %d", accountID)
	}
	for _, marketID := range account.ActiveMarkets[quoteToken] {
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return err
		}
		open, err := manager.HasOpenPosition(ctx, marketID, accountID)
		if err != nil {
			return err
		}
		if !open {
			continue
		}
		upnl, err := manager.GetAccountUnrealizedPnL(ctx, marketID, accountID)
		if err != nil {
			return err
		}
		if !upnl.IsNegative() {
			continue
		}
		if bankruptcy {
			err = manager.ExecuteADLOrder(ctx, marketID, accountID, true, false, totalUnrealizedLoss, realBalanceAndIF)
		} else {
			err = manager.ExecuteADLOrder(ctx, marketID, accountID, true, false, math.LegacyZeroDec(), math.LegacyZeroDec())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// nextOpenMarket returns the first active market under the quote token in
// which the account still has filled exposure. The account record is
// re-read so market deactivations from a previous step are observed.
func (k *Keeper) nextOpenMarket(ctx sdk.Context, accountID uint64, quoteToken string) (uint64, bool, error) {
	account := k.collateralKeeper.GetAccount(ctx, accountID)
	if account == nil {
		return 0, false, collateraltypes.ErrAccountNotFound.Wrapf("account %d", accountID)
	}
	for _, marketID := range account.ActiveMarkets[quoteToken] {
		manager, err := k.marginKeeper.Market(marketID)
		if err != nil {
			return 0, false, err
		}
		open, err := manager.HasOpenPosition(ctx, marketID, accountID)
		if err != nil {
			return 0, false, err
		}
		if open {
			return marketID, true, nil
		}
	}
	return 0, false, nil
}
