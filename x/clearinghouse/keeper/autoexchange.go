package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	collateraltypes "github.com/openalpha/clearing-core/x/collateral/types"
	"github.com/openalpha/clearing-core/x/clearinghouse/types"
)

// IsEligibleForAutoExchange reports whether an account's deficit in one
// quote token is deep enough to let third parties exchange against its
// other collateral. Eligibility holds when any of three clauses fires:
// the single-token IM shortfall exceeds an absolute USD threshold, the
// aggregate of all negative balances exceeds a global USD threshold, or
// that aggregate exceeds a configured fraction of total account value.
func (k *Keeper) IsEligibleForAutoExchange(ctx sdk.Context, accountID uint64, quoteToken string) (bool, error) {
	account, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	cfg := pool.AutoExchange

	info, err := k.marginKeeper.GetTokenMarginInfo(ctx, accountID, quoteToken)
	if err != nil {
		return false, err
	}
	if info.Deltas.Initial.IsNegative() {
		price, err := k.collateralKeeper.TokenPriceInRoot(ctx, pool.ID, quoteToken)
		if err != nil {
			return false, err
		}
		if info.Deltas.Initial.Abs().Mul(price).GT(cfg.SingleThresholdUSD) {
			return true, nil
		}
	}

	aggregateDeficit := math.LegacyZeroDec()
	totalValue := math.LegacyZeroDec()
	for _, token := range account.ActiveCollaterals {
		balance := k.collateralKeeper.GetCollateralBalance(ctx, accountID, token)
		price, err := k.collateralKeeper.TokenPriceInRoot(ctx, pool.ID, token)
		if err != nil {
			return false, err
		}
		value := balance.Mul(price)
		if value.IsNegative() {
			aggregateDeficit = aggregateDeficit.Add(value.Abs())
		} else {
			totalValue = totalValue.Add(value)
		}
	}
	if aggregateDeficit.GT(cfg.AggregateThresholdUSD) {
		return true, nil
	}
	if totalValue.IsPositive() && aggregateDeficit.GT(cfg.TotalValueRatio.Mul(totalValue)) {
		return true, nil
	}
	return false, nil
}

// GetMaxAmountToExchangeQuote computes the largest exchange currently
// allowed against an account: the deficit-token amount is capped at
// Ratio times the IM shortfall, and further by what the account's
// covering-token balance is worth at the (possibly discounted) exchange
// price. Returns (coveringAmount, autoExchangedAmount).
func (k *Keeper) GetMaxAmountToExchangeQuote(
	ctx sdk.Context,
	accountID uint64,
	coveringToken string,
	autoExchangedToken string,
) (math.LegacyDec, math.LegacyDec, error) {
	zero := math.LegacyZeroDec()

	_, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return zero, zero, err
	}

	info, err := k.marginKeeper.GetTokenMarginInfo(ctx, accountID, autoExchangedToken)
	if err != nil {
		return zero, zero, err
	}
	if !info.Deltas.Initial.IsNegative() {
		return zero, zero, nil
	}
	maxAuto := pool.AutoExchange.Ratio.Mul(info.Deltas.Initial.Abs())

	price, err := k.collateralKeeper.ExchangePriceBetween(ctx, pool.ID, coveringToken, autoExchangedToken)
	if err != nil {
		return zero, zero, err
	}
	effectivePrice := price.Mul(math.LegacyOneDec().Sub(pool.AutoExchange.DiscountRatio))
	if !effectivePrice.IsPositive() {
		return zero, zero, collateraltypes.ErrInvalidExchangePrice.Wrapf(
			"%s -> %s effective price %s", coveringToken, autoExchangedToken, effectivePrice.String())
	}

	coveringAvailable := k.collateralKeeper.GetCollateralBalance(ctx, accountID, coveringToken)
	if !coveringAvailable.IsPositive() {
		return zero, zero, nil
	}
	coveringCap := coveringAvailable.Mul(effectivePrice)

	autoAmount := maxAuto
	if coveringCap.LT(autoAmount) {
		autoAmount = coveringCap
	}
	coveringAmount := autoAmount.Quo(effectivePrice)
	return coveringAmount, autoAmount, nil
}

// TriggerAutoExchange executes one exchange: the exchanger pays `amount`
// of the deficit token into the account and receives covering-token
// collateral priced at the discounted exchange rate. The paid amount is
// also recorded in the account's pending bucket, which the backstop's
// insolvency path can pull as cover.
func (k *Keeper) TriggerAutoExchange(
	ctx sdk.Context,
	sender string,
	accountID uint64,
	exchangerAccountID uint64,
	coveringToken string,
	autoExchangedToken string,
	amount math.LegacyDec,
) (math.LegacyDec, math.LegacyDec, error) {
	zero := math.LegacyZeroDec()
	if !amount.IsPositive() {
		return zero, zero, collateraltypes.ErrInvalidAmount.Wrapf("amount %s", amount.String())
	}

	_, pool, err := k.collateralKeeper.PoolForAccount(ctx, accountID)
	if err != nil {
		return zero, zero, err
	}
	exchanger, exchangerPool, err := k.collateralKeeper.PoolForAccount(ctx, exchangerAccountID)
	if err != nil {
		return zero, zero, err
	}
	if exchangerPool.ID != pool.ID {
		return zero, zero, types.ErrCollateralPoolMismatch.Wrapf(
			"exchanger pool %d, account pool %d", exchangerPool.ID, pool.ID)
	}
	if !exchanger.HasPermission(collateraltypes.PermissionAdmin, sender) {
		return zero, zero, types.ErrLiquidatorNotAdmin.Wrapf("account %d: %s", exchangerAccountID, sender)
	}

	eligible, err := k.IsEligibleForAutoExchange(ctx, accountID, autoExchangedToken)
	if err != nil {
		return zero, zero, err
	}
	if !eligible {
		return zero, zero, types.ErrNotEligibleForAutoExchange.Wrapf(
			"account %d token %s", accountID, autoExchangedToken)
	}

	maxCovering, maxAuto, err := k.GetMaxAmountToExchangeQuote(ctx, accountID, coveringToken, autoExchangedToken)
	if err != nil {
		return zero, zero, err
	}
	if amount.GT(maxAuto) {
		return zero, zero, types.ErrAutoExchangeAmountTooLarge.Wrapf(
			"amount %s, max %s", amount.String(), maxAuto.String())
	}
	coveringAmount := maxCovering.Mul(amount).Quo(maxAuto)

	// Exchanger pays the deficit token in full; the account releases
	// covering collateral. Neither leg may open a new deficit.
	if err := k.collateralKeeper.TransferCollateral(ctx, exchangerAccountID, accountID, autoExchangedToken, amount, false); err != nil {
		return zero, zero, err
	}
	if err := k.collateralKeeper.TransferCollateral(ctx, accountID, exchangerAccountID, coveringToken, coveringAmount, false); err != nil {
		return zero, zero, err
	}
	k.addPendingAutoExchange(ctx, accountID, autoExchangedToken, amount)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			"auto_exchange_executed",
			sdk.NewAttribute("account_id", fmt.Sprintf("%d", accountID)),
			sdk.NewAttribute("exchanger_account", fmt.Sprintf("%d", exchangerAccountID)),
			sdk.NewAttribute("covering_token", coveringToken),
			sdk.NewAttribute("auto_exchanged_token", autoExchangedToken),
			sdk.NewAttribute("covering_amount", coveringAmount.String()),
			sdk.NewAttribute("auto_exchanged_amount", amount.String()),
		),
	)
	k.logger.Info("auto exchange executed",
		"account_id", accountID,
		"auto_exchanged_token", autoExchangedToken,
		"amount", amount.String(),
	)
	return coveringAmount, amount, nil
}

type pendingAutoExchange struct {
	Amount math.LegacyDec `json:"amount"`
}

// GetPendingAutoExchange returns the account's accumulated auto-exchanged
// amount in a token that has not yet been claimed by the backstop.
func (k *Keeper) GetPendingAutoExchange(ctx sdk.Context, accountID uint64, token string) math.LegacyDec {
	var pending pendingAutoExchange
	if !k.loadJSON(ctx, pendingAutoExchangeKey(accountID, token), &pending) {
		return math.LegacyZeroDec()
	}
	return pending.Amount
}

func (k *Keeper) addPendingAutoExchange(ctx sdk.Context, accountID uint64, token string, amount math.LegacyDec) {
	total := k.GetPendingAutoExchange(ctx, accountID, token).Add(amount)
	k.storeJSON(ctx, pendingAutoExchangeKey(accountID, token), pendingAutoExchange{Amount: total})
}

// pullPendingAutoExchange drains the bucket and returns what was in it.
func (k *Keeper) pullPendingAutoExchange(ctx sdk.Context, accountID uint64, token string) math.LegacyDec {
	amount := k.GetPendingAutoExchange(ctx, accountID, token)
	if amount.IsPositive() {
		k.GetStore(ctx).Delete(pendingAutoExchangeKey(accountID, token))
	}
	return amount
}
