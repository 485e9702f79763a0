package keeper

import (
	"testing"

	"cosmossdk.io/math"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

func TestDepositAndWithdraw(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(1000)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if got := k.GetCollateralBalance(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(1000)) {
		t.Errorf("expected balance 1000, got %s", got.String())
	}
	if got := k.GetAccountNetCollateralDeposits(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(1000)) {
		t.Errorf("expected net deposits 1000, got %s", got.String())
	}

	if err := k.Withdraw(ctx, 1, "usdc", math.LegacyNewDec(400)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if got := k.GetCollateralBalance(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(600)) {
		t.Errorf("expected balance 600, got %s", got.String())
	}
	if got := k.GetAccountNetCollateralDeposits(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(600)) {
		t.Errorf("expected net deposits 600, got %s", got.String())
	}

	// The ledger refuses to go negative on a plain withdrawal.
	if err := k.Withdraw(ctx, 1, "usdc", math.LegacyNewDec(601)); err == nil {
		t.Error("expected overdraft withdrawal to fail")
	}
}

func TestDepositValidation(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := k.Deposit(ctx, 1, "usdc", math.LegacyZeroDec()); err == nil {
		t.Error("expected zero deposit to fail")
	}
	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(-5)); err == nil {
		t.Error("expected negative deposit to fail")
	}
	if err := k.Deposit(ctx, 1, "doge", math.LegacyNewDec(100)); err == nil {
		t.Error("expected deposit of unconfigured token to fail")
	}
	if err := k.Deposit(ctx, 99, "usdc", math.LegacyNewDec(100)); err == nil {
		t.Error("expected deposit to unknown account to fail")
	}
}

func TestSingleTokenModeRejectsSecondToken(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	err := k.SetCollateralConfig(ctx, pool.ID, types.CollateralConfig{
		Token:         "eth",
		Parent:        "usdc",
		ExchangePrice: math.LegacyNewDec(2000),
		Haircut:       math.LegacyZeroDec(),
	})
	if err != nil {
		t.Fatalf("failed to configure eth: %v", err)
	}
	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeSingleToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(100)); err != nil {
		t.Fatalf("first deposit failed: %v", err)
	}
	if err := k.Deposit(ctx, 1, "eth", math.LegacyOneDec()); err == nil {
		t.Error("single-token account accepted a second token")
	}
	// Topping up the held token stays allowed.
	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(50)); err != nil {
		t.Errorf("top-up of held token failed: %v", err)
	}
}

func TestActiveCollateralsTrackZeroCrossings(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(100)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	account := k.GetAccount(ctx, 1)
	if !account.HasActiveCollateral("usdc") {
		t.Error("usdc should be active after deposit")
	}

	if err := k.Withdraw(ctx, 1, "usdc", math.LegacyNewDec(100)); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	account = k.GetAccount(ctx, 1)
	if account.HasActiveCollateral("usdc") {
		t.Error("usdc should deactivate at zero balance")
	}

	// A deficit balance is still active.
	if err := k.DecreaseCollateralSharesIntoDeficit(ctx, 1, "usdc", math.LegacyNewDec(10)); err != nil {
		t.Fatalf("deficit decrease failed: %v", err)
	}
	account = k.GetAccount(ctx, 1)
	if !account.HasActiveCollateral("usdc") {
		t.Error("usdc should stay active while in deficit")
	}
	if got := k.GetCollateralBalance(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(-10)) {
		t.Errorf("expected balance -10, got %s", got.String())
	}
}

func TestTransferCollateral(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	for id, owner := range map[uint64]string{1: "alice", 2: "bob"} {
		if _, err := k.CreateAccount(ctx, id, owner, pool.ID, types.AccountModeMultiToken); err != nil {
			t.Fatalf("CreateAccount %d failed: %v", id, err)
		}
	}
	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(100)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	if err := k.TransferCollateral(ctx, 1, 2, "usdc", math.LegacyNewDec(30), false); err != nil {
		t.Fatalf("TransferCollateral failed: %v", err)
	}
	if got := k.GetCollateralBalance(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(70)) {
		t.Errorf("expected payer balance 70, got %s", got.String())
	}
	if got := k.GetCollateralBalance(ctx, 2, "usdc"); !got.Equal(math.LegacyNewDec(30)) {
		t.Errorf("expected payee balance 30, got %s", got.String())
	}

	// Without allowDeficit the transfer cannot overdraw the payer.
	if err := k.TransferCollateral(ctx, 1, 2, "usdc", math.LegacyNewDec(100), false); err == nil {
		t.Error("expected overdraft transfer to fail")
	}

	// With allowDeficit the payer goes negative.
	if err := k.TransferCollateral(ctx, 1, 2, "usdc", math.LegacyNewDec(100), true); err != nil {
		t.Fatalf("deficit transfer failed: %v", err)
	}
	if got := k.GetCollateralBalance(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(-30)) {
		t.Errorf("expected payer balance -30, got %s", got.String())
	}
	if got := k.GetCollateralBalance(ctx, 2, "usdc"); !got.Equal(math.LegacyNewDec(130)) {
		t.Errorf("expected payee balance 130, got %s", got.String())
	}

	// Zero amounts are a no-op for unknown accounts too.
	if err := k.TransferCollateral(ctx, 98, 99, "usdc", math.LegacyZeroDec(), false); err != nil {
		t.Errorf("zero transfer should be a no-op, got %v", err)
	}
}

func TestDepositThroughRebasingAdapter(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	err := k.SetCollateralConfig(ctx, pool.ID, types.CollateralConfig{
		Token:         "steth",
		Parent:        "usdc",
		ExchangePrice: math.LegacyNewDec(2000),
		Haircut:       math.LegacyZeroDec(),
	})
	if err != nil {
		t.Fatalf("failed to configure steth: %v", err)
	}
	k.RegisterTokenAdapter("steth", types.RebasingAdapter{Rate: math.LegacyNewDec(2)})
	if _, err := k.CreateAccount(ctx, 1, "alice", pool.ID, types.AccountModeMultiToken); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := k.Deposit(ctx, 1, "steth", math.LegacyNewDec(100)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if got := k.GetCollateralShares(ctx, 1, "steth"); !got.Equal(math.LegacyNewDec(50)) {
		t.Errorf("expected 50 shares at rate 2, got %s", got.String())
	}
	if got := k.GetCollateralBalance(ctx, 1, "steth"); !got.Equal(math.LegacyNewDec(100)) {
		t.Errorf("expected asset balance 100, got %s", got.String())
	}
}

func TestNetDepositsIndependentOfTransfers(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)
	for id, owner := range map[uint64]string{1: "alice", 2: "bob"} {
		if _, err := k.CreateAccount(ctx, id, owner, pool.ID, types.AccountModeMultiToken); err != nil {
			t.Fatalf("CreateAccount %d failed: %v", id, err)
		}
	}
	if err := k.Deposit(ctx, 1, "usdc", math.LegacyNewDec(500)); err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	if err := k.TransferCollateral(ctx, 1, 2, "usdc", math.LegacyNewDec(200), false); err != nil {
		t.Fatalf("TransferCollateral failed: %v", err)
	}

	// Transfers settle PnL, not deposits: the records stay untouched.
	if got := k.GetAccountNetCollateralDeposits(ctx, 1, "usdc"); !got.Equal(math.LegacyNewDec(500)) {
		t.Errorf("expected payer net deposits 500, got %s", got.String())
	}
	if got := k.GetAccountNetCollateralDeposits(ctx, 2, "usdc"); !got.IsZero() {
		t.Errorf("expected payee net deposits 0, got %s", got.String())
	}
}
