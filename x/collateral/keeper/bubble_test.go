package keeper

import (
	"testing"

	"cosmossdk.io/math"

	"github.com/openalpha/clearing-core/x/collateral/types"
)

func TestSetCollateralConfigValidation(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	tests := []struct {
		name    string
		config  types.CollateralConfig
		wantErr bool
	}{
		{
			name: "valid child of root token",
			config: types.CollateralConfig{
				Token: "eth", Parent: "usdc",
				ExchangePrice: math.LegacyNewDec(2000),
				Haircut:       math.LegacyNewDecWithPrec(5, 2),
			},
		},
		{
			name: "unknown parent",
			config: types.CollateralConfig{
				Token: "wbtc", Parent: "btc",
				ExchangePrice: math.LegacyOneDec(),
				Haircut:       math.LegacyZeroDec(),
			},
			wantErr: true,
		},
		{
			name: "zero exchange price",
			config: types.CollateralConfig{
				Token: "zero", Parent: "usdc",
				ExchangePrice: math.LegacyZeroDec(),
				Haircut:       math.LegacyZeroDec(),
			},
			wantErr: true,
		},
		{
			name: "haircut of one",
			config: types.CollateralConfig{
				Token: "cut", Parent: "usdc",
				ExchangePrice: math.LegacyOneDec(),
				Haircut:       math.LegacyOneDec(),
			},
			wantErr: true,
		},
		{
			name: "negative haircut",
			config: types.CollateralConfig{
				Token: "neg", Parent: "usdc",
				ExchangePrice: math.LegacyOneDec(),
				Haircut:       math.LegacyNewDec(-1),
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := k.SetCollateralConfig(ctx, pool.ID, tc.config)
			if tc.wantErr && err == nil {
				t.Errorf("expected error for %s", tc.name)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSetCollateralConfigRejectsCycle(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	chain := []types.CollateralConfig{
		{Token: "a", Parent: "usdc", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec()},
		{Token: "b", Parent: "a", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec()},
		{Token: "c", Parent: "b", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec()},
	}
	for _, config := range chain {
		if err := k.SetCollateralConfig(ctx, pool.ID, config); err != nil {
			t.Fatalf("failed to configure %s: %v", config.Token, err)
		}
	}

	// Repointing a to c would close a -> c -> b -> a.
	err := k.SetCollateralConfig(ctx, pool.ID, types.CollateralConfig{
		Token: "a", Parent: "c", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec(),
	})
	if err == nil {
		t.Fatal("expected cycle to be rejected")
	}

	// Self-parenting is the degenerate cycle.
	err = k.SetCollateralConfig(ctx, pool.ID, types.CollateralConfig{
		Token: "a", Parent: "a", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec(),
	})
	if err == nil {
		t.Fatal("expected self-parent to be rejected")
	}

	// A legal reparent within the tree still works.
	err = k.SetCollateralConfig(ctx, pool.ID, types.CollateralConfig{
		Token: "c", Parent: "usdc", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec(),
	})
	if err != nil {
		t.Errorf("legal reparent failed: %v", err)
	}
}

func TestGetBubbleChildren(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	for _, config := range []types.CollateralConfig{
		{Token: "eth", Parent: "usdc", ExchangePrice: math.LegacyNewDec(2000), Haircut: math.LegacyZeroDec()},
		{Token: "btc", Parent: "usdc", ExchangePrice: math.LegacyNewDec(60000), Haircut: math.LegacyZeroDec()},
		{Token: "steth", Parent: "eth", ExchangePrice: math.LegacyOneDec(), Haircut: math.LegacyZeroDec()},
	} {
		if err := k.SetCollateralConfig(ctx, pool.ID, config); err != nil {
			t.Fatalf("failed to configure %s: %v", config.Token, err)
		}
	}

	children := k.GetBubbleChildren(ctx, pool.ID, "usdc")
	if len(children) != 2 {
		t.Fatalf("expected 2 children of usdc, got %d", len(children))
	}
	if children[0].Token != "btc" || children[1].Token != "eth" {
		t.Errorf("expected token-sorted children [btc eth], got [%s %s]", children[0].Token, children[1].Token)
	}

	roots := k.GetBubbleChildren(ctx, pool.ID, types.RootToken)
	if len(roots) != 1 || roots[0].Token != "usdc" {
		t.Errorf("expected usdc as the sole root child, got %v", roots)
	}

	if got := k.GetBubbleChildren(ctx, pool.ID, "btc"); len(got) != 0 {
		t.Errorf("expected no children of btc, got %d", len(got))
	}
}

func TestTokenPriceInRoot(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	for _, config := range []types.CollateralConfig{
		{Token: "eth", Parent: "usdc", ExchangePrice: math.LegacyNewDec(2000), Haircut: math.LegacyNewDecWithPrec(10, 2)},
		{Token: "steth", Parent: "eth", ExchangePrice: math.LegacyNewDecWithPrec(95, 2), Haircut: math.LegacyNewDecWithPrec(5, 2)},
	} {
		if err := k.SetCollateralConfig(ctx, pool.ID, config); err != nil {
			t.Fatalf("failed to configure %s: %v", config.Token, err)
		}
	}

	// Root prices multiply up the parent chain, haircuts never apply.
	price, err := k.TokenPriceInRoot(ctx, pool.ID, "steth")
	if err != nil {
		t.Fatalf("TokenPriceInRoot failed: %v", err)
	}
	if expected := math.LegacyNewDec(1900); !price.Equal(expected) {
		t.Errorf("expected steth root price %s, got %s", expected.String(), price.String())
	}

	price, err = k.TokenPriceInRoot(ctx, pool.ID, types.RootToken)
	if err != nil {
		t.Fatalf("TokenPriceInRoot of root failed: %v", err)
	}
	if !price.Equal(math.LegacyOneDec()) {
		t.Errorf("root should price at 1, got %s", price.String())
	}

	if _, err := k.TokenPriceInRoot(ctx, pool.ID, "doge"); err == nil {
		t.Error("expected unconfigured token to fail")
	}
}

func TestExchangePriceBetween(t *testing.T) {
	k, ctx, pool := setupKeeperWithPool(t)

	for _, config := range []types.CollateralConfig{
		{Token: "eth", Parent: "usdc", ExchangePrice: math.LegacyNewDec(2000), Haircut: math.LegacyZeroDec()},
		{Token: "btc", Parent: "usdc", ExchangePrice: math.LegacyNewDec(60000), Haircut: math.LegacyZeroDec()},
	} {
		if err := k.SetCollateralConfig(ctx, pool.ID, config); err != nil {
			t.Fatalf("failed to configure %s: %v", config.Token, err)
		}
	}

	price, err := k.ExchangePriceBetween(ctx, pool.ID, "btc", "eth")
	if err != nil {
		t.Fatalf("ExchangePriceBetween failed: %v", err)
	}
	if expected := math.LegacyNewDec(30); !price.Equal(expected) {
		t.Errorf("expected btc/eth price %s, got %s", expected.String(), price.String())
	}
}

func TestConvertToParentDirectionalHaircut(t *testing.T) {
	config := types.CollateralConfig{
		Token:         "eth",
		Parent:        "usdc",
		ExchangePrice: math.LegacyNewDec(2000),
		Haircut:       math.LegacyNewDecWithPrec(10, 2),
	}

	// Positive value is discounted by the haircut.
	got := config.ConvertToParent(math.LegacyNewDec(2))
	if expected := math.LegacyNewDec(3600); !got.Equal(expected) {
		t.Errorf("expected haircut conversion %s, got %s", expected.String(), got.String())
	}

	// Negative value converts at the full price.
	got = config.ConvertToParent(math.LegacyNewDec(-2))
	if expected := math.LegacyNewDec(-4000); !got.Equal(expected) {
		t.Errorf("expected full-price conversion %s, got %s", expected.String(), got.String())
	}

	// Raw conversion never discounts.
	got = config.ConvertToParentRaw(math.LegacyNewDec(2))
	if expected := math.LegacyNewDec(4000); !got.Equal(expected) {
		t.Errorf("expected raw conversion %s, got %s", expected.String(), got.String())
	}
}
