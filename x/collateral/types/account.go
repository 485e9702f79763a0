package types

import (
	"time"
)

// AccountMode determines how collateral is aggregated for margin purposes.
type AccountMode int

const (
	AccountModeUnspecified AccountMode = iota

	// AccountModeSingleToken restricts the account to one collateral token;
	// margin is computed against that token only, without bubble recursion.
	AccountModeSingleToken

	// AccountModeMultiToken allows the account to hold any collateral in the
	// pool's bubble tree; margin is aggregated across the tree.
	AccountModeMultiToken
)

func (m AccountMode) String() string {
	switch m {
	case AccountModeSingleToken:
		return "single_token"
	case AccountModeMultiToken:
		return "multi_token"
	default:
		return "unspecified"
	}
}

// PermissionAdmin holders may mutate the account and act as liquidators
// on its behalf.
const PermissionAdmin = "admin"

// Account is a margin account registered in a collateral pool.
// Accounts are created once and never deleted; an account with no
// collateral and no active markets is simply empty.
type Account struct {
	ID               uint64
	Owner            string
	CollateralPoolID uint64
	Mode             AccountMode

	// Permissions maps a named permission to the set of addresses holding it.
	Permissions map[string][]string

	// ActiveCollaterals is the set of tokens with a non-zero share balance.
	ActiveCollaterals []string

	// ActiveMarkets maps a quote token to the market ids the account is
	// active in under that token.
	ActiveMarkets map[string][]uint64

	CreatedAt time.Time
}

// NewAccount creates an account in the given pool and grants the owner
// the admin permission.
func NewAccount(id uint64, owner string, poolID uint64, mode AccountMode, createdAt time.Time) *Account {
	return &Account{
		ID:               id,
		Owner:            owner,
		CollateralPoolID: poolID,
		Mode:             mode,
		Permissions:      map[string][]string{PermissionAdmin: {owner}},
		ActiveMarkets:    make(map[string][]uint64),
		CreatedAt:        createdAt,
	}
}

// HasPermission reports whether addr holds the named permission. The owner
// implicitly holds every permission.
func (a *Account) HasPermission(permission, addr string) bool {
	if addr == a.Owner {
		return true
	}
	for _, granted := range a.Permissions[permission] {
		if granted == addr {
			return true
		}
	}
	return false
}

// GrantPermission grants the named permission to addr. Granting twice is a
// no-op.
func (a *Account) GrantPermission(permission, addr string) {
	if a.Permissions == nil {
		a.Permissions = make(map[string][]string)
	}
	for _, granted := range a.Permissions[permission] {
		if granted == addr {
			return
		}
	}
	a.Permissions[permission] = append(a.Permissions[permission], addr)
}

// RevokePermission removes the named permission from addr.
func (a *Account) RevokePermission(permission, addr string) {
	granted := a.Permissions[permission]
	for i, g := range granted {
		if g == addr {
			a.Permissions[permission] = append(granted[:i], granted[i+1:]...)
			return
		}
	}
}

// HasActiveCollateral reports whether token is in the active collateral set.
func (a *Account) HasActiveCollateral(token string) bool {
	for _, t := range a.ActiveCollaterals {
		if t == token {
			return true
		}
	}
	return false
}

// ActivateCollateral adds token to the active collateral set.
func (a *Account) ActivateCollateral(token string) {
	if !a.HasActiveCollateral(token) {
		a.ActiveCollaterals = append(a.ActiveCollaterals, token)
	}
}

// DeactivateCollateral removes token from the active collateral set.
func (a *Account) DeactivateCollateral(token string) {
	for i, t := range a.ActiveCollaterals {
		if t == token {
			a.ActiveCollaterals = append(a.ActiveCollaterals[:i], a.ActiveCollaterals[i+1:]...)
			return
		}
	}
}

// ActivateMarket records the account as active in a market under the given
// quote token.
func (a *Account) ActivateMarket(quoteToken string, marketID uint64) {
	if a.ActiveMarkets == nil {
		a.ActiveMarkets = make(map[string][]uint64)
	}
	for _, id := range a.ActiveMarkets[quoteToken] {
		if id == marketID {
			return
		}
	}
	a.ActiveMarkets[quoteToken] = append(a.ActiveMarkets[quoteToken], marketID)
}

// DeactivateMarket removes a market from the account's active set.
func (a *Account) DeactivateMarket(quoteToken string, marketID uint64) {
	ids := a.ActiveMarkets[quoteToken]
	for i, id := range ids {
		if id == marketID {
			a.ActiveMarkets[quoteToken] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}
