package types

import (
	"context"
	"time"
)

// Balance represents one token balance of an account
type Balance struct {
	Token  string `json:"token"`
	Shares string `json:"shares"`
	Assets string `json:"assets"`
}

// Account represents a clearing account in the API response
type Account struct {
	AccountID uint64    `json:"account_id"`
	Owner     string    `json:"owner"`
	PoolID    uint64    `json:"pool_id"`
	Mode      string    `json:"mode"` // "single" or "multi"
	Balances  []Balance `json:"balances"`
	UpdatedAt int64     `json:"updated_at"`
}

// MarginInfo represents an account's margin state for one collateral bubble
type MarginInfo struct {
	AccountID        uint64 `json:"account_id"`
	QuoteToken       string `json:"quote_token"`
	RawMarginBalance string `json:"raw_margin_balance"`
	RealBalance      string `json:"real_balance"`
	HealthRatio      string `json:"health_ratio"`
}

// RequirementDeltas holds the five margin requirement deltas
type RequirementDeltas struct {
	AccountID   uint64 `json:"account_id"`
	QuoteToken  string `json:"quote_token"`
	Initial     string `json:"initial"`
	Maintenance string `json:"maintenance"`
	Liquidation string `json:"liquidation"`
	Dutch       string `json:"dutch"`
	Adl         string `json:"adl"`
}

// BidSummary represents one bid inside a liquidation queue snapshot
type BidSummary struct {
	BidID       string `json:"bid_id"`
	Liquidator  uint64 `json:"liquidator"`
	Rank        string `json:"rank"`
	Seq         uint64 `json:"seq"`
	SubmittedAt int64  `json:"submitted_at"`
}

// QueueSnapshot represents the live liquidation bid queue for an account
type QueueSnapshot struct {
	QueueID    string       `json:"queue_id"`
	AccountID  uint64       `json:"account_id"`
	QuoteToken string       `json:"quote_token"`
	Bids       []BidSummary `json:"bids"`
	ExpiresAt  int64        `json:"expires_at"`
}

// InsuranceFund represents an insurance fund balance
type InsuranceFund struct {
	PoolID     uint64 `json:"pool_id"`
	QuoteToken string `json:"quote_token"`
	Balance    string `json:"balance"`
	UpdatedAt  int64  `json:"updated_at"`
}

// BackstopPool represents a backstop LP pool in the API response
type BackstopPool struct {
	PoolID            uint64 `json:"pool_id"`
	AccountID         uint64 `json:"account_id"`
	QuoteToken        string `json:"quote_token"`
	TotalShares       string `json:"total_shares"`
	NAV               string `json:"nav"`
	MinFreeCollateral string `json:"min_free_collateral"`
}

// BackstopWithdrawal represents a pending or completed pool withdrawal
type BackstopWithdrawal struct {
	ID             string `json:"id"`
	PoolID         uint64 `json:"pool_id"`
	Withdrawer     string `json:"withdrawer"`
	Shares         string `json:"shares"`
	Status         string `json:"status"` // "pending" or "completed"
	AvailableAt    int64  `json:"available_at"`
	AmountReceived string `json:"amount_received,omitempty"`
}

// LiquidationEvent represents one historical liquidation action
type LiquidationEvent struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"` // "bid", "dutch", "backstop", "unfilled_close"
	AccountID  uint64 `json:"account_id"`
	Liquidator uint64 `json:"liquidator,omitempty"`
	QuoteToken string `json:"quote_token"`
	Penalty    string `json:"penalty,omitempty"`
	Executed   bool   `json:"executed"`
	Reason     string `json:"reason,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// AccountService defines read access to clearing accounts
type AccountService interface {
	GetAccount(ctx context.Context, accountID uint64) (*Account, error)
	GetAccountsByOwner(ctx context.Context, owner string) ([]*Account, error)
}

// MarginService defines read access to margin state
type MarginService interface {
	GetMarginInfo(ctx context.Context, accountID uint64, quoteToken string) (*MarginInfo, error)
	GetRequirementDeltas(ctx context.Context, accountID uint64, quoteToken string) (*RequirementDeltas, error)
}

// LiquidationService defines read access to the liquidation engine
type LiquidationService interface {
	GetQueue(ctx context.Context, accountID uint64, quoteToken string) (*QueueSnapshot, error)
	GetInsuranceFund(ctx context.Context, poolID uint64, quoteToken string) (*InsuranceFund, error)
	ListLiquidations(ctx context.Context, quoteToken string, limit int) ([]*LiquidationEvent, error)
}

// BackstopService defines read access to backstop LP pools
type BackstopService interface {
	GetPool(ctx context.Context, poolID uint64) (*BackstopPool, error)
	ListPools(ctx context.Context) ([]*BackstopPool, error)
	GetWithdrawal(ctx context.Context, withdrawalID string) (*BackstopWithdrawal, error)
}

// Helper function to get current timestamp in milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
