package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/openalpha/clearing-core/api/types"
)

// StateService implements the read services over an in-memory snapshot of
// chain state. Snapshots are pushed in by an event ingester; readers never
// block writers for long.
type StateService struct {
	mu sync.RWMutex

	accounts    map[uint64]*types.Account
	byOwner     map[string][]uint64
	marginInfos map[string]*types.MarginInfo        // accountID:token
	deltas      map[string]*types.RequirementDeltas // accountID:token
	queues      map[string]*types.QueueSnapshot     // accountID:token
	insurance   map[string]*types.InsuranceFund     // poolID:token
	pools       map[uint64]*types.BackstopPool
	withdrawals map[string]*types.BackstopWithdrawal

	// liquidation history, newest first, capped
	history    []*types.LiquidationEvent
	historyCap int
}

// NewStateService creates an empty state service
func NewStateService() *StateService {
	return &StateService{
		accounts:    make(map[uint64]*types.Account),
		byOwner:     make(map[string][]uint64),
		marginInfos: make(map[string]*types.MarginInfo),
		deltas:      make(map[string]*types.RequirementDeltas),
		queues:      make(map[string]*types.QueueSnapshot),
		insurance:   make(map[string]*types.InsuranceFund),
		pools:       make(map[uint64]*types.BackstopPool),
		withdrawals: make(map[string]*types.BackstopWithdrawal),
		historyCap:  10000,
	}
}

func accountTokenKey(accountID uint64, token string) string {
	return fmt.Sprintf("%d:%s", accountID, token)
}

// ============ AccountService ============

func (s *StateService) GetAccount(ctx context.Context, accountID uint64) (*types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %d not found", accountID)
	}
	return account, nil
}

func (s *StateService) GetAccountsByOwner(ctx context.Context, owner string) ([]*types.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner]
	accounts := make([]*types.Account, 0, len(ids))
	for _, id := range ids {
		if account, ok := s.accounts[id]; ok {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// ============ MarginService ============

func (s *StateService) GetMarginInfo(ctx context.Context, accountID uint64, quoteToken string) (*types.MarginInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.marginInfos[accountTokenKey(accountID, quoteToken)]
	if !ok {
		return nil, fmt.Errorf("margin info for account %d token %s not found", accountID, quoteToken)
	}
	return info, nil
}

func (s *StateService) GetRequirementDeltas(ctx context.Context, accountID uint64, quoteToken string) (*types.RequirementDeltas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deltas, ok := s.deltas[accountTokenKey(accountID, quoteToken)]
	if !ok {
		return nil, fmt.Errorf("requirement deltas for account %d token %s not found", accountID, quoteToken)
	}
	return deltas, nil
}

// ============ LiquidationService ============

func (s *StateService) GetQueue(ctx context.Context, accountID uint64, quoteToken string) (*types.QueueSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue, ok := s.queues[accountTokenKey(accountID, quoteToken)]
	if !ok {
		return nil, fmt.Errorf("bid queue for account %d token %s not found", accountID, quoteToken)
	}
	return queue, nil
}

func (s *StateService) GetInsuranceFund(ctx context.Context, poolID uint64, quoteToken string) (*types.InsuranceFund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := fmt.Sprintf("%d:%s", poolID, quoteToken)
	fund, ok := s.insurance[key]
	if !ok {
		// An untouched fund is an empty fund, not an error.
		return &types.InsuranceFund{
			PoolID:     poolID,
			QuoteToken: quoteToken,
			Balance:    "0",
			UpdatedAt:  types.NowMillis(),
		}, nil
	}
	return fund, nil
}

func (s *StateService) ListLiquidations(ctx context.Context, quoteToken string, limit int) ([]*types.LiquidationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*types.LiquidationEvent, 0, limit)
	for _, event := range s.history {
		if quoteToken != "" && event.QuoteToken != quoteToken {
			continue
		}
		events = append(events, event)
		if len(events) >= limit {
			break
		}
	}
	return events, nil
}

// ============ BackstopService ============

func (s *StateService) GetPool(ctx context.Context, poolID uint64) (*types.BackstopPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[poolID]
	if !ok {
		return nil, fmt.Errorf("backstop pool %d not found", poolID)
	}
	return pool, nil
}

func (s *StateService) ListPools(ctx context.Context) ([]*types.BackstopPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]*types.BackstopPool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool)
	}
	return pools, nil
}

func (s *StateService) GetWithdrawal(ctx context.Context, withdrawalID string) (*types.BackstopWithdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	withdrawal, ok := s.withdrawals[withdrawalID]
	if !ok {
		return nil, fmt.Errorf("withdrawal %s not found", withdrawalID)
	}
	return withdrawal, nil
}

// ============ Ingestion ============

// PutAccount stores an account snapshot
func (s *StateService) PutAccount(account *types.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.AccountID]; !ok {
		s.byOwner[account.Owner] = append(s.byOwner[account.Owner], account.AccountID)
	}
	s.accounts[account.AccountID] = account
}

// PutMarginInfo stores a margin info snapshot
func (s *StateService) PutMarginInfo(info *types.MarginInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marginInfos[accountTokenKey(info.AccountID, info.QuoteToken)] = info
}

// PutRequirementDeltas stores a requirement deltas snapshot
func (s *StateService) PutRequirementDeltas(deltas *types.RequirementDeltas) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deltas[accountTokenKey(deltas.AccountID, deltas.QuoteToken)] = deltas
}

// PutQueue stores a bid queue snapshot
func (s *StateService) PutQueue(queue *types.QueueSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[accountTokenKey(queue.AccountID, queue.QuoteToken)] = queue
}

// DropQueue removes a bid queue snapshot after execution or expiry
func (s *StateService) DropQueue(accountID uint64, quoteToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, accountTokenKey(accountID, quoteToken))
}

// PutInsuranceFund stores an insurance fund snapshot
func (s *StateService) PutInsuranceFund(fund *types.InsuranceFund) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insurance[fmt.Sprintf("%d:%s", fund.PoolID, fund.QuoteToken)] = fund
}

// PutBackstopPool stores a backstop pool snapshot
func (s *StateService) PutBackstopPool(pool *types.BackstopPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[pool.PoolID] = pool
}

// PutWithdrawal stores a backstop withdrawal snapshot
func (s *StateService) PutWithdrawal(withdrawal *types.BackstopWithdrawal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withdrawals[withdrawal.ID] = withdrawal
}

// AppendLiquidation prepends a liquidation event to the history
func (s *StateService) AppendLiquidation(event *types.LiquidationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append([]*types.LiquidationEvent{event}, s.history...)
	if len(s.history) > s.historyCap {
		s.history = s.history[:s.historyCap]
	}
}
