package liquidator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// TxSubmitter defines the interface for submitting intents to the chain
type TxSubmitter interface {
	// SubmitIntents submits a batch of liquidation intents to the chain
	SubmitIntents(ctx context.Context, intents []*Intent) error

	// GetStatus returns the submitter status
	GetStatus() SubmitterStatus
}

// SubmitterStatus represents the status of a submitter
type SubmitterStatus struct {
	Connected         bool
	PendingTxCount    int
	LastSubmitTime    time.Time
	LastError         string
	TotalSubmissions  int64
	FailedSubmissions int64
}

// MockSubmitter is a mock implementation for testing
type MockSubmitter struct {
	mu              sync.Mutex
	intents         []*Intent
	status          SubmitterStatus
	simulateFailure bool
}

// NewMockSubmitter creates a new mock submitter
func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{
		intents: make([]*Intent, 0),
		status: SubmitterStatus{
			Connected: true,
		},
	}
}

// SubmitIntents submits intents (mock implementation)
func (s *MockSubmitter) SubmitIntents(ctx context.Context, intents []*Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.simulateFailure {
		s.status.FailedSubmissions++
		s.status.LastError = "simulated failure"
		return fmt.Errorf("simulated failure")
	}

	s.intents = append(s.intents, intents...)
	s.status.TotalSubmissions++
	s.status.LastSubmitTime = time.Now()

	log.Printf("[MockSubmitter] Submitted %d intents", len(intents))
	for _, intent := range intents {
		log.Printf("  Intent: %s, Account: %d, Token: %s", intent.Kind, intent.AccountID, intent.QuoteToken)
	}

	return nil
}

// GetStatus returns the mock submitter status
func (s *MockSubmitter) GetStatus() SubmitterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// GetSubmittedIntents returns all submitted intents (for testing)
func (s *MockSubmitter) GetSubmittedIntents() []*Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*Intent, len(s.intents))
	copy(result, s.intents)
	return result
}

// SetSimulateFailure enables or disables failure simulation
func (s *MockSubmitter) SetSimulateFailure(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulateFailure = fail
}

// Clear clears all submitted data (for testing)
func (s *MockSubmitter) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = make([]*Intent, 0)
}

// BatchSubmitter submits intents in batches to the chain
type BatchSubmitter struct {
	rpcURL        string
	batchSize     int
	retryAttempts int
	retryDelay    time.Duration

	mu     sync.Mutex
	status SubmitterStatus
}

// BatchSubmitterConfig holds configuration for BatchSubmitter
type BatchSubmitterConfig struct {
	RPCURL        string
	BatchSize     int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultBatchSubmitterConfig returns default configuration
func DefaultBatchSubmitterConfig() *BatchSubmitterConfig {
	return &BatchSubmitterConfig{
		RPCURL:        "http://localhost:26657",
		BatchSize:     100,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// NewBatchSubmitter creates a new batch submitter
func NewBatchSubmitter(config *BatchSubmitterConfig) *BatchSubmitter {
	if config == nil {
		config = DefaultBatchSubmitterConfig()
	}

	return &BatchSubmitter{
		rpcURL:        config.RPCURL,
		batchSize:     config.BatchSize,
		retryAttempts: config.RetryAttempts,
		retryDelay:    config.RetryDelay,
		status: SubmitterStatus{
			Connected: true,
		},
	}
}

// SubmitIntents submits intents in batches
func (s *BatchSubmitter) SubmitIntents(ctx context.Context, intents []*Intent) error {
	if len(intents) == 0 {
		return nil
	}

	s.mu.Lock()
	s.status.PendingTxCount = len(intents)
	s.mu.Unlock()

	// Split into batches
	for i := 0; i < len(intents); i += s.batchSize {
		end := i + s.batchSize
		if end > len(intents) {
			end = len(intents)
		}
		batch := intents[i:end]

		if err := s.submitBatchWithRetry(ctx, batch); err != nil {
			s.mu.Lock()
			s.status.FailedSubmissions++
			s.status.LastError = err.Error()
			s.mu.Unlock()
			return fmt.Errorf("failed to submit batch: %w", err)
		}
	}

	s.mu.Lock()
	s.status.TotalSubmissions++
	s.status.LastSubmitTime = time.Now()
	s.status.PendingTxCount = 0
	s.mu.Unlock()

	return nil
}

// submitBatchWithRetry submits a batch with retry logic
func (s *BatchSubmitter) submitBatchWithRetry(ctx context.Context, batch []*Intent) error {
	var lastErr error
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		if err := s.submitBatch(ctx, batch); err != nil {
			lastErr = err
			log.Printf("Batch submission attempt %d failed: %v", attempt+1, err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// submitBatch submits a single batch
func (s *BatchSubmitter) submitBatch(ctx context.Context, batch []*Intent) error {
	// Prepare the transaction message
	msg := struct {
		Jsonrpc string        `json:"jsonrpc"`
		ID      int           `json:"id"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
	}{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "broadcast_tx_async",
		Params:  []interface{}{s.encodeIntents(batch)},
	}

	// Log the submission (in production, this would be an actual RPC call)
	msgBytes, _ := json.Marshal(msg)
	log.Printf("[BatchSubmitter] Submitting batch of %d intents to %s", len(batch), s.rpcURL)
	log.Printf("[BatchSubmitter] Message: %s", string(msgBytes))

	// In a real implementation, we would:
	// 1. Build the matching clearinghouse message per intent kind
	// 2. Sign the transaction
	// 3. Broadcast via RPC

	return nil
}

// encodeIntents encodes intents for submission
func (s *BatchSubmitter) encodeIntents(intents []*Intent) string {
	// In production, this would properly encode the intents
	// into a Cosmos SDK transaction
	data := make([]map[string]string, len(intents))
	for i, intent := range intents {
		entry := map[string]string{
			"kind":               intent.Kind.String(),
			"account_id":         fmt.Sprintf("%d", intent.AccountID),
			"quote_token":        intent.QuoteToken,
			"liquidator_account": fmt.Sprintf("%d", intent.LiquidatorAccount),
		}
		if !intent.RewardParameter.IsNil() {
			entry["reward_parameter"] = intent.RewardParameter.String()
		}
		data[i] = entry
	}
	encoded, _ := json.Marshal(data)
	return string(encoded)
}

// GetStatus returns the submitter status
func (s *BatchSubmitter) GetStatus() SubmitterStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetRPCURL updates the RPC URL
func (s *BatchSubmitter) SetRPCURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpcURL = url
}

// SubmitterFactory creates submitters based on configuration
type SubmitterFactory struct{}

// NewSubmitterFactory creates a new submitter factory
func NewSubmitterFactory() *SubmitterFactory {
	return &SubmitterFactory{}
}

// Create creates a new submitter based on the type
func (f *SubmitterFactory) Create(submitterType string, config *BatchSubmitterConfig) TxSubmitter {
	switch submitterType {
	case "mock":
		return NewMockSubmitter()
	case "batch":
		return NewBatchSubmitter(config)
	default:
		return NewMockSubmitter()
	}
}
