package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/math"
	"github.com/openalpha/clearing-core/offchain/liquidator"
)

// Config holds the application configuration
type Config struct {
	FlushSize         int           `json:"flush_size"`
	FlushInterval     time.Duration `json:"flush_interval"`
	WebSocketURL      string        `json:"websocket_url"`
	ChainRPCURL       string        `json:"chain_rpc_url"`
	SubmitterType     string        `json:"submitter_type"` // "mock" or "batch"
	LiquidatorAccount uint64        `json:"liquidator_account"`
	RewardParameter   string        `json:"reward_parameter"`
	Demo              bool          `json:"demo"` // run demo mode
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		FlushSize:       100,
		FlushInterval:   500 * time.Millisecond,
		WebSocketURL:    "ws://localhost:8080/ws",
		ChainRPCURL:     "http://localhost:26657",
		SubmitterType:   "mock",
		RewardParameter: "0.5",
		Demo:            false,
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	flushSize := flag.Int("flush-size", 0, "Maximum intents per batch")
	flushInterval := flag.Duration("flush-interval", 0, "Time interval for batch submission")
	rpcURL := flag.String("rpc", "", "Chain RPC URL")
	wsURL := flag.String("ws", "", "WebSocket URL")
	submitterType := flag.String("submitter", "", "Submitter type (mock or batch)")
	account := flag.Uint64("account", 0, "Liquidator clearing account ID")
	reward := flag.String("reward", "", "Bid reward parameter in [0,1]")
	demo := flag.Bool("demo", false, "Run demo mode with a simulated margin decay")
	flag.Parse()

	// Load configuration
	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Override with command line flags
	if *flushSize > 0 {
		config.FlushSize = *flushSize
	}
	if *flushInterval > 0 {
		config.FlushInterval = *flushInterval
	}
	if *rpcURL != "" {
		config.ChainRPCURL = *rpcURL
	}
	if *wsURL != "" {
		config.WebSocketURL = *wsURL
	}
	if *submitterType != "" {
		config.SubmitterType = *submitterType
	}
	if *account > 0 {
		config.LiquidatorAccount = *account
	}
	if *reward != "" {
		config.RewardParameter = *reward
	}
	if *demo {
		config.Demo = true
	}

	rewardParameter, err := math.LegacyNewDecFromStr(config.RewardParameter)
	if err != nil {
		log.Fatalf("Invalid reward parameter %q: %v", config.RewardParameter, err)
	}

	// Print configuration
	log.Println("=== ClearingCore Liquidator ===")
	log.Printf("Flush Size: %d", config.FlushSize)
	log.Printf("Flush Interval: %v", config.FlushInterval)
	log.Printf("Chain RPC: %s", config.ChainRPCURL)
	log.Printf("WebSocket: %s", config.WebSocketURL)
	log.Printf("Submitter: %s", config.SubmitterType)
	log.Printf("Liquidator Account: %d", config.LiquidatorAccount)
	log.Printf("Reward Parameter: %s", rewardParameter)
	log.Println("===============================")

	// Create submitter
	factory := liquidator.NewSubmitterFactory()
	submitter := factory.Create(config.SubmitterType, &liquidator.BatchSubmitterConfig{
		RPCURL:        config.ChainRPCURL,
		BatchSize:     config.FlushSize,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	})

	// Create daemon
	daemonConfig := &liquidator.Config{
		FlushSize:         config.FlushSize,
		FlushInterval:     config.FlushInterval,
		WebSocketURL:      config.WebSocketURL,
		ChainRPCURL:       config.ChainRPCURL,
		LiquidatorAccount: config.LiquidatorAccount,
		RewardParameter:   rewardParameter,
	}
	d := liquidator.NewLiquidator(daemonConfig, submitter)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the daemon
	if err := d.Start(ctx); err != nil {
		log.Fatalf("Failed to start liquidator: %v", err)
	}

	// Run demo if requested
	if config.Demo {
		go runDemo(d)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Periodic stats logging
	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	log.Println("Liquidator is running. Press Ctrl+C to stop.")

	for {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
			cancel()
			if err := d.Stop(); err != nil {
				log.Printf("Error stopping liquidator: %v", err)
			}
			log.Println("Liquidator stopped")
			return
		case <-statsTicker.C:
			stats := d.GetStats()
			log.Printf("Stats: Watched=%d, PendingIntents=%d, CacheSize=%d",
				stats.WatchedAccounts, stats.PendingIntents, stats.CacheSize)
		}
	}
}

// runDemo walks an account down the liquidation tiers with simulated
// margin snapshots
func runDemo(d *liquidator.Liquidator) {
	log.Println("Starting demo mode...")
	time.Sleep(time.Second)

	const accountID = 42
	const quoteToken = "USDC"

	dec := func(s string) math.LegacyDec {
		v, _ := math.LegacyNewDecFromStr(s)
		return v
	}

	// Healthy account: all deltas positive.
	log.Println("Observing healthy margin state")
	d.ObserveMargin(&liquidator.Snapshot{
		AccountID:     accountID,
		QuoteToken:    quoteToken,
		MarginBalance: dec("1000"),
		Deltas: liquidator.Deltas{
			Initial:     dec("400"),
			Maintenance: dec("600"),
			Liquidation: dec("700"),
			Dutch:       dec("750"),
			Adl:         dec("800"),
		},
		ObservedAt: time.Now(),
	})
	time.Sleep(500 * time.Millisecond)

	// Maintenance breach: the daemon joins the ranked auction and closes
	// the account's resting orders.
	log.Println("\n=== Maintenance Margin Breach ===")
	d.ObserveMargin(&liquidator.Snapshot{
		AccountID:     accountID,
		QuoteToken:    quoteToken,
		MarginBalance: dec("550"),
		Deltas: liquidator.Deltas{
			Initial:     dec("-50"),
			Maintenance: dec("-10"),
			Liquidation: dec("60"),
			Dutch:       dec("90"),
			Adl:         dec("130"),
		},
		ObservedAt: time.Now(),
	})
	time.Sleep(500 * time.Millisecond)

	// Queue generation closes: execute the top ranked bid.
	log.Println("\n=== Bid Queue Expiry ===")
	d.ObserveQueueExpiry(accountID, quoteToken)
	time.Sleep(500 * time.Millisecond)

	// Liquidation margin breach: anyone may execute on the dutch curve.
	log.Println("\n=== Liquidation Margin Breach ===")
	d.ObserveMargin(&liquidator.Snapshot{
		AccountID:     accountID,
		QuoteToken:    quoteToken,
		MarginBalance: dec("300"),
		Deltas: liquidator.Deltas{
			Initial:     dec("-300"),
			Maintenance: dec("-200"),
			Liquidation: dec("-80"),
			Dutch:       dec("-20"),
			Adl:         dec("40"),
		},
		ObservedAt: time.Now(),
	})
	time.Sleep(500 * time.Millisecond)

	// ADL requirement breach: the backstop path unwinds the account.
	log.Println("\n=== ADL Requirement Breach ===")
	d.ObserveMargin(&liquidator.Snapshot{
		AccountID:     accountID,
		QuoteToken:    quoteToken,
		MarginBalance: dec("50"),
		Deltas: liquidator.Deltas{
			Initial:     dec("-600"),
			Maintenance: dec("-450"),
			Liquidation: dec("-300"),
			Dutch:       dec("-200"),
			Adl:         dec("-100"),
		},
		ObservedAt: time.Now(),
	})
	time.Sleep(time.Second)

	stats := d.GetStats()
	log.Printf("\nDemo completed. Watched=%d, PendingIntents=%d",
		stats.WatchedAccounts, stats.PendingIntents)
}
