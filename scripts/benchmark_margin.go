package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// MarginResponse represents the margin info response
type MarginResponse struct {
	AccountID        uint64 `json:"account_id"`
	QuoteToken       string `json:"quote_token"`
	RawMarginBalance string `json:"raw_margin_balance"`
	RealBalance      string `json:"real_balance"`
	HealthRatio      string `json:"health_ratio"`
}

// DeltasResponse represents the requirement deltas response
type DeltasResponse struct {
	AccountID   uint64 `json:"account_id"`
	QuoteToken  string `json:"quote_token"`
	Initial     string `json:"initial"`
	Maintenance string `json:"maintenance"`
	Liquidation string `json:"liquidation"`
	Dutch       string `json:"dutch"`
	Adl         string `json:"adl"`
}

// LatencyRecord records latency for each query
type LatencyRecord struct {
	Endpoint  string
	Latency   time.Duration
	Timestamp time.Time
}

// BenchmarkResults holds all test results
type BenchmarkResults struct {
	MarginQueries   int64
	DeltasQueries   int64
	MarginSuccess   int64
	DeltasSuccess   int64
	MarginFailed    int64
	DeltasFailed    int64
	MarginLatencies []time.Duration
	DeltasLatencies []time.Duration
	mu              sync.Mutex
}

func (r *BenchmarkResults) AddMargin(latency time.Duration, success bool) {
	atomic.AddInt64(&r.MarginQueries, 1)
	if success {
		atomic.AddInt64(&r.MarginSuccess, 1)
	} else {
		atomic.AddInt64(&r.MarginFailed, 1)
	}
	r.mu.Lock()
	r.MarginLatencies = append(r.MarginLatencies, latency)
	r.mu.Unlock()
}

func (r *BenchmarkResults) AddDeltas(latency time.Duration, success bool) {
	atomic.AddInt64(&r.DeltasQueries, 1)
	if success {
		atomic.AddInt64(&r.DeltasSuccess, 1)
	} else {
		atomic.AddInt64(&r.DeltasFailed, 1)
	}
	r.mu.Lock()
	r.DeltasLatencies = append(r.DeltasLatencies, latency)
	r.mu.Unlock()
}

func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avg(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	return total / time.Duration(len(latencies))
}

func minLat(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	m := latencies[0]
	for _, l := range latencies {
		if l < m {
			m = l
		}
	}
	return m
}

func maxLat(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	m := latencies[0]
	for _, l := range latencies {
		if l > m {
			m = l
		}
	}
	return m
}

func queryEndpoint(client *http.Client, url string) (time.Duration, bool) {
	start := time.Now()

	resp, err := client.Get(url)
	latency := time.Since(start)

	if err != nil {
		return latency, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return latency, false
	}
	return latency, true
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	queryCount := flag.Int("n", 10000, "Number of queries per endpoint")
	concurrency := flag.Int("c", 100, "Concurrency level")
	accounts := flag.Int("accounts", 1000, "Number of distinct account IDs to spread queries over")
	token := flag.String("token", "USDC", "Quote token")
	outputFile := flag.String("o", "", "Output JSON report file")
	flag.Parse()

	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║      ClearingCore Margin API Benchmark - Read Path Stress Test   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Configuration:\n")
	fmt.Printf("  API URL:      %s\n", *baseURL)
	fmt.Printf("  Token:        %s\n", *token)
	fmt.Printf("  Queries/EP:   %d (total: %d)\n", *queryCount, *queryCount*2)
	fmt.Printf("  Concurrency:  %d\n", *concurrency)
	fmt.Printf("  Accounts:     %d\n", *accounts)
	fmt.Println()

	// Check health
	fmt.Print("Checking API health... ")
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        1000,
			MaxIdleConnsPerHost: 200,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("FAILED: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
	fmt.Println()

	results := &BenchmarkResults{
		MarginLatencies: make([]time.Duration, 0, *queryCount),
		DeltasLatencies: make([]time.Duration, 0, *queryCount),
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	// Progress tracking
	var processed int64
	total := int64(*queryCount * 2)
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := atomic.LoadInt64(&processed)
				pct := float64(p) / float64(total) * 100
				fmt.Printf("\r  Progress: %d/%d (%.1f%%)    ", p, total, pct)
			}
		}
	}()

	fmt.Println("Starting benchmark...")
	startTime := time.Now()

	for i := 0; i < *queryCount; i++ {
		accountID := i%*accounts + 1

		// Margin info query
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			url := fmt.Sprintf("%s/v1/margin?account_id=%d&token=%s", *baseURL, id, *token)
			latency, success := queryEndpoint(client, url)
			results.AddMargin(latency, success)
			atomic.AddInt64(&processed, 1)
		}(accountID)

		// Requirement deltas query
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			url := fmt.Sprintf("%s/v1/margin/deltas?account_id=%d&token=%s", *baseURL, id, *token)
			latency, success := queryEndpoint(client, url)
			results.AddDeltas(latency, success)
			atomic.AddInt64(&processed, 1)
		}(accountID)
	}

	wg.Wait()
	close(done)
	elapsed := time.Since(startTime)

	fmt.Printf("\r                                                                              \r")
	fmt.Println()
	fmt.Println()

	// Calculate statistics
	allLatencies := append(results.MarginLatencies, results.DeltasLatencies...)
	totalQueries := results.MarginQueries + results.DeltasQueries
	totalSuccess := results.MarginSuccess + results.DeltasSuccess
	totalFailed := results.MarginFailed + results.DeltasFailed
	successRate := float64(totalSuccess) / float64(totalQueries) * 100
	throughput := float64(totalQueries) / elapsed.Seconds()

	// Print results
	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       BENCHMARK RESULTS                          ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	fmt.Printf("Test Duration:        %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Throughput:           %.2f queries/sec\n", throughput)
	fmt.Println()

	fmt.Println("── Query Statistics ───────────────────────────────────────────────")
	fmt.Printf("  Total Queries:      %d\n", totalQueries)
	fmt.Printf("  Margin Queries:     %d (success: %d, failed: %d)\n", results.MarginQueries, results.MarginSuccess, results.MarginFailed)
	fmt.Printf("  Deltas Queries:     %d (success: %d, failed: %d)\n", results.DeltasQueries, results.DeltasSuccess, results.DeltasFailed)
	fmt.Printf("  Success Rate:       %.2f%%\n", successRate)
	fmt.Println()

	fmt.Println("── Overall Latency (all queries) ──────────────────────────────────")
	fmt.Printf("  Min:                %v\n", minLat(allLatencies))
	fmt.Printf("  Max:                %v\n", maxLat(allLatencies))
	fmt.Printf("  Average:            %v\n", avg(allLatencies))
	fmt.Printf("  P50 (Median):       %v\n", percentile(allLatencies, 0.50))
	fmt.Printf("  P90:                %v\n", percentile(allLatencies, 0.90))
	fmt.Printf("  P95:                %v\n", percentile(allLatencies, 0.95))
	fmt.Printf("  P99:                %v\n", percentile(allLatencies, 0.99))
	fmt.Println()

	fmt.Println("── Margin Query Latency ───────────────────────────────────────────")
	fmt.Printf("  Min:                %v\n", minLat(results.MarginLatencies))
	fmt.Printf("  Max:                %v\n", maxLat(results.MarginLatencies))
	fmt.Printf("  Average:            %v\n", avg(results.MarginLatencies))
	fmt.Printf("  P99:                %v\n", percentile(results.MarginLatencies, 0.99))
	fmt.Println()

	fmt.Println("── Deltas Query Latency ───────────────────────────────────────────")
	fmt.Printf("  Min:                %v\n", minLat(results.DeltasLatencies))
	fmt.Printf("  Max:                %v\n", maxLat(results.DeltasLatencies))
	fmt.Printf("  Average:            %v\n", avg(results.DeltasLatencies))
	fmt.Printf("  P99:                %v\n", percentile(results.DeltasLatencies, 0.99))
	fmt.Println()

	fmt.Println("── Assessment ─────────────────────────────────────────────────────")
	if successRate >= 99.9 {
		fmt.Println("  ✅ Success Rate:    Excellent (>99.9%)")
	} else if successRate >= 99 {
		fmt.Println("  ✅ Success Rate:    Good (>99%)")
	} else if successRate >= 95 {
		fmt.Println("  ⚠️  Success Rate:    Acceptable (>95%)")
	} else {
		fmt.Println("  ❌ Success Rate:    Poor (<95%)")
	}

	avgAll := avg(allLatencies)
	if avgAll < 1*time.Millisecond {
		fmt.Println("  ✅ Latency:         Excellent (<1ms avg)")
	} else if avgAll < 10*time.Millisecond {
		fmt.Println("  ✅ Latency:         Good (<10ms avg)")
	} else if avgAll < 100*time.Millisecond {
		fmt.Println("  ⚠️  Latency:         Acceptable (<100ms avg)")
	} else {
		fmt.Println("  ❌ Latency:         High (>100ms avg)")
	}

	if throughput > 10000 {
		fmt.Println("  ✅ Throughput:      Excellent (>10K/s)")
	} else if throughput > 1000 {
		fmt.Println("  ✅ Throughput:      Good (>1K/s)")
	} else if throughput > 100 {
		fmt.Println("  ⚠️  Throughput:      Acceptable (>100/s)")
	} else {
		fmt.Println("  ❌ Throughput:      Low (<100/s)")
	}

	fmt.Println()
	fmt.Println("══════════════════════════════════════════════════════════════════")

	// Save report if requested
	if *outputFile != "" {
		report := map[string]interface{}{
			"config": map[string]interface{}{
				"api_url":      *baseURL,
				"token":        *token,
				"queries_per_endpoint": *queryCount,
				"concurrency":  *concurrency,
				"accounts":     *accounts,
			},
			"summary": map[string]interface{}{
				"duration_ms":        elapsed.Milliseconds(),
				"throughput_per_sec": throughput,
				"total_queries":      totalQueries,
				"success_queries":    totalSuccess,
				"failed_queries":     totalFailed,
				"success_rate":       successRate,
			},
			"latency_all": map[string]interface{}{
				"min_us": minLat(allLatencies).Microseconds(),
				"max_us": maxLat(allLatencies).Microseconds(),
				"avg_us": avg(allLatencies).Microseconds(),
				"p50_us": percentile(allLatencies, 0.50).Microseconds(),
				"p90_us": percentile(allLatencies, 0.90).Microseconds(),
				"p95_us": percentile(allLatencies, 0.95).Microseconds(),
				"p99_us": percentile(allLatencies, 0.99).Microseconds(),
			},
			"latency_margin": map[string]interface{}{
				"min_us": minLat(results.MarginLatencies).Microseconds(),
				"max_us": maxLat(results.MarginLatencies).Microseconds(),
				"avg_us": avg(results.MarginLatencies).Microseconds(),
				"p99_us": percentile(results.MarginLatencies, 0.99).Microseconds(),
			},
			"latency_deltas": map[string]interface{}{
				"min_us": minLat(results.DeltasLatencies).Microseconds(),
				"max_us": maxLat(results.DeltasLatencies).Microseconds(),
				"avg_us": avg(results.DeltasLatencies).Microseconds(),
				"p99_us": percentile(results.DeltasLatencies, 0.99).Microseconds(),
			},
			"timestamp": time.Now().Format(time.RFC3339),
		}

		file, err := os.Create(*outputFile)
		if err != nil {
			fmt.Printf("Failed to create report file: %v\n", err)
		} else {
			defer file.Close()
			encoder := json.NewEncoder(file)
			encoder.SetIndent("", "  ")
			encoder.Encode(report)
			fmt.Printf("\nReport saved to: %s\n", *outputFile)
		}
	}
}
