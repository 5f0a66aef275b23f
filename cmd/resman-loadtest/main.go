// Command resman-loadtest runs a synthetic allocation workload against a
// running resmand instance.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"resman/pkg/resman"
)

// config captures command-line configuration for the load test.
type config struct {
	BaseURL        string
	Duration       time.Duration
	Concurrency    int
	Users          int
	ResourceTypes  []string
	MaxAmount      int
	RequestTimeout time.Duration
}

// loadtestStats aggregates counters and latency samples.
type loadtestStats struct {
	allocateCount uint64
	releaseCount  uint64
	grantedCount  uint64
	deniedCount   uint64
	errorCount    uint64

	mu                sync.Mutex
	allocateLatencies []int64
	releaseLatencies  []int64
}

func main() {
	cfg := parseConfig()
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	stats := runLoad(ctx, cfg)
	printSummary(cfg, stats)
}

// parseConfig reads flags and builds a config.
func parseConfig() config {
	var cfg config
	var resourceTypes string
	flag.StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "resmand base URL")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "test duration")
	flag.IntVar(&cfg.Concurrency, "concurrency", 200, "concurrent workers")
	flag.IntVar(&cfg.Users, "users", 50, "distinct synthetic users")
	flag.StringVar(&resourceTypes, "resource-types", "CREDITS,TOKENS,API_CALLS", "comma-separated resource types")
	flag.IntVar(&cfg.MaxAmount, "max-amount", 200, "max requested amount per allocation")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", 2*time.Second, "per-request timeout")
	flag.Parse()

	cfg.ResourceTypes = splitList(resourceTypes)
	return cfg
}

// validate ensures the configuration is usable.
func (c config) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Users <= 0 {
		return fmt.Errorf("users must be positive")
	}
	if c.MaxAmount <= 0 {
		return fmt.Errorf("max-amount must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request-timeout must be positive")
	}
	if len(c.ResourceTypes) == 0 {
		return fmt.Errorf("at least one resource type is required")
	}
	return nil
}

// runLoad executes the concurrent allocate/track/release loop until the
// context expires.
func runLoad(ctx context.Context, cfg config) *loadtestStats {
	stats := &loadtestStats{
		allocateLatencies: make([]int64, 0, cfg.Concurrency*16),
		releaseLatencies:  make([]int64, 0, cfg.Concurrency*16),
	}
	var wg sync.WaitGroup
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				userID := fmt.Sprintf("loadtest-user-%d", rng.Intn(cfg.Users))
				resourceType := cfg.ResourceTypes[rng.Intn(len(cfg.ResourceTypes))]
				amount := float64(rng.Intn(cfg.MaxAmount) + 1)

				allocateStart := time.Now()
				result, err := allocate(cfg, userID, resourceType, amount)
				stats.recordAllocateLatency(time.Since(allocateStart))
				if err != nil {
					atomic.AddUint64(&stats.errorCount, 1)
					continue
				}
				atomic.AddUint64(&stats.allocateCount, 1)
				if result.Status == resman.StatusDenied {
					atomic.AddUint64(&stats.deniedCount, 1)
					continue
				}
				atomic.AddUint64(&stats.grantedCount, 1)

				time.Sleep(time.Duration(rng.Intn(50)) * time.Millisecond)
				consumed := amount * rng.Float64()
				if err := trackUsage(cfg, result.AllocationID, consumed); err != nil {
					atomic.AddUint64(&stats.errorCount, 1)
				}

				releaseStart := time.Now()
				err = release(cfg, result.AllocationID, result.Token)
				stats.recordReleaseLatency(time.Since(releaseStart))
				if err != nil {
					atomic.AddUint64(&stats.errorCount, 1)
					continue
				}
				atomic.AddUint64(&stats.releaseCount, 1)
			}
		}(int64(i + 1))
	}
	wg.Wait()
	return stats
}

// allocate requests a single-resource allocation.
func allocate(cfg config, userID, resourceType string, amount float64) (resman.AllocationResult, error) {
	payload := map[string]interface{}{
		"request": map[string]interface{}{
			"resources": []map[string]interface{}{
				{"resource_type": resourceType, "amount": amount},
			},
		},
		"context": map[string]interface{}{"user_id": userID},
	}
	var result resman.AllocationResult
	if err := postJSON(cfg, "/v1/allocate", payload, &result); err != nil {
		return resman.AllocationResult{}, err
	}
	return result, nil
}

// trackUsage reports consumption against an allocation.
func trackUsage(cfg config, allocationID string, consumed float64) error {
	payload := map[string]interface{}{
		"allocation_id": allocationID,
		"usage":         map[string]interface{}{"consumed": consumed},
	}
	return postJSON(cfg, "/v1/usage", payload, nil)
}

// release returns an allocation's unused capacity.
func release(cfg config, allocationID, token string) error {
	payload := map[string]interface{}{
		"allocation_id": allocationID,
		"token":         token,
	}
	return postJSON(cfg, "/v1/release", payload, nil)
}

// postJSON sends one JSON POST and optionally decodes the response body.
func postJSON(cfg config, path string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(cfg.BaseURL, "/")+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed: %s", path, string(body))
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}

// printSummary renders load test metrics to stdout.
func printSummary(cfg config, stats *loadtestStats) {
	elapsed := cfg.Duration.Seconds()
	allocateCount := atomic.LoadUint64(&stats.allocateCount)
	releaseCount := atomic.LoadUint64(&stats.releaseCount)
	granted := atomic.LoadUint64(&stats.grantedCount)
	denied := atomic.LoadUint64(&stats.deniedCount)
	errors := atomic.LoadUint64(&stats.errorCount)

	fmt.Println("resman load test summary")
	fmt.Printf("duration: %s concurrency: %d users: %d\n", cfg.Duration, cfg.Concurrency, cfg.Users)
	fmt.Printf("allocates/sec: %.2f releases/sec: %.2f\n", float64(allocateCount)/elapsed, float64(releaseCount)/elapsed)
	fmt.Printf("granted: %d denied: %d errors: %d\n", granted, denied, errors)
	fmt.Printf("allocate latency p50=%s p95=%s p99=%s\n",
		percentileDuration(stats.allocateLatencies, 0.50),
		percentileDuration(stats.allocateLatencies, 0.95),
		percentileDuration(stats.allocateLatencies, 0.99),
	)
	fmt.Printf("release latency p50=%s p95=%s p99=%s\n",
		percentileDuration(stats.releaseLatencies, 0.50),
		percentileDuration(stats.releaseLatencies, 0.95),
		percentileDuration(stats.releaseLatencies, 0.99),
	)
}

// recordAllocateLatency appends an allocate latency sample.
func (s *loadtestStats) recordAllocateLatency(d time.Duration) {
	s.mu.Lock()
	s.allocateLatencies = append(s.allocateLatencies, d.Nanoseconds())
	s.mu.Unlock()
}

// recordReleaseLatency appends a release latency sample.
func (s *loadtestStats) recordReleaseLatency(d time.Duration) {
	s.mu.Lock()
	s.releaseLatencies = append(s.releaseLatencies, d.Nanoseconds())
	s.mu.Unlock()
}

// percentileDuration computes a duration percentile for samples in nanoseconds.
func percentileDuration(samples []int64, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	copySamples := append([]int64(nil), samples...)
	sort.Slice(copySamples, func(i, j int) bool { return copySamples[i] < copySamples[j] })
	if p <= 0 {
		return time.Duration(copySamples[0])
	}
	if p >= 1 {
		return time.Duration(copySamples[len(copySamples)-1])
	}
	pos := int(float64(len(copySamples)-1) * p)
	return time.Duration(copySamples[pos])
}

// splitList parses a comma-separated flag value.
func splitList(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}
