// Load generator for exercising the Kestrel scoring endpoint.
//
// Usage:
//   go run cmd/loadgen/main.go -url http://localhost:8080 -n 10000 -workers 10
//
// This tool:
//   1. Generates synthetic transactions drawn from a small pool of
//      cards, devices and merchants so velocity counters accumulate
//   2. Sends each transaction to POST /api/v1/score
//   3. Reports throughput, latency percentiles and the decision mix
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ScoreRequest mirrors the Kestrel scoring API request format
type ScoreRequest struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Timestamp       string  `json:"timestamp"`
	IP              string  `json:"ip,omitempty"`
	IPCountry       string  `json:"ipCountry,omitempty"`
	DeviceID        string  `json:"deviceId,omitempty"`
	UserID          string  `json:"userId,omitempty"`
	CardBin         string  `json:"cardBin,omitempty"`
	MerchantID      string  `json:"merchantId,omitempty"`
	MCC             string  `json:"mcc,omitempty"`
	MerchantCountry string  `json:"merchantCountry,omitempty"`
	UserCountry     string  `json:"userCountry,omitempty"`
}

// ScoreResponse mirrors the Kestrel scoring API response format
type ScoreResponse struct {
	Decision     string `json:"decision"`
	Risk         int    `json:"risk"`
	ModelVersion string `json:"modelVersion"`
}

// Metrics tracks load test results
type Metrics struct {
	Accepts   int64
	Reviews   int64
	Declines  int64
	Errors    int64
	Processed int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) recordLatency(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

var (
	bins      = []string{"4", "42", "421234", "510000", "340000"}
	countries = []string{"US", "GB", "FR", "DE", "NG", "BR"}
	mccs      = []string{"5411", "5732", "6051", "7995", "4829"}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	total := flag.Int("n", 10000, "Number of requests to send")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	users := flag.Int("users", 200, "Size of the synthetic user pool")
	verbose := flag.Bool("verbose", false, "Print each score result")
	flag.Parse()

	fmt.Println("Kestrel load generator")
	fmt.Printf("  URL:     %s\n", *baseURL)
	fmt.Printf("  Count:   %d\n", *total)
	fmt.Printf("  Workers: %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	metrics := &Metrics{}
	start := time.Now()
	run(*baseURL, *total, *workers, *users, *verbose, metrics)
	duration := time.Since(start)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func run(baseURL string, total, numWorkers, userPool int, verbose bool, metrics *Metrics) {
	work := make(chan int, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			client := &http.Client{Timeout: 10 * time.Second}
			for range work {
				sendOne(client, rng, baseURL, userPool, verbose, metrics)
			}
		}(int64(i) + 1)
	}

	for i := 0; i < total; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
}

func sendOne(client *http.Client, rng *rand.Rand, baseURL string, userPool int, verbose bool, metrics *Metrics) {
	user := rng.Intn(userPool)
	req := ScoreRequest{
		Amount:          1 + rng.Float64()*500,
		Currency:        "USD",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		IP:              fmt.Sprintf("203.0.113.%d", rng.Intn(255)),
		IPCountry:       countries[rng.Intn(len(countries))],
		DeviceID:        fmt.Sprintf("device-%04d", user%50),
		UserID:          fmt.Sprintf("user-%04d", user),
		CardBin:         bins[rng.Intn(len(bins))] + "9900",
		MerchantID:      fmt.Sprintf("merchant-%03d", rng.Intn(30)),
		MCC:             mccs[rng.Intn(len(mccs))],
		MerchantCountry: countries[rng.Intn(len(countries))],
		UserCountry:     countries[rng.Intn(len(countries))],
	}

	body, _ := json.Marshal(req)
	start := time.Now()
	resp, err := client.Post(baseURL+"/api/v1/score", "application/json", bytes.NewReader(body))
	elapsed := time.Since(start)
	if err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	defer resp.Body.Close()

	atomic.AddInt64(&metrics.Processed, 1)
	metrics.recordLatency(elapsed)

	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}

	switch result.Decision {
	case "Accept":
		atomic.AddInt64(&metrics.Accepts, 1)
	case "Review":
		atomic.AddInt64(&metrics.Reviews, 1)
	case "Decline":
		atomic.AddInt64(&metrics.Declines, 1)
	}

	if verbose {
		fmt.Printf("  %s risk=%d model=%s (%.1fms)\n",
			result.Decision, result.Risk, result.ModelVersion,
			float64(elapsed.Microseconds())/1000)
	}
}

func printResults(metrics *Metrics, duration time.Duration) {
	fmt.Println()
	fmt.Println("Results")
	fmt.Printf("  Duration:   %s\n", duration.Round(time.Millisecond))
	fmt.Printf("  Processed:  %d\n", metrics.Processed)
	fmt.Printf("  Errors:     %d\n", metrics.Errors)
	if metrics.Processed > 0 {
		fmt.Printf("  Throughput: %.1f req/s\n", float64(metrics.Processed)/duration.Seconds())
	}
	fmt.Printf("  Accepts:    %d\n", metrics.Accepts)
	fmt.Printf("  Reviews:    %d\n", metrics.Reviews)
	fmt.Printf("  Declines:   %d\n", metrics.Declines)

	metrics.mu.Lock()
	lats := metrics.latencies
	metrics.mu.Unlock()
	if len(lats) == 0 {
		return
	}
	sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })
	fmt.Println()
	fmt.Println("Latency")
	fmt.Printf("  p50: %s\n", lats[len(lats)*50/100].Round(time.Microsecond))
	fmt.Printf("  p90: %s\n", lats[len(lats)*90/100].Round(time.Microsecond))
	fmt.Printf("  p99: %s\n", lats[len(lats)*99/100].Round(time.Microsecond))
	fmt.Printf("  max: %s\n", lats[len(lats)-1].Round(time.Microsecond))
}
