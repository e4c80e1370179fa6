package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	accounts    int
)

// Metrics
var (
	totalRequests     uint64
	successOK         uint64
	insufficientFunds uint64
	conflictRetry     uint64
	failOther         uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&accounts, "accounts", 1000, "Number of seeded accounts")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		from, to := generateAccounts()

		payload := map[string]interface{}{
			"from_account": from,
			"to_account":   to,
			"amount":       "1.00",
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/transfer", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		// Every attempted request counts, transport failures included, so
		// the throughput and conflict rates share one denominator.
		atomic.AddUint64(&totalRequests, 1)

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&successOK, 1)
		case 422:
			atomic.AddUint64(&insufficientFunds, 1)
		case 409:
			atomic.AddUint64(&conflictRetry, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func generateAccounts() (string, string) {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic hammers the same account pair, half of it
		// in each direction, to exercise the ordered-lock path.
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return "A-001", "A-002"
			}
			return "A-002", "A-001"
		}
	}

	// Uniform Random
	a := rand.Intn(accounts) + 1
	b := rand.Intn(accounts) + 1
	for a == b {
		b = rand.Intn(accounts) + 1
	}
	return fmt.Sprintf("A-%03d", a), fmt.Sprintf("A-%03d", b)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&successOK)
	funds := atomic.LoadUint64(&insufficientFunds)
	conflicts := atomic.LoadUint64(&conflictRetry)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	conflictRate := float64(0)
	if total > 0 {
		conflictRate = float64(conflicts) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":           workload,
		"duration_sec":       d.Seconds(),
		"total_requests":     total,
		"throughput_tps":     tps,
		"success_ok":         ok,
		"insufficient_funds": funds,
		"conflict_retry":     conflicts,
		"conflict_rate_pct":  conflictRate,
		"errors":             fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
