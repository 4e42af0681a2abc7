// Benchmark tool for testing Harrier against labeled loan application data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/applications.csv -url http://localhost:8080
//
// This tool:
//   1. Reads loan application data (with default labels)
//   2. Sends each application to Harrier for analysis
//   3. Compares Harrier's decision (REJECTED/BLOCKED_FRAUD vs APPROVED) with actual outcomes
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LabeledApplication is one CSV row: the raw feature vector plus the known
// outcome label.
type LabeledApplication struct {
	ApplicantID string
	Features    map[string]any
	Defaulted   bool
}

// AnalyzeRequest is the Harrier API request format
type AnalyzeRequest struct {
	ApplicantID string         `json:"applicantId"`
	Features    map[string]any `json:"features"`
}

// AnalyzeResponse is the subset of the Harrier analysis result the benchmark
// needs.
type AnalyzeResponse struct {
	ID        string  `json:"id"`
	Decision  string  `json:"decision"`
	RiskBand  string  `json:"riskBand"`
	PDPercent float64 `json:"pdPercent"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Defaulter rejected or blocked
	FalsePositives int64 // Good applicant rejected or blocked
	TrueNegatives  int64 // Good applicant approved
	FalseNegatives int64 // Defaulter approved (missed risk!)

	ManualReviews int64 // Sent to a human either way

	TotalProcessed int64
	TotalDefaults  int64
	TotalGood      int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled loan application CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Harrier base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	labelCol := flag.String("label", "default", "Name of the outcome label column (1 = defaulted)")
	idCol := flag.String("id", "applicant_id", "Name of the applicant ID column")
	limit := flag.Int("limit", 10000, "Maximum applications to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	defaultsOnly := flag.Bool("defaults-only", false, "Only test applications that defaulted")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for non-defaults (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each application result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/applications.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        HARRIER BENCHMARK - Loan Default Prediction            ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Harrier URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Label Col:   %s\n", *labelCol)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Sample Rate: %.2f\n", *sampleRate)
	fmt.Println()

	// Check Harrier is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Harrier not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Harrier is running:")
		fmt.Println("  cd harrier && go run cmd/harrier/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Harrier is healthy")

	// Read application data
	fmt.Printf("\nReading application data from %s...\n", *csvPath)
	applications, err := readApplicationCSV(*csvPath, *labelCol, *idCol, *limit, *defaultsOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d applications\n", len(applications))

	// Count defaults vs good
	defaultCount := 0
	for _, app := range applications {
		if app.Defaulted {
			defaultCount++
		}
	}
	fmt.Printf("  - Defaulted: %d (%.2f%%)\n", defaultCount, 100*float64(defaultCount)/float64(len(applications)))
	fmt.Printf("  - Repaid:    %d (%.2f%%)\n", len(applications)-defaultCount, 100*float64(len(applications)-defaultCount)/float64(len(applications)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(applications, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
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

func readApplicationCSV(path, labelCol, idCol string, limit int, defaultsOnly bool, sampleRate float64) ([]LabeledApplication, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	labelIdx, idIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(col) {
		case strings.ToLower(labelCol):
			labelIdx = i
		case strings.ToLower(idCol):
			idIdx = i
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("label column %q not found in header", labelCol)
	}

	var applications []LabeledApplication
	sampleCounter := 0
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		rowNum++

		defaulted := record[labelIdx] == "1"

		// Apply filters
		if defaultsOnly && !defaulted {
			continue
		}

		// Sample non-default applications
		if !defaulted && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		// Every remaining column becomes a feature; numbers are sent as
		// numbers so rule cutoffs compare correctly.
		features := make(map[string]any, len(header))
		for i, col := range header {
			if i == labelIdx || i == idIdx || i >= len(record) {
				continue
			}
			if v, err := strconv.ParseFloat(record[i], 64); err == nil {
				features[col] = v
			} else {
				features[col] = record[i]
			}
		}

		applicantID := fmt.Sprintf("row-%d", rowNum)
		if idIdx >= 0 && idIdx < len(record) && record[idIdx] != "" {
			applicantID = record[idIdx]
		}

		applications = append(applications, LabeledApplication{
			ApplicantID: applicantID,
			Features:    features,
			Defaulted:   defaulted,
		})

		if limit > 0 && len(applications) >= limit {
			break
		}
	}

	return applications, nil
}

func runBenchmark(applications []LabeledApplication, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan LabeledApplication, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for app := range work {
				start := time.Now()
				result, err := analyzeApplication(client, baseURL, tenantID, app)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", app.ApplicantID, err)
					}
					continue
				}

				// Track actual labels
				if app.Defaulted {
					atomic.AddInt64(&metrics.TotalDefaults, 1)
				} else {
					atomic.AddInt64(&metrics.TotalGood, 1)
				}

				if result.Decision == "MANUAL_REVIEW" {
					atomic.AddInt64(&metrics.ManualReviews, 1)
				}

				// Calculate confusion matrix. Manual review counts as a
				// decline for scoring purposes: the loan is not auto-issued.
				predicted := result.Decision != "APPROVED"
				actual := app.Defaulted

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					name := app.ApplicantID
					if len(name) > 12 {
						name = name[:12]
					}
					fmt.Printf("%s %-12s | Defaulted: %-5v | Harrier: %-14s | PD: %5.1f%%\n",
						status,
						name,
						app.Defaulted,
						result.Decision,
						result.PDPercent,
					)
				}
			}
		}()
	}

	// Send work
	for _, app := range applications {
		work <- app
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func analyzeApplication(client *http.Client, baseURL, tenantID string, app LabeledApplication) (*AnalyzeResponse, error) {
	req := AnalyzeRequest{
		ApplicantID: app.ApplicantID,
		Features:    app.Features,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Defaults:   %d\n", m.TotalDefaults)
	fmt.Printf("   Total Repaid:     %d\n", m.TotalGood)
	fmt.Printf("   Manual Reviews:   %d\n", m.ManualReviews)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                  DECLINE      APPROVE")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  D  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           R  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DECISION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of declines, how many would have defaulted)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of defaulters, how many did we decline)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Risk analysis
	fmt.Printf("\n🔍 RISK ANALYSIS\n")
	if m.TotalDefaults > 0 {
		catchRate := float64(m.TruePositives) / float64(m.TotalDefaults) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalDefaults) * 100
		fmt.Printf("   Defaults Declined: %d / %d (%.2f%%)\n", m.TruePositives, m.TotalDefaults, catchRate)
		fmt.Printf("   Defaults Approved: %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalDefaults, missRate)
	}
	if m.TotalGood > 0 {
		lostBusiness := float64(m.FalsePositives) / float64(m.TotalGood) * 100
		fmt.Printf("   Good Declined:     %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalGood, lostBusiness)
	}
	if m.TotalProcessed > 0 {
		reviewRate := float64(m.ManualReviews) / float64(m.TotalProcessed) * 100
		fmt.Printf("   Review Rate:       %.2f%% of applications need a human\n", reviewRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f apps/sec\n", tps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most future defaults")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but approving some future defaults")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant defaults being approved")
	} else {
		fmt.Println("   ❌ Poor recall - most future defaults are being approved!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - declines are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - turning away many good applicants")
	} else {
		fmt.Println("   ❌ Very low precision - mostly declining good applicants")
	}

	fmt.Println()
}
