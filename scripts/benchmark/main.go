package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL  = flag.String("api-url", "http://localhost:8080", "Shopcrawl API base URL")
	apiKey  = flag.String("api-key", "", "API key for authenticated requests")
	runs    = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
	urlFile = flag.String("urls", "", "File with one product URL per line (overrides built-ins)")
)

// Test URLs covering common storefront platforms.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Shopify", "https://www.allbirds.com/products/mens-wool-runners"},
	{"WooCommerce", "https://woocommerce.com/products/woocommerce-subscriptions/"},
	{"Haravan", "https://eubiq.vn/products/eubiq-gss-premium"},
	{"Custom", "https://www.dienmayxanh.com/may-loc-nuoc/may-loc-nuoc-ro-sunhouse-sha76216k"},
}

// --- Request / Response types (mirrors models package) ---

type extractRequest struct {
	URL           string `json:"url"`
	CacheMaxAgeMs int    `json:"cache_max_age_ms,omitempty"`
}

type extractResponse struct {
	Success bool         `json:"success"`
	Product *product     `json:"product,omitempty"`
	Cached  bool         `json:"cached,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type product struct {
	Title         string   `json:"title"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"original_price"`
	SKU           string   `json:"sku"`
	Brand         string   `json:"brand"`
	Category      string   `json:"category"`
	Images        []string `json:"images"`
	Description   string   `json:"description"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run       int     `json:"run"`
	TotalMs   int64   `json:"total_ms"`
	Cached    bool    `json:"cached"`
	HasTitle  bool    `json:"has_title"`
	HasPrice  bool    `json:"has_price"`
	HasImages bool    `json:"has_images"`
	DescLen   int     `json:"description_length"`
	Fields    int     `json:"fields_filled"`
	Coverage  float64 `json:"coverage_percent"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs  float64 `json:"total_ms"`
	Coverage float64 `json:"coverage_percent"`
	DescLen  float64 `json:"description_length"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Shopcrawl Extraction Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	targets := testURLs
	if *urlFile != "" {
		loaded, err := loadURLs(*urlFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *urlFile, err)
			os.Exit(1)
		}
		targets = loaded
	}

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure Shopcrawl is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range targets {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %.0f%% fields\n", rr.TotalMs, rr.Coverage)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func loadURLs(path string) ([]struct {
	Label string
	URL   string
}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var targets []struct {
		Label string
		URL   string
	}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, struct {
			Label string
			URL   string
		}{Label: fmt.Sprintf("URL %d", i+1), URL: line})
	}
	return targets, nil
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	reqBody := extractRequest{URL: url}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/extract", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.TotalMs = time.Since(start).Milliseconds()

	var er extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = er.Success
	rr.Cached = er.Cached
	if er.Error != nil {
		rr.Error = er.Error.Message
	}
	if er.Product == nil {
		return rr
	}

	p := er.Product
	rr.HasTitle = p.Title != ""
	rr.HasPrice = p.Price > 0
	rr.HasImages = len(p.Images) > 0
	rr.DescLen = len(p.Description)

	// Coverage over the fields the cascade can fill.
	checks := []bool{
		p.Title != "",
		p.Price > 0,
		p.OriginalPrice > 0,
		p.SKU != "",
		p.Brand != "",
		p.Category != "",
		len(p.Images) > 0,
		p.Description != "",
	}
	for _, ok := range checks {
		if ok {
			rr.Fields++
		}
	}
	rr.Coverage = float64(rr.Fields) / float64(len(checks)) * 100

	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Coverage += r.Coverage
		avg.DescLen += float64(r.DescLen)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Coverage /= n
	avg.DescLen /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tField Coverage\tDesc Len\n")
	fmt.Fprintf(w, "───\t───────────\t──────────────\t────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.0f%%\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.Coverage,
			formatInt(int(r.Averages.DescLen)),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
