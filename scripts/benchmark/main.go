package main

import (
	"bufio"
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
	apiURL    = flag.String("api-url", "http://localhost:8080", "webagent API base URL")
	apiKey    = flag.String("api-key", "", "API key for authenticated requests")
	runs      = flag.Int("runs", 3, "Number of runs per task for averaging")
	tasksFile = flag.String("tasks", "", "File with one task per line (default: built-in set)")
	output    = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Built-in tasks covering different kinds of questions.
var defaultTasks = []struct {
	Label string
	Task  string
}{
	{"Local", "best pizza restaurants in Naples"},
	{"News", "latest Go release notes"},
	{"Reference", "how does HTTP/3 differ from HTTP/2"},
	{"Travel", "things to do in Kyoto in autumn"},
	{"Product", "lightweight laptops with long battery life"},
}

// --- Request / Response types (mirrors models package) ---

type taskRequest struct {
	Task   string `json:"task"`
	MaxAge int    `json:"max_age"`
}

type taskResponse struct {
	Success bool      `json:"success"`
	Data    *taskData `json:"data"`
	Error   string    `json:"error"`
	Code    string    `json:"code"`
}

type taskData struct {
	Broadened   bool              `json:"broadened"`
	Analysis    string            `json:"analysis"`
	Sources     []string          `json:"sources"`
	Screenshots []json.RawMessage `json:"screenshots"`
	Timing      timingInfo        `json:"timing"`
}

type timingInfo struct {
	TotalMs         int64 `json:"total_ms"`
	DiscoveryMs     int64 `json:"discovery_ms"`
	AnalysisMs      int64 `json:"analysis_ms"`
	SummarizationMs int64 `json:"summarization_ms"`
}

// --- Benchmark result types ---

type runResult struct {
	Run             int    `json:"run"`
	WallMs          int64  `json:"wall_ms"`
	TotalMs         int64  `json:"total_ms"`
	DiscoveryMs     int64  `json:"discovery_ms"`
	AnalysisMs      int64  `json:"analysis_ms"`
	SummarizationMs int64  `json:"summarization_ms"`
	Sources         int    `json:"sources"`
	Screenshots     int    `json:"screenshots"`
	AnalysisLength  int    `json:"analysis_length"`
	Broadened       bool   `json:"broadened"`
	Success         bool   `json:"success"`
	Code            string `json:"code,omitempty"`
	Error           string `json:"error,omitempty"`
}

type taskAverages struct {
	TotalMs         float64 `json:"total_ms"`
	DiscoveryMs     float64 `json:"discovery_ms"`
	AnalysisMs      float64 `json:"analysis_ms"`
	SummarizationMs float64 `json:"summarization_ms"`
	Sources         float64 `json:"sources"`
}

type taskResult struct {
	Task     string        `json:"task"`
	Label    string        `json:"label"`
	Runs     []runResult   `json:"runs"`
	Averages *taskAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	RunsPerTask int          `json:"runs_per_task"`
	Results     []taskResult `json:"results"`
}

func main() {
	flag.Parse()

	tasks := defaultTasks
	if *tasksFile != "" {
		loaded, err := loadTasks(*tasksFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading tasks: %v\n", err)
			os.Exit(1)
		}
		tasks = loaded
	}

	fmt.Println("=== webagent Benchmark Suite ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Runs/task:  %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure webagent is running (e.g. webagent serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerTask: *runs,
	}

	for _, t := range tasks {
		fmt.Printf("Benchmarking [%s] %q ...\n", t.Label, t.Task)
		tr := taskResult{Task: t.Task, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkTask(t.Task, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d sources\n", rr.TotalMs, rr.Sources)
			} else {
				fmt.Printf("FAILED: [%s] %s\n", rr.Code, rr.Error)
			}
			tr.Runs = append(tr.Runs, rr)
		}

		tr.Averages = computeAverages(tr.Runs)
		report.Results = append(report.Results, tr)
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

// loadTasks reads one task per line; blank lines and # comments are skipped.
func loadTasks(path string) ([]struct{ Label, Task string }, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tasks []struct{ Label, Task string }
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, struct{ Label, Task string }{fmt.Sprintf("T%d", len(tasks)+1), line})
	}
	return tasks, sc.Err()
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

func benchmarkTask(task string, run int) runResult {
	rr := runResult{Run: run}

	// max_age 0 skips the result cache so every run does the full work.
	bodyBytes, err := json.Marshal(taskRequest{Task: task, MaxAge: 0})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/task", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 300 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var tr taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	rr.WallMs = time.Since(start).Milliseconds()

	rr.Success = tr.Success && tr.Data != nil
	rr.Code = tr.Code
	rr.Error = tr.Error
	if !rr.Success {
		return rr
	}

	d := tr.Data
	rr.TotalMs = d.Timing.TotalMs
	rr.DiscoveryMs = d.Timing.DiscoveryMs
	rr.AnalysisMs = d.Timing.AnalysisMs
	rr.SummarizationMs = d.Timing.SummarizationMs
	rr.Sources = len(d.Sources)
	rr.Screenshots = len(d.Screenshots)
	rr.AnalysisLength = len(d.Analysis)
	rr.Broadened = d.Broadened
	return rr
}

func computeAverages(runs []runResult) *taskAverages {
	var successCount int
	var avg taskAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.DiscoveryMs += float64(r.DiscoveryMs)
		avg.AnalysisMs += float64(r.AnalysisMs)
		avg.SummarizationMs += float64(r.SummarizationMs)
		avg.Sources += float64(r.Sources)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.DiscoveryMs /= n
	avg.AnalysisMs /= n
	avg.SummarizationMs /= n
	avg.Sources /= n
	return &avg
}

func printTable(results []taskResult) {
	fmt.Println(strings.Repeat("─", 95))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Task\tAvg Total\tDiscovery\tAnalysis\tSummary\tSources\tOK\n")
	fmt.Fprintf(w, "────\t─────────\t─────────\t────────\t───────\t───────\t──\n")

	for _, r := range results {
		ok := successCount(r.Runs)
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t-\t0/%d\n", truncate(r.Task, 40), len(r.Runs))
			continue
		}
		a := r.Averages
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%dms\t%.1f\t%d/%d\n",
			truncate(r.Task, 40),
			int64(a.TotalMs),
			int64(a.DiscoveryMs),
			int64(a.AnalysisMs),
			int64(a.SummarizationMs),
			a.Sources,
			ok, len(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 95))
}

func successCount(runs []runResult) int {
	n := 0
	for _, r := range runs {
		if r.Success {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
