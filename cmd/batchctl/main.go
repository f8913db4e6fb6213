package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// batchctl submits a file of URLs as one scan batch and watches it until
// every job is terminal.

type batchReceipt struct {
	BatchID               string `json:"batchId"`
	TotalSubmitted        int    `json:"totalSubmitted"`
	ValidCount            int    `json:"validCount"`
	InvalidCount          int    `json:"invalidCount"`
	CreatedCount          int    `json:"createdCount"`
	SkippedDuplicateCount int    `json:"skippedDuplicateCount"`
}

type batchSummary struct {
	BatchID  string `json:"batchId"`
	Total    int    `json:"total"`
	Done     int    `json:"done"`
	InFlight int    `json:"inFlight"`
	Errored  int    `json:"errored"`
	Jobs     []struct {
		JobID  string  `json:"jobId"`
		URL    string  `json:"url"`
		Status string  `json:"status"`
		Score  *int    `json:"score"`
		Error  *string `json:"error"`
	} `json:"jobs"`
}

type statusView struct {
	JobID  string  `json:"jobId"`
	Status string  `json:"status"`
	Error  *string `json:"error"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "sitesweep server base URL")
	file := flag.String("file", "", "file with one URL per line (required)")
	batchID := flag.String("batch", "", "batch id to submit into (empty for a fresh one)")
	interval := flag.Duration("interval", 3*time.Second, "poll interval")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall wait budget")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	urls, err := readURLs(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	if len(urls) == 0 {
		log.Fatalf("%s contains no URLs", *file)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rec, err := submit(ctx, *server, *batchID, urls)
	if err != nil {
		log.Fatalf("submit batch: %v", err)
	}
	fmt.Printf("batch %s: %d submitted, %d created, %d duplicates skipped, %d invalid\n",
		rec.BatchID, rec.TotalSubmitted, rec.CreatedCount, rec.SkippedDuplicateCount, rec.InvalidCount)

	sum, err := watch(ctx, *server, rec.BatchID, *interval)
	if err != nil {
		log.Fatalf("watch batch: %v", err)
	}
	report(ctx, *server, sum)
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func submit(ctx context.Context, server, batchID string, urls []string) (batchReceipt, error) {
	type entry struct {
		URL string `json:"url"`
	}
	payload := struct {
		BatchID string  `json:"batchId,omitempty"`
		URLs    []entry `json:"urls"`
	}{BatchID: batchID}
	for _, u := range urls {
		payload.URLs = append(payload.URLs, entry{URL: u})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return batchReceipt{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/batches", bytes.NewReader(body))
	if err != nil {
		return batchReceipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return batchReceipt{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return batchReceipt{}, fmt.Errorf("server returned %s", resp.Status)
	}
	var rec batchReceipt
	return rec, json.NewDecoder(resp.Body).Decode(&rec)
}

func fetchBatch(ctx context.Context, server, batchID string) (batchSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/batches/"+batchID, nil)
	if err != nil {
		return batchSummary{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return batchSummary{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return batchSummary{}, fmt.Errorf("server returned %s", resp.Status)
	}
	var sum batchSummary
	return sum, json.NewDecoder(resp.Body).Decode(&sum)
}

func watch(ctx context.Context, server, batchID string, interval time.Duration) (batchSummary, error) {
	sum, err := fetchBatch(ctx, server, batchID)
	if err != nil {
		return batchSummary{}, err
	}
	bar := progressbar.Default(int64(sum.Total), "scanning")
	for {
		_ = bar.Set(sum.Done + sum.Errored)
		if sum.InFlight == 0 {
			_ = bar.Finish()
			return sum, nil
		}
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		case <-time.After(interval):
		}
		if next, err := fetchBatch(ctx, server, batchID); err == nil {
			sum = next
		} else {
			log.Printf("poll: %v", err)
		}
	}
}

// report prints the worst-score-first table and gathers error details for
// failed jobs concurrently.
func report(ctx context.Context, server string, sum batchSummary) {
	fmt.Printf("\nbatch %s: %d done, %d errored of %d\n", sum.BatchID, sum.Done, sum.Errored, sum.Total)
	for _, j := range sum.Jobs {
		switch {
		case j.Score != nil:
			fmt.Printf("  %3d  %s\n", *j.Score, j.URL)
		case j.Status == "error":
			fmt.Printf("  ERR  %s\n", j.URL)
		default:
			fmt.Printf("   ..  %s (%s)\n", j.URL, j.Status)
		}
	}

	var failed []string
	for _, j := range sum.Jobs {
		if j.Status == "error" {
			failed = append(failed, j.JobID)
		}
	}
	if len(failed) == 0 {
		return
	}

	details := make([]string, len(failed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range failed {
		g.Go(func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, server+"/scans/"+id, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			var view statusView
			if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
				return err
			}
			if view.Error != nil {
				details[i] = fmt.Sprintf("%s: %s", id, *view.Error)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("fetch error details: %v", err)
	}
	fmt.Println("\nfailures:")
	for _, d := range details {
		if d != "" {
			fmt.Println("  " + d)
		}
	}
}
