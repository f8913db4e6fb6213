package scannerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"sitesweep/internal/domain"
)

// Client calls the external Scanner API that performs the actual crawl and
// analysis. One Scan call covers the whole remote run, so the HTTP timeout
// is multi-minute.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func New(baseURL, apiKey string, timeout time.Duration, reqPerSec float64) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if reqPerSec <= 0 {
		reqPerSec = 1
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), 1),
	}
}

type scanRequest struct {
	URL   string `json:"url"`
	JobID string `json:"jobId"`
}

type scanResponse struct {
	Score          int            `json:"score"`
	RawScore       *float64       `json:"rawScore,omitempty"`
	Summary        string         `json:"summary"`
	Issues         []domain.Issue `json:"issues"`
	ScoreBreakdown map[string]int `json:"scoreBreakdown,omitempty"`
	ScreenshotRef  *string        `json:"screenshotRef,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Scan submits one URL and blocks until the scanner returns a result or the
// deadline passes.
func (c *Client) Scan(ctx context.Context, jobID, url string) (domain.ScanResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ScanResult{}, err
	}

	body, err := json.Marshal(scanRequest{URL: url, JobID: jobID})
	if err != nil {
		return domain.ScanResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scan", bytes.NewReader(body))
	if err != nil {
		return domain.ScanResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner api: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner api: read response: %w", err)
	}

	var out scanResponse
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(payload, &out) == nil && out.Error != "" {
			msg = out.Error
		}
		return domain.ScanResult{}, fmt.Errorf("scanner api: status %d: %s", resp.StatusCode, msg)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner api: decode response: %w", err)
	}

	return domain.ScanResult{
		Score:          out.Score,
		RawScore:       out.RawScore,
		Summary:        out.Summary,
		Issues:         out.Issues,
		ScoreBreakdown: out.ScoreBreakdown,
		ScreenshotRef:  out.ScreenshotRef,
	}, nil
}
