package scannerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sitesweep/internal/ports"
)

// LeadFinder queries a business-directory API for lead candidates.
type LeadFinder struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewLeadFinder(baseURL, apiKey string) *LeadFinder {
	return &LeadFinder{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type leadResult struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type leadResponse struct {
	Results []leadResult `json:"results"`
	Error   string       `json:"error,omitempty"`
}

func (f *LeadFinder) FindLeads(ctx context.Context, category, city string, limit int) ([]ports.LeadCandidate, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("city", city)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/v1/leads?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lead finder: %w", err)
	}
	defer resp.Body.Close()

	var out leadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("lead finder: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("lead finder: status %d: %s", resp.StatusCode, msg)
	}

	candidates := make([]ports.LeadCandidate, 0, len(out.Results))
	for _, r := range out.Results {
		candidates = append(candidates, ports.LeadCandidate{
			Name:    r.Name,
			Website: r.Website,
			Address: r.Address,
			Phone:   r.Phone,
		})
	}
	return candidates, nil
}
