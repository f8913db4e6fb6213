package scannerapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitesweep/internal/domain"
)

func TestScanSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scan" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing auth header: %q", got)
		}
		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.JobID != "job-1" || req.URL != "https://example.com" {
			t.Errorf("unexpected payload: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(scanResponse{
			Score:   63,
			Summary: "mixed",
			Issues: []domain.Issue{
				{ID: "seo-missing-meta", Severity: domain.SeverityMedium, Category: domain.CategorySEO},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "secret", time.Second, 100)
	res, err := client.Scan(context.Background(), "job-1", "https://example.com")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Score != 63 || res.Summary != "mixed" || len(res.Issues) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestScanUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "target unreachable"})
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 100)
	_, err := client.Scan(context.Background(), "job-1", "https://example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "target unreachable") {
		t.Fatalf("upstream message lost: %v", err)
	}
}

func TestScanTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Scan(ctx, "job-1", "https://example.com")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestScanGarbageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := New(srv.URL, "", time.Second, 100)
	_, err := client.Scan(context.Background(), "job-1", "https://example.com")
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFindLeads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/leads" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("category") != "Zahnarzt" || q.Get("city") != "Köln" || q.Get("limit") != "5" {
			t.Errorf("unexpected query: %v", q)
		}
		_ = json.NewEncoder(w).Encode(leadResponse{Results: []leadResult{
			{Name: "Praxis A", Website: "https://praxis-a.de"},
		}})
	}))
	defer srv.Close()

	finder := NewLeadFinder(srv.URL, "")
	got, err := finder.FindLeads(context.Background(), "Zahnarzt", "Köln", 5)
	if err != nil {
		t.Fatalf("FindLeads: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Praxis A" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}
