package ports

import (
	"context"

	"sitesweep/internal/domain"
)

// ScannerClient runs one scan against the external Scanner API. The returned
// result has Score, Summary, Issues and the optional extras populated; ids
// and timestamps are the caller's concern.
type ScannerClient interface {
	Scan(ctx context.Context, jobID, url string) (domain.ScanResult, error)
}

// LeadCandidate is one business returned by lead discovery.
type LeadCandidate struct {
	Name    string
	Website string
	Address string
	Phone   string
}

// LeadFinder discovers lead candidates for a category and city.
type LeadFinder interface {
	FindLeads(ctx context.Context, category, city string, limit int) ([]LeadCandidate, error)
}

// StatusCache is an optional read-through cache for the poll-status hot
// path. It is never authoritative; a miss falls through to the repository.
type StatusCache interface {
	SetStatus(ctx context.Context, view domain.JobStatusView) error
	GetStatus(ctx context.Context, jobID string) (view domain.JobStatusView, found bool, err error)
}
