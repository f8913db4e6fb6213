package batches

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"sitesweep/internal/domain"
	"sitesweep/internal/ports"
	"sitesweep/internal/services/scans"
	"sitesweep/internal/urlutil"
)

// maxBatchSize caps one batch-creation request.
const maxBatchSize = 500

// JobCreator creates scan jobs; implemented by the scans service.
type JobCreator interface {
	Create(ctx context.Context, req scans.CreateRequest) (domain.ScanJob, error)
}

// Service groups scan jobs under shared batch ids.
type Service struct {
	jobs    ports.JobRepository
	creator JobCreator
}

func New(jobs ports.JobRepository, creator JobCreator) *Service {
	return &Service{jobs: jobs, creator: creator}
}

// Entry is one candidate URL in a batch-creation request.
type Entry struct {
	URL   string
	Label string
}

// Receipt tallies what a batch-creation request did.
type Receipt struct {
	BatchID               string `json:"batchId"`
	TotalSubmitted        int    `json:"totalSubmitted"`
	ValidCount            int    `json:"validCount"`
	InvalidCount          int    `json:"invalidCount"`
	CreatedCount          int    `json:"createdCount"`
	SkippedDuplicateCount int    `json:"skippedDuplicateCount"`
}

// Create fans a list of candidate URLs out into pending scan jobs under one
// batch id. Candidates are deduplicated on their canonical URL, both within
// the request and against jobs already enrolled under the same batch id, so
// re-submitting an identical request is idempotent. Invalid URLs are tallied,
// not fatal; a fully empty request is rejected outright.
func (s *Service) Create(ctx context.Context, batchID string, entries []Entry) (Receipt, error) {
	if len(entries) == 0 {
		return Receipt{}, fmt.Errorf("%w: empty batch", domain.ErrInvalidInput)
	}
	if len(entries) > maxBatchSize {
		return Receipt{}, fmt.Errorf("%w: batch exceeds %d entries", domain.ErrInvalidInput, maxBatchSize)
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}

	seen := make(map[string]bool)
	existing, err := s.jobs.BatchURLs(ctx, batchID)
	if err != nil {
		return Receipt{}, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	for _, u := range existing {
		seen[urlutil.CanonicalKey(u)] = true
	}

	rec := Receipt{BatchID: batchID, TotalSubmitted: len(entries)}
	for _, e := range entries {
		normalized, err := urlutil.Normalize(e.URL)
		if err != nil {
			rec.InvalidCount++
			continue
		}
		rec.ValidCount++
		key := urlutil.CanonicalKey(normalized)
		if seen[key] {
			rec.SkippedDuplicateCount++
			continue
		}
		seen[key] = true

		req := scans.CreateRequest{URL: normalized, BatchID: &batchID}
		if e.Label != "" {
			label := e.Label
			req.Label = &label
		}
		if _, err := s.creator.Create(ctx, req); err != nil {
			return rec, fmt.Errorf("create job for %s: %w", normalized, err)
		}
		rec.CreatedCount++
	}
	return rec, nil
}

// JobSummary is one member row in a batch view.
type JobSummary struct {
	JobID     string           `json:"jobId"`
	URL       string           `json:"url"`
	Label     *string          `json:"label,omitempty"`
	Status    domain.JobStatus `json:"status"`
	Score     *int             `json:"score,omitempty"`
	Error     *string          `json:"error,omitempty"`
	CreatedAt string           `json:"createdAt"`
}

// Summary is the aggregate view of one batch.
type Summary struct {
	BatchID  string       `json:"batchId"`
	Total    int          `json:"total"`
	Done     int          `json:"done"`
	InFlight int          `json:"inFlight"`
	Errored  int          `json:"errored"`
	Jobs     []JobSummary `json:"jobs"`
}

// Query returns all member jobs of a batch, worst score first: scored jobs
// ascending by score, then scoreless jobs in creation order.
func (s *Service) Query(ctx context.Context, batchID string) (Summary, error) {
	members, err := s.jobs.ListBatch(ctx, batchID)
	if errors.Is(err, domain.ErrNotFound) {
		return Summary{}, fmt.Errorf("%w: batch %s", domain.ErrNotFound, batchID)
	}
	if err != nil {
		return Summary{}, err
	}

	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i].Score, members[j].Score
		switch {
		case a != nil && b != nil:
			return *a < *b
		case a != nil:
			return true
		default:
			return false
		}
	})

	sum := Summary{BatchID: batchID, Total: len(members)}
	for _, m := range members {
		switch m.Job.Status {
		case domain.StatusDone:
			sum.Done++
		case domain.StatusError:
			sum.Errored++
		default:
			sum.InFlight++
		}
		sum.Jobs = append(sum.Jobs, JobSummary{
			JobID:     m.Job.ID,
			URL:       m.Job.URL,
			Label:     m.Job.Label,
			Status:    m.Job.Status,
			Score:     m.Score,
			Error:     m.Job.Error,
			CreatedAt: m.Job.CreatedAt.Format(time.RFC3339),
		})
	}
	return sum, nil
}
