package scans

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sitesweep/internal/domain"
	"sitesweep/internal/ports"
	"sitesweep/internal/urlutil"
)

// maxErrorLen bounds stored failure messages.
const maxErrorLen = 500

// BenchmarkSink receives completed scores carrying industry+city metadata.
// Contributions are fire-and-forget: the sink owns its own error handling.
type BenchmarkSink interface {
	Contribute(ctx context.Context, industry, city string, score int)
}

// Service owns the scan-job state machine.
type Service struct {
	jobs       ports.JobRepository
	benchmarks BenchmarkSink
	cache      ports.StatusCache // nil disables caching
}

func New(jobs ports.JobRepository, benchmarks BenchmarkSink, cache ports.StatusCache) *Service {
	return &Service{jobs: jobs, benchmarks: benchmarks, cache: cache}
}

// CreateRequest describes a new scan job.
type CreateRequest struct {
	URL      string
	Label    *string
	BatchID  *string
	LeadID   *string
	Metadata domain.JobMetadata
}

// Create validates the URL and persists a new job in pending, so that the
// caller can poll its id before the scan completes.
func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.ScanJob, error) {
	normalized, err := urlutil.Normalize(req.URL)
	if err != nil {
		return domain.ScanJob{}, err
	}
	label := req.Label
	if label == nil {
		if reg := urlutil.RegistrableDomain(normalized); reg != "" {
			label = &reg
		}
	}
	job := domain.ScanJob{
		ID:        uuid.NewString(),
		URL:       normalized,
		Label:     label,
		Status:    domain.StatusPending,
		BatchID:   req.BatchID,
		LeadID:    req.LeadID,
		Metadata:  req.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return domain.ScanJob{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Get returns the raw job record.
func (s *Service) Get(ctx context.Context, id string) (domain.ScanJob, error) {
	return s.jobs.GetJob(ctx, id)
}

// Status builds the tri-state polling payload for a job.
//
// A done job without a result is a defect in the complete transition, not a
// normal runtime condition; it surfaces as a data-integrity error rather
// than a fabricated result.
func (s *Service) Status(ctx context.Context, id string) (domain.JobStatusView, error) {
	if s.cache != nil {
		if view, ok, err := s.cache.GetStatus(ctx, id); err == nil && ok {
			return view, nil
		}
	}

	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return domain.JobStatusView{}, err
	}
	view := domain.JobStatusView{
		JobID:      job.ID,
		Status:     job.Status,
		FinishedAt: job.FinishedAt,
	}
	switch job.Status {
	case domain.StatusError:
		view.Error = job.Error
	case domain.StatusDone:
		res, err := s.jobs.GetResult(ctx, job.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.JobStatusView{}, fmt.Errorf("%w: job %s is done but has no result", domain.ErrDataIntegrity, job.ID)
		}
		if err != nil {
			return domain.JobStatusView{}, err
		}
		score := res.Score
		summary := res.Summary
		view.Score = &score
		view.Summary = &summary
		view.Issues = res.Issues
		view.LowHangingFruit = domain.SelectLowHangingFruit(res.Issues)
		view.ScoreBreakdown = res.ScoreBreakdown
		view.ScreenshotRef = res.ScreenshotRef
	}

	// Only terminal payloads are safe to cache.
	if s.cache != nil && job.Status.Terminal() {
		if err := s.cache.SetStatus(ctx, view); err != nil {
			log.Printf("status cache: set %s: %v", id, err)
		}
	}
	return view, nil
}

// ClaimNext hands the oldest pending job to a worker, moving it to running.
func (s *Service) ClaimNext(ctx context.Context) (domain.ScanJob, bool, error) {
	return s.jobs.ClaimNext(ctx)
}

// Dispatch moves one specific pending job to running.
func (s *Service) Dispatch(ctx context.Context, id string) error {
	return s.jobs.StartJob(ctx, id)
}

// Complete moves a running job to done, attaching its result atomically. If
// industry+city metadata is present the score is contributed to the
// benchmark; benchmark failures never roll back the completion.
func (s *Service) Complete(ctx context.Context, job domain.ScanJob, res domain.ScanResult) error {
	if res.Score < 0 || res.Score > 100 {
		return fmt.Errorf("%w: score %d out of range", domain.ErrInvalidInput, res.Score)
	}
	res.ID = uuid.NewString()
	res.JobID = job.ID
	res.CreatedAt = time.Now().UTC()
	if err := s.jobs.Complete(ctx, job.ID, res); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	// Metadata can be patched while a job runs; the contribution decision
	// uses the stored row, not the caller's claim-time snapshot.
	if current, err := s.jobs.GetJob(ctx, job.ID); err != nil {
		log.Printf("scans: reload %s after complete: %v", job.ID, err)
	} else {
		job = current
	}
	if industry, city, ok := job.Metadata.BenchmarkKey(); ok {
		s.benchmarks.Contribute(ctx, industry, city, res.Score)
	}
	return nil
}

// Fail moves a pending or running job to error with a bounded message.
func (s *Service) Fail(ctx context.Context, id string, message string) error {
	if message == "" {
		message = "scan failed"
	}
	message = truncateMessage(message, maxErrorLen)
	if err := s.jobs.Fail(ctx, id, message); err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return nil
}

// UpdateMetadata applies a partial metadata update, independent of status.
// When industry+city appear or change on an already-done job, the score is
// contributed to the new benchmark key. The original contribution is not
// reversed; see the schema notes before changing this.
func (s *Service) UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) (domain.ScanJob, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return domain.ScanJob{}, err
	}
	oldIndustry, oldCity, hadKey := job.Metadata.BenchmarkKey()
	job.Metadata = patch.Apply(job.Metadata)
	if err := s.jobs.UpdateMetadata(ctx, id, job.Metadata); err != nil {
		return domain.ScanJob{}, fmt.Errorf("update metadata %s: %w", id, err)
	}

	if job.Status == domain.StatusDone {
		industry, city, ok := job.Metadata.BenchmarkKey()
		if ok && (!hadKey || industry != oldIndustry || city != oldCity) {
			res, err := s.jobs.GetResult(ctx, id)
			if err != nil {
				log.Printf("scans: benchmark re-attribution for %s skipped: %v", id, err)
				return job, nil
			}
			if hadKey {
				log.Printf("scans: job %s re-attributed from (%s,%s) to (%s,%s); old contribution is not reversed",
					id, oldIndustry, oldCity, industry, city)
			}
			s.benchmarks.Contribute(ctx, industry, city, res.Score)
		}
	}
	return job, nil
}

// truncateMessage cuts a message to at most limit bytes without splitting a
// rune; the text column rejects invalid UTF-8.
func truncateMessage(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// UpdateNote sets or clears the admin note on a completed job's result.
func (s *Service) UpdateNote(ctx context.Context, id string, note *string) error {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != domain.StatusDone {
		return fmt.Errorf("%w: job %s has no result to annotate", domain.ErrInvalidInput, id)
	}
	return s.jobs.UpdateResultNote(ctx, id, note)
}
