package ports

import (
	"context"

	"sitesweep/internal/domain"
)

// JobRepository persists scan jobs and their results.
type JobRepository interface {
	CreateJob(ctx context.Context, job domain.ScanJob) error
	GetJob(ctx context.Context, id string) (domain.ScanJob, error)
	UpdateMetadata(ctx context.Context, id string, md domain.JobMetadata) error

	// ClaimNext atomically moves the oldest pending job to running and
	// returns it. found is false when the queue is empty.
	ClaimNext(ctx context.Context) (job domain.ScanJob, found bool, err error)
	// StartJob moves one specific pending job to running (inline dispatch).
	StartJob(ctx context.Context, id string) error

	// Complete flips a job to done and inserts its result in one
	// transaction. The job must currently be running.
	Complete(ctx context.Context, id string, result domain.ScanResult) error
	// Fail flips a pending or running job to error with a message.
	Fail(ctx context.Context, id string, message string) error

	GetResult(ctx context.Context, jobID string) (domain.ScanResult, error)
	UpdateResultNote(ctx context.Context, jobID string, note *string) error

	// ListBatch returns all member jobs of a batch with scores where
	// available, in creation order. ErrNotFound for an unknown batch.
	ListBatch(ctx context.Context, batchID string) ([]domain.BatchMember, error)
	// BatchURLs returns the URLs already enrolled under a batch id; an
	// unknown batch yields an empty slice.
	BatchURLs(ctx context.Context, batchID string) ([]string, error)
}

// BenchmarkRepository maintains the per-(industry, city) running mean.
type BenchmarkRepository interface {
	// Fold contributes one score. The read-modify-write of
	// (avgScore, sampleSize) must be atomic under concurrent callers.
	Fold(ctx context.Context, industry, city string, score int) error
	Get(ctx context.Context, industry, city string) (agg domain.BenchmarkAggregate, found bool, err error)
}

// LeadRepository persists lead search jobs and their leads.
type LeadRepository interface {
	CreateSearchJob(ctx context.Context, job domain.LeadSearchJob) error
	GetSearchJob(ctx context.Context, id string) (domain.LeadSearchJob, error)
	// FinishSearchJob moves the search job to done, or to error when
	// errMessage is non-empty.
	FinishSearchJob(ctx context.Context, id string, errMessage string) error
	// UpsertLead inserts a lead unless one with the same
	// (searchJobID, website) already exists. created reports whether a row
	// was written.
	UpsertLead(ctx context.Context, lead domain.Lead) (created bool, err error)
	ListLeads(ctx context.Context, searchJobID string) ([]domain.Lead, error)
}
