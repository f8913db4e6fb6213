package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sitesweep/internal/domain"
)

const jobColumns = `id, url, label, status, batch_id, lead_id,
	industry, city, postal_code, company_name, competitor_name,
	error, created_at, finished_at`

func scanJobRow(row pgx.Row) (domain.ScanJob, error) {
	var job domain.ScanJob
	err := row.Scan(
		&job.ID, &job.URL, &job.Label, &job.Status, &job.BatchID, &job.LeadID,
		&job.Metadata.Industry, &job.Metadata.City, &job.Metadata.PostalCode,
		&job.Metadata.CompanyName, &job.Metadata.CompetitorName,
		&job.Error, &job.CreatedAt, &job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, domain.ErrNotFound
	}
	return job, err
}

func (db *DB) CreateJob(ctx context.Context, job domain.ScanJob) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO scan_jobs (id, url, label, status, batch_id, lead_id,
			industry, city, postal_code, company_name, competitor_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, job.ID, job.URL, job.Label, job.Status, job.BatchID, job.LeadID,
		job.Metadata.Industry, job.Metadata.City, job.Metadata.PostalCode,
		job.Metadata.CompanyName, job.Metadata.CompetitorName, job.CreatedAt)
	return err
}

func (db *DB) GetJob(ctx context.Context, id string) (domain.ScanJob, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, id)
	return scanJobRow(row)
}

func (db *DB) UpdateMetadata(ctx context.Context, id string, md domain.JobMetadata) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET industry=$2, city=$3, postal_code=$4, company_name=$5, competitor_name=$6
		WHERE id=$1
	`, id, md.Industry, md.City, md.PostalCode, md.CompanyName, md.CompetitorName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimNext selects the oldest pending job using SKIP LOCKED and marks it
// running, so concurrent workers never claim the same job twice.
func (db *DB) ClaimNext(ctx context.Context) (job domain.ScanJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`)
	job, err = scanJobRow(row)
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}
	if _, err = tx.Exec(ctx, `UPDATE scan_jobs SET status='running' WHERE id=$1`, job.ID); err != nil {
		return job, false, err
	}
	job.Status = domain.StatusRunning
	return job, true, nil
}

// StartJob moves one specific pending job to running (inline dispatch path).
func (db *DB) StartJob(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs SET status='running' WHERE id=$1 AND status='pending'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Complete flips a running job to done and inserts its result in one
// transaction, keeping the done<=>result invariant intact.
func (db *DB) Complete(ctx context.Context, id string, result domain.ScanResult) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var tag pgconn.CommandTag
	tag, err = tx.Exec(ctx, `
		UPDATE scan_jobs SET status='done', finished_at=now()
		WHERE id=$1 AND status='running'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrNotFound
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO scan_results (id, job_id, score, raw_score, summary, issues,
			score_breakdown, screenshot_ref, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, result.ID, result.JobID, result.Score, result.RawScore, result.Summary,
		result.Issues, result.ScoreBreakdown, result.ScreenshotRef, result.Note, result.CreatedAt)
	return err
}

// Fail flips a pending or running job to error with a message.
func (db *DB) Fail(ctx context.Context, id string, message string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs SET status='error', error=$2, finished_at=now()
		WHERE id=$1 AND status IN ('pending', 'running')
	`, id, message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
