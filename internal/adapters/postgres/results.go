package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"sitesweep/internal/domain"
)

func (db *DB) GetResult(ctx context.Context, jobID string) (domain.ScanResult, error) {
	var res domain.ScanResult
	err := db.Pool.QueryRow(ctx, `
		SELECT id, job_id, score, raw_score, summary,
			COALESCE(issues, '[]'::jsonb), COALESCE(score_breakdown, 'null'::jsonb),
			screenshot_ref, note, created_at
		FROM scan_results WHERE job_id = $1
	`, jobID).Scan(
		&res.ID, &res.JobID, &res.Score, &res.RawScore, &res.Summary,
		&res.Issues, &res.ScoreBreakdown, &res.ScreenshotRef, &res.Note, &res.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return res, domain.ErrNotFound
	}
	return res, err
}

func (db *DB) UpdateResultNote(ctx context.Context, jobID string, note *string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE scan_results SET note=$2 WHERE job_id=$1`, jobID, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBatch returns all member jobs of a batch in creation order, joined
// with their scores where results exist.
func (db *DB) ListBatch(ctx context.Context, batchID string) ([]domain.BatchMember, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT j.id, j.url, j.label, j.status, j.batch_id, j.lead_id,
			j.industry, j.city, j.postal_code, j.company_name, j.competitor_name,
			j.error, j.created_at, j.finished_at, r.score
		FROM scan_jobs j
		LEFT JOIN scan_results r ON r.job_id = j.id
		WHERE j.batch_id = $1
		ORDER BY j.created_at
	`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.BatchMember
	for rows.Next() {
		var m domain.BatchMember
		err := rows.Scan(
			&m.Job.ID, &m.Job.URL, &m.Job.Label, &m.Job.Status, &m.Job.BatchID, &m.Job.LeadID,
			&m.Job.Metadata.Industry, &m.Job.Metadata.City, &m.Job.Metadata.PostalCode,
			&m.Job.Metadata.CompanyName, &m.Job.Metadata.CompetitorName,
			&m.Job.Error, &m.Job.CreatedAt, &m.Job.FinishedAt,
			&m.Score,
		)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, domain.ErrNotFound
	}
	return members, nil
}

// BatchURLs returns the URLs already enrolled under a batch id.
func (db *DB) BatchURLs(ctx context.Context, batchID string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT url FROM scan_jobs WHERE batch_id = $1`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
