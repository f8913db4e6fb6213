package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"sitesweep/internal/domain"
)

func (db *DB) CreateSearchJob(ctx context.Context, job domain.LeadSearchJob) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO lead_search_jobs (id, category, city, result_limit, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, job.ID, job.Category, job.City, job.Limit, job.Status, job.CreatedAt)
	return err
}

func (db *DB) GetSearchJob(ctx context.Context, id string) (domain.LeadSearchJob, error) {
	var job domain.LeadSearchJob
	err := db.Pool.QueryRow(ctx, `
		SELECT id, category, city, result_limit, status, error, created_at, finished_at
		FROM lead_search_jobs WHERE id = $1
	`, id).Scan(&job.ID, &job.Category, &job.City, &job.Limit, &job.Status,
		&job.Error, &job.CreatedAt, &job.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, domain.ErrNotFound
	}
	return job, err
}

func (db *DB) FinishSearchJob(ctx context.Context, id string, errMessage string) error {
	status := domain.StatusDone
	var msg *string
	if errMessage != "" {
		status = domain.StatusError
		msg = &errMessage
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE lead_search_jobs SET status=$2, error=$3, finished_at=now()
		WHERE id=$1 AND status='running'
	`, id, status, msg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpsertLead inserts a lead unless the (search job, website) pair already
// exists; re-running a search does not duplicate leads.
func (db *DB) UpsertLead(ctx context.Context, lead domain.Lead) (bool, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO leads (id, search_job_id, name, website, address, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (search_job_id, website) DO NOTHING
		RETURNING id
	`, lead.ID, lead.SearchJobID, lead.Name, lead.Website, lead.Address, lead.Phone, lead.CreatedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) ListLeads(ctx context.Context, searchJobID string) ([]domain.Lead, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, search_job_id, name, website, address, phone, created_at
		FROM leads WHERE search_job_id = $1
		ORDER BY created_at
	`, searchJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(&l.ID, &l.SearchJobID, &l.Name, &l.Website, &l.Address, &l.Phone, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
