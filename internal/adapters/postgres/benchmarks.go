package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"sitesweep/internal/domain"
)

// Fold contributes one score to the (industry, city) running mean. The
// upsert recomputes the mean in a single statement, so concurrent
// completions for the same key cannot lose updates.
func (db *DB) Fold(ctx context.Context, industry, city string, score int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO benchmarks (industry, city, avg_score, sample_size)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (industry, city) DO UPDATE
		SET avg_score = (benchmarks.avg_score * benchmarks.sample_size + EXCLUDED.avg_score)
				/ (benchmarks.sample_size + 1),
		    sample_size = benchmarks.sample_size + 1
	`, industry, city, float64(score))
	return err
}

func (db *DB) Get(ctx context.Context, industry, city string) (domain.BenchmarkAggregate, bool, error) {
	agg := domain.BenchmarkAggregate{Industry: industry, City: city}
	err := db.Pool.QueryRow(ctx, `
		SELECT avg_score, sample_size FROM benchmarks WHERE industry = $1 AND city = $2
	`, industry, city).Scan(&agg.AvgScore, &agg.SampleSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BenchmarkAggregate{}, false, nil
	}
	if err != nil {
		return domain.BenchmarkAggregate{}, false, err
	}
	return agg, true, nil
}
