package benchmarks

import (
	"context"
	"log"
	"strings"

	"sitesweep/internal/domain"
	"sitesweep/internal/ports"
)

// Service maintains the per-(industry, city) running mean score.
type Service struct {
	repo       ports.BenchmarkRepository
	minSamples int
}

// New builds the aggregator. minSamples gates non-admin reads: small samples
// are hidden from end users to avoid misleading comparisons.
func New(repo ports.BenchmarkRepository, minSamples int) *Service {
	return &Service{repo: repo, minSamples: minSamples}
}

// Contribute folds one score into the aggregate for the trimmed
// (industry, city) key. Failures are logged and dropped: a benchmark write
// must never fail the job completion that triggered it.
func (s *Service) Contribute(ctx context.Context, industry, city string, score int) {
	industry = strings.TrimSpace(industry)
	city = strings.TrimSpace(city)
	if industry == "" || city == "" {
		return
	}
	if err := s.repo.Fold(ctx, industry, city, score); err != nil {
		log.Printf("benchmarks: fold (%s,%s) score=%d: %v", industry, city, score, err)
	}
}

// Get returns the aggregate for a key, or found=false when none exists or
// the sample is too small for the caller to see.
func (s *Service) Get(ctx context.Context, industry, city string, isAdmin bool) (domain.BenchmarkAggregate, bool, error) {
	industry = strings.TrimSpace(industry)
	city = strings.TrimSpace(city)
	agg, found, err := s.repo.Get(ctx, industry, city)
	if err != nil || !found {
		return domain.BenchmarkAggregate{}, false, err
	}
	if !isAdmin && agg.SampleSize < s.minSamples {
		return domain.BenchmarkAggregate{}, false, nil
	}
	return agg, true, nil
}
