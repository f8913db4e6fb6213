package leads

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"sitesweep/internal/domain"
	"sitesweep/internal/ports"
	"sitesweep/internal/services/scans"
	"sitesweep/internal/urlutil"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	maxErrorLen  = 500
)

// JobCreator creates scan jobs; implemented by the scans service.
type JobCreator interface {
	Create(ctx context.Context, req scans.CreateRequest) (domain.ScanJob, error)
}

// Service runs lead searches: discover candidates, persist leads, fan out
// child scan jobs.
type Service struct {
	leads   ports.LeadRepository
	creator JobCreator
	finder  ports.LeadFinder
}

func New(leads ports.LeadRepository, creator JobCreator, finder ports.LeadFinder) *Service {
	return &Service{leads: leads, creator: creator, finder: finder}
}

// Receipt tallies one lead search run.
type Receipt struct {
	LeadSearchJobID string           `json:"leadSearchJobId"`
	Status          domain.JobStatus `json:"status"`
	TotalLeadsFound int              `json:"totalLeadsFound"`
	LeadsCreated    int              `json:"leadsCreated"`
	ScanJobsCreated int              `json:"scanJobsCreated"`
}

// StartSearch runs discovery for a category and city and fans out scan jobs
// for every new lead with a valid website. The search job's status reflects
// only the discover-and-fan-out step; leads and scan jobs already created
// before a failure stay in place.
func (s *Service) StartSearch(ctx context.Context, category, city string, limit int) (Receipt, error) {
	if category == "" || city == "" {
		return Receipt{}, fmt.Errorf("%w: category and city are required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	job := domain.LeadSearchJob{
		ID:        uuid.NewString(),
		Category:  category,
		City:      city,
		Limit:     limit,
		Status:    domain.StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.leads.CreateSearchJob(ctx, job); err != nil {
		return Receipt{}, fmt.Errorf("create lead search job: %w", err)
	}
	rec := Receipt{LeadSearchJobID: job.ID}

	candidates, err := s.finder.FindLeads(ctx, category, city, limit)
	if err != nil {
		s.finish(ctx, job.ID, err.Error())
		rec.Status = domain.StatusError
		return rec, nil
	}
	rec.TotalLeadsFound = len(candidates)

	for _, c := range candidates {
		if c.Name == "" {
			continue
		}
		lead := domain.Lead{
			ID:          uuid.NewString(),
			SearchJobID: job.ID,
			Name:        c.Name,
			CreatedAt:   time.Now().UTC(),
		}
		if c.Website != "" {
			w := c.Website
			lead.Website = &w
		}
		if c.Address != "" {
			a := c.Address
			lead.Address = &a
		}
		if c.Phone != "" {
			p := c.Phone
			lead.Phone = &p
		}
		created, err := s.leads.UpsertLead(ctx, lead)
		if err != nil {
			log.Printf("leads: upsert %q for job %s: %v", c.Name, job.ID, err)
			continue
		}
		if !created {
			continue
		}
		rec.LeadsCreated++

		if lead.Website == nil {
			continue
		}
		normalized, err := urlutil.Normalize(*lead.Website)
		if err != nil {
			continue
		}
		name := c.Name
		industry, place := category, city
		_, err = s.creator.Create(ctx, scans.CreateRequest{
			URL:    normalized,
			Label:  &name,
			LeadID: &lead.ID,
			Metadata: domain.JobMetadata{
				Industry:    &industry,
				City:        &place,
				CompanyName: &name,
			},
		})
		if err != nil {
			log.Printf("leads: scan job for %q failed: %v", c.Name, err)
			continue
		}
		rec.ScanJobsCreated++
	}

	s.finish(ctx, job.ID, "")
	rec.Status = domain.StatusDone
	return rec, nil
}

// GetSearchJob returns a lead search job with its leads.
func (s *Service) GetSearchJob(ctx context.Context, id string) (domain.LeadSearchJob, []domain.Lead, error) {
	job, err := s.leads.GetSearchJob(ctx, id)
	if err != nil {
		return domain.LeadSearchJob{}, nil, err
	}
	ls, err := s.leads.ListLeads(ctx, id)
	if err != nil {
		return domain.LeadSearchJob{}, nil, err
	}
	return job, ls, nil
}

func (s *Service) finish(ctx context.Context, id, errMessage string) {
	if len(errMessage) > maxErrorLen {
		// Cut on a rune boundary; the text column rejects invalid UTF-8.
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(errMessage[cut]) {
			cut--
		}
		errMessage = errMessage[:cut]
	}
	if err := s.leads.FinishSearchJob(ctx, id, errMessage); err != nil {
		log.Printf("leads: finish %s: %v", id, err)
	}
}
