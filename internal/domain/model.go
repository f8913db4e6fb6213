package domain

import "time"

// Core domain models used internally. API request/response shapes live in the
// HTTP adapter; keep these decoupled where helpful.

type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusError   JobStatus = "error"
)

// Terminal reports whether a job in this status will never transition again.
func (s JobStatus) Terminal() bool { return s == StatusDone || s == StatusError }

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for comparison. Unknown severities rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

type Category string

const (
	CategoryTechnical Category = "technical"
	CategorySEO       Category = "seo"
	CategoryLegal     Category = "legal"
	CategoryGDPR      Category = "gdpr"
	CategorySecurity  Category = "security"
	CategoryUX        Category = "ux"
)

// Issue is one detected problem on a scanned site. Issues are produced by the
// external scanner and are immutable once part of a ScanResult.
type Issue struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	Pages       []string `json:"pages,omitempty"`
}

// JobMetadata carries the optional classification fields a job can pick up
// after creation. Each field is independently nullable.
type JobMetadata struct {
	Industry       *string
	City           *string
	PostalCode     *string
	CompanyName    *string
	CompetitorName *string
}

// BenchmarkKey returns the (industry, city) pair when both are set.
func (m JobMetadata) BenchmarkKey() (industry, city string, ok bool) {
	if m.Industry == nil || m.City == nil {
		return "", "", false
	}
	return *m.Industry, *m.City, true
}

// MetadataPatch is a partial metadata update. A nil field is left untouched;
// an empty string clears the field.
type MetadataPatch struct {
	Industry       *string
	City           *string
	PostalCode     *string
	CompanyName    *string
	CompetitorName *string
}

// Apply folds the patch into existing metadata and returns the result.
func (p MetadataPatch) Apply(m JobMetadata) JobMetadata {
	m.Industry = patchField(m.Industry, p.Industry)
	m.City = patchField(m.City, p.City)
	m.PostalCode = patchField(m.PostalCode, p.PostalCode)
	m.CompanyName = patchField(m.CompanyName, p.CompanyName)
	m.CompetitorName = patchField(m.CompetitorName, p.CompetitorName)
	return m
}

func patchField(cur, patch *string) *string {
	if patch == nil {
		return cur
	}
	if *patch == "" {
		return nil
	}
	v := *patch
	return &v
}

// ScanJob tracks one scan request end to end.
//
// Lifecycle: pending -> running -> done|error. Terminal states are final;
// a retry is a new job, never a reset of an old one.
type ScanJob struct {
	ID         string
	URL        string
	Label      *string
	Status     JobStatus
	BatchID    *string
	LeadID     *string
	Metadata   JobMetadata
	Error      *string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// ScanResult is the outcome of a completed scan, 1:1 with its job. Immutable
// after creation except for the admin note.
type ScanResult struct {
	ID             string
	JobID          string
	Score          int
	RawScore       *float64
	Summary        string
	Issues         []Issue
	ScoreBreakdown map[string]int
	ScreenshotRef  *string
	Note           *string
	CreatedAt      time.Time
}

// JobStatusView is the tri-state payload returned to polling clients.
type JobStatusView struct {
	JobID           string         `json:"jobId"`
	Status          JobStatus      `json:"status"`
	Score           *int           `json:"score,omitempty"`
	Summary         *string        `json:"summary,omitempty"`
	Issues          []Issue        `json:"issues,omitempty"`
	LowHangingFruit *Issue         `json:"lowHangingFruit,omitempty"`
	ScoreBreakdown  map[string]int `json:"scoreBreakdown,omitempty"`
	ScreenshotRef   *string        `json:"screenshotRef,omitempty"`
	Error           *string        `json:"error,omitempty"`
	FinishedAt      *time.Time     `json:"finishedAt,omitempty"`
}

// BatchMember pairs a job with its score when a result exists.
type BatchMember struct {
	Job   ScanJob
	Score *int
}

// BenchmarkAggregate is the running mean score for one (industry, city) pair.
type BenchmarkAggregate struct {
	Industry   string
	City       string
	AvgScore   float64
	SampleSize int
}

// Lead is one discovered business, owned by a lead search job.
type Lead struct {
	ID          string
	SearchJobID string
	Name        string
	Website     *string
	Address     *string
	Phone       *string
	CreatedAt   time.Time
}

// LeadSearchJob tracks the discover-and-fan-out step of a lead search. Its
// status reflects only that step, never the child scans.
type LeadSearchJob struct {
	ID         string
	Category   string
	City       string
	Limit      int
	Status     JobStatus
	Error      *string
	CreatedAt  time.Time
	FinishedAt *time.Time
}
