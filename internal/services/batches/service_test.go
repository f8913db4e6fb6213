package batches

import (
	"context"
	"errors"
	"testing"
	"time"

	"sitesweep/internal/domain"
	"sitesweep/internal/services/scans"
)

// fakeBatchRepo implements the two JobRepository methods this service uses
// and fails loudly on the rest.
type fakeBatchRepo struct {
	unusedJobRepo
	members map[string][]domain.BatchMember
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{members: make(map[string][]domain.BatchMember)}
}

func (r *fakeBatchRepo) ListBatch(_ context.Context, batchID string) ([]domain.BatchMember, error) {
	ms, ok := r.members[batchID]
	if !ok || len(ms) == 0 {
		return nil, domain.ErrNotFound
	}
	return append([]domain.BatchMember(nil), ms...), nil
}

func (r *fakeBatchRepo) BatchURLs(_ context.Context, batchID string) ([]string, error) {
	var urls []string
	for _, m := range r.members[batchID] {
		urls = append(urls, m.Job.URL)
	}
	return urls, nil
}

// fakeCreator records created jobs and mirrors them into the repo so a
// follow-up Create call sees them as existing batch members.
type fakeCreator struct {
	repo    *fakeBatchRepo
	created []scans.CreateRequest
}

func (c *fakeCreator) Create(_ context.Context, req scans.CreateRequest) (domain.ScanJob, error) {
	c.created = append(c.created, req)
	job := domain.ScanJob{
		ID:        req.URL,
		URL:       req.URL,
		Label:     req.Label,
		Status:    domain.StatusPending,
		BatchID:   req.BatchID,
		CreatedAt: time.Now().UTC(),
	}
	if req.BatchID != nil {
		c.repo.members[*req.BatchID] = append(c.repo.members[*req.BatchID], domain.BatchMember{Job: job})
	}
	return job, nil
}

func TestCreateDedupesWithinRequest(t *testing.T) {
	repo := newFakeBatchRepo()
	creator := &fakeCreator{repo: repo}
	svc := New(repo, creator)

	rec, err := svc.Create(context.Background(), "", []Entry{
		{URL: "https://a.example.com"},
		{URL: "https://b.example.com"},
		{URL: "https://B.example.com/"}, // duplicate of b after normalization
		{URL: "https://c.example.com"},
		{URL: "https://d.example.com"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.TotalSubmitted != 5 || rec.ValidCount != 5 {
		t.Fatalf("unexpected counts: %+v", rec)
	}
	if rec.CreatedCount != 4 || rec.SkippedDuplicateCount != 1 {
		t.Fatalf("dedup failed: %+v", rec)
	}
	if rec.BatchID == "" {
		t.Fatal("no batch id assigned")
	}
}

func TestCreateIsIdempotentPerBatch(t *testing.T) {
	repo := newFakeBatchRepo()
	creator := &fakeCreator{repo: repo}
	svc := New(repo, creator)
	ctx := context.Background()

	entries := []Entry{
		{URL: "https://a.example.com"},
		{URL: "https://b.example.com"},
	}
	first, err := svc.Create(ctx, "batch-1", entries)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if first.CreatedCount != 2 {
		t.Fatalf("first run: %+v", first)
	}

	second, err := svc.Create(ctx, "batch-1", entries)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.CreatedCount != 0 || second.SkippedDuplicateCount != 2 {
		t.Fatalf("resubmission not idempotent: %+v", second)
	}
	if len(creator.created) != 2 {
		t.Fatalf("jobs created twice: %d", len(creator.created))
	}
}

func TestCreateTalliesInvalidURLs(t *testing.T) {
	repo := newFakeBatchRepo()
	creator := &fakeCreator{repo: repo}
	svc := New(repo, creator)

	rec, err := svc.Create(context.Background(), "", []Entry{
		{URL: "https://ok.example.com"},
		{URL: "ftp://bad.example.com"},
		{URL: ""},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ValidCount != 1 || rec.InvalidCount != 2 || rec.CreatedCount != 1 {
		t.Fatalf("unexpected counts: %+v", rec)
	}
}

func TestCreateRejectsEmptyBatch(t *testing.T) {
	svc := New(newFakeBatchRepo(), &fakeCreator{repo: newFakeBatchRepo()})
	_, err := svc.Create(context.Background(), "", nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestQuerySortsWorstScoreFirst(t *testing.T) {
	repo := newFakeBatchRepo()
	base := time.Now().UTC()
	score := func(n int) *int { return &n }
	batchID := "batch-q"
	repo.members[batchID] = []domain.BatchMember{
		{Job: domain.ScanJob{ID: "j1", URL: "https://one.example.com", Status: domain.StatusDone, CreatedAt: base}, Score: score(91)},
		{Job: domain.ScanJob{ID: "j2", URL: "https://two.example.com", Status: domain.StatusPending, CreatedAt: base.Add(time.Second)}},
		{Job: domain.ScanJob{ID: "j3", URL: "https://three.example.com", Status: domain.StatusDone, CreatedAt: base.Add(2 * time.Second)}, Score: score(12)},
		{Job: domain.ScanJob{ID: "j4", URL: "https://four.example.com", Status: domain.StatusError, CreatedAt: base.Add(3 * time.Second)}},
	}
	svc := New(repo, &fakeCreator{repo: repo})

	sum, err := svc.Query(context.Background(), batchID)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if sum.Total != 4 || sum.Done != 2 || sum.InFlight != 1 || sum.Errored != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	order := []string{"j3", "j1", "j2", "j4"}
	for i, want := range order {
		if sum.Jobs[i].JobID != want {
			t.Fatalf("position %d = %s, want %s (full: %+v)", i, sum.Jobs[i].JobID, want, sum.Jobs)
		}
	}
}

func TestQueryUnknownBatch(t *testing.T) {
	svc := New(newFakeBatchRepo(), &fakeCreator{repo: newFakeBatchRepo()})
	_, err := svc.Query(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// unusedJobRepo panics on any JobRepository method the service under test
// should never touch.
type unusedJobRepo struct{}

func (unusedJobRepo) CreateJob(context.Context, domain.ScanJob) error { panic("unexpected CreateJob") }
func (unusedJobRepo) GetJob(context.Context, string) (domain.ScanJob, error) {
	panic("unexpected GetJob")
}
func (unusedJobRepo) UpdateMetadata(context.Context, string, domain.JobMetadata) error {
	panic("unexpected UpdateMetadata")
}
func (unusedJobRepo) ClaimNext(context.Context) (domain.ScanJob, bool, error) {
	panic("unexpected ClaimNext")
}
func (unusedJobRepo) StartJob(context.Context, string) error { panic("unexpected StartJob") }
func (unusedJobRepo) Complete(context.Context, string, domain.ScanResult) error {
	panic("unexpected Complete")
}
func (unusedJobRepo) Fail(context.Context, string, string) error { panic("unexpected Fail") }
func (unusedJobRepo) GetResult(context.Context, string) (domain.ScanResult, error) {
	panic("unexpected GetResult")
}
func (unusedJobRepo) UpdateResultNote(context.Context, string, *string) error {
	panic("unexpected UpdateResultNote")
}
