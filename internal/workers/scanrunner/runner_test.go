package scanrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sitesweep/internal/domain"
)

type fakeSink struct {
	mu        sync.Mutex
	completed []string
	failed    map[string]string

	failErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{failed: make(map[string]string)}
}

func (s *fakeSink) Complete(_ context.Context, job domain.ScanJob, _ domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, job.ID)
	return nil
}

func (s *fakeSink) Fail(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.failed[id] = message
	return nil
}

func (s *fakeSink) completedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

type fakeScanner struct {
	res domain.ScanResult
	err error
}

func (c *fakeScanner) Scan(ctx context.Context, _, _ string) (domain.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScanResult{}, err
	}
	return c.res, c.err
}

type fakeDispatcher struct {
	dispatched []string
	err        error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, id string) error {
	d.dispatched = append(d.dispatched, id)
	return d.err
}

func TestProcessInlineCompletes(t *testing.T) {
	sink := newFakeSink()
	disp := &fakeDispatcher{}
	client := &fakeScanner{res: domain.ScanResult{Score: 77, Summary: "ok"}}
	job := domain.ScanJob{ID: "j1", URL: "https://example.com"}

	if err := ProcessInline(context.Background(), disp, sink, client, job, time.Second); err != nil {
		t.Fatalf("ProcessInline: %v", err)
	}
	if len(disp.dispatched) != 1 || disp.dispatched[0] != "j1" {
		t.Fatalf("not dispatched: %v", disp.dispatched)
	}
	if len(sink.completed) != 1 || sink.completed[0] != "j1" {
		t.Fatalf("not completed: %v", sink.completed)
	}
	if len(sink.failed) != 0 {
		t.Fatalf("unexpected failures: %v", sink.failed)
	}
}

func TestProcessInlineFailsJobOnScanError(t *testing.T) {
	sink := newFakeSink()
	client := &fakeScanner{err: errors.New("scanner unreachable")}
	job := domain.ScanJob{ID: "j1", URL: "https://example.com"}

	err := ProcessInline(context.Background(), &fakeDispatcher{}, sink, client, job, time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if sink.failed["j1"] != "scanner unreachable" {
		t.Fatalf("failure not recorded: %v", sink.failed)
	}
	if len(sink.completed) != 0 {
		t.Fatalf("unexpected completion: %v", sink.completed)
	}
}

func TestProcessInlineReturnsScanErrorWhenFailTransitionErrors(t *testing.T) {
	sink := newFakeSink()
	sink.failErr = errors.New("connection reset")
	client := &fakeScanner{err: errors.New("scanner unreachable")}
	job := domain.ScanJob{ID: "j1", URL: "https://example.com"}

	err := ProcessInline(context.Background(), &fakeDispatcher{}, sink, client, job, time.Second)
	if err == nil || err.Error() != "scanner unreachable" {
		t.Fatalf("expected scan error, got %v", err)
	}
	if len(sink.completed) != 0 {
		t.Fatalf("unexpected completion: %v", sink.completed)
	}
}

func TestProcessInlineStopsOnDispatchError(t *testing.T) {
	sink := newFakeSink()
	disp := &fakeDispatcher{err: domain.ErrNotFound}
	job := domain.ScanJob{ID: "j1", URL: "https://example.com"}

	err := ProcessInline(context.Background(), disp, sink, &fakeScanner{}, job, time.Second)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected dispatch error, got %v", err)
	}
	if len(sink.completed) != 0 || len(sink.failed) != 0 {
		t.Fatalf("sink touched after dispatch failure: %+v", sink)
	}
}

type queueSource struct {
	jobs []domain.ScanJob
}

func (s *queueSource) ClaimNext(context.Context) (domain.ScanJob, bool, error) {
	if len(s.jobs) == 0 {
		return domain.ScanJob{}, false, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, true, nil
}

func TestRunDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &queueSource{jobs: []domain.ScanJob{
		{ID: "a", URL: "https://a.example.com"},
		{ID: "b", URL: "https://b.example.com"},
	}}
	sink := newFakeSink()
	client := &fakeScanner{res: domain.ScanResult{Score: 50, Summary: "ok"}}

	Run(ctx, src, sink, client, 1, 10*time.Millisecond, time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.completedCount() == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("queue not drained: %d completed", sink.completedCount())
}
