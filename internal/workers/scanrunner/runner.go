package scanrunner

import (
	"context"
	"log"
	"time"

	"sitesweep/internal/domain"
	"sitesweep/internal/ports"
)

// JobSource hands pending jobs to workers, moving each to running.
type JobSource interface {
	ClaimNext(ctx context.Context) (domain.ScanJob, bool, error)
}

// JobSink records terminal transitions; implemented by the scans service.
type JobSink interface {
	Complete(ctx context.Context, job domain.ScanJob, res domain.ScanResult) error
	Fail(ctx context.Context, id string, message string) error
}

// Run starts worker goroutines that claim pending jobs and run them against
// the external scanner. Each scan gets a bounded timeout; a timeout or
// dispatch failure lands the job in error with no automatic retry.
func Run(ctx context.Context, src JobSource, sink JobSink, client ports.ScannerClient, concurrency int, pollInterval, scanTimeout time.Duration) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan domain.ScanJob, concurrency)

	// dispatcher loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(jobsCh)
				return
			case <-ticker.C:
				for {
					job, found, err := src.ClaimNext(ctx)
					if err != nil {
						log.Printf("job claim error: %v", err)
						break
					}
					if !found {
						break
					}
					jobsCh <- job
				}
			}
		}
	}()

	// workers
	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				runOne(ctx, sink, client, job, scanTimeout, idx)
			}
		}(i)
	}
}

func runOne(ctx context.Context, sink JobSink, client ports.ScannerClient, job domain.ScanJob, scanTimeout time.Duration, idx int) {
	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	res, err := client.Scan(scanCtx, job.ID, job.URL)
	if err != nil {
		if ferr := sink.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("worker %d: job %s fail transition: %v", idx, job.ID, ferr)
		}
		log.Printf("worker %d: job %s failed: %v", idx, job.ID, err)
		return
	}
	if err := sink.Complete(ctx, job, res); err != nil {
		// The scanner answered but the result is unusable (e.g. score out
		// of range) or the write failed; record the failure on the job.
		if ferr := sink.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("worker %d: job %s fail transition: %v", idx, job.ID, ferr)
		}
		log.Printf("worker %d: complete err: %v", idx, err)
	}
}

// Dispatcher moves one specific pending job to running.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string) error
}

// ProcessInline dispatches and runs a specific job synchronously using the
// same logic as the background workers.
func ProcessInline(ctx context.Context, dispatcher Dispatcher, sink JobSink, client ports.ScannerClient, job domain.ScanJob, scanTimeout time.Duration) error {
	if err := dispatcher.Dispatch(ctx, job.ID); err != nil {
		return err
	}
	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()
	res, err := client.Scan(scanCtx, job.ID, job.URL)
	if err != nil {
		if ferr := sink.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("inline: job %s fail transition: %v", job.ID, ferr)
		}
		return err
	}
	return sink.Complete(ctx, job, res)
}
