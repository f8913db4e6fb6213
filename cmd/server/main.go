package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	httpadapter "sitesweep/internal/adapters/http"
	pg "sitesweep/internal/adapters/postgres"
	rediscache "sitesweep/internal/adapters/redis"
	"sitesweep/internal/adapters/scannerapi"
	"sitesweep/internal/config"
	"sitesweep/internal/ports"
	batchsvc "sitesweep/internal/services/batches"
	benchsvc "sitesweep/internal/services/benchmarks"
	leadsvc "sitesweep/internal/services/leads"
	scansvc "sitesweep/internal/services/scans"
	scanworker "sitesweep/internal/workers/scanrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for Postgres adapters")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.JobRepository = db
	var _ ports.BenchmarkRepository = db
	var _ ports.LeadRepository = db

	var cache ports.StatusCache
	if cfg.RedisAddr != "" {
		rc := rediscache.New(cfg.RedisAddr, "sitesweep:status:", 10*time.Minute)
		defer rc.Close()
		cache = rc
		log.Printf("status cache enabled at %s", cfg.RedisAddr)
	}

	scanner := scannerapi.New(cfg.ScannerAPIURL, cfg.ScannerAPIKey, cfg.ScanTimeout, cfg.ScanRatePerSec)
	benchmarks := benchsvc.New(db, cfg.MinBenchmark)
	scans := scansvc.New(db, benchmarks, cache)
	batches := batchsvc.New(db, scans)
	leads := leadsvc.New(db, scans, leadFinder(cfg))

	srv := httpadapter.New(scans, batches, leads, benchmarks, scanner, cfg.ScanTimeout)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// Optional background job workers
	if cfg.ScanWorkers > 0 {
		go scanworker.Run(ctx, scans, scans, scanner, cfg.ScanWorkers, 500*time.Millisecond, cfg.ScanTimeout)
		log.Printf("scan workers started: %d", cfg.ScanWorkers)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Printf("listening on %s", cfg.ListenAddr)

	// graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal(fmt.Errorf("server error: %w", err))
	}
}

// leadFinder picks the lead discovery backend. The directory API this talks
// to is deployment-specific, so a missing URL degrades to an empty finder
// instead of failing startup.
func leadFinder(cfg config.Config) ports.LeadFinder {
	if url := os.Getenv("LEAD_FINDER_URL"); url != "" {
		return scannerapi.NewLeadFinder(url, cfg.ScannerAPIKey)
	}
	log.Print("LEAD_FINDER_URL not set; lead searches will find nothing")
	return noopFinder{}
}

type noopFinder struct{}

func (noopFinder) FindLeads(context.Context, string, string, int) ([]ports.LeadCandidate, error) {
	return nil, nil
}
