package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sitesweep/internal/domain"
	"sitesweep/internal/ports"
	"sitesweep/internal/services/batches"
	"sitesweep/internal/services/leads"
	"sitesweep/internal/services/scans"
	"sitesweep/internal/workers/scanrunner"
)

// Service seams so handlers can be exercised with fakes.

type ScanService interface {
	Create(ctx context.Context, req scans.CreateRequest) (domain.ScanJob, error)
	Status(ctx context.Context, id string) (domain.JobStatusView, error)
	UpdateMetadata(ctx context.Context, id string, patch domain.MetadataPatch) (domain.ScanJob, error)
	UpdateNote(ctx context.Context, id string, note *string) error
	Dispatch(ctx context.Context, id string) error
	Complete(ctx context.Context, job domain.ScanJob, res domain.ScanResult) error
	Fail(ctx context.Context, id string, message string) error
}

type BatchService interface {
	Create(ctx context.Context, batchID string, entries []batches.Entry) (batches.Receipt, error)
	Query(ctx context.Context, batchID string) (batches.Summary, error)
}

type LeadService interface {
	StartSearch(ctx context.Context, category, city string, limit int) (leads.Receipt, error)
	GetSearchJob(ctx context.Context, id string) (domain.LeadSearchJob, []domain.Lead, error)
}

type BenchmarkService interface {
	Get(ctx context.Context, industry, city string, isAdmin bool) (domain.BenchmarkAggregate, bool, error)
}

// Server wires the service layer to chi routes.
type Server struct {
	scans       ScanService
	batches     BatchService
	leads       LeadService
	benchmarks  BenchmarkService
	scanner     ports.ScannerClient
	scanTimeout time.Duration
}

func New(scans ScanService, batchSvc BatchService, leadSvc LeadService, benchSvc BenchmarkService, scanner ports.ScannerClient, scanTimeout time.Duration) *Server {
	return &Server{
		scans:       scans,
		batches:     batchSvc,
		leads:       leadSvc,
		benchmarks:  benchSvc,
		scanner:     scanner,
		scanTimeout: scanTimeout,
	}
}

// Routes returns the chi router for the API surface.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.getHealthz)
	r.Post("/scans", s.postScan)
	r.Get("/scans/{id}", s.getScan)
	r.Patch("/scans/{id}/metadata", s.patchScanMetadata)
	r.Patch("/scans/{id}/result/note", s.patchResultNote)
	r.Post("/batches", s.postBatch)
	r.Get("/batches/{id}", s.getBatch)
	r.Post("/lead-searches", s.postLeadSearch)
	r.Get("/lead-searches/{id}", s.getLeadSearch)
	r.Get("/benchmarks", s.getBenchmark)
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createScanBody struct {
	URL            string  `json:"url"`
	Label          *string `json:"label,omitempty"`
	Industry       *string `json:"industry,omitempty"`
	City           *string `json:"city,omitempty"`
	PostalCode     *string `json:"postalCode,omitempty"`
	CompanyName    *string `json:"companyName,omitempty"`
	CompetitorName *string `json:"competitorName,omitempty"`
}

func (s *Server) postScan(w http.ResponseWriter, r *http.Request) {
	var body createScanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	job, err := s.scans.Create(r.Context(), scans.CreateRequest{
		URL:   body.URL,
		Label: body.Label,
		Metadata: domain.JobMetadata{
			Industry:       emptyToNil(body.Industry),
			City:           emptyToNil(body.City),
			PostalCode:     emptyToNil(body.PostalCode),
			CompanyName:    emptyToNil(body.CompanyName),
			CompetitorName: emptyToNil(body.CompetitorName),
		},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Blocking path for small interactive flows; default is poll-by-id.
	if r.URL.Query().Get("wait") == "true" && s.scanner != nil {
		if err := scanrunner.ProcessInline(r.Context(), s.scans, s.scans, s.scanner, job, s.scanTimeout); err != nil {
			log.Printf("inline scan %s: %v", job.ID, err)
		}
		view, err := s.scans.Status(r.Context(), job.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	view, err := s.scans.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type metadataBody struct {
	Industry       *string `json:"industry"`
	City           *string `json:"city"`
	PostalCode     *string `json:"postalCode"`
	CompanyName    *string `json:"companyName"`
	CompetitorName *string `json:"competitorName"`
}

func (s *Server) patchScanMetadata(w http.ResponseWriter, r *http.Request) {
	var body metadataBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	job, err := s.scans.UpdateMetadata(r.Context(), chi.URLParam(r, "id"), domain.MetadataPatch{
		Industry:       body.Industry,
		City:           body.City,
		PostalCode:     body.PostalCode,
		CompanyName:    body.CompanyName,
		CompetitorName: body.CompetitorName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobId":          job.ID,
		"industry":       job.Metadata.Industry,
		"city":           job.Metadata.City,
		"postalCode":     job.Metadata.PostalCode,
		"companyName":    job.Metadata.CompanyName,
		"competitorName": job.Metadata.CompetitorName,
	})
}

func (s *Server) patchResultNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Note *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.scans.UpdateNote(r.Context(), chi.URLParam(r, "id"), emptyToNil(body.Note)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchBody struct {
	BatchID string `json:"batchId,omitempty"`
	URLs    []struct {
		URL   string `json:"url"`
		Label string `json:"label,omitempty"`
	} `json:"urls"`
}

func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	entries := make([]batches.Entry, 0, len(body.URLs))
	for _, u := range body.URLs {
		entries = append(entries, batches.Entry{URL: u.URL, Label: u.Label})
	}
	rec, err := s.batches.Create(r.Context(), body.BatchID, entries)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	sum, err := s.batches.Query(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type leadSearchBody struct {
	Category string `json:"category"`
	City     string `json:"city"`
	Limit    int    `json:"limit,omitempty"`
}

func (s *Server) postLeadSearch(w http.ResponseWriter, r *http.Request) {
	var body leadSearchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	rec, err := s.leads.StartSearch(r.Context(), body.Category, body.City, body.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getLeadSearch(w http.ResponseWriter, r *http.Request) {
	job, ls, err := s.leads.GetSearchJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	type leadView struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Website *string `json:"website,omitempty"`
		Address *string `json:"address,omitempty"`
		Phone   *string `json:"phone,omitempty"`
	}
	views := make([]leadView, 0, len(ls))
	for _, l := range ls {
		views = append(views, leadView{ID: l.ID, Name: l.Name, Website: l.Website, Address: l.Address, Phone: l.Phone})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leadSearchJobId": job.ID,
		"category":        job.Category,
		"city":            job.City,
		"status":          job.Status,
		"error":           job.Error,
		"leads":           views,
	})
}

func (s *Server) getBenchmark(w http.ResponseWriter, r *http.Request) {
	industry := r.URL.Query().Get("industry")
	city := r.URL.Query().Get("city")
	if industry == "" || city == "" {
		writeError(w, http.StatusBadRequest, "industry and city are required")
		return
	}
	isAdmin := r.Header.Get("X-Admin") == "1"
	agg, found, err := s.benchmarks.Get(r.Context(), industry, city, isAdmin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no benchmark for this industry and city")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"industry":   agg.Industry,
		"city":       agg.City,
		"avgScore":   agg.AvgScore,
		"sampleSize": agg.SampleSize,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDataIntegrity):
		log.Printf("http: data integrity: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		log.Printf("http: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func emptyToNil(s *string) *string {
	if s != nil && *s == "" {
		return nil
	}
	return s
}
