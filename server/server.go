// Package server exposes certificate analysis over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tsawler/certscore"
	"github.com/tsawler/certscore/document"
	"github.com/tsawler/certscore/features"
	"github.com/tsawler/certscore/pipeline"
	"github.com/tsawler/certscore/scoring"
	"github.com/tsawler/certscore/store"
)

// DefaultMaxUpload caps request bodies when Options.MaxUpload is unset
const DefaultMaxUpload = 20 << 20

// Analyzer scores PDF bytes. *certscore.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*certscore.Result, error)
}

// Store persists successful analyses. *store.Repository satisfies it.
type Store interface {
	Save(ctx context.Context, rec *store.Record) error
	Get(ctx context.Context, id uuid.UUID) (*store.Record, error)
	List(ctx context.Context, limit int) ([]store.Record, error)
	Ping(ctx context.Context) error
}

// maxListLimit caps GET /validations?limit=
const maxListLimit = 500

// Options configure a Server
type Options struct {
	Analyzer Analyzer
	Store    Store // nil disables persistence and /validations
	Policy   scoring.Policy

	MaxUpload int64
	Logger    *slog.Logger
}

// Server serves the HTTP API
type Server struct {
	analyzer  Analyzer
	store     Store
	standards map[features.CertificateType]map[features.Authority]scoring.Standard
	maxUpload int64
	logger    *slog.Logger
}

// New returns a Server. A zero Policy serves the built-in standards.
func New(opts Options) *Server {
	policy := opts.Policy
	if policy.CertificateWeights == nil {
		policy = scoring.DefaultPolicy()
	}
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		analyzer:  opts.Analyzer,
		store:     opts.Store,
		standards: policy.Standards(),
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Handler returns the routed handler wrapped in request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate-certificate", s.validate)
	mux.HandleFunc("GET /certificate-standards", s.certificateStandards)
	mux.HandleFunc("GET /validations", s.validations)
	mux.HandleFunc("GET /validations/{id}", s.validation)
	mux.HandleFunc("GET /healthz", s.healthz)
	return s.withRequestID(mux)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, certscore.FailureResponse(err))
}

// statusFor maps analysis errors to HTTP status codes
func statusFor(err error) int {
	var inputErr *document.InputError
	var pageErr *pipeline.PageError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &pageErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, _, err := r.FormFile("file")
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeFailure(w, code, fmt.Errorf("missing multipart field \"file\": %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeFailure(w, statusFor(err), fmt.Errorf("failed to read upload: %w", err))
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), data)
	if err != nil {
		requestLogger(r.Context(), s.logger).Warn("server.validate.failed", "error", err)
		writeFailure(w, statusFor(err), err)
		return
	}

	if s.store != nil {
		rec := store.NewRecord(res.Score, res.Text)
		if err := s.store.Save(r.Context(), rec); err != nil {
			requestLogger(r.Context(), s.logger).Error("server.validate.store_failed", "error", err)
		} else {
			w.Header().Set("X-Validation-ID", rec.ID.String())
		}
	}

	writeJSON(w, http.StatusOK, res.Response())
}

func (s *Server) certificateStandards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.standards)
}

func (s *Server) validation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeFailure(w, http.StatusBadRequest, fmt.Errorf("invalid validation id: %w", err))
		return
	}
	if s.store == nil {
		writeFailure(w, http.StatusNotFound, store.ErrNotFound)
		return
	}

	rec, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusNotFound, err)
	case err != nil:
		requestLogger(r.Context(), s.logger).Error("server.validation.get_failed", "id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) validations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeFailure(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, maxListLimit)
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.Record{})
		return
	}

	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		requestLogger(r.Context(), s.logger).Error("server.validations.list_failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// healthz answers 503 when the configured store cannot be reached
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			requestLogger(r.Context(), s.logger).Warn("server.healthz.store_down", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
