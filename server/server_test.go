package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/certscore"
	"github.com/tsawler/certscore/document"
	"github.com/tsawler/certscore/internal/pdftest"
	"github.com/tsawler/certscore/ocr"
	"github.com/tsawler/certscore/pipeline"
	"github.com/tsawler/certscore/raster"
	"github.com/tsawler/certscore/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAnalyzer struct {
	res  *certscore.Result
	err  error
	got  []byte
	hits int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, data []byte) (*certscore.Result, error) {
	f.hits++
	f.got = data
	return f.res, f.err
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "certificate.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/validate-certificate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func openStore(t *testing.T) *store.Repository {
	t.Helper()
	repo, err := store.Open(context.Background(), store.DefaultConfig(), discardLogger())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func decodeFailure(t *testing.T, rr *httptest.ResponseRecorder) certscore.ErrorResponse {
	t.Helper()
	var got certscore.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode failure body: %v", err)
	}
	if got.Status != certscore.StatusError {
		t.Errorf("status = %q, want %q", got.Status, certscore.StatusError)
	}
	return got
}

// ============================================================================
// POST /validate-certificate
// ============================================================================

func TestValidateSuccess(t *testing.T) {
	fa := &fakeAnalyzer{res: certscore.New().AnalyzeText("Certificate No: NPOP/1")}
	srv := New(Options{Analyzer: fa, Logger: discardLogger()})

	payload := []byte("%PDF-1.4 raw bytes")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, uploadRequest(t, "file", payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body)
	}
	if !bytes.Equal(fa.got, payload) {
		t.Errorf("analyzer got %q, want upload bytes unmodified", fa.got)
	}
	var got map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"ocr_text", "certificate_analysis", "status"} {
		if _, ok := got[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	if got["status"] != certscore.StatusSuccess {
		t.Errorf("status = %v, want success", got["status"])
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}
}

func TestValidateErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"input", &document.InputError{Reason: "not a PDF", Err: document.ErrNotPDF}, http.StatusBadRequest},
		{"page", &pipeline.PageError{Page: 1, Err: errors.New("bad stream")}, http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Options{Analyzer: &fakeAnalyzer{err: tt.err}, Logger: discardLogger()})
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, uploadRequest(t, "file", []byte("x")))

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if got := decodeFailure(t, rr); got.Message != tt.err.Error() {
				t.Errorf("message = %q, want %q", got.Message, tt.err.Error())
			}
		})
	}
}

func TestValidateMissingFile(t *testing.T) {
	fa := &fakeAnalyzer{}
	srv := New(Options{Analyzer: fa, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, uploadRequest(t, "document", []byte("x")))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	decodeFailure(t, rr)
	if fa.hits != 0 {
		t.Errorf("analyzer called %d times, want 0", fa.hits)
	}
}

func TestValidateTooLarge(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, MaxUpload: 512, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, uploadRequest(t, "file", bytes.Repeat([]byte("a"), 4096)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestValidateMethodNotAllowed(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validate-certificate", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestValidateRealPDFIsStored(t *testing.T) {
	analyzer := certscore.New().
		Workers(1).
		Clock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }).
		Location(time.UTC).
		Rasterizer(raster.Embedded{}).
		Recognizer(ocr.Unavailable{}).
		Logger(discardLogger())
	repo := openStore(t)
	srv := New(Options{Analyzer: analyzer, Store: repo, Logger: discardLogger()})
	h := srv.Handler()

	data := pdftest.Pages(pdftest.TextContent(
		"ORGANIC FARMING CERTIFICATE",
		"Certificate No: NPOP/NAB/003/2024/OF/789",
		"Valid until: 15-03-2026",
	))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "file", data))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rr.Code, rr.Body)
	}

	id := rr.Header().Get("X-Validation-ID")
	if id == "" {
		t.Fatal("no X-Validation-ID header")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/"+id, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /validations status = %d, want 200; body %s", rr.Code, rr.Body)
	}
	var rec store.Record
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID.String() != id {
		t.Errorf("record id = %s, want %s", rec.ID, id)
	}
	if rec.CertificateNumber != "NPOP/NAB/003/2024/OF/789" {
		t.Errorf("record certificate number = %q", rec.CertificateNumber)
	}
}

// ============================================================================
// GET routes
// ============================================================================

func TestValidationNotFound(t *testing.T) {
	tests := []struct {
		name  string
		store Store
		path  string
		want  int
	}{
		{"no store", nil, "/validations/" + uuid.NewString(), http.StatusNotFound},
		{"unknown id", openStore(t), "/validations/" + uuid.NewString(), http.StatusNotFound},
		{"bad id", openStore(t), "/validations/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(Options{Analyzer: &fakeAnalyzer{}, Store: tt.store, Logger: discardLogger()})
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCertificateStandards(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/certificate-standards", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got map[string]map[string]struct {
		Score       float64 `json:"score"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	npop := got["organic_farming"]["npop_certified"]
	if npop.Score != 95 || npop.Description == "" {
		t.Errorf("organic_farming/npop_certified = %+v, want score 95 with description", npop)
	}
}

func TestHealthz(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "ok" {
		t.Errorf("GET /healthz = %d %q, want 200 ok", rr.Code, rr.Body)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Logger: discardLogger()})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("%s = %q, want abc-123", RequestIDHeader, got)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID(empty) = %q, want empty", got)
	}
}

// unreachableStore fails every call
type unreachableStore struct{ err error }

func (s unreachableStore) Save(context.Context, *store.Record) error { return s.err }
func (s unreachableStore) Get(context.Context, uuid.UUID) (*store.Record, error) {
	return nil, s.err
}
func (s unreachableStore) List(context.Context, int) ([]store.Record, error) { return nil, s.err }
func (s unreachableStore) Ping(context.Context) error                        { return s.err }

func TestHealthzReportsStoreDown(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Store: unreachableStore{err: errors.New("connection refused")}, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /healthz = %d, want 503", rr.Code)
	}
}

func TestHealthzWithStore(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Store: openStore(t), Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", rr.Code)
	}
}

func TestListValidations(t *testing.T) {
	repo := openStore(t)
	ctx := context.Background()
	scorer := certscore.New()
	for i, txt := range []string{"Certificate No: NPOP/1", "Certificate No: NPOP/2", "Certificate No: NPOP/3"} {
		rec := store.NewRecord(scorer.AnalyzeText(txt).Score, txt)
		rec.CreatedAt = time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Store: repo, Logger: discardLogger()})

	tests := []struct {
		path      string
		wantCode  int
		wantCount int
	}{
		{"/validations", http.StatusOK, 3},
		{"/validations?limit=2", http.StatusOK, 2},
		{"/validations?limit=0", http.StatusBadRequest, 0},
		{"/validations?limit=many", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("GET %s = %d, want %d", tt.path, rr.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var got []store.Record
			if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("GET %s returned %d records, want %d", tt.path, len(got), tt.wantCount)
			}
			if len(got) > 0 && got[0].CertificateNumber != "NPOP/3" {
				t.Errorf("first record = %q, want newest NPOP/3", got[0].CertificateNumber)
			}
		})
	}
}

func TestListValidationsWithoutStore(t *testing.T) {
	srv := New(Options{Analyzer: &fakeAnalyzer{}, Logger: discardLogger()})
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations", nil))

	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("GET /validations = %d %q, want 200 []", rr.Code, rr.Body)
	}
}
