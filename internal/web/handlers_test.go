package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linkforge/bulkimport/internal/config"
	"github.com/linkforge/bulkimport/internal/core"
)

const testCSV = "Title,Description,Preferred Code,Target URL\n" +
	"Launch page,,,https://example.com/launch\n" +
	",missing title,,https://example.com/2\n" +
	"Docs,,,https://example.com/docs\n"

// fakeCreation answers every batch with one success per submitted row.
type fakeCreation struct {
	calls int
	err   error
}

func (f *fakeCreation) CreateBatch(_ context.Context, _ string, items []core.SubmissionItem) (*core.BatchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := &core.BatchResult{}
	for _, item := range items {
		res.Results = append(res.Results, core.RowResult{
			RowNumber:    item.RowNumber,
			Status:       core.StatusSuccess,
			AssignedCode: "abc12",
		})
		res.Summary.Success++
	}
	return res, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, RequestTimeout: time.Minute, ShutdownTimeout: time.Second},
		Creation: config.CreationConfig{BaseURL: "http://creation.test", Timeout: time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20},
		Logging:  config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func testServer(t *testing.T, creation core.CreationService) *Server {
	t.Helper()
	return NewServer(testConfig(), core.NewService(creation), nil)
}

// uploadRequest builds a multipart POST with the given CSV as the file field.
func uploadRequest(t *testing.T, target, fileName, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlePreview(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/imports/ws-1/preview", "links.csv", testCSV))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp previewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalRows != 3 || resp.ValidRows != 2 || !resp.Submittable {
		t.Errorf("response = %+v", resp)
	}
	if resp.AttemptID == "" || resp.FileName != "links.csv" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Outcomes) != 3 {
		t.Errorf("got %d outcomes, want 3", len(resp.Outcomes))
	}
}

func TestHandleImport(t *testing.T) {
	creation := &fakeCreation{}
	srv := testServer(t, creation)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/imports/ws-1", "links.csv", testCSV))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if creation.calls != 1 {
		t.Errorf("creation called %d times, want 1", creation.calls)
	}

	var resp importResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary.Success != 2 {
		t.Errorf("summary = %+v, want 2 successes", resp.Summary)
	}
	// One report row per input row, invalid one included.
	if len(resp.Rows) != 3 {
		t.Errorf("got %d rows, want 3", len(resp.Rows))
	}
}

func TestHandleImport_NoValidRows(t *testing.T) {
	creation := &fakeCreation{}
	srv := testServer(t, creation)

	body := "Title,Description,Preferred Code,Target URL\n,no title,,not-a-url\n"
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/imports/ws-1", "bad.csv", body))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if creation.calls != 0 {
		t.Errorf("creation called %d times, want 0", creation.calls)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "SUB001" {
		t.Errorf("error code = %q, want SUB001", resp.Code)
	}
}

func TestHandleImport_EmptyFile(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/imports/ws-1", "empty.csv", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "FILE001" {
		t.Errorf("error code = %q, want FILE001", resp.Code)
	}
}

func TestHandleImport_MissingFileField(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	req := httptest.NewRequest(http.MethodPost, "/api/imports/ws-1", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleImport_FileTooLarge(t *testing.T) {
	srv := NewServer(&config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeout: time.Minute},
		Upload:  config.UploadConfig{MaxFileSize: 64},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}, core.NewService(&fakeCreation{}), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/imports/ws-1", "big.csv", testCSV))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "FILE002" {
		t.Errorf("error code = %q, want FILE002", resp.Code)
	}
}

func TestHandleExport(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	// Run an import first so there is a reconciled attempt to export.
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/imports/ws-1", "links.csv", testCSV))
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d", rec.Code)
	}
	var imported importResponse
	json.NewDecoder(rec.Body).Decode(&imported)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/"+imported.AttemptID+"/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if lines[0] != "Row,Status,ShortCode,Message" {
		t.Errorf("header line = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Errorf("got %d lines, want header plus 3 rows", len(lines))
	}
}

func TestHandleExport_UnknownAttempt(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/nope/export", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHistory_NoStore(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestHandleHealthz(t *testing.T) {
	srv := testServer(t, &fakeCreation{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"sekret"}
	srv := NewServer(cfg, core.NewService(&fakeCreation{}), nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("X-API-Key", "sekret")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with key: status = %d, want 200", rec.Code)
	}

	// Healthz stays open for probes.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", rec.Code)
	}
}
