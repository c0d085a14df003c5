package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/siteops-platform/api/internal/audit"
	"github.com/siteops-platform/api/internal/config"
	"github.com/siteops-platform/api/internal/importer"
	"github.com/siteops-platform/api/internal/store"
)

type fakeStore struct {
	docs    map[string]map[string]importer.Record
	runs    map[uuid.UUID]store.ImportRun
	bulkErr error
}

func newTestStore() *fakeStore {
	return &fakeStore{
		docs: map[string]map[string]importer.Record{},
		runs: map[uuid.UUID]store.ImportRun{},
	}
}

func (f *fakeStore) BulkUpsert(_ context.Context, collection string, ops []importer.Operation) (importer.BulkResult, error) {
	if f.bulkErr != nil {
		return importer.BulkResult{}, f.bulkErr
	}
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]importer.Record{}
	}
	var result importer.BulkResult
	for _, op := range ops {
		existing, ok := f.docs[collection][op.Key]
		if !ok {
			existing = importer.Record{}
			result.Inserted++
		} else {
			result.Matched++
			result.Modified++
		}
		for field, value := range op.Fields {
			existing[field] = value
		}
		f.docs[collection][op.Key] = existing
	}
	return result, nil
}

func (f *fakeStore) Get(_ context.Context, collection, key string) (store.Document, error) {
	doc, ok := f.docs[collection][key]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{Collection: collection, Key: key, Doc: doc}, nil
}

func (f *fakeStore) List(_ context.Context, collection string) ([]store.Document, error) {
	var documents []store.Document
	for key, doc := range f.docs[collection] {
		documents = append(documents, store.Document{Collection: collection, Key: key, Doc: doc})
	}
	return documents, nil
}

func (f *fakeStore) CreateImportRun(_ context.Context, importType, filename, fileSHA256 string) (store.ImportRun, error) {
	run := store.ImportRun{
		ID:          uuid.New(),
		ImportType:  importType,
		Filename:    filename,
		FileSHA256:  fileSHA256,
		Status:      "failed",
		SummaryJSON: []byte("{}"),
		CreatedAt:   time.Now(),
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeStore) CompleteImportRun(_ context.Context, id uuid.UUID, status string, summary []byte, errorMessage *string) (store.ImportRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return store.ImportRun{}, store.ErrNotFound
	}
	now := time.Now()
	run.Status = status
	run.SummaryJSON = summary
	run.ErrorMessage = errorMessage
	run.CompletedAt = &now
	f.runs[id] = run
	return run, nil
}

func (f *fakeStore) GetImportRun(_ context.Context, id uuid.UUID) (store.ImportRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return store.ImportRun{}, store.ErrNotFound
	}
	return run, nil
}

type fakeExecer struct{}

func (fakeExecer) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func newTestServer(st Store) *Server {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewServer(config.Config{ImportMaxRows: 100}, st, audit.NewLogger(fakeExecer{}), logger)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func postImport(t *testing.T, s *Server, typeName, filename, content string) (int, importResponse) {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/imports/"+typeName, body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.PostImport(rr, req, typeName)

	var payload importResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return rr.Code, payload
}

const employeeCSV = "recordId,firstName,lastName,email,isScheduleActive\n" +
	"E1,Jane,Doe,jane@x.com,Yes\n" +
	"E2,John,Smith,,No\n"

func TestPostImportEmployees(t *testing.T) {
	st := newTestStore()
	s := newTestServer(st)

	code, payload := postImport(t, s, "employees", "employees.csv", employeeCSV)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !payload.Success || payload.Result == nil {
		t.Fatalf("expected success envelope, got %+v", payload)
	}
	if payload.Result.InsertedCount != 2 || payload.Result.Skipped != 0 || payload.Result.TotalRows != 2 {
		t.Fatalf("unexpected summary: %+v", payload.Result)
	}

	jane := st.docs["employees"]["E1"]
	if jane["isScheduleActive"] != true || jane["firstName"] != "Jane" {
		t.Fatalf("unexpected stored doc: %v", jane)
	}
	if _, ok := st.docs["employees"]["E2"]["email"]; ok {
		t.Fatal("expected blank email cell to be omitted")
	}

	runID, err := uuid.Parse(payload.ImportRunID)
	if err != nil {
		t.Fatalf("parse run id: %v", err)
	}
	run := st.runs[runID]
	if run.Status != "completed" {
		t.Fatalf("expected completed run, got %q", run.Status)
	}
}

func TestPostImportReRunIsIdempotent(t *testing.T) {
	st := newTestStore()
	s := newTestServer(st)

	if code, _ := postImport(t, s, "employees", "employees.csv", employeeCSV); code != http.StatusOK {
		t.Fatalf("first import failed with %d", code)
	}
	code, payload := postImport(t, s, "employees", "employees.csv", employeeCSV)
	if code != http.StatusOK {
		t.Fatalf("second import failed with %d", code)
	}
	if payload.Result.InsertedCount != 0 || payload.Result.Matched != 2 {
		t.Fatalf("expected second run to match not insert: %+v", payload.Result)
	}
	if len(st.docs["employees"]) != 2 {
		t.Fatalf("expected 2 documents after re-import, got %d", len(st.docs["employees"]))
	}
}

func TestPostImportHeaderOnly(t *testing.T) {
	st := newTestStore()
	s := newTestServer(st)

	code, payload := postImport(t, s, "employees", "employees.csv", "recordId,firstName\n")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if payload.Success || payload.Error == "" {
		t.Fatalf("expected failure envelope, got %+v", payload)
	}

	runID, _ := uuid.Parse(payload.ImportRunID)
	if st.runs[runID].Status != "failed" {
		t.Fatalf("expected failed run, got %q", st.runs[runID].Status)
	}
	if len(st.docs) != 0 {
		t.Fatal("expected store untouched for empty import")
	}
}

func TestPostImportStoreFailure(t *testing.T) {
	st := newTestStore()
	st.bulkErr = errors.New("connection refused")
	s := newTestServer(st)

	code, payload := postImport(t, s, "employees", "employees.csv", employeeCSV)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if payload.Success || payload.Error != "connection refused" {
		t.Fatalf("expected verbatim store error, got %+v", payload)
	}
}

func TestPostImportUnknownType(t *testing.T) {
	s := newTestServer(newTestStore())
	body, contentType := multipartUpload(t, "x.csv", employeeCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/imports/unknown", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.PostImport(rr, req, "unknown")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPostImportRejectsOtherExtensions(t *testing.T) {
	s := newTestServer(newTestStore())
	body, contentType := multipartUpload(t, "employees.txt", employeeCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/imports/employees", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.PostImport(rr, req, "employees")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetImportRun(t *testing.T) {
	st := newTestStore()
	s := newTestServer(st)

	_, payload := postImport(t, s, "employees", "employees.csv", employeeCSV)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/runs/"+payload.ImportRunID, nil)
	rr := httptest.NewRecorder()
	s.GetImportRun(rr, req, payload.ImportRunID)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var run importRunResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ImportType != "employees" || run.Status != "completed" || run.Summary.InsertedCount != 2 {
		t.Fatalf("unexpected run payload: %+v", run)
	}

	t.Run("unknown id", func(t *testing.T) {
		missing := uuid.NewString()
		rr := httptest.NewRecorder()
		s.GetImportRun(rr, httptest.NewRequest(http.MethodGet, "/api/imports/runs/"+missing, nil), missing)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})
}

func TestGetImportTemplate(t *testing.T) {
	s := newTestServer(newTestStore())
	for _, typeName := range importer.TypeNames() {
		rr := httptest.NewRecorder()
		s.GetImportTemplate(rr, httptest.NewRequest(http.MethodGet, "/api/imports/templates/"+typeName+".csv", nil), typeName)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected template for %q, got %d", typeName, rr.Code)
		}
		if rr.Header().Get("Content-Type") != "text/csv" {
			t.Fatalf("expected text/csv for %q", typeName)
		}
	}

	rr := httptest.NewRecorder()
	s.GetImportTemplate(rr, httptest.NewRequest(http.MethodGet, "/api/imports/templates/unknown.csv", nil), "unknown")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown template, got %d", rr.Code)
	}
}
