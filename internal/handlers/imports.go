package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siteops-platform/api/internal/audit"
	"github.com/siteops-platform/api/internal/httpx"
	"github.com/siteops-platform/api/internal/importer"
	"github.com/siteops-platform/api/internal/middleware"
	"github.com/siteops-platform/api/internal/store"
)

var supportedCSVContentTypes = map[string]struct{}{
	"text/csv":                 {},
	"application/csv":          {},
	"application/vnd.ms-excel": {},
	// Browsers fall back to this for files they do not recognize.
	"application/octet-stream": {},
}

// importResponse is the envelope every import entry point returns.
type importResponse struct {
	Success     bool           `json:"success"`
	Result      *importSummary `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	ImportRunID string         `json:"importRunId,omitempty"`
	RequestID   string         `json:"requestId"`
}

type importSummary struct {
	TotalRows     int `json:"totalRows"`
	Matched       int `json:"matched"`
	Modified      int `json:"modified"`
	InsertedCount int `json:"insertedCount"`
	Skipped       int `json:"skipped"`
}

type importRunResponse struct {
	ImportRunID string         `json:"importRunId"`
	ImportType  string         `json:"importType"`
	Filename    string         `json:"filename"`
	FileSHA256  string         `json:"fileSha256"`
	Status      string         `json:"status"`
	Summary     importSummary  `json:"summary"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	RequestID   string         `json:"requestId"`
}

type parsedImportFile struct {
	filename   string
	fileSHA256 string
	rows       [][]string
}

type appError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (s *Server) PostImport(w http.ResponseWriter, r *http.Request, typeName string) {
	typ, ok := importer.Lookup(typeName)
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "import_type_not_found", "Unknown import type", map[string]any{"knownTypes": importer.TypeNames()})
		return
	}

	parsed, appErr := parseImportUpload(r, s.Config.ImportMaxRows)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	run, err := s.Store.CreateImportRun(r.Context(), typ.Name, parsed.filename, parsed.fileSHA256)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create import run", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	runID := run.ID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import.started",
		EntityType: "import_run",
		EntityID:   &runID,
		RequestID:  requestID,
		Metadata: map[string]any{
			"importType": typ.Name,
			"filename":   parsed.filename,
			"fileSha256": parsed.fileSHA256,
		},
	})

	pipeline := &importer.Pipeline{Store: s.Store, Logger: s.Logger}
	result, runErr := pipeline.RunRows(r.Context(), parsed.rows, typ)

	summary := summaryFromResult(result)
	summaryJSON, _ := json.Marshal(summary)
	status := "completed"
	var errorMessage *string
	if runErr != nil {
		status = "failed"
		message := runErr.Error()
		errorMessage = &message
	}

	if _, err := s.Store.CompleteImportRun(r.Context(), run.ID, status, summaryJSON, errorMessage); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to complete import run", nil)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "import.completed",
		EntityType: "import_run",
		EntityID:   &runID,
		RequestID:  requestID,
		Metadata: map[string]any{
			"importType": typ.Name,
			"status":     status,
			"totalRows":  result.TotalRows,
			"inserted":   result.Inserted,
			"modified":   result.Modified,
			"skipped":    result.Skipped,
		},
	})

	if runErr != nil {
		responseStatus := http.StatusInternalServerError
		if errors.Is(runErr, importer.ErrEmptyImport) {
			responseStatus = http.StatusBadRequest
		}
		httpx.WriteJSON(w, responseStatus, importResponse{
			Success:     false,
			Error:       runErr.Error(),
			ImportRunID: run.ID.String(),
			RequestID:   requestID,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, importResponse{
		Success:     true,
		Result:      &summary,
		ImportRunID: run.ID.String(),
		RequestID:   requestID,
	})
}

func (s *Server) GetImportRun(w http.ResponseWriter, r *http.Request, rawRunID string) {
	runID, err := uuid.Parse(rawRunID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_import_run_id", "Import run id must be a UUID", nil)
		return
	}

	run, err := s.Store.GetImportRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, r, http.StatusNotFound, "import_run_not_found", "Import run not found", nil)
			return
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import run", nil)
		return
	}

	var summary importSummary
	_ = json.Unmarshal(run.SummaryJSON, &summary)

	response := importRunResponse{
		ImportRunID: run.ID.String(),
		ImportType:  run.ImportType,
		Filename:    run.Filename,
		FileSHA256:  run.FileSHA256,
		Status:      run.Status,
		Summary:     summary,
		CreatedAt:   run.CreatedAt.UTC(),
		RequestID:   middleware.RequestIDFromContext(r.Context()),
	}
	if run.ErrorMessage != nil {
		response.Error = *run.ErrorMessage
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.UTC()
		response.CompletedAt = &completed
	}
	httpx.WriteJSON(w, http.StatusOK, response)
}

func parseImportUpload(r *http.Request, maxRows int) (parsedImportFile, *appError) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_content_type",
			Message: "Content-Type must be multipart/form-data",
		}
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_multipart",
			Message: "Failed to parse multipart form",
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "missing_file",
			Message: "file is required",
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file",
			Message: "Failed to read uploaded file",
		}
	}
	digest := sha256.Sum256(data)

	filename := header.Filename
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))

	var rows [][]string
	switch ext {
	case ".csv":
		if contentType != "" {
			if _, ok := supportedCSVContentTypes[contentType]; !ok {
				return parsedImportFile{}, &appError{
					Status:  http.StatusBadRequest,
					Code:    "invalid_content_type",
					Message: "Unsupported CSV content type",
					Details: map[string]any{"contentType": contentType},
				}
			}
		}
		rows = importer.Tokenize(string(data))
	case ".xlsx":
		rows, err = importer.RowsFromXLSX(bytes.NewReader(data))
		if err != nil {
			return parsedImportFile{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_workbook",
				Message: "Failed to read XLSX workbook",
			}
		}
	default:
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file_type",
			Message: "Only .csv and .xlsx uploads are supported",
		}
	}

	if len(rows) == 0 {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "empty_file",
			Message: "Uploaded file is empty",
		}
	}
	if maxRows > 0 && len(rows)-1 > maxRows {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "row_limit_exceeded",
			Message: "Import row limit exceeded",
			Details: map[string]any{"maxRows": maxRows},
		}
	}

	return parsedImportFile{
		filename:   filename,
		fileSHA256: hex.EncodeToString(digest[:]),
		rows:       rows,
	}, nil
}

func summaryFromResult(result importer.Result) importSummary {
	return importSummary{
		TotalRows:     result.TotalRows,
		Matched:       result.Matched,
		Modified:      result.Modified,
		InsertedCount: result.Inserted,
		Skipped:       result.Skipped,
	}
}
