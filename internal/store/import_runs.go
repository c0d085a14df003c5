package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ImportRun is the bookkeeping row written for every import invocation.
type ImportRun struct {
	ID           uuid.UUID
	ImportType   string
	Filename     string
	FileSHA256   string
	Status       string
	SummaryJSON  []byte
	ErrorMessage *string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// CreateImportRun records the start of an import. Status begins as "failed"
// and is flipped on completion, so a crash mid-import leaves an honest row.
func (s *Store) CreateImportRun(ctx context.Context, importType, filename, fileSHA256 string) (ImportRun, error) {
	run := ImportRun{ImportType: importType, Filename: filename, FileSHA256: fileSHA256, Status: "failed"}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO import_runs (import_type, filename, file_sha256, status, summary_json)
		VALUES ($1, $2, $3, 'failed', '{}')
		RETURNING id, created_at
	`, importType, filename, fileSHA256).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return ImportRun{}, fmt.Errorf("create import run: %w", err)
	}
	run.SummaryJSON = []byte("{}")
	return run, nil
}

// CompleteImportRun finalizes a run with its status, summary and optional
// error message.
func (s *Store) CompleteImportRun(ctx context.Context, id uuid.UUID, status string, summary []byte, errorMessage *string) (ImportRun, error) {
	if len(summary) == 0 {
		summary = []byte("{}")
	}
	run := ImportRun{ID: id, Status: status, SummaryJSON: summary, ErrorMessage: errorMessage}
	err := s.pool.QueryRow(ctx, `
		UPDATE import_runs
		SET status = $2, summary_json = $3, error_message = $4, completed_at = now()
		WHERE id = $1
		RETURNING import_type, filename, file_sha256, created_at, completed_at
	`, id, status, summary, errorMessage).Scan(&run.ImportType, &run.Filename, &run.FileSHA256, &run.CreatedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ImportRun{}, ErrNotFound
	}
	if err != nil {
		return ImportRun{}, fmt.Errorf("complete import run: %w", err)
	}
	return run, nil
}

// GetImportRun loads one past run by id.
func (s *Store) GetImportRun(ctx context.Context, id uuid.UUID) (ImportRun, error) {
	run := ImportRun{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT import_type, filename, file_sha256, status, summary_json, error_message, created_at, completed_at
		FROM import_runs
		WHERE id = $1
	`, id).Scan(&run.ImportType, &run.Filename, &run.FileSHA256, &run.Status, &run.SummaryJSON, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ImportRun{}, ErrNotFound
	}
	if err != nil {
		return ImportRun{}, fmt.Errorf("get import run: %w", err)
	}
	return run, nil
}
