package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/siteops-platform/api/internal/audit"
	"github.com/siteops-platform/api/internal/config"
	"github.com/siteops-platform/api/internal/httpx"
	"github.com/siteops-platform/api/internal/importer"
	"github.com/siteops-platform/api/internal/store"
)

// Store is the persistence surface the handlers need; *store.Store is the
// production implementation.
type Store interface {
	importer.Upserter
	Get(ctx context.Context, collection, key string) (store.Document, error)
	List(ctx context.Context, collection string) ([]store.Document, error)
	CreateImportRun(ctx context.Context, importType, filename, fileSHA256 string) (store.ImportRun, error)
	CompleteImportRun(ctx context.Context, id uuid.UUID, status string, summary []byte, errorMessage *string) (store.ImportRun, error)
	GetImportRun(ctx context.Context, id uuid.UUID) (store.ImportRun, error)
}

type Server struct {
	Config config.Config
	Store  Store
	Audit  *audit.Logger
	Logger *slog.Logger
}

func NewServer(cfg config.Config, st Store, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	return &Server{Config: cfg, Store: st, Audit: auditLogger, Logger: logger}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
