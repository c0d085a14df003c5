package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/siteops-platform/api/internal/audit"
	"github.com/siteops-platform/api/internal/config"
	"github.com/siteops-platform/api/internal/handlers"
	"github.com/siteops-platform/api/internal/httpx"
	"github.com/siteops-platform/api/internal/middleware"
	"github.com/siteops-platform/api/internal/store"
)

func NewRouter(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (http.Handler, error) {
	specPath := filepath.Join("openapi.yaml")
	if _, err := os.Stat(specPath); err != nil {
		return nil, fmt.Errorf("openapi spec not found at %s: %w", specPath, err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathPrefix: "/api/imports/", MaxBytes: cfg.ImportMaxFileBytes},
	}))

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: requestID,
			})
		},
	}))

	st := store.New(pool)
	auditLogger := audit.NewLogger(pool)
	h := handlers.NewServer(cfg, st, auditLogger, logger)

	importLimiter := middleware.NewIPRateLimiter(cfg.ImportRateLimit, cfg.ImportRateWindow)

	api.Get("/health", h.GetHealth)

	api.With(importLimiter.Middleware("Too many imports, slow down")).
		Post("/imports/{importType}", func(w http.ResponseWriter, r *http.Request) {
			h.PostImport(w, r, chi.URLParam(r, "importType"))
		})
	api.Get("/imports/runs/{importRunId}", func(w http.ResponseWriter, r *http.Request) {
		h.GetImportRun(w, r, chi.URLParam(r, "importRunId"))
	})
	api.Get("/imports/templates/{importType}.csv", func(w http.ResponseWriter, r *http.Request) {
		h.GetImportTemplate(w, r, chi.URLParam(r, "importType"))
	})
	api.Get("/exports/{collection}.csv", func(w http.ResponseWriter, r *http.Request) {
		h.GetExportCSV(w, r, chi.URLParam(r, "collection"))
	})

	r.Mount("/api", api)
	return r, nil
}
