package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/siteops-platform/api/internal/audit"
	"github.com/siteops-platform/api/internal/httpx"
	"github.com/siteops-platform/api/internal/importer"
	"github.com/siteops-platform/api/internal/middleware"
	"github.com/siteops-platform/api/internal/store"
)

// GetExportCSV streams every document in a collection as CSV. Documents are
// schemaless, so the column set is the sorted union of fields across the
// collection with the primary key first.
func (s *Server) GetExportCSV(w http.ResponseWriter, r *http.Request, collection string) {
	if _, ok := importer.CollectionFor(collection); !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "collection_not_found", "Unknown export collection", map[string]any{"knownCollections": importer.Collections()})
		return
	}

	documents, err := s.Store.List(r.Context(), collection)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load export rows", nil)
		return
	}

	columns := exportColumns(documents)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", collection))
	writer := csv.NewWriter(w)
	_ = writer.Write(append(append([]string{}, columns...), "created_at", "updated_at"))
	for _, document := range documents {
		row := make([]string, 0, len(columns)+2)
		for _, column := range columns {
			row = append(row, formatCell(document.Doc[column]))
		}
		row = append(row,
			document.CreatedAt.UTC().Format(time.RFC3339),
			document.UpdatedAt.UTC().Format(time.RFC3339),
		)
		_ = writer.Write(row)
	}
	writer.Flush()
	if writer.Error() != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to stream export CSV", nil)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		Action:     "export.download",
		EntityType: collection,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"collection": collection,
			"rows":       len(documents),
		},
	})
}

func exportColumns(documents []store.Document) []string {
	seen := map[string]struct{}{}
	var columns []string
	for _, document := range documents {
		for field := range document.Doc {
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			columns = append(columns, field)
		}
	}
	sort.Strings(columns)

	// Keep the primary key in the leftmost column.
	for i, column := range columns {
		if column == "_id" && i != 0 {
			copy(columns[1:i+1], columns[:i])
			columns[0] = "_id"
			break
		}
	}
	return columns
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
