package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/siteops-platform/api/internal/importer"
)

func TestGetExportCSV(t *testing.T) {
	st := newTestStore()
	st.docs["employees"] = map[string]importer.Record{
		"E1": {"_id": "E1", "firstName": "Jane", "isScheduleActive": true, "payRate": 31.5},
		"E2": {"_id": "E2", "firstName": "John"},
	}
	s := newTestServer(st)

	rr := httptest.NewRecorder()
	s.GetExportCSV(rr, httptest.NewRequest(http.MethodGet, "/api/exports/employees.csv", nil), "employees")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}

	rows, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "_id" {
		t.Fatalf("expected _id as first column, got %q", rows[0][0])
	}

	byID := map[string][]string{}
	for _, row := range rows[1:] {
		byID[row[0]] = row
	}
	col := func(name string) int {
		for i, header := range rows[0] {
			if header == name {
				return i
			}
		}
		t.Fatalf("missing column %q in %v", name, rows[0])
		return -1
	}
	if got := byID["E1"][col("isScheduleActive")]; got != "true" {
		t.Fatalf("expected bool cell \"true\", got %q", got)
	}
	if got := byID["E1"][col("payRate")]; got != "31.5" {
		t.Fatalf("expected numeric cell \"31.5\", got %q", got)
	}
	if got := byID["E2"][col("firstName")]; got != "John" {
		t.Fatalf("unexpected name cell %q", got)
	}
	if got := byID["E2"][col("payRate")]; got != "" {
		t.Fatalf("expected missing field to export empty, got %q", got)
	}
}

func TestGetExportCSVUnknownCollection(t *testing.T) {
	s := newTestServer(newTestStore())
	rr := httptest.NewRecorder()
	s.GetExportCSV(rr, httptest.NewRequest(http.MethodGet, "/api/exports/nope.csv", nil), "nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
