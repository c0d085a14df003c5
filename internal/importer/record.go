package importer

import (
	"errors"
	"strings"
)

// Record is one import row keyed by header name. Values start out as strings
// and may become bool or float64 after normalization. A key is only present
// when the source cell was non-empty, so an upsert never overwrites a stored
// value with a blank.
type Record map[string]any

// ErrEmptyImport is returned when a file has no data rows after the header.
var ErrEmptyImport = errors.New("no valid data found in import file")

// MapRows zips the header row against each data row positionally. Cells that
// are missing or empty after trimming are omitted from the record.
func MapRows(rows [][]string) ([]Record, error) {
	if len(rows) < 2 {
		return nil, ErrEmptyImport
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimPrefix(strings.TrimSpace(header), "\uFEFF")
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := Record{}
		for i, header := range headers {
			if header == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}
			record[header] = value
		}
		records = append(records, record)
	}
	return records, nil
}

// String returns the field as a trimmed string, or "" when absent or not a
// string.
func (r Record) String(field string) string {
	value, ok := r[field].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// Float returns the field as a float64 when it was coerced by a Number
// normalizer.
func (r Record) Float(field string) (float64, bool) {
	value, ok := r[field].(float64)
	return value, ok
}

// Bool returns the field as a bool, false when absent or uncoerced.
func (r Record) Bool(field string) bool {
	value, ok := r[field].(bool)
	return ok && value
}
