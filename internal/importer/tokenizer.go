package importer

import "strings"

// Tokenize splits raw delimited text into rows of trimmed fields. Commas and
// newlines inside double-quoted spans are literal, and a doubled quote inside
// a quoted span is an escaped quote. Rows whose every field is empty are
// dropped. An unterminated quote consumes the rest of the input; whatever was
// accumulated by then is flushed as the final field.
func Tokenize(raw string) [][]string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var rows [][]string
	var row []string
	var field strings.Builder
	inQuotes := false

	endField := func() {
		row = append(row, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRow := func() {
		endField()
		for _, cell := range row {
			if cell != "" {
				rows = append(rows, row)
				break
			}
		}
		row = nil
	}

	for i := 0; i < len(normalized); i++ {
		ch := normalized[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(normalized) && normalized[i+1] == '"' {
				field.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			endField()
		case ch == '\n' && !inQuotes:
			endRow()
		default:
			field.WriteByte(ch)
		}
	}
	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return rows
}
