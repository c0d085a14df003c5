package importer

import (
	"context"
	"log/slog"
)

// BulkResult reports what the persistence collaborator did with one batch.
type BulkResult struct {
	Matched  int
	Modified int
	Inserted int
}

// Upserter is the persistence collaborator: match by natural key within a
// collection, update the provided fields on match, insert otherwise.
type Upserter interface {
	BulkUpsert(ctx context.Context, collection string, ops []Operation) (BulkResult, error)
}

// Result summarizes one import invocation.
type Result struct {
	TotalRows int
	Matched   int
	Modified  int
	Inserted  int
	Skipped   int
}

// Pipeline drives one uploaded file end to end: tokenize, map, normalize,
// build the upsert batch, hand it to the store.
type Pipeline struct {
	Store  Upserter
	Logger *slog.Logger
}

// Run imports raw CSV content for the given type.
func (p *Pipeline) Run(ctx context.Context, content string, typ Type) (Result, error) {
	return p.RunRows(ctx, Tokenize(content), typ)
}

// RunRows imports pre-tokenized rows (the XLSX intake path joins here).
// A header-only or empty file returns ErrEmptyImport without contacting the
// store. Store failures surface verbatim alongside the counts accumulated so
// far; there is no partial retry.
func (p *Pipeline) RunRows(ctx context.Context, rows [][]string, typ Type) (Result, error) {
	records, err := MapRows(rows)
	if err != nil {
		return Result{}, err
	}

	for i := range records {
		for _, normalize := range typ.Normalizers {
			records[i] = normalize(records[i])
		}
	}

	ops, skipped := BuildBatch(records, typ.Key)
	result := Result{TotalRows: len(records), Skipped: skipped}
	if len(ops) == 0 {
		return result, nil
	}

	bulk, err := p.Store.BulkUpsert(ctx, typ.Collection, ops)
	if err != nil {
		return result, err
	}
	result.Matched = bulk.Matched
	result.Modified = bulk.Modified
	result.Inserted = bulk.Inserted

	if p.Logger != nil {
		p.Logger.Info("import_completed",
			"type", typ.Name,
			"collection", typ.Collection,
			"total_rows", result.TotalRows,
			"inserted", result.Inserted,
			"modified", result.Modified,
			"skipped", result.Skipped,
		)
	}
	return result, nil
}
