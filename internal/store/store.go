package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteops-platform/api/internal/importer"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// Store persists import documents in Postgres. Each collection is a logical
// namespace inside one JSONB-backed table keyed by natural key; upserts merge
// fields so an import never clears a stored value it did not provide.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Document is one stored record.
type Document struct {
	Collection string
	Key        string
	Doc        map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BulkUpsert applies one import batch atomically. Matching is by
// (collection, key); on match the provided fields are merged over the stored
// document and updated_at advances, on no match the document is inserted.
func (s *Store) BulkUpsert(ctx context.Context, collection string, ops []importer.Operation) (importer.BulkResult, error) {
	var result importer.BulkResult
	if len(ops) == 0 {
		return result, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin upsert batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, op := range ops {
		doc, err := json.Marshal(op.Fields)
		if err != nil {
			return result, fmt.Errorf("encode document %s/%s: %w", collection, op.Key, err)
		}

		var inserted bool
		err = tx.QueryRow(ctx, `
			INSERT INTO documents (collection, key, doc)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection, key) DO UPDATE
			SET doc = documents.doc || EXCLUDED.doc, updated_at = now()
			RETURNING (xmax = 0)
		`, collection, op.Key, doc).Scan(&inserted)
		if err != nil {
			return result, fmt.Errorf("upsert %s/%s: %w", collection, op.Key, err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Matched++
			result.Modified++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit upsert batch: %w", err)
	}
	return result, nil
}

// Get loads one document by collection and natural key.
func (s *Store) Get(ctx context.Context, collection, key string) (Document, error) {
	document := Document{Collection: collection, Key: key}
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT doc, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND key = $2
	`, collection, key).Scan(&raw, &document.CreatedAt, &document.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(raw, &document.Doc); err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return document, nil
}

// List returns every document in a collection ordered by key.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, doc, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY key
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		document := Document{Collection: collection}
		var raw []byte
		if err := rows.Scan(&document.Key, &raw, &document.CreatedAt, &document.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", collection, err)
		}
		if err := json.Unmarshal(raw, &document.Doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, document.Key, err)
		}
		documents = append(documents, document)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return documents, nil
}
