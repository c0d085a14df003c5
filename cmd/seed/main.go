package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/siteops-platform/api/internal/importer"
	"github.com/siteops-platform/api/internal/store"
)

// Loads the sample CSV files in the seed directory through the import
// pipeline, so local databases start with the same data an operator would
// get by uploading them.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	seedDir := os.Getenv("SEED_DIR")
	if seedDir == "" {
		seedDir = "seeds"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	pipeline := &importer.Pipeline{
		Store:  store.New(pool),
		Logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, typeName := range importer.TypeNames() {
		path := filepath.Join(seedDir, typeName+".csv")
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}

		typ, _ := importer.Lookup(typeName)
		result, err := pipeline.Run(ctx, string(raw), typ)
		if err != nil {
			log.Fatalf("seed %s: %v", typeName, err)
		}
		log.Printf("seeded %s: %d rows, %d inserted, %d modified, %d skipped",
			typeName, result.TotalRows, result.Inserted, result.Modified, result.Skipped)
	}
}
