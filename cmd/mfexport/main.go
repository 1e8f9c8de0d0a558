// Package main runs the collection export CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"mfcore/internal/adapters/export"
	"mfcore/internal/blob"
	"mfcore/internal/config"
	"mfcore/internal/core"
	"mfcore/internal/infra/persistence/memory"
	"mfcore/internal/infra/persistence/postgres"
	"mfcore/internal/infra/persistence/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mfexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config.yml (optional)")
	collectionID := fs.String("collection", "", "collection id to export")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *collectionID == "" {
		fmt.Fprintln(stderr, "mfexport: -collection is required")
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "mfexport: load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	store, err := openStore(cfg.Storage)
	if err != nil {
		fmt.Fprintf(stderr, "mfexport: open store: %v\n", err)
		return 1
	}
	blobStore, err := openBlob(ctx, cfg.Blob)
	if err != nil {
		fmt.Fprintf(stderr, "mfexport: open blob store: %v\n", err)
		return 1
	}

	service := core.NewService(store,
		core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")),
		core.WithTracer(core.NewJSONTracer(stderr)),
	)
	exporter := export.New(service, blobStore,
		export.WithKeyPrefix(cfg.Export.KeyPrefix),
		export.WithPageLimit(cfg.Export.PageLimit),
	)

	record, err := exporter.ExportCollection(ctx, *collectionID)
	if err != nil {
		fmt.Fprintf(stderr, "mfexport: export %s: %v\n", *collectionID, err)
		return 1
	}
	fmt.Fprintf(stdout, "export %s %s: %d artifacts\n", record.ID, record.Status, len(record.Artifacts))
	for _, artifact := range record.Artifacts {
		fmt.Fprintf(stdout, "  %s (%d bytes)\n", artifact.Key, artifact.SizeBytes)
	}
	return 0
}

func openStore(cfg config.StorageConfig) (core.PersistentStore, error) {
	switch core.StorageDriver(cfg.Driver) {
	case core.StorageMemory:
		return memory.NewStore(), nil
	case core.StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case core.StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

func openBlob(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch blob.Driver(cfg.Driver) {
	case blob.DriverFilesystem:
		return blob.NewFilesystem(cfg.FSRoot)
	case blob.DriverS3:
		return blob.NewS3(ctx, blob.S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region})
	case blob.DriverMemory:
		return blob.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
