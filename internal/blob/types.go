// Package blob re-exports the blob storage abstraction and its backend
// constructors so call sites depend on one import.
package blob

import (
	"context"

	"mfcore/internal/blob/core"
	"mfcore/internal/infra/blob/fs"
	memorystore "mfcore/internal/infra/blob/memory"
	infraS3 "mfcore/internal/infra/blob/s3"
)

type (
	// Store aliases the backend-agnostic blob store contract.
	Store = core.Store
	// Driver aliases the backend identifier.
	Driver = core.Driver
	// Info aliases stored blob metadata.
	Info = core.Info
	// PutOptions aliases optional Put parameters.
	PutOptions = core.PutOptions
	// SignedURLOptions aliases pre-signed URL parameters.
	SignedURLOptions = core.SignedURLOptions
	// S3Config aliases the infra S3 configuration type.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = core.ErrUnsupported

// NewFilesystem constructs a filesystem-backed Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}
