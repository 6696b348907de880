// Package blob selects the object store backend and owns the key layout for
// uploaded graph documents and rendered exports.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"ifcquery/internal/blob/core"
	"ifcquery/internal/config"
	"ifcquery/internal/infra/blob/fs"
	"ifcquery/internal/infra/blob/memory"
	"ifcquery/internal/infra/blob/s3"
)

type (
	Store      = core.Store
	Info       = core.Info
	PutOptions = core.PutOptions
	Driver     = core.Driver
)

var (
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
	ErrUnsupported = core.ErrUnsupported
)

const (
	ModelPrefix  = "models/"
	ExportPrefix = "exports/"
)

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case config.BlobFilesystem:
		return fs.New(cfg.FSRoot)
	case config.BlobMemory:
		return memory.New(), nil
	case config.BlobS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	}
	return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
}

// ModelKey is where the graph document of a loaded model is kept.
func ModelKey(modelID string) string { return ModelPrefix + modelID + ".json" }

// ModelIDFromKey reverses ModelKey.
func ModelIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, ModelPrefix) || path.Ext(key) != ".json" {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, ModelPrefix), ".json")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ExportKey is where a rendered export is kept; ext has no leading dot.
func ExportKey(exportID, ext string) string { return ExportPrefix + exportID + "." + ext }
