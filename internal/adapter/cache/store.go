// Package cache persists build artifacts under fixed well-known names.
//
// There is no versioning and no invalidation: an artifact that exists is
// used as-is until it is removed by hand.
package cache

import (
	"context"
	"errors"
)

// Artifact names.
const (
	RawArtifact       = "owid_co2_raw.json"
	ProcessedArtifact = "emissions_processed.json"
)

// ErrNotFound is returned by Get when no artifact is stored under the key.
var ErrNotFound = errors.New("cache: artifact not found")

// Store reads and writes artifacts by name.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
