package interfaces

import (
	"context"

	"github.com/secmon-lab/kizuna/pkg/domain/types"
)

// Cache is the keyed store of fetched resource snapshots consumed by the rest of
// the application. Values are stored as JSON-compatible snapshots.
type Cache interface {
	Set(ctx context.Context, key types.CacheKey, value any) error
	// Get decodes the snapshot stored under key into dst. It reports false when the
	// key is absent.
	Get(ctx context.Context, key types.CacheKey, dst any) (bool, error)
	ClearAll(ctx context.Context) error
}
