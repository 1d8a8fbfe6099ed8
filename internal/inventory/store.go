package inventory

import "context"

// Store is the persistence boundary for inventory rows. Reserve and
// Release are atomic conditional updates: they return (nil, nil) when the
// guard condition did not hold, so the caller can distinguish a shortage
// from a driver failure. Get returns (nil, nil) when no row exists.
type Store interface {
	Get(ctx context.Context, storeID, variantID string) (*RecordDetail, error)
	ListByStore(ctx context.Context, storeID string, f ListFilter) ([]RecordDetail, int, error)
	ListByVariant(ctx context.Context, variantID string) ([]RecordDetail, error)
	Reserve(ctx context.Context, storeID, variantID string, qty int64) (*Record, error)
	Release(ctx context.Context, storeID, variantID string, qty int64) (*Record, error)
	InitializeForVariant(ctx context.Context, variantID string) (int, error)
}
