package stockjournal

import (
	"context"
	"time"
)

// Store persists ledger entries. ApplyMutation is the atomic unit of work:
// it locks the inventory row, appends the entry with a consistent
// before/after snapshot, and updates the quantity in one transaction,
// or not at all.
type Store interface {
	ApplyMutation(ctx context.Context, m Mutation) (*Entry, error)
	History(ctx context.Context, storeID, variantID string, p Page) ([]Entry, int, error)
	HistoryByStore(ctx context.Context, storeID string, typ EntryType, p Page) ([]Entry, int, error)
	ByID(ctx context.Context, id string) (*Entry, error)
	EntriesInRange(ctx context.Context, storeID string, from, to time.Time) ([]Entry, error)
}
