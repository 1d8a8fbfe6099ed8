package orders

import (
	"context"
	"time"
)

// CancelResult is what the sweep needs to publish and log after an order
// was auto-cancelled.
type CancelResult struct {
	Order Order
	Items []ItemQty
}

// Store is the persistence boundary for the order aggregate. CreateOrder
// and CancelExpired are full transactions: every write inside them
// commits together or not at all, including the reservation counters.
type Store interface {
	CartForUser(ctx context.Context, userID string) (*Cart, error)
	AddressBelongsToUser(ctx context.Context, addressID, userID string) (bool, error)
	VariantForPurchase(ctx context.Context, variantID string) (*VariantInfo, error)

	// CreateOrder persists the order, its item snapshots, the payment and
	// initial history rows, increments reserved for every line, and clears
	// the cart lines when cartID is non-empty.
	CreateOrder(ctx context.Context, o *Order, items []Item, cartID string) error

	UserOrders(ctx context.Context, userID string, status Status, p Page) ([]Order, int, error)
	OrderByID(ctx context.Context, id string) (*OrderDetail, error)

	// ExpiredPending lists UNPAID orders whose auto-cancel deadline passed.
	ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	// CancelExpired flips one expired order to CANCELLED and releases its
	// reservations. Returns (nil, nil) when the order was already swept or
	// paid in the meantime, so a given order is cancelled at most once.
	CancelExpired(ctx context.Context, orderID string, cutoff time.Time) (*CancelResult, error)
}
