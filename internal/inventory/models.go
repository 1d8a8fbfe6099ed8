package inventory

import "time"

// Record is the current-state stock row for one (store, variant) pair.
// Quantity is physical stock owned by the store; Reserved is earmarked
// for unpaid orders. Available stock is always derived, never stored.
type Record struct {
	StoreID          string    `json:"storeId"`
	ProductVariantID string    `json:"productVariantId"`
	Quantity         int64     `json:"quantity"`
	Reserved         int64     `json:"reserved"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (r *Record) Available() int64 { return r.Quantity - r.Reserved }

func (r *Record) CanReserve(qty int64) bool { return r.Available() >= qty }

// RecordDetail carries the joined variant/product columns used for display.
type RecordDetail struct {
	Record
	SKU         string `json:"sku"`
	ProductName string `json:"productName"`
	VariantName string `json:"variantName"`
	Price       int64  `json:"price"`
	StoreName   string `json:"storeName"`
	Available   int64  `json:"available"`
}

type Availability struct {
	Available bool          `json:"available"`
	Reason    string        `json:"reason"`
	Inventory *RecordDetail `json:"inventory"`
}

// StoreSummary aggregates a variant's stock across all stores.
type StoreSummary struct {
	TotalStores    int   `json:"totalStores"`
	TotalQuantity  int64 `json:"totalQuantity"`
	TotalReserved  int64 `json:"totalReserved"`
	TotalAvailable int64 `json:"totalAvailable"`
}

type ListFilter struct {
	Search string
	Page   int
	Limit  int
}
