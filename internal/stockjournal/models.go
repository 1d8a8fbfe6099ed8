package stockjournal

import (
	"strings"
	"time"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

type EntryType string

const (
	TypeIn  EntryType = "IN"
	TypeOut EntryType = "OUT"
)

// Entry is one row of the append-only stock ledger. Entries are never
// updated or deleted; stockBefore/stockAfter snapshot the inventory
// quantity around this mutation.
type Entry struct {
	ID               string    `json:"id"`
	StoreID          string    `json:"storeId"`
	ProductVariantID string    `json:"productVariantId"`
	Type             EntryType `json:"type"`
	Quantity         int64     `json:"quantity"`
	StockBefore      int64     `json:"stockBefore"`
	StockAfter       int64     `json:"stockAfter"`
	ReferenceNo      string    `json:"referenceNo"`
	Reason           string    `json:"reason"`
	Notes            string    `json:"notes,omitempty"`
	CreatedBy        string    `json:"createdBy"`
	OrderID          *string   `json:"orderId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`

	// joined for display
	SKU         string `json:"sku,omitempty"`
	ProductName string `json:"productName,omitempty"`
	VariantName string `json:"variantName,omitempty"`
	StoreName   string `json:"storeName,omitempty"`
}

// Mutation is a validated stock IN/OUT request.
type Mutation struct {
	StoreID          string
	ProductVariantID string
	Type             EntryType
	Quantity         int64
	ReferenceNo      string
	Reason           string
	Notes            string
	CreatedBy        string
	OrderID          *string
}

// Validate trims free-text fields and enforces the mutation preconditions.
func (m *Mutation) Validate() error {
	if m.StoreID == "" || m.ProductVariantID == "" {
		return apperr.Validation("storeId and productVariantId are required")
	}
	if m.Quantity <= 0 {
		return apperr.Validation("Quantity must be greater than 0")
	}
	m.ReferenceNo = strings.TrimSpace(m.ReferenceNo)
	if m.ReferenceNo == "" {
		return apperr.Validation("Reference number is required")
	}
	m.Reason = strings.TrimSpace(m.Reason)
	if len(m.Reason) < 5 {
		return apperr.Validation("Reason must be at least 5 characters")
	}
	m.Notes = strings.TrimSpace(m.Notes)
	return nil
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	return p
}
