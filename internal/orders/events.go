package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCancelled = "OrderCancelled"
	EventStockMutated   = "StockMutated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductVariantID string `json:"product_variant_id"`
	Qty              int64  `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	StoreID     string    `json:"store_id"`
	Items       []ItemQty `json:"items"`
	Total       int64     `json:"total"`
}

type OrderCancelledPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
	Items       []ItemQty `json:"items"`
}

type StockMutatedPayload struct {
	JournalID        string `json:"journal_id"`
	StoreID          string `json:"store_id"`
	ProductVariantID string `json:"product_variant_id"`
	Type             string `json:"type"`
	Quantity         int64  `json:"quantity"`
	StockAfter       int64  `json:"stock_after"`
}
