package stockjournal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

type Service struct {
	Store Store
	Log   *zap.Logger
}

// MutationInput is the request shape shared by stock IN and stock OUT.
type MutationInput struct {
	StoreID          string
	ProductVariantID string
	Quantity         int64
	ReferenceNo      string
	Reason           string
	Notes            string
	CreatedBy        string
	OrderID          *string
}

// RecordStockIn applies a replenishment (purchase order, return, restock).
func (s *Service) RecordStockIn(ctx context.Context, in MutationInput) (*Entry, error) {
	return s.record(ctx, in, TypeIn)
}

// RecordStockOut applies a reduction (adjustment, damaged goods,
// correction). This is the only path that decreases quantity; it never
// touches reserved.
func (s *Service) RecordStockOut(ctx context.Context, in MutationInput) (*Entry, error) {
	return s.record(ctx, in, TypeOut)
}

func (s *Service) record(ctx context.Context, in MutationInput, typ EntryType) (*Entry, error) {
	m := Mutation{
		StoreID:          in.StoreID,
		ProductVariantID: in.ProductVariantID,
		Type:             typ,
		Quantity:         in.Quantity,
		ReferenceNo:      in.ReferenceNo,
		Reason:           in.Reason,
		Notes:            in.Notes,
		CreatedBy:        in.CreatedBy,
		OrderID:          in.OrderID,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	entry, err := s.Store.ApplyMutation(ctx, m)
	if err != nil {
		return nil, err
	}
	s.Log.Info("stock mutation applied",
		zap.String("journalId", entry.ID),
		zap.String("storeId", entry.StoreID),
		zap.String("variantId", entry.ProductVariantID),
		zap.String("type", string(entry.Type)),
		zap.Int64("quantity", entry.Quantity),
		zap.Int64("stockAfter", entry.StockAfter))
	return entry, nil
}

func (s *Service) GetStockHistory(ctx context.Context, storeID, variantID string, p Page) ([]Entry, int, error) {
	return s.Store.History(ctx, storeID, variantID, p)
}

func (s *Service) GetStockHistoryByStore(ctx context.Context, storeID string, typ EntryType, p Page) ([]Entry, int, error) {
	if typ != "" && typ != TypeIn && typ != TypeOut {
		return nil, 0, apperr.Validation("type must be IN or OUT")
	}
	return s.Store.HistoryByStore(ctx, storeID, typ, p)
}

func (s *Service) GetStockJournalByID(ctx context.Context, id string) (*Entry, error) {
	e, err := s.Store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("Stock journal not found")
	}
	return e, nil
}

// MonthlySummary folds the store's journal entries in [from, to] into
// per-variant summaries and pages the result in memory.
func (s *Service) MonthlySummary(ctx context.Context, storeID string, from, to time.Time, p Page) ([]VariantSummary, int, error) {
	if !to.After(from) {
		return nil, 0, apperr.Validation("endDate must be after startDate")
	}
	entries, err := s.Store.EntriesInRange(ctx, storeID, from, to)
	if err != nil {
		return nil, 0, err
	}
	summary := Summarize(entries)
	total := len(summary)

	p = p.Normalize()
	start := (p.Page - 1) * p.Limit
	if start >= total {
		return []VariantSummary{}, total, nil
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return summary[start:end], total, nil
}
