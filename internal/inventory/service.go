package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

const (
	reasonNotInStore     = "Product not available in this store"
	reasonStockAvailable = "Stock available"
)

type Service struct {
	Store Store
	Log   *zap.Logger
}

// CheckStockAvailability is a pure read used by cart validation and
// pre-checkout validation. It never mutates and is safe to call
// concurrently; the reservation path re-checks under its own guard.
func (s *Service) CheckStockAvailability(ctx context.Context, storeID, variantID string, requested int64) (Availability, error) {
	if requested <= 0 {
		return Availability{}, apperr.Validation("Quantity must be greater than 0")
	}
	rec, err := s.Store.Get(ctx, storeID, variantID)
	if err != nil {
		return Availability{}, err
	}
	if rec == nil {
		return Availability{Available: false, Reason: reasonNotInStore}, nil
	}
	if rec.Record.Available() < requested {
		return Availability{
			Available: false,
			Reason:    apperr.InsufficientStock(rec.Record.Available(), requested).Error(),
			Inventory: rec,
		}, nil
	}
	return Availability{Available: true, Reason: reasonStockAvailable, Inventory: rec}, nil
}

// ReserveStock earmarks stock for a pending order. The availability check
// and the increment are one conditional update in the store, so two
// concurrent reservations for the last unit cannot both succeed.
func (s *Service) ReserveStock(ctx context.Context, storeID, variantID string, qty int64) (*Record, error) {
	if qty <= 0 {
		return nil, apperr.Validation("Quantity must be greater than 0")
	}
	rec, err := s.Store.Reserve(ctx, storeID, variantID, qty)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		cur, err := s.Store.Get(ctx, storeID, variantID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, apperr.NotFound(reasonNotInStore)
		}
		return nil, apperr.InsufficientStock(cur.Record.Available(), qty)
	}
	s.Log.Info("stock reserved",
		zap.String("storeId", storeID),
		zap.String("variantId", variantID),
		zap.Int64("quantity", qty),
		zap.Int64("reserved", rec.Reserved))
	return rec, nil
}

// ReleaseReservedStock returns earmarked stock on cancellation/expiry.
// Releasing more than is reserved means the conservation invariant broke
// somewhere else, so it is rejected and logged rather than clamped.
func (s *Service) ReleaseReservedStock(ctx context.Context, storeID, variantID string, qty int64) (*Record, error) {
	if qty <= 0 {
		return nil, apperr.Validation("Quantity must be greater than 0")
	}
	rec, err := s.Store.Release(ctx, storeID, variantID, qty)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		cur, err := s.Store.Get(ctx, storeID, variantID)
		if err != nil {
			return nil, err
		}
		if cur == nil {
			return nil, apperr.NotFound(reasonNotInStore)
		}
		s.Log.Error("release exceeds reserved stock",
			zap.String("storeId", storeID),
			zap.String("variantId", variantID),
			zap.Int64("requested", qty),
			zap.Int64("reserved", cur.Reserved))
		return nil, apperr.Conflict("release of %d exceeds reserved stock %d", qty, cur.Reserved)
	}
	s.Log.Info("stock released",
		zap.String("storeId", storeID),
		zap.String("variantId", variantID),
		zap.Int64("quantity", qty),
		zap.Int64("reserved", rec.Reserved))
	return rec, nil
}

// InitializeInventoryForVariant upserts a zero row at every active store
// so each store has an addressable stock record. Idempotent: existing
// rows keep their quantities.
func (s *Service) InitializeInventoryForVariant(ctx context.Context, variantID string) (int, error) {
	if variantID == "" {
		return 0, apperr.Validation("variantId is required")
	}
	n, err := s.Store.InitializeForVariant(ctx, variantID)
	if err != nil {
		return 0, err
	}
	s.Log.Info("inventory initialized for variant",
		zap.String("variantId", variantID),
		zap.Int("storesInitialized", n))
	return n, nil
}

func (s *Service) ListByStore(ctx context.Context, storeID string, f ListFilter) ([]RecordDetail, int, error) {
	return s.Store.ListByStore(ctx, storeID, f)
}

func (s *Service) ListByVariant(ctx context.Context, variantID string) ([]RecordDetail, StoreSummary, error) {
	recs, err := s.Store.ListByVariant(ctx, variantID)
	if err != nil {
		return nil, StoreSummary{}, err
	}
	var sum StoreSummary
	sum.TotalStores = len(recs)
	for _, r := range recs {
		sum.TotalQuantity += r.Quantity
		sum.TotalReserved += r.Reserved
	}
	sum.TotalAvailable = sum.TotalQuantity - sum.TotalReserved
	return recs, sum, nil
}

func (s *Service) GetDetail(ctx context.Context, storeID, variantID string) (*RecordDetail, error) {
	rec, err := s.Store.Get(ctx, storeID, variantID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("Inventory not found")
	}
	return rec, nil
}
