package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/inventory"
)

// Unpaid orders auto-expire one hour after creation.
const AutoCancelWindow = time.Hour

// Flat-rate defaults for the single-item order path.
const (
	DefaultShippingFee         = 10000
	defaultShippingCourier     = "JNE"
	defaultShippingService     = "REG"
	defaultShippingDescription = "Regular service"
	defaultShippingEstimate    = "2-3 days"
)

// AvailabilityChecker is the pre-checkout read against current stock; the
// race-safe re-check happens inside the transaction.
type AvailabilityChecker interface {
	CheckStockAvailability(ctx context.Context, storeID, variantID string, requested int64) (inventory.Availability, error)
}

type Service struct {
	Store     Store
	Inventory AvailabilityChecker
	Log       *zap.Logger
}

type CheckoutInput struct {
	AddressID           string `json:"addressId"`
	ShippingCourier     string `json:"shippingCourier"`
	ShippingService     string `json:"shippingService"`
	ShippingDescription string `json:"shippingDescription"`
	ShippingEstimate    string `json:"shippingEstimate"`
	ShippingFee         int64  `json:"shippingFee"`
	PaymentMethod       string `json:"paymentMethod"`
}

type SingleItemInput struct {
	ProductVariantID string `json:"productVariantId"`
	Quantity         int64  `json:"quantity"`
	AddressID        string `json:"addressId"`
	StoreID          string `json:"storeId"`
}

// CreateFromCart converts the user's cart into an order. All
// preconditions fail fast before the transaction opens; the transaction
// itself is all-or-nothing including the reservation increments.
func (s *Service) CreateFromCart(ctx context.Context, userID string, in CheckoutInput) (*Order, error) {
	if in.AddressID == "" {
		return nil, apperr.Validation("Shipping address is required")
	}
	if in.ShippingCourier == "" || in.ShippingService == "" || in.ShippingFee <= 0 {
		return nil, apperr.Validation("Shipping method is required")
	}
	if in.PaymentMethod == "" {
		return nil, apperr.Validation("Payment method is required")
	}

	cart, err := s.Store.CartForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Lines) == 0 {
		return nil, apperr.Validation("Cart is empty")
	}

	ok, err := s.Store.AddressBelongsToUser(ctx, in.AddressID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("Invalid address")
	}

	var subtotal int64
	for _, line := range cart.Lines {
		if !line.VariantActive {
			return nil, apperr.Validation("%s is no longer available", line.VariantName)
		}
		avail, err := s.Inventory.CheckStockAvailability(ctx, cart.StoreID, line.ProductVariantID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if !avail.Available {
			return nil, apperr.Validation("Insufficient stock for %s", line.VariantName)
		}
		subtotal += line.PriceAtAdd * line.Quantity
	}

	now := time.Now()
	o := &Order{
		ID:                  uuid.NewString(),
		UserID:              userID,
		OrderNumber:         NewOrderNumber(now),
		ShippingAddressID:   in.AddressID,
		ShippingStoreID:     cart.StoreID,
		ShippingCourier:     in.ShippingCourier,
		ShippingService:     in.ShippingService,
		ShippingDescription: in.ShippingDescription,
		ShippingEstimate:    in.ShippingEstimate,
		ShippingFee:         in.ShippingFee,
		Subtotal:            subtotal,
		Total:               subtotal + in.ShippingFee,
		PaymentMethod:       in.PaymentMethod,
		PaymentStatus:       PaymentUnpaid,
		OrderStatus:         StatusPendingPayment,
		AutoCancelAt:        now.Add(AutoCancelWindow),
	}

	items := make([]Item, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lineTotal := line.PriceAtAdd * line.Quantity
		items = append(items, Item{
			ID:               uuid.NewString(),
			ProductVariantID: line.ProductVariantID,
			SKU:              line.SKU,
			ProductName:      line.ProductName,
			VariantName:      line.VariantName,
			Price:            line.PriceAtAdd,
			Quantity:         line.Quantity,
			Subtotal:         lineTotal,
			Total:            lineTotal,
		})
	}

	if err := s.Store.CreateOrder(ctx, o, items, cart.ID); err != nil {
		return nil, err
	}
	s.Log.Info("order created",
		zap.String("orderId", o.ID),
		zap.String("orderNumber", o.OrderNumber),
		zap.String("userId", userID),
		zap.String("storeId", o.ShippingStoreID),
		zap.Int64("total", o.Total),
		zap.Int("items", len(items)))
	return o, nil
}

// CreateSingleItem is the simple direct-purchase path: one variant, flat
// shipping, same transaction semantics as checkout.
func (s *Service) CreateSingleItem(ctx context.Context, userID string, in SingleItemInput) (*Order, error) {
	if in.ProductVariantID == "" || in.Quantity <= 0 || in.AddressID == "" || in.StoreID == "" {
		return nil, apperr.Validation("Missing required fields")
	}

	variant, err := s.Store.VariantForPurchase(ctx, in.ProductVariantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, apperr.NotFound("Product variant not found")
	}
	if !variant.Active {
		return nil, apperr.Validation("%s is no longer available", variant.Name)
	}

	avail, err := s.Inventory.CheckStockAvailability(ctx, in.StoreID, in.ProductVariantID, in.Quantity)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return nil, apperr.Validation("Insufficient stock")
	}

	ok, err := s.Store.AddressBelongsToUser(ctx, in.AddressID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Address not found")
	}

	now := time.Now()
	subtotal := variant.Price * in.Quantity
	o := &Order{
		ID:                  uuid.NewString(),
		UserID:              userID,
		OrderNumber:         NewOrderNumber(now),
		ShippingAddressID:   in.AddressID,
		ShippingStoreID:     in.StoreID,
		ShippingCourier:     defaultShippingCourier,
		ShippingService:     defaultShippingService,
		ShippingDescription: defaultShippingDescription,
		ShippingEstimate:    defaultShippingEstimate,
		ShippingFee:         DefaultShippingFee,
		Subtotal:            subtotal,
		Total:               subtotal + DefaultShippingFee,
		PaymentMethod:       "MANUAL_TRANSFER",
		PaymentStatus:       PaymentUnpaid,
		OrderStatus:         StatusPendingPayment,
		AutoCancelAt:        now.Add(AutoCancelWindow),
	}
	items := []Item{{
		ID:               uuid.NewString(),
		ProductVariantID: variant.ID,
		SKU:              variant.SKU,
		ProductName:      variant.ProductName,
		VariantName:      variant.Name,
		Price:            variant.Price,
		Quantity:         in.Quantity,
		Subtotal:         subtotal,
		Total:            subtotal,
	}}

	if err := s.Store.CreateOrder(ctx, o, items, ""); err != nil {
		return nil, err
	}
	s.Log.Info("order created",
		zap.String("orderId", o.ID),
		zap.String("orderNumber", o.OrderNumber),
		zap.String("userId", userID),
		zap.Int64("total", o.Total))
	return o, nil
}

func (s *Service) GetUserOrders(ctx context.Context, userID string, status Status, p Page) ([]Order, int, error) {
	if status != "" && !isKnownStatus(status) {
		return nil, 0, apperr.Validation("unknown order status %q", status)
	}
	return s.Store.UserOrders(ctx, userID, status, p)
}

func (s *Service) GetOrderDetail(ctx context.Context, userID, orderID string) (*OrderDetail, error) {
	d, err := s.Store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.UserID != userID {
		return nil, apperr.NotFound("Order not found")
	}
	return d, nil
}

func isKnownStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
