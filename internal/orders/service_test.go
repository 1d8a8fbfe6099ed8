package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/inventory"
)

type stockRow struct {
	quantity int64
	reserved int64
}

// fakeOrderStore reproduces the transactional contract of the postgres
// repo: CreateOrder either applies every write (order, items, reservation
// increments, cart clear) or none of them, and CancelExpired flips an
// order at most once.
type fakeOrderStore struct {
	mu        sync.Mutex
	stock     map[string]*stockRow // variantID -> row, single store
	cart      *Cart
	addresses map[string]string // addressID -> userID
	variants  map[string]*VariantInfo
	orders    map[string]*Order
	items     map[string][]Item
	histories map[string][]History
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		stock:     make(map[string]*stockRow),
		addresses: make(map[string]string),
		variants:  make(map[string]*VariantInfo),
		orders:    make(map[string]*Order),
		items:     make(map[string][]Item),
		histories: make(map[string][]History),
	}
}

func (f *fakeOrderStore) CartForUser(_ context.Context, userID string) (*Cart, error) {
	if f.cart == nil || f.cart.UserID != userID {
		return nil, nil
	}
	cp := *f.cart
	return &cp, nil
}

func (f *fakeOrderStore) AddressBelongsToUser(_ context.Context, addressID, userID string) (bool, error) {
	return f.addresses[addressID] == userID, nil
}

func (f *fakeOrderStore) VariantForPurchase(_ context.Context, variantID string) (*VariantInfo, error) {
	v, ok := f.variants[variantID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, o *Order, items []Item, cartID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// stage reservation increments; commit only if every line fits
	staged := make(map[string]int64)
	for _, it := range items {
		staged[it.ProductVariantID] += it.Quantity
	}
	for variantID, qty := range staged {
		row, ok := f.stock[variantID]
		if !ok {
			return apperr.InsufficientStock(0, qty)
		}
		if row.quantity-row.reserved < qty {
			return apperr.InsufficientStock(row.quantity-row.reserved, qty)
		}
	}
	for variantID, qty := range staged {
		f.stock[variantID].reserved += qty
	}

	cp := *o
	f.orders[o.ID] = &cp
	f.items[o.ID] = append([]Item(nil), items...)
	from := (*Status)(nil)
	f.histories[o.ID] = []History{{OrderID: o.ID, FromStatus: from, ToStatus: StatusPendingPayment, Note: "Order created", CreatedBy: o.UserID}}
	if cartID != "" && f.cart != nil && f.cart.ID == cartID {
		f.cart.Lines = nil
	}
	return nil
}

func (f *fakeOrderStore) UserOrders(_ context.Context, userID string, status Status, _ Page) ([]Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID && (status == "" || o.OrderStatus == status) {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (f *fakeOrderStore) OrderByID(_ context.Context, id string) (*OrderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	return &OrderDetail{
		Order:   *o,
		Items:   append([]Item(nil), f.items[id]...),
		History: append([]History(nil), f.histories[id]...),
	}, nil
}

func (f *fakeOrderStore) ExpiredPending(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, o := range f.orders {
		if o.OrderStatus == StatusPendingPayment && o.PaymentStatus == PaymentUnpaid && !o.AutoCancelAt.After(cutoff) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (f *fakeOrderStore) CancelExpired(_ context.Context, orderID string, cutoff time.Time) (*CancelResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || o.OrderStatus != StatusPendingPayment || o.PaymentStatus != PaymentUnpaid || o.AutoCancelAt.After(cutoff) {
		return nil, nil
	}
	var items []ItemQty
	for _, it := range f.items[orderID] {
		items = append(items, ItemQty{ProductVariantID: it.ProductVariantID, Qty: it.Quantity})
	}
	for _, it := range items {
		row := f.stock[it.ProductVariantID]
		if row == nil || row.reserved < it.Qty {
			return nil, apperr.Conflict("release of %d exceeds reserved stock for variant %s", it.Qty, it.ProductVariantID)
		}
	}
	for _, it := range items {
		f.stock[it.ProductVariantID].reserved -= it.Qty
	}
	o.OrderStatus = StatusCancelled
	from := StatusPendingPayment
	f.histories[orderID] = append(f.histories[orderID], History{
		OrderID: orderID, FromStatus: &from, ToStatus: StatusCancelled,
		Note: "Auto-cancelled: payment window expired", CreatedBy: "system",
	})
	return &CancelResult{Order: *o, Items: items}, nil
}

// fakeChecker answers availability from the same stock map the store
// commits against.
type fakeChecker struct{ store *fakeOrderStore }

func (c *fakeChecker) CheckStockAvailability(_ context.Context, _, variantID string, requested int64) (inventory.Availability, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	row, ok := c.store.stock[variantID]
	if !ok {
		return inventory.Availability{Available: false, Reason: "Product not available in this store"}, nil
	}
	if row.quantity-row.reserved < requested {
		return inventory.Availability{
			Available: false,
			Reason:    apperr.InsufficientStock(row.quantity-row.reserved, requested).Error(),
		}, nil
	}
	return inventory.Availability{Available: true, Reason: "Stock available"}, nil
}

func newOrderService(fs *fakeOrderStore) *Service {
	return &Service{Store: fs, Inventory: &fakeChecker{store: fs}, Log: zap.NewNop()}
}

func seededStore() *fakeOrderStore {
	fs := newFakeOrderStore()
	fs.stock["v1"] = &stockRow{quantity: 10}
	fs.stock["v2"] = &stockRow{quantity: 3}
	fs.addresses["addr-1"] = "user-1"
	fs.variants["v1"] = &VariantInfo{ID: "v1", SKU: "SKU-1", Name: "5kg", ProductName: "Rice", Price: 50000, Active: true}
	fs.cart = &Cart{
		ID:      "cart-1",
		UserID:  "user-1",
		StoreID: "store-1",
		Lines: []CartLine{
			{ProductVariantID: "v1", SKU: "SKU-1", ProductName: "Rice", VariantName: "5kg", PriceAtAdd: 50000, Quantity: 2, VariantActive: true},
			{ProductVariantID: "v2", SKU: "SKU-2", ProductName: "Milk", VariantName: "1L", PriceAtAdd: 15000, Quantity: 3, VariantActive: true},
		},
	}
	return fs
}

func validCheckout() CheckoutInput {
	return CheckoutInput{
		AddressID:       "addr-1",
		ShippingCourier: "JNE",
		ShippingService: "REG",
		ShippingFee:     12000,
		PaymentMethod:   "MANUAL_TRANSFER",
	}
}

func TestCreateFromCart(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	before := time.Now()
	o, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)

	assert.EqualValues(t, 2*50000+3*15000, o.Subtotal)
	assert.EqualValues(t, o.Subtotal+12000, o.Total)
	assert.Equal(t, StatusPendingPayment, o.OrderStatus)
	assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
	assert.WithinDuration(t, before.Add(AutoCancelWindow), o.AutoCancelAt, 2*time.Second)

	// reservations committed with the order
	assert.EqualValues(t, 2, fs.stock["v1"].reserved)
	assert.EqualValues(t, 3, fs.stock["v2"].reserved)

	// cart cleared
	assert.Empty(t, fs.cart.Lines)

	// item snapshots carry catalog data as of order time
	d, err := svc.GetOrderDetail(ctx, "user-1", o.ID)
	require.NoError(t, err)
	require.Len(t, d.Items, 2)
	assert.Equal(t, "Rice", d.Items[0].ProductName)
	assert.EqualValues(t, 50000, d.Items[0].Price)
	require.Len(t, d.History, 1)
	assert.Nil(t, d.History[0].FromStatus)
	assert.Equal(t, StatusPendingPayment, d.History[0].ToStatus)
}

func TestCreateFromCartValidations(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*fakeOrderStore, *CheckoutInput)
		wantMsg string
	}{
		{"missing address", func(_ *fakeOrderStore, in *CheckoutInput) { in.AddressID = "" }, "Shipping address is required"},
		{"missing courier", func(_ *fakeOrderStore, in *CheckoutInput) { in.ShippingCourier = "" }, "Shipping method is required"},
		{"zero fee", func(_ *fakeOrderStore, in *CheckoutInput) { in.ShippingFee = 0 }, "Shipping method is required"},
		{"missing payment", func(_ *fakeOrderStore, in *CheckoutInput) { in.PaymentMethod = "" }, "Payment method is required"},
		{"empty cart", func(fs *fakeOrderStore, _ *CheckoutInput) { fs.cart.Lines = nil }, "Cart is empty"},
		{"no cart", func(fs *fakeOrderStore, _ *CheckoutInput) { fs.cart = nil }, "Cart is empty"},
		{"foreign address", func(fs *fakeOrderStore, _ *CheckoutInput) { fs.addresses["addr-1"] = "someone-else" }, "Invalid address"},
		{"inactive variant", func(fs *fakeOrderStore, _ *CheckoutInput) { fs.cart.Lines[0].VariantActive = false }, "5kg is no longer available"},
		{"insufficient line", func(fs *fakeOrderStore, _ *CheckoutInput) { fs.stock["v2"].quantity = 1 }, "Insufficient stock for 1L"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := seededStore()
			svc := newOrderService(fs)
			in := validCheckout()
			tc.mutate(fs, &in)

			_, err := svc.CreateFromCart(ctx, "user-1", in)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
			assert.Equal(t, tc.wantMsg, err.Error())

			// nothing persisted, nothing reserved
			assert.Empty(t, fs.orders)
			for _, row := range fs.stock {
				assert.Zero(t, row.reserved)
			}
		})
	}
}

func TestCreateFromCartAllOrNothing(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	// pass the pre-check, then lose the race inside the transaction
	fs.stock["v2"].reserved = 1
	fs.cart.Lines[1].Quantity = 3 // only 2 still unreserved

	_, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.Error(t, err)
	// pre-check catches it; now force the in-transaction path
	fs = seededStore()
	svc = newOrderService(fs)
	checker := svc.Inventory.(*fakeChecker)
	svc.Inventory = availabilityAlwaysYes{checker}
	fs.stock["v2"].quantity = 2

	_, err = svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.Error(t, err)
	assert.True(t, apperr.IsInsufficientStock(err))

	// the first line must not stay reserved after the second line failed
	assert.Zero(t, fs.stock["v1"].reserved)
	assert.Zero(t, fs.stock["v2"].reserved)
	assert.Empty(t, fs.orders)
	assert.NotEmpty(t, fs.cart.Lines)
}

// availabilityAlwaysYes simulates the stale pre-check read that the
// transaction's conditional update must catch.
type availabilityAlwaysYes struct{ inner *fakeChecker }

func (availabilityAlwaysYes) CheckStockAvailability(context.Context, string, string, int64) (inventory.Availability, error) {
	return inventory.Availability{Available: true, Reason: "Stock available"}, nil
}

func TestCreateSingleItem(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	o, err := svc.CreateSingleItem(ctx, "user-1", SingleItemInput{
		ProductVariantID: "v1", Quantity: 2, AddressID: "addr-1", StoreID: "store-1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 100000, o.Subtotal)
	assert.EqualValues(t, 100000+DefaultShippingFee, o.Total)
	assert.Equal(t, "MANUAL_TRANSFER", o.PaymentMethod)
	assert.EqualValues(t, 2, fs.stock["v1"].reserved)

	_, err = svc.CreateSingleItem(ctx, "user-1", SingleItemInput{
		ProductVariantID: "v1", Quantity: 0, AddressID: "addr-1", StoreID: "store-1",
	})
	require.Error(t, err)
	assert.Equal(t, "Missing required fields", err.Error())

	_, err = svc.CreateSingleItem(ctx, "user-1", SingleItemInput{
		ProductVariantID: "ghost", Quantity: 1, AddressID: "addr-1", StoreID: "store-1",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "Product variant not found", err.Error())

	fs.variants["v1"].Active = false
	_, err = svc.CreateSingleItem(ctx, "user-1", SingleItemInput{
		ProductVariantID: "v1", Quantity: 1, AddressID: "addr-1", StoreID: "store-1",
	})
	require.Error(t, err)
	assert.Equal(t, "5kg is no longer available", err.Error())
}

func TestGetUserOrders(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	_, _, err := svc.GetUserOrders(ctx, "user-1", "WAT", Page{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	o, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)

	list, total, err := svc.GetUserOrders(ctx, "user-1", StatusPendingPayment, Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, o.ID, list[0].ID)

	list, total, err = svc.GetUserOrders(ctx, "user-1", StatusDelivered, Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestGetOrderDetailOwnership(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	o, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)

	// another user's probe gets the same answer as a missing order
	_, err = svc.GetOrderDetail(ctx, "user-2", o.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "Order not found", err.Error())

	_, err = svc.GetOrderDetail(ctx, "user-1", "ghost")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	o, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)
	assert.EqualValues(t, 2, fs.stock["v1"].reserved)

	sw := &Sweeper{Store: fs, Log: zap.NewNop()}

	// before the deadline nothing happens
	n, err := sw.SweepOnce(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	cutoff := o.AutoCancelAt.Add(time.Minute)
	n, err = sw.SweepOnce(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d, err := fs.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, d.OrderStatus)
	assert.Zero(t, fs.stock["v1"].reserved)
	assert.Zero(t, fs.stock["v2"].reserved)
	require.Len(t, d.History, 2)
	assert.Equal(t, "Auto-cancelled: payment window expired", d.History[1].Note)
	assert.Equal(t, "system", d.History[1].CreatedBy)

	// a second sweep over the same window cancels nothing
	n, err = sw.SweepOnce(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepOnceSkipsPaidOrders(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	o, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)
	fs.orders[o.ID].PaymentStatus = PaymentPaid

	sw := &Sweeper{Store: fs, Log: zap.NewNop()}
	n, err := sw.SweepOnce(ctx, o.AutoCancelAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 2, fs.stock["v1"].reserved)
}

func TestSweepOnceContinuesPastConflicts(t *testing.T) {
	ctx := context.Background()
	fs := seededStore()
	svc := newOrderService(fs)

	o1, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)

	fs.cart = &Cart{
		ID: "cart-2", UserID: "user-1", StoreID: "store-1",
		Lines: []CartLine{{ProductVariantID: "v1", SKU: "SKU-1", ProductName: "Rice", VariantName: "5kg", PriceAtAdd: 50000, Quantity: 1, VariantActive: true}},
	}
	o2, err := svc.CreateFromCart(ctx, "user-1", validCheckout())
	require.NoError(t, err)

	// drift the counters so releasing o1 conflicts
	fs.stock["v2"].reserved = 0

	sw := &Sweeper{Store: fs, Log: zap.NewNop()}
	cutoff := o2.AutoCancelAt.Add(time.Minute)
	n, err := sw.SweepOnce(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	d1, _ := fs.OrderByID(ctx, o1.ID)
	d2, _ := fs.OrderByID(ctx, o2.ID)
	assert.Equal(t, StatusPendingPayment, d1.OrderStatus)
	assert.Equal(t, StatusCancelled, d2.OrderStatus)
}
