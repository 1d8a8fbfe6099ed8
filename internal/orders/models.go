package orders

import "time"

type Order struct {
	ID                  string        `json:"id"`
	UserID              string        `json:"userId"`
	OrderNumber         string        `json:"orderNumber"`
	ShippingAddressID   string        `json:"shippingAddressId"`
	ShippingStoreID     string        `json:"shippingStoreId"`
	ShippingCourier     string        `json:"shippingCourier"`
	ShippingService     string        `json:"shippingService"`
	ShippingDescription string        `json:"shippingDescription"`
	ShippingEstimate    string        `json:"shippingEstimate"`
	ShippingFee         int64         `json:"shippingFee"`
	Subtotal            int64         `json:"subtotal"`
	Tax                 int64         `json:"tax"`
	TotalDiscount       int64         `json:"totalDiscount"`
	Total               int64         `json:"total"`
	PaymentMethod       string        `json:"paymentMethod"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	OrderStatus         Status        `json:"orderStatus"`
	AutoCancelAt        time.Time     `json:"autoCancelAt"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// Item is an immutable snapshot of a cart line at order-creation time, so
// historical orders stay accurate when catalog data changes later.
type Item struct {
	ID               string `json:"id"`
	OrderID          string `json:"orderId"`
	ProductVariantID string `json:"productVariantId"`
	SKU              string `json:"sku"`
	ProductName      string `json:"productName"`
	VariantName      string `json:"variantName"`
	Price            int64  `json:"price"`
	Quantity         int64  `json:"quantity"`
	Subtotal         int64  `json:"subtotal"`
	Discount         int64  `json:"discount"`
	Total            int64  `json:"total"`
}

type History struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	FromStatus *Status   `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Note       string    `json:"note"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Payment struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"orderId"`
	Method    string        `json:"method"`
	Status    PaymentStatus `json:"status"`
	Amount    int64         `json:"amount"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Cart struct {
	ID      string
	UserID  string
	StoreID string
	Lines   []CartLine
}

type CartLine struct {
	ProductVariantID string
	SKU              string
	ProductName      string
	VariantName      string
	PriceAtAdd       int64
	Quantity         int64
	VariantActive    bool
}

// VariantInfo is the catalog lookup used by the single-item order path.
type VariantInfo struct {
	ID          string
	SKU         string
	Name        string
	ProductName string
	Price       int64
	Active      bool
}

type OrderDetail struct {
	Order
	Items   []Item    `json:"items"`
	Payment *Payment  `json:"payment,omitempty"`
	History []History `json:"history,omitempty"`
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
		p.Limit = 10
	}
	return p
}
