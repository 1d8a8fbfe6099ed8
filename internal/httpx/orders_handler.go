package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/FadilRifaldy/Final-Project-Backend/internal/kafka"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/orders"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/redisx"
)

type OrdersHandler struct {
	Orders   *orders.Service
	Redis    *redis.Client
	Producer *kafkax.Producer
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/checkout/create-order", h.createOrder)
		r.Post("/orders", h.createSingleItem)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	userID := IdentityFrom(r.Context()).UserID

	o, err := h.Orders.CreateFromCart(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.afterCreate(r, o)
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "Order created successfully",
		Data:    map[string]string{"orderId": o.ID, "orderNumber": o.OrderNumber},
	})
}

func (h *OrdersHandler) createSingleItem(w http.ResponseWriter, r *http.Request) {
	var in orders.SingleItemInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	userID := IdentityFrom(r.Context()).UserID

	o, err := h.Orders.CreateSingleItem(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.afterCreate(r, o)
	writeJSON(w, http.StatusCreated, response{
		Success: true,
		Message: "Order created successfully",
		Data:    map[string]string{"orderId": o.ID, "orderNumber": o.OrderNumber},
	})
}

// afterCreate caches the fresh status and publishes OrderCreated. Both are
// best-effort: the order is already committed.
func (h *OrdersHandler) afterCreate(r *http.Request, o *orders.Order) {
	ctx := r.Context()
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		_ = h.Redis.Set(ctx, key, `{"status":"PENDING_PAYMENT"}`, redisx.TTLStatusCache).Err()
	}
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
	}
	ev.Payload = kafkax.MustMarshal(orders.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		StoreID:     o.ShippingStoreID,
		Total:       o.Total,
	})
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	status := orders.Status(q.Get("status"))
	userID := IdentityFrom(r.Context()).UserID

	list, total, err := h.Orders.GetUserOrders(r.Context(), userID, status, orders.Page{Page: page, Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success:    true,
		Data:       list,
		Pagination: newPagination(page, limit, total),
	})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID := IdentityFrom(r.Context()).UserID
	d, err := h.Orders.GetOrderDetail(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: d})
}
