package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/inventory"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/redisx"
)

type InventoryHandler struct {
	Inventory *inventory.Service
	Redis     *redis.Client
}

func (h *InventoryHandler) Register(r *chi.Mux) {
	// public: customers check stock before adding to cart
	r.Get("/inventory/check/{storeID}/{variantID}", h.check)

	r.Route("/inventory", func(r chi.Router) {
		r.Use(RequireAuth, RequireRoles(RoleSuperAdmin, RoleStoreAdmin))
		r.Get("/store/{storeID}", h.listByStore)
		r.With(RequireRoles(RoleSuperAdmin)).Get("/variant/{variantID}", h.listByVariant)
		r.Get("/detail/{storeID}/{variantID}", h.detail)
		r.Post("/reserve", h.reserve)
		r.Post("/release", h.release)
		r.Post("/initialize", h.initialize)
	})
}

func (h *InventoryHandler) check(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	variantID := chi.URLParam(r, "variantID")
	qty, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil || qty <= 0 {
		qty = 1
	}

	// short-lived cache; the reservation path always re-checks in the DB
	key := fmt.Sprintf(redisx.KeyStockAvail, storeID, variantID)
	if h.Redis != nil && qty == 1 {
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	avail, err := h.Inventory.CheckStockAvailability(r.Context(), storeID, variantID, qty)
	if err != nil {
		writeError(w, err)
		return
	}
	body := response{Success: true, Data: avail}
	if h.Redis != nil && qty == 1 {
		if b, err := json.Marshal(body); err == nil {
			_ = h.Redis.Set(r.Context(), key, b, redisx.TTLStockAvail).Err()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *InventoryHandler) listByStore(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if !IdentityFrom(r.Context()).CanAccessStore(storeID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := inventory.ListFilter{Search: q.Get("search"), Page: page, Limit: limit}
	recs, total, err := h.Inventory.ListByStore(r.Context(), storeID, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success:    true,
		Data:       recs,
		Pagination: newPagination(page, limit, total),
	})
}

func (h *InventoryHandler) listByVariant(w http.ResponseWriter, r *http.Request) {
	recs, sum, err := h.Inventory.ListByVariant(r.Context(), chi.URLParam(r, "variantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"inventories": recs,
		"summary":     sum,
	}})
}

func (h *InventoryHandler) detail(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if !IdentityFrom(r.Context()).CanAccessStore(storeID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	rec, err := h.Inventory.GetDetail(r.Context(), storeID, chi.URLParam(r, "variantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: rec})
}

type reserveReq struct {
	StoreID   string `json:"storeId"`
	VariantID string `json:"variantId"`
	Quantity  int64  `json:"quantity"`
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if !IdentityFrom(r.Context()).CanAccessStore(req.StoreID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	rec, err := h.Inventory.ReserveStock(r.Context(), req.StoreID, req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: rec, Message: "Stock reserved"})
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if !IdentityFrom(r.Context()).CanAccessStore(req.StoreID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	rec, err := h.Inventory.ReleaseReservedStock(r.Context(), req.StoreID, req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: rec, Message: "Stock released"})
}

type initializeReq struct {
	VariantID string `json:"variantId"`
}

func (h *InventoryHandler) initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	n, err := h.Inventory.InitializeInventoryForVariant(r.Context(), req.VariantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"variantId":         req.VariantID,
		"storesInitialized": n,
	}})
}
