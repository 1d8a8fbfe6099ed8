package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/FadilRifaldy/Final-Project-Backend/internal/kafka"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/orders"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/stockjournal"
)

type StockJournalHandler struct {
	Journal  *stockjournal.Service
	Producer *kafkax.Producer
	Service  string
}

func (h *StockJournalHandler) Register(r *chi.Mux) {
	r.Route("/stock-journal", func(r chi.Router) {
		r.Use(RequireAuth, RequireRoles(RoleSuperAdmin, RoleStoreAdmin))
		r.Post("/in", h.stockIn)
		r.Post("/out", h.stockOut)
		r.Get("/variant/{storeID}/{variantID}", h.history)
		r.Get("/store/{storeID}", h.historyByStore)
		r.Get("/report/monthly-summary", h.monthlySummary)
		r.Get("/{id}", h.byID)
	})
}

type mutationReq struct {
	StoreID          string `json:"storeId"`
	ProductVariantID string `json:"productVariantId"`
	Quantity         int64  `json:"quantity"`
	ReferenceNo      string `json:"referenceNo"`
	Reason           string `json:"reason"`
	Notes            string `json:"notes"`
}

func (h *StockJournalHandler) stockIn(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Journal.RecordStockIn, "Stock IN created successfully")
}

func (h *StockJournalHandler) stockOut(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.Journal.RecordStockOut, "Stock OUT created successfully")
}

func (h *StockJournalHandler) mutate(
	w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, in stockjournal.MutationInput) (*stockjournal.Entry, error),
	okMsg string,
) {
	var req mutationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	ident := IdentityFrom(r.Context())
	if !ident.CanAccessStore(req.StoreID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}

	entry, err := apply(r.Context(), stockjournal.MutationInput{
		StoreID:          req.StoreID,
		ProductVariantID: req.ProductVariantID,
		Quantity:         req.Quantity,
		ReferenceNo:      req.ReferenceNo,
		Reason:           req.Reason,
		Notes:            req.Notes,
		CreatedBy:        ident.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.publishMutated(r, entry)
	writeJSON(w, http.StatusCreated, response{Success: true, Data: entry, Message: okMsg})
}

func (h *StockJournalHandler) publishMutated(r *http.Request, e *stockjournal.Entry) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockMutated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: e.ID,
		Payload: kafkax.MustMarshal(orders.StockMutatedPayload{
			JournalID:        e.ID,
			StoreID:          e.StoreID,
			ProductVariantID: e.ProductVariantID,
			Type:             string(e.Type),
			Quantity:         e.Quantity,
			StockAfter:       e.StockAfter,
		}),
	}
	h.Producer.Publish([]byte(e.StoreID+":"+e.ProductVariantID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockMutated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *StockJournalHandler) history(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	variantID := chi.URLParam(r, "variantID")
	if !IdentityFrom(r.Context()).CanAccessStore(storeID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	p := pageFromQuery(r)
	entries, total, err := h.Journal.GetStockHistory(r.Context(), storeID, variantID, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success:    true,
		Data:       entries,
		Pagination: newPagination(p.Page, p.Limit, total),
		Message:    "Stock history retrieved successfully",
	})
}

func (h *StockJournalHandler) historyByStore(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if !IdentityFrom(r.Context()).CanAccessStore(storeID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	p := pageFromQuery(r)
	typ := stockjournal.EntryType(r.URL.Query().Get("type"))
	entries, total, err := h.Journal.GetStockHistoryByStore(r.Context(), storeID, typ, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success:    true,
		Data:       entries,
		Pagination: newPagination(p.Page, p.Limit, total),
		Message:    "Stock history retrieved successfully",
	})
}

func (h *StockJournalHandler) monthlySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storeID := q.Get("storeId")
	if storeID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("storeId is required"))
		return
	}
	if !IdentityFrom(r.Context()).CanAccessStore(storeID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	from, err1 := parseDate(q.Get("startDate"))
	to, err2 := parseDate(q.Get("endDate"))
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("startDate and endDate must be YYYY-MM-DD or RFC3339"))
		return
	}
	p := pageFromQuery(r)
	summary, total, err := h.Journal.MonthlySummary(r.Context(), storeID, from, to, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{
		Success:    true,
		Data:       summary,
		Pagination: newPagination(p.Page, p.Limit, total),
		Message:    "Monthly summary retrieved successfully",
	})
}

func (h *StockJournalHandler) byID(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Journal.GetStockJournalByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !IdentityFrom(r.Context()).CanAccessStore(entry.StoreID) {
		writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: entry})
}

func pageFromQuery(r *http.Request) stockjournal.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return stockjournal.Page{Page: page, Limit: limit}.Normalize()
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
