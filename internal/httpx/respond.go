package httpx

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/apperr"
)

type response struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func newPagination(page, limit, total int) *Pagination {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) response {
	return response{Success: false, Message: msg}
}

// writeError maps the error taxonomy onto status codes. Persistence
// failures surface as a generic 500 without internal detail.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsInsufficientStock(err), apperr.IsKind(err, apperr.KindValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case apperr.IsKind(err, apperr.KindNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case apperr.IsKind(err, apperr.KindConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal server error"))
	}
}
