package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/session"
)

// Handler exposes checkout and order edit endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Checkout handles POST /api/v1/sessions/{id}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, _ := common.UserID(r.Context())
	o, err := h.service.Checkout(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, o)
}

// BeginEdit handles POST /api/v1/orders/{orderId}/edit.
func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, _ := common.UserID(r.Context())
	sess, err := h.service.BeginEdit(r.Context(), chi.URLParam(r, "orderId"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, sess.View())
}

// CommitEdit handles POST /api/v1/sessions/{id}/commit-edit.
func (h *Handler) CommitEdit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, _ := common.UserID(r.Context())
	res, err := h.service.CommitEdit(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, o)
}

// List handles GET /api/v1/orders?limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	orders, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, orders)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, ErrEditSession):
		common.JSONError(w, http.StatusConflict, "EDIT_SESSION", "session edits an existing order, use commit-edit", nil)
	case errors.Is(err, ErrConflict):
		common.JSONError(w, http.StatusConflict, "ORDER_CHANGED", "order changed since edit started", nil)
	default:
		session.WriteError(w, err)
	}
}
