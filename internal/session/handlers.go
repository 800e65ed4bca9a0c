package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler exposes session endpoints to the tablets.
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

type openRequest struct {
	VATRate *decimal.Decimal `json:"vatRate"`
}

type addItemRequest struct {
	MenuItemID string `json:"menuItemId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gte=0,lte=999"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type reconcileRequest struct {
	PreviousTotal decimal.Decimal `json:"previousTotal"`
	CurrentTotal  decimal.Decimal `json:"currentTotal"`
}

// Open handles POST /api/v1/sessions.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req openRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	userID, _ := common.UserID(r.Context())
	sess, err := h.service.Open(r.Context(), userID, req.VATRate)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, sess.View())
}

// Get handles GET /api/v1/sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sess, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

// Discard handles DELETE /api/v1/sessions/{id}.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.service.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/v1/sessions/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req addItemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sess, lineID, err := h.service.AddItem(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.MenuItemID), req.Quantity)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": sess.View(),
		"meta": map[string]string{"lineId": lineID},
	})
}

// Increment handles POST /api/v1/sessions/{id}/lines/{lineId}/increment.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.service.Increment)
}

// Decrement handles POST /api/v1/sessions/{id}/lines/{lineId}/decrement.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.service.Decrement)
}

// Remove handles DELETE /api/v1/sessions/{id}/lines/{lineId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.lineOp(w, r, h.service.Remove)
}

// SetQuantity handles PUT /api/v1/sessions/{id}/lines/{lineId}/quantity.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req quantityRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.service.SetQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), *req.Quantity)
	h.respond(w, sess, err)
}

// SetCustomization handles PUT /api/v1/sessions/{id}/lines/{lineId}/customization.
func (h *Handler) SetCustomization(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req CustomizationInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.service.SetCustomization(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), req)
	h.respond(w, sess, err)
}

// Clear handles POST /api/v1/sessions/{id}/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sess, err := h.service.Clear(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

// Reconcile handles POST /api/v1/sessions/{id}/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rec, err := h.service.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rec)
}

// ReconcileTotals handles POST /api/v1/reconcile. It needs no session.
func ReconcileTotals(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, pricing.Reconcile(req.PreviousTotal, req.CurrentTotal))
}

func (h *Handler) lineOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) (*Session, error)) {
	if !h.ready(w) {
		return
	}
	sess, err := op(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"))
	h.respond(w, sess, err)
}

func (h *Handler) respond(w http.ResponseWriter, sess *Session, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sess.View())
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session service not configured", nil)
		return false
	}
	return true
}

// WriteError maps session and catalog errors onto the HTTP error envelope.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "menu item not found", nil)
	case errors.Is(err, catalog.ErrUnavailable):
		common.JSONError(w, http.StatusConflict, "UNAVAILABLE", "menu item unavailable", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotEditing):
		common.JSONError(w, http.StatusConflict, "NOT_EDITING", "session does not edit an order", nil)
	case errors.Is(err, lock.ErrBusy), errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusConflict, "SESSION_BUSY", "session is being modified, retry", nil)
	default:
		common.WriteError(w, err)
	}
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := common.DecodeJSON(r, dst); err != nil {
		return err
	}
	return common.Validate(dst)
}
