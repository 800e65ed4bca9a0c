package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, NotFound("session not found", errors.New("missing")))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"session not found"}}`, rec.Body.String())
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("dial tcp: refused"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "refused")
}

func TestValidateReportsFields(t *testing.T) {
	type payload struct {
		MenuItemID string `validate:"required"`
		Quantity   int    `validate:"gte=1"`
	}
	err := Validate(payload{Quantity: 0})
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, map[string]string{"menuItemID": "required", "quantity": "gte"}, appErr.Details)

	require.NoError(t, Validate(payload{MenuItemID: "x", Quantity: 1}))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Qty int `json:"qty"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":2,"extra":true}`))
	require.Error(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":2}`))
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, 2, dst.Qty)
}

func TestDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, http.StatusCreated, map[string]string{"id": "abc"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "abc", body["data"]["id"])
}

func TestAuthContext(t *testing.T) {
	ctx := WithRole(WithUserID(context.Background(), "u-1"), "cashier")
	id, ok := UserID(ctx)
	require.True(t, ok)
	require.Equal(t, "u-1", id)
	role, ok := Role(ctx)
	require.True(t, ok)
	require.Equal(t, "cashier", role)

	_, ok = Role(context.Background())
	require.False(t, ok)
}
