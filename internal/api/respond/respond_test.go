package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/domain"
	apperror "stockflow/internal/errors"
	"stockflow/internal/pkg/logger"
)

func TestJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/inventory", nil)

	t.Run("sucesso", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(rec, req, logger.NewNop(), map[string]int{"n": 1}, nil, http.StatusCreated)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	})

	t.Run("erro de domínio", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(rec, req, logger.NewNop(), nil, apperror.NewInsufficientStockError("p1", "w1", 5, 2), http.StatusOK)

		assert.Equal(t, http.StatusConflict, rec.Code)
		var body domain.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "INSUFFICIENT_STOCK", body.Category)
		assert.Equal(t, http.StatusConflict, body.Code)
	})

	t.Run("erro não tipado", func(t *testing.T) {
		rec := httptest.NewRecorder()
		JSON(rec, req, logger.NewNop(), nil, errors.New("boom"), http.StatusOK)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNKNOWN_ERROR")
	})
}

func TestDecode(t *testing.T) {
	var dst struct {
		Quantity int `json:"quantity"`
	}
	ok := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3}`))
	require.NoError(t, Decode(ok, &dst))
	assert.Equal(t, 3, dst.Quantity)

	unknown := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"qty":3}`))
	assert.True(t, apperror.IsValidation(Decode(unknown, &dst)))
}

func TestDecodeOptional_EmptyBody(t *testing.T) {
	var dst struct {
		Received map[string]int `json:"received"`
	}
	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, DecodeOptional(empty, &dst))
	assert.Nil(t, dst.Received)

	broken := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"received":`))
	assert.True(t, apperror.IsValidation(DecodeOptional(broken, &dst)))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20&bad=x", nil)

	n, err := QueryInt(req, "limit", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = QueryInt(req, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = QueryInt(req, "bad", 0)
	assert.True(t, apperror.IsValidation(err))
}
