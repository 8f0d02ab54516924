package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/token"
)

type MockCacheClient struct {
	mock.Mock
}

func (m *MockCacheClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheClient) GetFloat(ctx context.Context, key string) (float64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockCacheClient) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheClient) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.Called(ctx, key, expiration).Error(0)
}

func (m *MockCacheClient) Close() error { return nil }

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(ActorFromContext(r.Context())))
}

func TestAuthMiddleware(t *testing.T) {
	tokens := token.NewService("segredo", time.Hour)
	auth := NewAuthMiddleware(tokens)
	handler := auth(PermissionMiddleware(domain.RoleOperator, domain.RoleAdmin)(okHandler))

	operator, err := tokens.GenerateToken("ana", "operator")
	require.NoError(t, err)
	svc, err := tokens.GenerateToken("checkout", "service")
	require.NoError(t, err)
	unknown, err := tokens.GenerateToken("x", "root")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"sem header", "", http.StatusUnauthorized, ""},
		{"malformado", "Token abc", http.StatusUnauthorized, ""},
		{"inválido", "Bearer abc", http.StatusUnauthorized, ""},
		{"papel desconhecido", "Bearer " + unknown, http.StatusUnauthorized, ""},
		{"papel sem permissão", "Bearer " + svc, http.StatusForbidden, ""},
		{"operador", "Bearer " + operator, http.StatusOK, "ana"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/inventory/adjust", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	client := new(MockCacheClient)
	key := "rate-limit:10.0.0.1"
	client.On("Incr", mock.Anything, key).Return(int64(1), nil).Once()
	client.On("Expire", mock.Anything, key, time.Minute).Return(nil).Once()
	client.On("Incr", mock.Anything, key).Return(int64(2), nil).Once()
	client.On("Incr", mock.Anything, key).Return(int64(3), nil).Once()

	handler := RateLimiter(client, 2, time.Minute, logger.NewNop())(http.HandlerFunc(okHandler))
	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/inventory", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, do().Code)
	third := do()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Contains(t, third.Body.String(), "RATE_LIMITED")
	client.AssertExpectations(t)
}

func TestRateLimiter_ExpireFailureDropsWindow(t *testing.T) {
	client := new(MockCacheClient)
	key := "rate-limit:10.0.0.2"
	client.On("Incr", mock.Anything, key).Return(int64(1), nil).Once()
	client.On("Expire", mock.Anything, key, time.Minute).Return(errors.New("timeout")).Once()
	client.On("Delete", mock.Anything, key).Return(nil).Once()

	handler := RateLimiter(client, 5, time.Minute, logger.NewNop())(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(http.MethodGet, "/v1/inventory", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRateLimiter_CacheDownLetsRequestThrough(t *testing.T) {
	client := new(MockCacheClient)
	client.On("Incr", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection refused"))

	handler := RateLimiter(client, 1, time.Minute, logger.NewNop())(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
