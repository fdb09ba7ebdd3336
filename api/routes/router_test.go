package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/freshroute-backend/internal/orders"
	"github.com/angelmondragon/freshroute-backend/pkg/config"
	"github.com/angelmondragon/freshroute-backend/pkg/db/models"
	"github.com/angelmondragon/freshroute-backend/pkg/enums"
	"github.com/angelmondragon/freshroute-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type memoryStore struct{ data map[string]string }

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type stubOrders struct {
	orders.Service
	placed int
}

func (s *stubOrders) PlaceOrder(_ context.Context, input orders.PlaceOrderInput) (*models.Order, error) {
	s.placed++
	return &models.Order{ID: uuid.New(), BuyerID: input.BuyerID, Status: enums.OrderStatusPending}, nil
}

func newTestRouter(dbErr error, ordersSvc orders.Service) http.Handler {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg,
		stubPinger{err: dbErr}, stubPinger{},
		&memoryStore{data: map[string]string{}},
		prometheus.NewRegistry(),
		nil, nil, nil, nil, nil, ordersSvc, nil, nil,
	)
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(nil, nil)

	live := httptest.NewRecorder()
	router.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, live.Code)
	require.Equal(t, "test", live.Header().Get("X-FreshRoute-Env"))

	ready := httptest.NewRecorder()
	router.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, ready.Code)

	metrics := httptest.NewRecorder()
	router.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
}

func TestReadyFailsWhenDatabaseDown(t *testing.T) {
	router := newTestRouter(errors.New("connection refused"), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Contains(t, resp.Body.String(), "DEPENDENCY")
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	svc := &stubOrders{}
	router := newTestRouter(nil, svc)
	body := fmt.Sprintf(`{"buyer_id":"%s","record_ids":["%s"]}`, uuid.New(), uuid.New())

	missingKey := httptest.NewRecorder()
	router.ServeHTTP(missingKey, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, missingKey.Code)
	require.Zero(t, svc.placed)

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "order-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		if i == 0 {
			first = resp.Body.String()
		} else {
			require.Equal(t, first, resp.Body.String())
		}
	}
	require.Equal(t, 1, svc.placed)
}
