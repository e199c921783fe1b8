package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/memory"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filter service.ProductFilter) ([]entity.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

// unreliableSnapshots fails the next failLoads loads.
type unreliableSnapshots struct {
	*memory.SnapshotRepository

	mu        sync.Mutex
	failLoads int
}

func (u *unreliableSnapshots) Load(ctx context.Context, key string) ([]entity.LineItem, error) {
	u.mu.Lock()
	fail := u.failLoads > 0
	if fail {
		u.failLoads--
	}
	u.mu.Unlock()
	if fail {
		return nil, errors.New("i/o timeout")
	}
	return u.SnapshotRepository.Load(ctx, key)
}

type testEnv struct {
	router  http.Handler
	catalog *MockCatalogService
	repo    *memory.SnapshotRepository
	metrics *metrics.MetricsManager
	session string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := memory.NewSnapshotRepository()
	catalog := new(MockCatalogService)
	m := metrics.NewMetricsManager("cart_service")
	registry := service.NewCartRegistry(repo, logger.NewNop(), service.CartRegistryConfig{})
	handler := NewCartHandler(registry, catalog, logger.NewNop())

	return &testEnv{
		router:  NewRouter(handler, m),
		catalog: catalog,
		repo:    repo,
		metrics: m,
		session: uuid.NewString(),
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set(SessionHeader, e.session)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCartAPI_AddUpdateRemoveClear(t *testing.T) {
	env := newTestEnv(t)
	kurta := &entity.Product{ID: "k1", Name: "Kurta", Price: 100, Sizes: []string{"M", "L"}}
	saree := &entity.Product{ID: "s1", Name: "Saree", Price: 50}
	env.catalog.On("GetProduct", mock.Anything, "k1").Return(kurta, nil)
	env.catalog.On("GetProduct", mock.Anything, "s1").Return(saree, nil)

	rec := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"k1","size":"M","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"s1","size":"Free","quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Equal(t, 350.0, cart.Total)
	assert.Equal(t, 5, cart.Count)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 200.0, cart.Items[0].Subtotal)

	rec = env.do(t, http.MethodPatch, "/api/cart/items/k1/M", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeCart(t, rec).Items[0].Quantity)

	rec = env.do(t, http.MethodDelete, "/api/cart/items/s1/Free", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeCart(t, rec).Items, 1)

	rec = env.do(t, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.Count)

	raw, ok := env.repo.Raw("cart:" + env.session)
	require.True(t, ok)
	assert.Equal(t, "[]", string(raw))

	assert.Positive(t, testutil.CollectAndCount(env.metrics.HTTPRequestLatency))
}

func TestCartAPI_AddItemDefaultsQuantityAndMerges(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("GetProduct", mock.Anything, "k1").Return(&entity.Product{ID: "k1", Price: 10}, nil)

	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"k1","size":"M"}`)
	rec := env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"k1","size":"M","quantity":2}`)

	cart := decodeCart(t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCartAPI_AddItemErrors(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("GetProduct", mock.Anything, "k1").Return(&entity.Product{ID: "k1", Price: 10, Sizes: []string{"M"}}, nil)
	env.catalog.On("GetProduct", mock.Anything, "gone").Return(nil, repository.ErrNotFound)
	env.catalog.On("GetProduct", mock.Anything, "down").Return(nil, errors.New("catalog timeout"))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing product", `{"size":"M"}`, http.StatusBadRequest},
		{"unknown product", `{"productId":"gone","size":"M"}`, http.StatusNotFound},
		{"catalog failure", `{"productId":"down","size":"M"}`, http.StatusBadGateway},
		{"size not offered", `{"productId":"k1","size":"XXL"}`, http.StatusBadRequest},
		{"zero quantity", `{"productId":"k1","size":"M","quantity":0}`, http.StatusBadRequest},
		{"empty size", `{"productId":"k1","size":"","quantity":1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/cart/items", tt.body)

			assert.Equal(t, tt.code, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/cart", "")
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestCartAPI_UpdateRequiresQuantity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/cart/items/k1/M", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartAPI_RemoveAbsentItemIsNoOp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/cart/items/unknown/M", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestCartAPI_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("GetProduct", mock.Anything, "k1").Return(&entity.Product{ID: "k1", Price: 10}, nil)

	env.do(t, http.MethodPost, "/api/cart/items", `{"productId":"k1","size":"M"}`)

	other := *env
	other.session = uuid.NewString()
	rec := other.do(t, http.MethodGet, "/api/cart", "")

	assert.Empty(t, decodeCart(t, rec).Items)
	assert.Equal(t, other.session, rec.Header().Get(SessionHeader))
}

func TestSessionMiddleware_IssuesCookie(t *testing.T) {
	var seen string
	h := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: seen})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies(), "known session is reused")

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(SessionHeader, "../../etc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "../../etc", seen)
	assert.Len(t, rec.Result().Cookies(), 1, "malformed session ids are replaced")
}

func TestCatalogAPI_ListProducts(t *testing.T) {
	env := newTestEnv(t)
	filter := service.ProductFilter{Category: "women", Subcategory: "kurta", Search: "cotton"}
	env.catalog.On("ListProducts", mock.Anything, filter).
		Return([]entity.Product{{ID: "4", Name: "Anarkali"}}, nil).Once()

	rec := env.do(t, http.MethodGet, "/api/catalog/products?category=women&subcategory=kurta&q=cotton", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data  []entity.Product `json:"data"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Anarkali", resp.Data[0].Name)
	env.catalog.AssertExpectations(t)
}

func TestCatalogAPI_ListProductsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("ListProducts", mock.Anything, service.ProductFilter{}).Return(nil, errors.New("down")).Once()

	rec := env.do(t, http.MethodGet, "/api/catalog/products", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRouter_MetricsAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart_service_http_request_latency_seconds")
}

func TestCartAPI_UnreadableCartIsUnavailable(t *testing.T) {
	repo := &unreliableSnapshots{SnapshotRepository: memory.NewSnapshotRepository(), failLoads: 1}
	session := uuid.NewString()
	require.NoError(t, repo.Save(context.Background(), "cart:"+session,
		[]entity.LineItem{{Product: &entity.Product{ID: "k1", Price: 100}, Size: "M", Quantity: 4}}))

	catalog := new(MockCatalogService)
	registry := service.NewCartRegistry(repo, logger.NewNop(), service.CartRegistryConfig{})
	env := &testEnv{
		router:  NewRouter(NewCartHandler(registry, catalog, logger.NewNop()), metrics.NewMetricsManager("cart_service")),
		catalog: catalog,
		repo:    repo.SnapshotRepository,
		session: session,
	}

	rec := env.do(t, http.MethodDelete, "/api/cart", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Equal(t, 4, cart.Count)
	assert.Equal(t, 400.0, cart.Total)
}
