package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/handler"
	"stockroom/internal/middleware"
	"stockroom/internal/testutil/memstore"
	"stockroom/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type okPinger struct{}

func (okPinger) PingContext(ctx context.Context) error { return nil }

func newTestServer(t *testing.T, secret string) *echo.Echo {
	t.Helper()
	store := memstore.New()
	productUC := usecase.NewProductUsecase(store.Products(), store.Inventory(), store)
	orderUC := usecase.NewOrderUsecase(store)

	cfg := config.Config{
		CORSOrigins:    []string{"http://localhost:5173"},
		AdminJWTSecret: secret,
	}
	return New(cfg, Handlers{
		Health:       handler.NewHealthHandler(okPinger{}),
		Products:     handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Orders:       handler.NewOrderHandler(orderUC),
	})
}

func send(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNew_SetsRequestIDAndCORS(t *testing.T) {
	e := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rec := send(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestNew_BodyLimit(t *testing.T) {
	e := newTestServer(t, "")

	big := `{"name":"` + strings.Repeat("a", 2<<20) + `","sku":"X","price_cents":1}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(big))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := send(e, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), handler.CodePayloadTooLarge)
}

func TestNew_AdminGuardOnlyOnMutations(t *testing.T) {
	e := newTestServer(t, "s3cret")
	body := `{"name":"Desk","sku":"FURN-002","price_cents":100}`

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnauthorized, send(e, req).Code)

	tok, err := middleware.IssueAdminToken("s3cret", "ops", time.Minute, time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	assert.Equal(t, http.StatusCreated, send(e, req).Code)

	//読み取りと注文は認証なし
	assert.Equal(t, http.StatusOK, send(e, httptest.NewRequest(http.MethodGet, "/products", nil)).Code)
	req = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[{"product_id":1,"qty":1}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusConflict, send(e, req).Code)

	//未定義パスはguardを通らず404
	assert.Equal(t, http.StatusNotFound, send(e, httptest.NewRequest(http.MethodGet, "/products/1/nope", nil)).Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	e := newTestServer(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, e, "127.0.0.1:0", time.Second) }()

	require.Eventually(t, func() bool { return e.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
