package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// =====================
// helper
// =====================

type mwErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func makeJWT(t *testing.T, secret string, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	var key interface{} = []byte(secret)
	if method == jwt.SigningMethodNone {
		key = jwt.UnsafeAllowNoneSignatureType
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newGuardedEcho(secret string) *echo.Echo {
	e := echo.New()
	e.POST("/products", func(c echo.Context) error {
		return c.String(http.StatusCreated, c.Get(CtxSubjectKey).(string))
	}, AdminGuards(secret)...)
	return e
}

func doRequest(e *echo.Echo, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) mwErrorResponse {
	t.Helper()
	var body mwErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// =====================
// tests
// =====================

func TestAdminGuards_ValidAdminToken(t *testing.T) {
	e := newGuardedEcho(testSecret)

	tok, err := IssueAdminToken(testSecret, "ops", time.Hour, time.Now())
	require.NoError(t, err)

	rec := doRequest(e, "Bearer "+tok)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ops", rec.Body.String())
}

func TestAdminGuards_Unauthorized(t *testing.T) {
	e := newGuardedEcho(testSecret)
	now := time.Now()

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"empty token":    "Bearer   ",
		"garbage":        "Bearer not-a-jwt",
		"wrong secret": "Bearer " + makeJWT(t, "other", jwt.MapClaims{
			"role": RoleAdmin, "exp": now.Add(time.Hour).Unix(),
		}, jwt.SigningMethodHS256),
		"expired": "Bearer " + makeJWT(t, testSecret, jwt.MapClaims{
			"role": RoleAdmin, "exp": now.Add(-time.Minute).Unix(),
		}, jwt.SigningMethodHS256),
		"no exp": "Bearer " + makeJWT(t, testSecret, jwt.MapClaims{
			"role": RoleAdmin,
		}, jwt.SigningMethodHS256),
		"no role": "Bearer " + makeJWT(t, testSecret, jwt.MapClaims{
			"exp": now.Add(time.Hour).Unix(),
		}, jwt.SigningMethodHS256),
		"alg none": "Bearer " + makeJWT(t, testSecret, jwt.MapClaims{
			"role": RoleAdmin, "exp": now.Add(time.Hour).Unix(),
		}, jwt.SigningMethodNone),
		"HS512": "Bearer " + makeJWT(t, testSecret, jwt.MapClaims{
			"role": RoleAdmin, "exp": now.Add(time.Hour).Unix(),
		}, jwt.SigningMethodHS512),
	}

	for name, authz := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(e, authz)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", decodeErr(t, rec).Code)
		})
	}
}

func TestAdminGuards_NonAdminForbidden(t *testing.T) {
	e := newGuardedEcho(testSecret)

	tok := makeJWT(t, testSecret, jwt.MapClaims{
		"sub": "someone", "role": "USER", "exp": time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256)

	rec := doRequest(e, "Bearer "+tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeErr(t, rec).Code)
}

func TestAdminGuards_DisabledWithoutSecret(t *testing.T) {
	assert.Empty(t, AdminGuards(""))

	e := echo.New()
	e.POST("/products", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, AdminGuards("")...)

	rec := doRequest(e, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestIssueAdminToken_EmptySecret(t *testing.T) {
	_, err := IssueAdminToken("", "ops", time.Hour, time.Now())
	assert.Error(t, err)
}

func TestRequestLogger_WritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/orders", func(c echo.Context) error {
		return c.NoContent(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders?x=1", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/orders?x=1", line["uri"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.Equal(t, "req-1", line["request_id"])
}
