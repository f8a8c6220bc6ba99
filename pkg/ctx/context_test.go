package ctx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/apperr"
	"github.com/artisanmart/storefront/pkg/auth"
	appctx "github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/response"
)

func serve(t *testing.T, req *http.Request, h appctx.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestOKWritesEnvelope(t *testing.T) {
	rec, body := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.OK("Fetched", response.Payload{"count": 2})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])
}

func TestParamID(t *testing.T) {
	r := chi.NewRouter()
	var got uint
	r.Get("/products/{id}", appctx.Wrap(func(c *appctx.Context) {
		id, ok := c.ParamID("id")
		if !ok {
			return
		}
		got = id
		c.OK("", nil)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/17", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 17, got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBindJSON(t *testing.T) {
	type input struct {
		Name  string `json:"name"  validate:"required"`
		Email string `json:"email" validate:"required,email"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana","email":"ana@example.com"}`))
	rec, _ := serve(t, req, func(c *appctx.Context) {
		var in input
		if c.BindJSON(&in) {
			c.Created("ok", response.Payload{"name": in.Name})
		}
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	rec, body := serve(t, req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["errors"], "name")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	rec, _ = serve(t, req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailMapsKinds(t *testing.T) {
	rec, body := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Fail(apperr.NotFound("orders.show", "Order not found", nil))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", body["message"])
}

func TestUserIDFromClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: 5}))
	serve(t, req, func(c *appctx.Context) {
		assert.EqualValues(t, 5, c.UserID())
		c.OK("", nil)
	})
}

func TestAttachment(t *testing.T) {
	rec, _ := serve(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Attachment("products.csv", "text/csv", []byte("a,b\n"))
	})
	assert.Equal(t, "a,b\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "products.csv")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	serve(t, req, func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
		c.OK("", nil)
	})
}
