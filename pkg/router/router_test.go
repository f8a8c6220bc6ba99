package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func tagging(tag string) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupsComposePrefixesAndMiddleware(t *testing.T) {
	r := router.New()
	api := r.Group("/api", tagging("api"))
	admin := api.Group("admin", tagging("admin"))
	admin.Put("/orders/{id}/status", "admin.orders.status", ok, tagging("route"))
	api.Delete("/cart", "cart.clear", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/orders/3/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"api", "admin", "route"}, rec.Header().Values("X-Chain"))

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cart", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNamedRouteURL(t *testing.T) {
	r := router.New()
	r.Get("/api/products/{id}", "products.show", ok)

	u, err := r.URL("products.show", map[string]string{"id": "12"})
	require.NoError(t, err)
	assert.Equal(t, "/api/products/12", u)

	_, err = r.URL("products.show", nil)
	assert.Error(t, err)
	_, err = r.URL("nope", nil)
	assert.Error(t, err)
}

func TestRoutesAreSorted(t *testing.T) {
	r := router.New()
	r.Post("/b", "b.store", ok)
	r.Get("/b", "b.index", ok)
	r.Get("/a", "a.index", ok)

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/a", routes[0].Path)
	assert.Equal(t, http.MethodGet, routes[1].Method)
	assert.Equal(t, "b.store", routes[2].Name)
}
