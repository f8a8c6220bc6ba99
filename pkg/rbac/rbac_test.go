package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artisanmart/storefront/pkg/auth"
	"github.com/artisanmart/storefront/pkg/rbac"
)

func TestAdminGuard(t *testing.T) {
	h := rbac.Admin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(c *auth.Claims) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if c != nil {
			req = req.WithContext(auth.WithClaims(req.Context(), c))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&auth.Claims{UserID: 1, Role: auth.RoleUser}))
	assert.Equal(t, http.StatusOK, serve(&auth.Claims{UserID: 1, Role: auth.RoleAdmin}))
}
