// Package rbac guards routes by the role carried in the auth claims.
package rbac

import (
	"net/http"

	"github.com/artisanmart/storefront/pkg/auth"
	"github.com/artisanmart/storefront/pkg/response"
)

// HasRole allows only users whose role is one of roles. Authenticate must
// run first; a missing identity is a 401, a wrong role a 403.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.FromContext(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[claims.Role] {
				response.Error(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin is HasRole(auth.RoleAdmin).
func Admin() func(http.Handler) http.Handler {
	return HasRole(auth.RoleAdmin)
}
