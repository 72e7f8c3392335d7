package middleware

import (
	"errors"
	"net/http"

	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// RequireTenant builds the tenant scope from the principal set by Auth.
// Requests without a principal get 401; principals without a company get 403.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := tenant.FromContext(r.Context())
		if err != nil {
			if errors.Is(err, domain.ErrNoCompany) {
				httputil.Error(w, http.StatusForbidden, "user does not belong to any company")
				return
			}
			httputil.Error(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithScope(r.Context(), scope)))
	})
}
