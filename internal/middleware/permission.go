package middleware

import (
	"net/http"

	"github.com/mmeshcher/escrowadmin-system/internal/rbac"
)

// RequirePermission возвращает middleware, пропускающее запрос только при
// наличии у роли оператора указанного права.
func RequirePermission(permission rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, ok := GetOperatorFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if !rbac.HasPermission(operator.Role, permission) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
