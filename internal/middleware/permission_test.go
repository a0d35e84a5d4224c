package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmeshcher/escrowadmin-system/internal/model"
	"github.com/mmeshcher/escrowadmin-system/internal/rbac"
)

func requestWithOperator(role model.Role) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	ctx := context.WithValue(r.Context(), operatorKey, Operator{ID: "op-1", Role: role})
	return r.WithContext(ctx)
}

func TestRequirePermission_Allowed(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})

	w := httptest.NewRecorder()
	handler := RequirePermission(rbac.PermissionUserBlock)(next)
	handler.ServeHTTP(w, requestWithOperator(model.RoleAdmin))

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestRequirePermission_Forbidden(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	handler := RequirePermission(rbac.PermissionUserDelete)(next)
	handler.ServeHTTP(w, requestWithOperator(model.RoleAdmin))

	res := w.Result()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestRequirePermission_NoOperator(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := RequirePermission(rbac.PermissionUserView)(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}
