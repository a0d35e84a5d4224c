package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/escrowadmin-system/internal/middleware"
	"github.com/mmeshcher/escrowadmin-system/internal/rbac"
)

// SetupRouter настраивает HTTP-маршруты и middleware админ-панели.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.TraceID)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/session", h.Session)

			r.Route("/users", func(r chi.Router) {
				r.With(custommiddleware.RequirePermission(rbac.PermissionUserView)).
					Get("/blocked", h.ListBlockedUsers)
				r.With(custommiddleware.RequirePermission(rbac.PermissionUserView)).
					Get("/{phone}", h.GetUser)
				r.With(custommiddleware.RequirePermission(rbac.PermissionUserUpdate)).
					Patch("/{phone}", h.UpdateUser)
				r.With(custommiddleware.RequirePermission(rbac.PermissionUserDelete)).
					Delete("/{phone}", h.DeleteUser)
				r.With(custommiddleware.RequirePermission(rbac.PermissionUserBlock)).
					Post("/{phone}/block", h.BlockUser)
				r.With(custommiddleware.RequirePermission(rbac.PermissionUserBlock)).
					Post("/{phone}/unblock", h.UnblockUser)
			})

			r.Route("/sellers", func(r chi.Router) {
				r.With(custommiddleware.RequirePermission(rbac.PermissionKycView)).
					Get("/pending-kyc", h.ListPendingKyc)
				r.With(custommiddleware.RequirePermission(rbac.PermissionKycView)).
					Get("/{sellerID}/kyc", h.GetSellerKyc)
				r.With(custommiddleware.RequirePermission(rbac.PermissionKycUpdate)).
					Patch("/{sellerID}/kyc", h.UpdateSellerKyc)
				r.With(custommiddleware.RequirePermission(rbac.PermissionKycApprove)).
					Post("/{sellerID}/kyc/approve", h.ApproveKyc)
				r.With(custommiddleware.RequirePermission(rbac.PermissionKycApprove)).
					Post("/{sellerID}/kyc/reject", h.RejectKyc)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.With(custommiddleware.RequirePermission(rbac.PermissionTransactionView)).
					Get("/search", h.SearchTransactions)
				r.With(custommiddleware.RequirePermission(rbac.PermissionTransactionView)).
					Get("/disputed", h.ListDisputedTransactions)
				r.With(custommiddleware.RequirePermission(rbac.PermissionTransactionAction)).
					Post("/{transactionID}/resolve", h.ResolveDispute)
				r.With(custommiddleware.RequirePermission(rbac.PermissionTransactionAction)).
					Patch("/{transactionID}/complete", h.CompleteTransaction)
				r.With(custommiddleware.RequirePermission(rbac.PermissionTransactionAction)).
					Post("/{transactionID}/mark-resolved", h.MarkResolved)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
