// Package handler содержит HTTP-обработчики API админ-панели.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/escrowadmin-system/internal/dispute"
	"github.com/mmeshcher/escrowadmin-system/internal/escrow"
	"github.com/mmeshcher/escrowadmin-system/internal/middleware"
	"github.com/mmeshcher/escrowadmin-system/internal/model"
	"github.com/mmeshcher/escrowadmin-system/internal/rbac"
	"github.com/mmeshcher/escrowadmin-system/internal/repository"
	"github.com/mmeshcher/escrowadmin-system/internal/service"
	"github.com/mmeshcher/escrowadmin-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	AuthenticateOperator(ctx context.Context, username, password string) (*model.Operator, error)
	GetOperator(ctx context.Context, id string) (*model.Operator, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	UpdateUser(ctx context.Context, phone string, name, email *string) (*model.User, error)
	DeleteUser(ctx context.Context, phone string) error
	BlockUser(ctx context.Context, phone, reason, operatorID string) error
	UnblockUser(ctx context.Context, phone string) error
	ListBlockedUsers(ctx context.Context, page, limit int) ([]model.BlockedUser, model.Pagination, error)
	ListPendingKyc(ctx context.Context, page, limit int, status model.KycStatus) ([]model.PendingKycSeller, model.Pagination, error)
	GetSellerKyc(ctx context.Context, sellerID string) (*model.SellerKyc, error)
	UpdateSellerKyc(ctx context.Context, sellerID string, upd repository.KycUpdate) error
	ApproveKyc(ctx context.Context, sellerID string) error
	RejectKyc(ctx context.Context, sellerID, reason string) error
	SearchTransactions(ctx context.Context, code, buyerPhone, sellerPhone string, page, limit int) ([]model.Transaction, model.Pagination, error)
	ListDisputedTransactions(ctx context.Context, page, limit int) ([]model.Transaction, model.Pagination, error)
	ResolveDispute(ctx context.Context, transactionID string, decision dispute.Decision, buyerRefund, sellerPayout, notes string) (*escrow.ResolveResult, error)
	CompleteTransaction(ctx context.Context, transactionID string) error
	MarkResolved(ctx context.Context, transactionID, notes string) error
}

// Handler реализует HTTP-обработчики API админ-панели.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

const defaultPageLimit = 20

func pageParams(r *http.Request) (int, int) {
	page := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}

	limit := defaultPageLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	return page, limit
}

type operatorResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func newOperatorResponse(op *model.Operator) operatorResponse {
	return operatorResponse{
		ID:        op.ID,
		Username:  op.Username,
		Role:      string(op.Role),
		CreatedAt: op.CreatedAt.Format(time.RFC3339),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string           `json:"accessToken"`
	ExpiresIn   int              `json:"expiresIn"`
	Admin       operatorResponse `json:"admin"`
}

// Login выполняет аутентификацию оператора и выпуск сессионного токена.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "username and password are required")
		return
	}

	op, err := h.service.AuthenticateOperator(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
			return
		}
		h.logger.Error("login operator error", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	token, err := h.authMiddleware.IssueToken(op.ID, op.Role)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	h.writeData(w, r, http.StatusOK, loginResponse{
		AccessToken: token,
		ExpiresIn:   int(middleware.TokenTTL.Seconds()),
		Admin:       newOperatorResponse(op),
	})
}

// Logout завершает сессию оператора. Токен отбрасывается на стороне клиента.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	Valid       bool              `json:"valid"`
	Admin       *operatorResponse `json:"admin,omitempty"`
	Permissions []rbac.Permission `json:"permissions,omitempty"`
	Routes      []string          `json:"routes,omitempty"`
}

// Session проверяет сессию оператора и возвращает его данные с доступными экранами.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sessionOp, ok := middleware.GetOperatorFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	op, err := h.service.GetOperator(r.Context(), sessionOp.ID)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			h.writeData(w, r, http.StatusOK, sessionResponse{Valid: false})
			return
		}
		h.logger.Error("get operator error", zap.Error(err), zap.String("operatorID", sessionOp.ID))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	admin := newOperatorResponse(op)
	h.writeData(w, r, http.StatusOK, sessionResponse{
		Valid:       true,
		Admin:       &admin,
		Permissions: rbac.Permissions(op.Role),
		Routes:      rbac.AccessibleRoutes(op.Role),
	})
}

type userResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Email         *string `json:"email,omitempty"`
	Verified      bool    `json:"verified"`
	EmailVerified bool    `json:"emailVerified"`
	IsSeller      bool    `json:"isSeller"`
	IsBlocked     bool    `json:"isBlocked"`
	BlockedAt     *string `json:"blockedAt,omitempty"`
	BlockReason   *string `json:"blockReason,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func newUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Phone:         u.Phone,
		Email:         u.Email,
		Verified:      u.Verified,
		EmailVerified: u.EmailVerified,
		IsSeller:      u.IsSeller,
		IsBlocked:     u.IsBlocked,
		BlockReason:   u.BlockReason,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
	if u.BlockedAt != nil {
		v := u.BlockedAt.Format(time.RFC3339)
		resp.BlockedAt = &v
	}
	return resp
}

// GetUser возвращает пользователя площадки по номеру телефона.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if !validation.IsValidPhone(phone) {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid phone number")
		return
	}

	user, err := h.service.GetUserByPhone(r.Context(), phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "user not found")
			return
		}
		h.logger.Error("get user error", zap.Error(err), zap.String("phone", phone))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	h.writeData(w, r, http.StatusOK, newUserResponse(user))
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// UpdateUser обновляет имя и почту пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if req.Name == nil && req.Email == nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "nothing to update")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), phone, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "user not found")
			return
		}
		h.logger.Error("update user error", zap.Error(err), zap.String("phone", phone))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	h.writeData(w, r, http.StatusOK, struct {
		User userResponse `json:"user"`
	}{User: newUserResponse(user)})
}

// DeleteUser удаляет пользователя площадки.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	err := h.service.DeleteUser(r.Context(), phone)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "user not found")
		case errors.Is(err, repository.ErrUserReferenced):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "user has transactions and cannot be deleted")
		default:
			h.logger.Error("delete user error", zap.Error(err), zap.String("phone", phone))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type blockUserRequest struct {
	Reason string `json:"reason"`
}

// BlockUser блокирует пользователя с указанием причины.
func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	operator, ok := middleware.GetOperatorFromContext(r.Context())
	if !ok {
		h.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	var req blockUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if req.Reason == "" {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "block reason is required")
		return
	}

	err := h.service.BlockUser(r.Context(), phone, req.Reason, operator.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "user not found")
		case errors.Is(err, repository.ErrUserAlreadyBlocked):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "user already blocked")
		default:
			h.logger.Error("block user error", zap.Error(err), zap.String("phone", phone))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnblockUser снимает блокировку пользователя.
func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	err := h.service.UnblockUser(r.Context(), phone)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "user not found")
		case errors.Is(err, repository.ErrUserNotBlocked):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "user is not blocked")
		default:
			h.logger.Error("unblock user error", zap.Error(err), zap.String("phone", phone))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type blockedUserResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Phone             string  `json:"phone"`
	Email             *string `json:"email,omitempty"`
	BlockedAt         string  `json:"blockedAt"`
	Reason            string  `json:"reason"`
	BlockedByUsername string  `json:"blockedByUsername,omitempty"`
}

type listBlockedUsersResponse struct {
	Users      []blockedUserResponse `json:"users"`
	Pagination model.Pagination      `json:"pagination"`
}

// ListBlockedUsers возвращает страницу заблокированных пользователей.
func (h *Handler) ListBlockedUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	users, pagination, err := h.service.ListBlockedUsers(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("list blocked users error", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	resp := listBlockedUsersResponse{
		Users:      make([]blockedUserResponse, 0, len(users)),
		Pagination: pagination,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, blockedUserResponse{
			ID:                u.ID,
			Name:              u.Name,
			Phone:             u.Phone,
			Email:             u.Email,
			BlockedAt:         u.BlockedAt.Format(time.RFC3339),
			Reason:            u.Reason,
			BlockedByUsername: u.BlockedByUsername,
		})
	}

	h.writeData(w, r, http.StatusOK, resp)
}
