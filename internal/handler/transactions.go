package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/escrowadmin-system/internal/dispute"
	"github.com/mmeshcher/escrowadmin-system/internal/model"
	"github.com/mmeshcher/escrowadmin-system/internal/repository"
	"github.com/mmeshcher/escrowadmin-system/internal/service"
)

type transactionPartyResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email,omitempty"`
}

type disputeAttachmentResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type transactionResponse struct {
	ID                 string                      `json:"id"`
	TxnCode            string                      `json:"txnCode"`
	Title              string                      `json:"title"`
	Amount             float64                     `json:"amount"`
	Description        *string                     `json:"description,omitempty"`
	Status             string                      `json:"status"`
	OwnerType          string                      `json:"ownerType"`
	DeliveryMethod     *string                     `json:"deliveryMethod,omitempty"`
	TrackingLink       *string                     `json:"trackingLink,omitempty"`
	ChatLink           *string                     `json:"chatLink,omitempty"`
	Buyer              *transactionPartyResponse   `json:"buyer,omitempty"`
	Seller             *transactionPartyResponse   `json:"seller,omitempty"`
	DisputeReason      *string                     `json:"disputeReason,omitempty"`
	DisputeDescription *string                     `json:"disputeDescription,omitempty"`
	DisputeAttachments []disputeAttachmentResponse `json:"disputeAttachments,omitempty"`
	DisputedAt         *string                     `json:"disputedAt,omitempty"`
	ResolvedAt         *string                     `json:"resolvedAt,omitempty"`
	PaidAt             *string                     `json:"paidAt,omitempty"`
	CreatedAt          string                      `json:"createdAt"`
	LastUpdatedAt      string                      `json:"lastUpdatedAt"`
}

func newPartyResponse(p *model.TransactionParty) *transactionPartyResponse {
	if p == nil {
		return nil
	}
	return &transactionPartyResponse{ID: p.ID, Name: p.Name, Phone: p.Phone, Email: p.Email}
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                 t.ID,
		TxnCode:            t.TxnCode,
		Title:              t.Title,
		Amount:             t.Amount.InexactFloat64(),
		Description:        t.Description,
		Status:             string(t.Status),
		OwnerType:          t.OwnerType,
		DeliveryMethod:     t.DeliveryMethod,
		TrackingLink:       t.TrackingLink,
		ChatLink:           t.ChatLink,
		Buyer:              newPartyResponse(t.Buyer),
		Seller:             newPartyResponse(t.Seller),
		DisputeReason:      t.DisputeReason,
		DisputeDescription: t.DisputeDescription,
		DisputedAt:         formatTimePtr(t.DisputedAt),
		ResolvedAt:         formatTimePtr(t.ResolvedAt),
		PaidAt:             formatTimePtr(t.PaidAt),
		CreatedAt:          t.CreatedAt.Format(time.RFC3339),
		LastUpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
	}

	for _, a := range t.DisputeAttachments {
		resp.DisputeAttachments = append(resp.DisputeAttachments, disputeAttachmentResponse{
			URL:  a.URL,
			Name: a.Name,
			Type: a.ContentType,
		})
	}

	return resp
}

type listTransactionsResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Pagination   model.Pagination      `json:"pagination"`
}

func newListTransactionsResponse(txns []model.Transaction, pagination model.Pagination) listTransactionsResponse {
	resp := listTransactionsResponse{
		Transactions: make([]transactionResponse, 0, len(txns)),
		Pagination:   pagination,
	}
	for i := range txns {
		resp.Transactions = append(resp.Transactions, newTransactionResponse(&txns[i]))
	}
	return resp
}

// SearchTransactions ищет сделки по коду либо телефонам сторон.
func (h *Handler) SearchTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	buyerPhone := q.Get("buyerPhone")
	sellerPhone := q.Get("sellerPhone")

	if code == "" && buyerPhone == "" && sellerPhone == "" {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "at least one search criterion is required")
		return
	}

	page, limit := pageParams(r)

	txns, pagination, err := h.service.SearchTransactions(r.Context(), code, buyerPhone, sellerPhone, page, limit)
	if err != nil {
		h.logger.Error("search transactions error", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	h.writeData(w, r, http.StatusOK, newListTransactionsResponse(txns, pagination))
}

// ListDisputedTransactions возвращает страницу спорных сделок.
func (h *Handler) ListDisputedTransactions(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	txns, pagination, err := h.service.ListDisputedTransactions(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("list disputed transactions error", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	h.writeData(w, r, http.StatusOK, newListTransactionsResponse(txns, pagination))
}

type resolveDisputeRequest struct {
	Decision           string      `json:"decision"`
	BuyerRefundAmount  json.Number `json:"buyerRefundAmount"`
	SellerPayoutAmount json.Number `json:"sellerPayoutAmount"`
	Notes              string      `json:"notes"`
}

// ResolveDispute принимает решение оператора по спорной сделке.
// Суммы раздела передаются валидатору сырыми строками; до эскроу-системы
// доходит только прошедшее валидацию решение.
func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.ResolveDispute(r.Context(), transactionID,
		dispute.Decision(req.Decision), req.BuyerRefundAmount.String(), req.SellerPayoutAmount.String(), req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "transaction not found")
		case errors.Is(err, service.ErrTransactionNotDisputed):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "transaction is not disputed")
		case dispute.IsValidationError(err):
			h.writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		default:
			h.logger.Error("resolve dispute error", zap.Error(err), zap.String("transactionID", transactionID))
			h.writeError(w, r, http.StatusBadGateway, "ESCROW_UNAVAILABLE", "failed to resolve dispute")
		}
		return
	}

	h.writeData(w, r, http.StatusOK, result)
}

// CompleteTransaction помечает отправленную сделку завершённой.
func (h *Handler) CompleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	err := h.service.CompleteTransaction(r.Context(), transactionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "transaction not found")
		case errors.Is(err, service.ErrTransactionNotDispatched):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "transaction is not dispatched")
		default:
			h.logger.Error("complete transaction error", zap.Error(err), zap.String("transactionID", transactionID))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type markResolvedRequest struct {
	ResolutionNotes string `json:"resolutionNotes"`
}

// MarkResolved помечает спорную сделку урегулированной без движения денег.
func (h *Handler) MarkResolved(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	var req markResolvedRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
	}

	err := h.service.MarkResolved(r.Context(), transactionID, req.ResolutionNotes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "transaction not found")
		case errors.Is(err, service.ErrTransactionNotDisputed):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "transaction is not disputed")
		default:
			h.logger.Error("mark resolved error", zap.Error(err), zap.String("transactionID", transactionID))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
