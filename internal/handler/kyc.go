package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/escrowadmin-system/internal/model"
	"github.com/mmeshcher/escrowadmin-system/internal/repository"
	"github.com/mmeshcher/escrowadmin-system/internal/service"
	"github.com/mmeshcher/escrowadmin-system/internal/validation"
)

type kycResponse struct {
	SellerID              string  `json:"sellerId"`
	KycStatus             string  `json:"kycStatus"`
	BusinessName          *string `json:"businessName,omitempty"`
	BusinessType          *string `json:"businessType,omitempty"`
	PanNumber             *string `json:"panNumber,omitempty"`
	PanVerified           bool    `json:"panVerified"`
	Gstin                 *string `json:"gstin,omitempty"`
	RegisteredAddress     *string `json:"registeredAddress,omitempty"`
	City                  *string `json:"city,omitempty"`
	State                 *string `json:"state,omitempty"`
	Pincode               *string `json:"pincode,omitempty"`
	ContactPersonName     *string `json:"contactPersonName,omitempty"`
	ContactPersonEmail    *string `json:"contactPersonEmail,omitempty"`
	ContactPersonPhone    *string `json:"contactPersonPhone,omitempty"`
	BankAccountNumber     *string `json:"bankAccountNumber,omitempty"`
	BankIfscCode          *string `json:"bankIfscCode,omitempty"`
	BankAccountHolderName *string `json:"bankAccountHolderName,omitempty"`
	BankVerified          bool    `json:"bankVerified"`
	RejectionReason       *string `json:"rejectionReason,omitempty"`
	SubmittedAt           *string `json:"submittedAt,omitempty"`
	ApprovedAt            *string `json:"approvedAt,omitempty"`
	RejectedAt            *string `json:"rejectedAt,omitempty"`
	CreatedAt             string  `json:"createdAt"`
	UpdatedAt             string  `json:"updatedAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func newKycResponse(k *model.SellerKyc) kycResponse {
	return kycResponse{
		SellerID:              k.SellerID,
		KycStatus:             string(k.Status),
		BusinessName:          k.BusinessName,
		BusinessType:          k.BusinessType,
		PanNumber:             k.PanNumber,
		PanVerified:           k.PanVerified,
		Gstin:                 k.Gstin,
		RegisteredAddress:     k.RegisteredAddress,
		City:                  k.City,
		State:                 k.State,
		Pincode:               k.Pincode,
		ContactPersonName:     k.ContactName,
		ContactPersonEmail:    k.ContactEmail,
		ContactPersonPhone:    k.ContactPhone,
		BankAccountNumber:     k.BankAccountNumber,
		BankIfscCode:          k.BankIfscCode,
		BankAccountHolderName: k.BankHolderName,
		BankVerified:          k.BankVerified,
		RejectionReason:       k.RejectionReason,
		SubmittedAt:           formatTimePtr(k.SubmittedAt),
		ApprovedAt:            formatTimePtr(k.ApprovedAt),
		RejectedAt:            formatTimePtr(k.RejectedAt),
		CreatedAt:             k.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             k.UpdatedAt.Format(time.RFC3339),
	}
}

type pendingKycSellerResponse struct {
	SellerID string       `json:"sellerId"`
	User     userResponse `json:"user"`
	Kyc      kycResponse  `json:"kyc"`
}

type listPendingKycResponse struct {
	Sellers    []pendingKycSellerResponse `json:"sellers"`
	Pagination model.Pagination           `json:"pagination"`
}

// ListPendingKyc возвращает страницу продавцов с KYC-заявками на проверке.
func (h *Handler) ListPendingKyc(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	status := model.KycStatus(r.URL.Query().Get("status"))

	switch status {
	case "", model.KycStatusPending, model.KycStatusUnderReview, model.KycStatusApproved, model.KycStatusRejected:
	default:
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "unknown kyc status")
		return
	}

	sellers, pagination, err := h.service.ListPendingKyc(r.Context(), page, limit, status)
	if err != nil {
		h.logger.Error("list pending kyc error", zap.Error(err))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	resp := listPendingKycResponse{
		Sellers:    make([]pendingKycSellerResponse, 0, len(sellers)),
		Pagination: pagination,
	}
	for _, s := range sellers {
		resp.Sellers = append(resp.Sellers, pendingKycSellerResponse{
			SellerID: s.SellerID,
			User:     newUserResponse(&s.User),
			Kyc:      newKycResponse(&s.Kyc),
		})
	}

	h.writeData(w, r, http.StatusOK, resp)
}

// GetSellerKyc возвращает KYC-заявку продавца.
func (h *Handler) GetSellerKyc(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	kyc, err := h.service.GetSellerKyc(r.Context(), sellerID)
	if err != nil {
		if errors.Is(err, repository.ErrKycNotFound) {
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "seller kyc not found")
			return
		}
		h.logger.Error("get kyc error", zap.Error(err), zap.String("sellerID", sellerID))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	h.writeData(w, r, http.StatusOK, newKycResponse(kyc))
}

type updateKycRequest struct {
	BusinessName       *string `json:"businessName"`
	PanNumber          *string `json:"panNumber"`
	Gstin              *string `json:"gstin"`
	RegisteredAddress  *string `json:"registeredAddress"`
	City               *string `json:"city"`
	State              *string `json:"state"`
	Pincode            *string `json:"pincode"`
	ContactPersonName  *string `json:"contactPersonName"`
	ContactPersonEmail *string `json:"contactPersonEmail"`
	ContactPersonPhone *string `json:"contactPersonPhone"`
	AccountHolderName  *string `json:"accountHolderName"`
	AccountNumber      *string `json:"accountNumber"`
	IfscCode           *string `json:"ifscCode"`
}

func (req *updateKycRequest) validate() string {
	if req.PanNumber != nil && !validation.IsValidPan(*req.PanNumber) {
		return "invalid PAN number"
	}
	if req.IfscCode != nil && !validation.IsValidIfsc(*req.IfscCode) {
		return "invalid IFSC code"
	}
	if req.Pincode != nil && !validation.IsValidPincode(*req.Pincode) {
		return "invalid pincode"
	}
	if req.ContactPersonPhone != nil && !validation.IsValidPhone(*req.ContactPersonPhone) {
		return "invalid contact phone"
	}
	return ""
}

// UpdateSellerKyc обновляет данные KYC-заявки продавца.
func (h *Handler) UpdateSellerKyc(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	var req updateKycRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if msg := req.validate(); msg != "" {
		h.writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", msg)
		return
	}

	err := h.service.UpdateSellerKyc(r.Context(), sellerID, repository.KycUpdate{
		BusinessName:      req.BusinessName,
		PanNumber:         req.PanNumber,
		Gstin:             req.Gstin,
		RegisteredAddress: req.RegisteredAddress,
		City:              req.City,
		State:             req.State,
		Pincode:           req.Pincode,
		ContactName:       req.ContactPersonName,
		ContactEmail:      req.ContactPersonEmail,
		ContactPhone:      req.ContactPersonPhone,
		BankHolderName:    req.AccountHolderName,
		BankAccountNumber: req.AccountNumber,
		BankIfscCode:      req.IfscCode,
	})
	if err != nil {
		if errors.Is(err, repository.ErrKycNotFound) {
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "seller kyc not found")
			return
		}
		h.logger.Error("update kyc error", zap.Error(err), zap.String("sellerID", sellerID))
		h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApproveKyc одобряет KYC-заявку продавца.
func (h *Handler) ApproveKyc(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	err := h.service.ApproveKyc(r.Context(), sellerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrKycNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "seller kyc not found")
		case errors.Is(err, service.ErrKycNotReviewable):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "kyc is not under review")
		default:
			h.logger.Error("approve kyc error", zap.Error(err), zap.String("sellerID", sellerID))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type rejectKycRequest struct {
	Reason string `json:"reason"`
}

// RejectKyc отклоняет KYC-заявку продавца с указанием причины.
func (h *Handler) RejectKyc(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	var req rejectKycRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if req.Reason == "" {
		h.writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "rejection reason is required")
		return
	}

	err := h.service.RejectKyc(r.Context(), sellerID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrKycNotFound):
			h.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "seller kyc not found")
		case errors.Is(err, service.ErrKycNotReviewable):
			h.writeError(w, r, http.StatusConflict, "CONFLICT", "kyc is not under review")
		default:
			h.logger.Error("reject kyc error", zap.Error(err), zap.String("sellerID", sellerID))
			h.writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
