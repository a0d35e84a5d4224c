// Package model содержит доменные сущности админ-сервиса эскроу-площадки.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль оператора админ-панели.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleSupport    Role = "support"
	RoleViewer     Role = "viewer"
)

// Valid проверяет, что роль входит в закрытый набор допустимых значений.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleSupport, RoleViewer:
		return true
	}
	return false
}

// Operator представляет сотрудника, работающего в админ-панели.
type Operator struct {
	ID           string
	Username     string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// User представляет пользователя площадки (покупателя или продавца).
type User struct {
	ID            string
	Name          string
	Phone         string
	Email         *string
	Verified      bool
	EmailVerified bool
	IsSeller      bool
	IsBlocked     bool
	BlockedAt     *time.Time
	BlockReason   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BlockedUser описывает запись в списке заблокированных пользователей.
type BlockedUser struct {
	ID                string
	Name              string
	Phone             string
	Email             *string
	BlockedAt         time.Time
	Reason            string
	BlockedByUsername string
}

// KycStatus описывает статус проверки KYC продавца.
type KycStatus string

const (
	KycStatusNotStarted  KycStatus = "NOT_STARTED"
	KycStatusPending     KycStatus = "PENDING"
	KycStatusUnderReview KycStatus = "UNDER_REVIEW"
	KycStatusApproved    KycStatus = "APPROVED"
	KycStatusRejected    KycStatus = "REJECTED"
)

// SellerKyc содержит данные KYC-заявки продавца.
type SellerKyc struct {
	SellerID          string
	Status            KycStatus
	BusinessName      *string
	BusinessType      *string
	PanNumber         *string
	PanVerified       bool
	Gstin             *string
	RegisteredAddress *string
	City              *string
	State             *string
	Pincode           *string
	ContactName       *string
	ContactEmail      *string
	ContactPhone      *string
	BankAccountNumber *string
	BankIfscCode      *string
	BankHolderName    *string
	BankVerified      bool
	RejectionReason   *string
	SubmittedAt       *time.Time
	ApprovedAt        *time.Time
	RejectedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PendingKycSeller объединяет пользователя и его KYC-заявку в списке на проверке.
type PendingKycSeller struct {
	SellerID string
	User     User
	Kyc      SellerKyc
}

// TransactionStatus описывает статус сделки на площадке.
type TransactionStatus string

const (
	TransactionStatusCreated        TransactionStatus = "CREATED"
	TransactionStatusJoined         TransactionStatus = "JOINED"
	TransactionStatusPendingPayment TransactionStatus = "PENDING_PAYMENT"
	TransactionStatusPaid           TransactionStatus = "PAID"
	TransactionStatusDispatched     TransactionStatus = "DISPATCHED"
	TransactionStatusDisputed       TransactionStatus = "DISPUTED"
	TransactionStatusResolved       TransactionStatus = "RESOLVED"
	TransactionStatusCompleted      TransactionStatus = "COMPLETED"
	TransactionStatusReadyForPayout TransactionStatus = "READY_FOR_PAYOUT"
	TransactionStatusPayoutStarted  TransactionStatus = "PAYOUT_INITIATED"
	TransactionStatusFulfilled      TransactionStatus = "FULFILLED"
	TransactionStatusRefunded       TransactionStatus = "REFUNDED"
	TransactionStatusCancelled      TransactionStatus = "CANCELLED"
	TransactionStatusSplitSettled   TransactionStatus = "SPLIT_SETTLED"
)

// TransactionParty описывает сторону сделки (покупателя или продавца).
type TransactionParty struct {
	ID    string
	Name  string
	Phone string
	Email *string
}

// DisputeAttachment описывает файл-доказательство, приложенный к спору.
type DisputeAttachment struct {
	URL         string
	Name        string
	ContentType string
}

// Transaction представляет сделку с удержанной на эскроу суммой.
type Transaction struct {
	ID                 string
	TxnCode            string
	Title              string
	Description        *string
	Amount             decimal.Decimal
	Status             TransactionStatus
	OwnerType          string
	DeliveryMethod     *string
	TrackingLink       *string
	ChatLink           *string
	Buyer              *TransactionParty
	Seller             *TransactionParty
	DisputeReason      *string
	DisputeDescription *string
	DisputeAttachments []DisputeAttachment
	DisputedAt         *time.Time
	ResolvedAt         *time.Time
	PaidAt             *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Pagination содержит сведения о постраничной выдаче списков.
type Pagination struct {
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	Limit       int  `json:"limit"`
	HasMore     bool `json:"hasMore"`
}

// NewPagination вычисляет параметры постраничной выдачи по общему числу записей.
func NewPagination(totalCount, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return Pagination{
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		CurrentPage: page,
		Limit:       limit,
		HasMore:     page < totalPages,
	}
}
