package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/escrowadmin-system/internal/dispute"
	"github.com/mmeshcher/escrowadmin-system/internal/escrow"
	"github.com/mmeshcher/escrowadmin-system/internal/model"
	"github.com/mmeshcher/escrowadmin-system/internal/repository"
)

type stubRepo struct {
	operator    *model.Operator
	operatorErr error

	kyc    *model.SellerKyc
	kycErr error

	txn    *model.Transaction
	txnErr error

	recordedStatus model.TransactionStatus
	recordedNotes  string
	recordCalls    int

	updatedStatus model.TransactionStatus
	updateCalls   int
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) GetOperatorByUsername(ctx context.Context, username string) (*model.Operator, error) {
	return s.operator, s.operatorErr
}

func (s *stubRepo) GetOperatorByID(ctx context.Context, id string) (*model.Operator, error) {
	return s.operator, s.operatorErr
}

func (s *stubRepo) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) UpdateUser(ctx context.Context, phone string, name, email *string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) DeleteUser(ctx context.Context, phone string) error { return nil }

func (s *stubRepo) BlockUser(ctx context.Context, phone, reason, operatorID string) error {
	return nil
}

func (s *stubRepo) UnblockUser(ctx context.Context, phone string) error { return nil }

func (s *stubRepo) ListBlockedUsers(ctx context.Context, page, limit int) ([]model.BlockedUser, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) GetSellerKyc(ctx context.Context, sellerID string) (*model.SellerKyc, error) {
	return s.kyc, s.kycErr
}

func (s *stubRepo) ListPendingKyc(ctx context.Context, page, limit int, status model.KycStatus) ([]model.PendingKycSeller, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) UpdateSellerKyc(ctx context.Context, sellerID string, upd repository.KycUpdate) error {
	return nil
}

func (s *stubRepo) SetKycApproved(ctx context.Context, sellerID string) error { return nil }

func (s *stubRepo) SetKycRejected(ctx context.Context, sellerID, reason string) error { return nil }

func (s *stubRepo) SearchTransactions(ctx context.Context, code, buyerPhone, sellerPhone string, page, limit int) ([]model.Transaction, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) ListDisputedTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	return s.txn, s.txnErr
}

func (s *stubRepo) RecordResolution(ctx context.Context, id string, status model.TransactionStatus, resolvedAt time.Time, notes string) error {
	s.recordCalls++
	s.recordedStatus = status
	s.recordedNotes = notes
	return nil
}

func (s *stubRepo) UpdateTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error {
	s.updateCalls++
	s.updatedStatus = status
	return nil
}

func (s *stubRepo) GetTransactionsForStatusSync(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

func disputedTransaction(amount string) *model.Transaction {
	return &model.Transaction{
		ID:     "txn-1",
		Status: model.TransactionStatusDisputed,
		Amount: decimal.RequireFromString(amount),
	}
}

func TestAuthenticateOperator_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	repo := &stubRepo{
		operator: &model.Operator{ID: "op-1", Username: "admin", Role: model.RoleAdmin, PasswordHash: hash},
	}
	svc := NewService(repo, nil)

	op, err := svc.AuthenticateOperator(context.Background(), "admin", "correct")
	if err != nil {
		t.Fatalf("AuthenticateOperator error: %v", err)
	}
	if op.ID != "op-1" {
		t.Fatalf("operator id = %q, want op-1", op.ID)
	}
}

func TestAuthenticateOperator_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	repo := &stubRepo{
		operator: &model.Operator{ID: "op-1", Username: "admin", PasswordHash: hash},
	}
	svc := NewService(repo, nil)

	_, err = svc.AuthenticateOperator(context.Background(), "admin", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateOperator_UnknownOperator(t *testing.T) {
	repo := &stubRepo{
		operatorErr: repository.ErrOperatorNotFound,
	}
	svc := NewService(repo, nil)

	_, err := svc.AuthenticateOperator(context.Background(), "ghost", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResolveDispute_NotDisputed(t *testing.T) {
	repo := &stubRepo{
		txn: &model.Transaction{ID: "txn-1", Status: model.TransactionStatusPaid},
	}
	svc := NewService(repo, escrow.NewClient("localhost:9"))

	_, err := svc.ResolveDispute(context.Background(), "txn-1", dispute.DecisionRefund, "", "", "")
	if !errors.Is(err, ErrTransactionNotDisputed) {
		t.Fatalf("expected ErrTransactionNotDisputed, got %v", err)
	}
	if repo.recordCalls != 0 {
		t.Fatalf("resolution must not be recorded, got %d calls", repo.recordCalls)
	}
}

func TestResolveDispute_ValidationFailsBeforeEscrowCall(t *testing.T) {
	var escrowCalls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		escrowCalls++
	}))
	defer ts.Close()

	repo := &stubRepo{txn: disputedTransaction("1000")}
	svc := NewService(repo, escrow.NewClient(ts.URL))

	_, err := svc.ResolveDispute(context.Background(), "txn-1", dispute.DecisionSplit, "700", "400", "")
	if !dispute.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if escrowCalls != 0 {
		t.Fatalf("escrow must not be called on validation failure, got %d calls", escrowCalls)
	}
	if repo.recordCalls != 0 {
		t.Fatalf("resolution must not be recorded, got %d calls", repo.recordCalls)
	}
}

func TestResolveDispute_Success(t *testing.T) {
	resolvedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload dispute.Resolution
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Decision != dispute.DecisionSplit {
			t.Fatalf("decision = %q, want SPLIT", payload.Decision)
		}
		if payload.BuyerRefundAmount == nil || *payload.BuyerRefundAmount != 600 {
			t.Fatalf("buyerRefundAmount = %v, want 600", payload.BuyerRefundAmount)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(escrow.ResolveResult{
			Message:       "dispute resolved",
			TransactionID: "txn-1",
			Decision:      dispute.DecisionSplit,
			Status:        model.TransactionStatusSplitSettled,
			ResolvedAt:    resolvedAt,
		})
	}))
	defer ts.Close()

	repo := &stubRepo{txn: disputedTransaction("1000")}
	svc := NewService(repo, escrow.NewClient(ts.URL))

	result, err := svc.ResolveDispute(context.Background(), "txn-1", dispute.DecisionSplit, "600", "400", "partial fault")
	if err != nil {
		t.Fatalf("ResolveDispute error: %v", err)
	}
	if result.Status != model.TransactionStatusSplitSettled {
		t.Fatalf("result status = %q, want SPLIT_SETTLED", result.Status)
	}
	if repo.recordCalls != 1 {
		t.Fatalf("recordCalls = %d, want 1", repo.recordCalls)
	}
	if repo.recordedStatus != model.TransactionStatusSplitSettled {
		t.Fatalf("recorded status = %q, want SPLIT_SETTLED", repo.recordedStatus)
	}
	if repo.recordedNotes != "partial fault" {
		t.Fatalf("recorded notes = %q, want %q", repo.recordedNotes, "partial fault")
	}
}

func TestResolveDispute_TransportErrorKeepsState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	repo := &stubRepo{txn: disputedTransaction("1000")}
	svc := NewService(repo, escrow.NewClient(ts.URL))

	_, err := svc.ResolveDispute(context.Background(), "txn-1", dispute.DecisionRefund, "", "", "")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if dispute.IsValidationError(err) {
		t.Fatalf("transport error must not be a validation error: %v", err)
	}
	if repo.recordCalls != 0 {
		t.Fatalf("resolution must not be recorded on transport failure, got %d calls", repo.recordCalls)
	}
}

func TestCompleteTransaction_NotDispatched(t *testing.T) {
	repo := &stubRepo{
		txn: &model.Transaction{ID: "txn-1", Status: model.TransactionStatusPaid},
	}
	svc := NewService(repo, nil)

	err := svc.CompleteTransaction(context.Background(), "txn-1")
	if !errors.Is(err, ErrTransactionNotDispatched) {
		t.Fatalf("expected ErrTransactionNotDispatched, got %v", err)
	}
}

func TestCompleteTransaction_Success(t *testing.T) {
	repo := &stubRepo{
		txn: &model.Transaction{ID: "txn-1", Status: model.TransactionStatusDispatched},
	}
	svc := NewService(repo, nil)

	if err := svc.CompleteTransaction(context.Background(), "txn-1"); err != nil {
		t.Fatalf("CompleteTransaction error: %v", err)
	}
	if repo.updatedStatus != model.TransactionStatusCompleted {
		t.Fatalf("updated status = %q, want COMPLETED", repo.updatedStatus)
	}
}

func TestMarkResolved_Success(t *testing.T) {
	repo := &stubRepo{txn: disputedTransaction("1000")}
	svc := NewService(repo, nil)

	if err := svc.MarkResolved(context.Background(), "txn-1", "settled in chat"); err != nil {
		t.Fatalf("MarkResolved error: %v", err)
	}
	if repo.recordedStatus != model.TransactionStatusResolved {
		t.Fatalf("recorded status = %q, want RESOLVED", repo.recordedStatus)
	}
	if repo.recordedNotes != "settled in chat" {
		t.Fatalf("recorded notes = %q", repo.recordedNotes)
	}
}

func TestApproveKyc_NotReviewable(t *testing.T) {
	repo := &stubRepo{
		kyc: &model.SellerKyc{SellerID: "seller-1", Status: model.KycStatusApproved},
	}
	svc := NewService(repo, nil)

	err := svc.ApproveKyc(context.Background(), "seller-1")
	if !errors.Is(err, ErrKycNotReviewable) {
		t.Fatalf("expected ErrKycNotReviewable, got %v", err)
	}
}

func TestRejectKyc_RequiresReason(t *testing.T) {
	repo := &stubRepo{
		kyc: &model.SellerKyc{SellerID: "seller-1", Status: model.KycStatusPending},
	}
	svc := NewService(repo, nil)

	if err := svc.RejectKyc(context.Background(), "seller-1", ""); err == nil {
		t.Fatalf("expected error for empty reason")
	}
}

func TestStartStatusSync_NoClient(t *testing.T) {
	svc := &Service{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartStatusSync(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartStatusSync did not return without client")
	}
}
