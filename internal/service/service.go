// Package service реализует бизнес-логику админ-сервиса эскроу-площадки.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/escrowadmin-system/internal/dispute"
	"github.com/mmeshcher/escrowadmin-system/internal/escrow"
	"github.com/mmeshcher/escrowadmin-system/internal/model"
	"github.com/mmeshcher/escrowadmin-system/internal/repository"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле оператора.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTransactionNotDisputed возвращается при попытке решить спор по сделке не в статусе DISPUTED.
	ErrTransactionNotDisputed = errors.New("transaction is not disputed")
	// ErrTransactionNotDispatched возвращается при попытке завершить сделку не в статусе DISPATCHED.
	ErrTransactionNotDispatched = errors.New("transaction is not dispatched")
	// ErrKycNotReviewable возвращается при попытке одобрить или отклонить KYC не на проверке.
	ErrKycNotReviewable = errors.New("kyc is not under review")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetOperatorByUsername(ctx context.Context, username string) (*model.Operator, error)
	GetOperatorByID(ctx context.Context, id string) (*model.Operator, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	UpdateUser(ctx context.Context, phone string, name, email *string) (*model.User, error)
	DeleteUser(ctx context.Context, phone string) error
	BlockUser(ctx context.Context, phone, reason, operatorID string) error
	UnblockUser(ctx context.Context, phone string) error
	ListBlockedUsers(ctx context.Context, page, limit int) ([]model.BlockedUser, int, error)
	GetSellerKyc(ctx context.Context, sellerID string) (*model.SellerKyc, error)
	ListPendingKyc(ctx context.Context, page, limit int, status model.KycStatus) ([]model.PendingKycSeller, int, error)
	UpdateSellerKyc(ctx context.Context, sellerID string, upd repository.KycUpdate) error
	SetKycApproved(ctx context.Context, sellerID string) error
	SetKycRejected(ctx context.Context, sellerID, reason string) error
	SearchTransactions(ctx context.Context, code, buyerPhone, sellerPhone string, page, limit int) ([]model.Transaction, int, error)
	ListDisputedTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int, error)
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	RecordResolution(ctx context.Context, id string, status model.TransactionStatus, resolvedAt time.Time, notes string) error
	UpdateTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error
	GetTransactionsForStatusSync(ctx context.Context, limit int) ([]string, error)
}

// Service содержит бизнес-логику админ-сервиса.
type Service struct {
	repo         Repository
	escrowClient *escrow.Client
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом эскроу-системы.
func NewService(repo Repository, escrowClient *escrow.Client) *Service {
	return &Service{
		repo:         repo,
		escrowClient: escrowClient,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// AuthenticateOperator проверяет логин и пароль оператора и возвращает его учётную запись.
func (s *Service) AuthenticateOperator(ctx context.Context, username, password string) (*model.Operator, error) {
	op, err := s.repo.GetOperatorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrOperatorNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(op.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return op, nil
}

// GetOperator возвращает оператора по идентификатору сессии.
func (s *Service) GetOperator(ctx context.Context, id string) (*model.Operator, error) {
	return s.repo.GetOperatorByID(ctx, id)
}

// GetUserByPhone возвращает пользователя площадки по номеру телефона.
func (s *Service) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	return s.repo.GetUserByPhone(ctx, phone)
}

// UpdateUser обновляет имя и почту пользователя.
func (s *Service) UpdateUser(ctx context.Context, phone string, name, email *string) (*model.User, error) {
	return s.repo.UpdateUser(ctx, phone, name, email)
}

// DeleteUser удаляет пользователя площадки.
func (s *Service) DeleteUser(ctx context.Context, phone string) error {
	return s.repo.DeleteUser(ctx, phone)
}

// BlockUser блокирует пользователя от имени оператора с указанием причины.
func (s *Service) BlockUser(ctx context.Context, phone, reason, operatorID string) error {
	if reason == "" {
		return errors.New("block reason must not be empty")
	}
	return s.repo.BlockUser(ctx, phone, reason, operatorID)
}

// UnblockUser снимает блокировку пользователя.
func (s *Service) UnblockUser(ctx context.Context, phone string) error {
	return s.repo.UnblockUser(ctx, phone)
}

// ListBlockedUsers возвращает страницу заблокированных пользователей.
func (s *Service) ListBlockedUsers(ctx context.Context, page, limit int) ([]model.BlockedUser, model.Pagination, error) {
	users, total, err := s.repo.ListBlockedUsers(ctx, page, limit)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return users, model.NewPagination(total, page, limit), nil
}

// ListPendingKyc возвращает страницу продавцов с KYC на проверке.
func (s *Service) ListPendingKyc(ctx context.Context, page, limit int, status model.KycStatus) ([]model.PendingKycSeller, model.Pagination, error) {
	sellers, total, err := s.repo.ListPendingKyc(ctx, page, limit, status)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return sellers, model.NewPagination(total, page, limit), nil
}

// GetSellerKyc возвращает KYC-заявку продавца.
func (s *Service) GetSellerKyc(ctx context.Context, sellerID string) (*model.SellerKyc, error) {
	return s.repo.GetSellerKyc(ctx, sellerID)
}

// UpdateSellerKyc обновляет данные KYC-заявки продавца.
func (s *Service) UpdateSellerKyc(ctx context.Context, sellerID string, upd repository.KycUpdate) error {
	return s.repo.UpdateSellerKyc(ctx, sellerID, upd)
}

// ApproveKyc одобряет KYC-заявку продавца, находящуюся на проверке.
func (s *Service) ApproveKyc(ctx context.Context, sellerID string) error {
	kyc, err := s.repo.GetSellerKyc(ctx, sellerID)
	if err != nil {
		return err
	}

	if kyc.Status != model.KycStatusPending && kyc.Status != model.KycStatusUnderReview {
		return ErrKycNotReviewable
	}

	return s.repo.SetKycApproved(ctx, sellerID)
}

// RejectKyc отклоняет KYC-заявку продавца с указанием причины.
func (s *Service) RejectKyc(ctx context.Context, sellerID, reason string) error {
	if reason == "" {
		return errors.New("rejection reason must not be empty")
	}

	kyc, err := s.repo.GetSellerKyc(ctx, sellerID)
	if err != nil {
		return err
	}

	if kyc.Status != model.KycStatusPending && kyc.Status != model.KycStatusUnderReview {
		return ErrKycNotReviewable
	}

	return s.repo.SetKycRejected(ctx, sellerID, reason)
}

// SearchTransactions ищет сделки по коду либо телефонам сторон.
func (s *Service) SearchTransactions(ctx context.Context, code, buyerPhone, sellerPhone string, page, limit int) ([]model.Transaction, model.Pagination, error) {
	txns, total, err := s.repo.SearchTransactions(ctx, code, buyerPhone, sellerPhone, page, limit)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return txns, model.NewPagination(total, page, limit), nil
}

// ListDisputedTransactions возвращает страницу спорных сделок.
func (s *Service) ListDisputedTransactions(ctx context.Context, page, limit int) ([]model.Transaction, model.Pagination, error) {
	txns, total, err := s.repo.ListDisputedTransactions(ctx, page, limit)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return txns, model.NewPagination(total, page, limit), nil
}

// ResolveDispute проверяет решение оператора по спорной сделке, отправляет его
// в эскроу-систему и фиксирует новый статус. Повторная отправка по уже решённой
// сделке отклоняется проверкой статуса. Ошибка валидации или транспорта не
// меняет локального состояния сделки.
func (s *Service) ResolveDispute(ctx context.Context, transactionID string, decision dispute.Decision, buyerRefund, sellerPayout, notes string) (*escrow.ResolveResult, error) {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != model.TransactionStatusDisputed {
		return nil, ErrTransactionNotDisputed
	}

	resolution, err := dispute.Validate(decision, buyerRefund, sellerPayout, txn.Amount, notes)
	if err != nil {
		return nil, err
	}

	result, err := s.escrowClient.ResolveDispute(ctx, transactionID, resolution)
	if err != nil {
		return nil, fmt.Errorf("resolve dispute: %w", err)
	}

	if err := s.repo.RecordResolution(ctx, transactionID, result.Status, result.ResolvedAt, notes); err != nil {
		return nil, err
	}

	return result, nil
}

// CompleteTransaction помечает отправленную сделку завершённой,
// что разрешает выплату продавцу.
func (s *Service) CompleteTransaction(ctx context.Context, transactionID string) error {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	if txn.Status != model.TransactionStatusDispatched {
		return ErrTransactionNotDispatched
	}

	return s.repo.UpdateTransactionStatus(ctx, transactionID, model.TransactionStatusCompleted)
}

// MarkResolved помечает спорную сделку урегулированной без движения денег.
func (s *Service) MarkResolved(ctx context.Context, transactionID, notes string) error {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	if txn.Status != model.TransactionStatusDisputed {
		return ErrTransactionNotDisputed
	}

	return s.repo.RecordResolution(ctx, transactionID, model.TransactionStatusResolved, time.Now(), notes)
}

// StartStatusSync запускает фоновый процесс синхронизации статусов выплат из эскроу-системы.
func (s *Service) StartStatusSync(ctx context.Context) {
	if s.escrowClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processStatusSyncBatch(ctx)
			}
		}
	}()
}

func (s *Service) processStatusSyncBatch(ctx context.Context) {
	ids, err := s.repo.GetTransactionsForStatusSync(ctx, 100)
	if err != nil {
		return
	}

	for _, id := range ids {
		state, statusCode, retryAfter, err := s.escrowClient.GetTransactionState(ctx, id)
		if err != nil {
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if state == nil {
			continue
		}

		switch state.Status {
		case model.TransactionStatusPayoutStarted,
			model.TransactionStatusFulfilled,
			model.TransactionStatusRefunded,
			model.TransactionStatusSplitSettled:
			_ = s.repo.UpdateTransactionStatus(ctx, id, state.Status)
		default:
		}
	}
}
