// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/escrowadmin-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrOperatorNotFound возвращается, если оператор не найден.
var (
	ErrOperatorNotFound = errors.New("operator not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyBlocked возвращается при попытке повторной блокировки пользователя.
	ErrUserAlreadyBlocked = errors.New("user already blocked")
	// ErrUserNotBlocked возвращается при попытке разблокировать незаблокированного пользователя.
	ErrUserNotBlocked = errors.New("user not blocked")
	// ErrKycNotFound возвращается, если KYC-заявка продавца не найдена.
	ErrKycNotFound = errors.New("seller kyc not found")
	// ErrTransactionNotFound возвращается, если сделка не найдена.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrUserReferenced возвращается, если пользователя нельзя удалить из-за связанных записей.
	ErrUserReferenced = errors.New("user referenced by transactions")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// amountFromPaise переводит хранимую в пайсах сумму в десятичное значение.
func amountFromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}

// GetOperatorByUsername возвращает оператора по имени учётной записи.
func (r *PostgresRepository) GetOperatorByUsername(ctx context.Context, username string) (*model.Operator, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM operators WHERE username = $1`,
		username,
	)

	var op model.Operator
	err := row.Scan(&op.ID, &op.Username, &op.PasswordHash, &op.Role, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}

	return &op, nil
}

// GetOperatorByID возвращает оператора по идентификатору.
func (r *PostgresRepository) GetOperatorByID(ctx context.Context, id string) (*model.Operator, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM operators WHERE id = $1`,
		id,
	)

	var op model.Operator
	err := row.Scan(&op.ID, &op.Username, &op.PasswordHash, &op.Role, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}

	return &op, nil
}

const userColumns = `id, name, phone, email, verified, email_verified, is_seller,
	is_blocked, blocked_at, block_reason, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.Verified, &u.EmailVerified,
		&u.IsSeller, &u.IsBlocked, &u.BlockedAt, &u.BlockReason, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// GetUserByPhone возвращает пользователя площадки по номеру телефона.
func (r *PostgresRepository) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone = $1`,
		phone,
	)
	return scanUser(row)
}

// UpdateUser обновляет имя и почту пользователя, пропуская отсутствующие поля.
func (r *PostgresRepository) UpdateUser(ctx context.Context, phone string, name, email *string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     email = COALESCE($3, email),
		     updated_at = now()
		 WHERE phone = $1
		 RETURNING `+userColumns,
		phone, name, email,
	)
	return scanUser(row)
}

// DeleteUser удаляет пользователя площадки.
func (r *PostgresRepository) DeleteUser(ctx context.Context, phone string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE phone = $1`, phone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrUserReferenced
		}
		return fmt.Errorf("delete user: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// BlockUser блокирует пользователя с указанием причины и оператора.
func (r *PostgresRepository) BlockUser(ctx context.Context, phone, reason, operatorID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var blocked bool
	err = tx.QueryRow(ctx, `SELECT is_blocked FROM users WHERE phone = $1 FOR UPDATE`, phone).Scan(&blocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}

	if blocked {
		return ErrUserAlreadyBlocked
	}

	_, err = tx.Exec(ctx,
		`UPDATE users
		 SET is_blocked = true, blocked_at = now(), block_reason = $2, blocked_by = $3, updated_at = now()
		 WHERE phone = $1`,
		phone, reason, operatorID,
	)
	if err != nil {
		return fmt.Errorf("block user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// UnblockUser снимает блокировку пользователя.
func (r *PostgresRepository) UnblockUser(ctx context.Context, phone string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET is_blocked = false, blocked_at = NULL, block_reason = NULL, blocked_by = NULL, updated_at = now()
		 WHERE phone = $1 AND is_blocked`,
		phone,
	)
	if err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrUserNotBlocked
	}

	return nil
}

// ListBlockedUsers возвращает страницу заблокированных пользователей и общее их число.
func (r *PostgresRepository) ListBlockedUsers(ctx context.Context, page, limit int) ([]model.BlockedUser, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_blocked`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count blocked users: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.phone, u.email, u.blocked_at, u.block_reason, COALESCE(o.username, '')
		 FROM users u
		 LEFT JOIN operators o ON o.id = u.blocked_by
		 WHERE u.is_blocked
		 ORDER BY u.blocked_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select blocked users: %w", err)
	}
	defer rows.Close()

	var res []model.BlockedUser
	for rows.Next() {
		var b model.BlockedUser
		if err := rows.Scan(&b.ID, &b.Name, &b.Phone, &b.Email, &b.BlockedAt, &b.Reason, &b.BlockedByUsername); err != nil {
			return nil, 0, fmt.Errorf("scan blocked user: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

const kycColumns = `seller_id, status, business_name, business_type, pan_number, pan_verified,
	gstin, registered_address, city, state, pincode, contact_name, contact_email, contact_phone,
	bank_account_number, bank_ifsc_code, bank_holder_name, bank_verified,
	rejection_reason, submitted_at, approved_at, rejected_at, created_at, updated_at`

func scanKyc(row pgx.Row) (*model.SellerKyc, error) {
	var k model.SellerKyc
	err := row.Scan(&k.SellerID, &k.Status, &k.BusinessName, &k.BusinessType, &k.PanNumber,
		&k.PanVerified, &k.Gstin, &k.RegisteredAddress, &k.City, &k.State, &k.Pincode,
		&k.ContactName, &k.ContactEmail, &k.ContactPhone, &k.BankAccountNumber, &k.BankIfscCode,
		&k.BankHolderName, &k.BankVerified, &k.RejectionReason, &k.SubmittedAt, &k.ApprovedAt,
		&k.RejectedAt, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKycNotFound
		}
		return nil, fmt.Errorf("scan kyc: %w", err)
	}
	return &k, nil
}

// GetSellerKyc возвращает KYC-заявку продавца.
func (r *PostgresRepository) GetSellerKyc(ctx context.Context, sellerID string) (*model.SellerKyc, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+kycColumns+` FROM seller_kyc WHERE seller_id = $1`,
		sellerID,
	)
	return scanKyc(row)
}

// ListPendingKyc возвращает страницу продавцов с KYC на проверке.
// Пустой статус означает выборку по статусам PENDING и UNDER_REVIEW.
func (r *PostgresRepository) ListPendingKyc(ctx context.Context, page, limit int, status model.KycStatus) ([]model.PendingKycSeller, int, error) {
	statuses := []string{string(model.KycStatusPending), string(model.KycStatusUnderReview)}
	if status != "" {
		statuses = []string{string(status)}
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM seller_kyc WHERE status = ANY($1)`,
		statuses,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count pending kyc: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, u.phone, u.email, u.verified, u.email_verified, u.is_seller,
		        u.is_blocked, u.blocked_at, u.block_reason, u.created_at, u.updated_at,
		        k.seller_id, k.status, k.business_name, k.business_type, k.pan_number, k.pan_verified,
		        k.gstin, k.registered_address, k.city, k.state, k.pincode,
		        k.contact_name, k.contact_email, k.contact_phone,
		        k.bank_account_number, k.bank_ifsc_code, k.bank_holder_name, k.bank_verified,
		        k.rejection_reason, k.submitted_at, k.approved_at, k.rejected_at, k.created_at, k.updated_at
		 FROM seller_kyc k
		 JOIN users u ON u.id = k.seller_id
		 WHERE k.status = ANY($1)
		 ORDER BY k.submitted_at NULLS LAST, k.created_at
		 LIMIT $2 OFFSET $3`,
		statuses, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select pending kyc: %w", err)
	}
	defer rows.Close()

	var res []model.PendingKycSeller
	for rows.Next() {
		var s model.PendingKycSeller
		u := &s.User
		k := &s.Kyc
		err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.Verified, &u.EmailVerified,
			&u.IsSeller, &u.IsBlocked, &u.BlockedAt, &u.BlockReason, &u.CreatedAt, &u.UpdatedAt,
			&k.SellerID, &k.Status, &k.BusinessName, &k.BusinessType, &k.PanNumber, &k.PanVerified,
			&k.Gstin, &k.RegisteredAddress, &k.City, &k.State, &k.Pincode,
			&k.ContactName, &k.ContactEmail, &k.ContactPhone,
			&k.BankAccountNumber, &k.BankIfscCode, &k.BankHolderName, &k.BankVerified,
			&k.RejectionReason, &k.SubmittedAt, &k.ApprovedAt, &k.RejectedAt, &k.CreatedAt, &k.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan pending kyc: %w", err)
		}
		s.SellerID = k.SellerID
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// KycUpdate содержит изменяемые оператором поля KYC-заявки.
// Поля со значением nil остаются без изменений.
type KycUpdate struct {
	BusinessName      *string
	PanNumber         *string
	Gstin             *string
	RegisteredAddress *string
	City              *string
	State             *string
	Pincode           *string
	ContactName       *string
	ContactEmail      *string
	ContactPhone      *string
	BankHolderName    *string
	BankAccountNumber *string
	BankIfscCode      *string
}

// UpdateSellerKyc обновляет данные KYC-заявки продавца.
func (r *PostgresRepository) UpdateSellerKyc(ctx context.Context, sellerID string, upd KycUpdate) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE seller_kyc
		 SET business_name = COALESCE($2, business_name),
		     pan_number = COALESCE($3, pan_number),
		     gstin = COALESCE($4, gstin),
		     registered_address = COALESCE($5, registered_address),
		     city = COALESCE($6, city),
		     state = COALESCE($7, state),
		     pincode = COALESCE($8, pincode),
		     contact_name = COALESCE($9, contact_name),
		     contact_email = COALESCE($10, contact_email),
		     contact_phone = COALESCE($11, contact_phone),
		     bank_holder_name = COALESCE($12, bank_holder_name),
		     bank_account_number = COALESCE($13, bank_account_number),
		     bank_ifsc_code = COALESCE($14, bank_ifsc_code),
		     updated_at = now()
		 WHERE seller_id = $1`,
		sellerID, upd.BusinessName, upd.PanNumber, upd.Gstin, upd.RegisteredAddress,
		upd.City, upd.State, upd.Pincode, upd.ContactName, upd.ContactEmail, upd.ContactPhone,
		upd.BankHolderName, upd.BankAccountNumber, upd.BankIfscCode,
	)
	if err != nil {
		return fmt.Errorf("update kyc: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrKycNotFound
	}

	return nil
}

// SetKycApproved переводит KYC-заявку продавца в статус APPROVED.
func (r *PostgresRepository) SetKycApproved(ctx context.Context, sellerID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE seller_kyc
		 SET status = $2, approved_at = now(), rejection_reason = NULL, rejected_at = NULL, updated_at = now()
		 WHERE seller_id = $1`,
		sellerID, string(model.KycStatusApproved),
	)
	if err != nil {
		return fmt.Errorf("approve kyc: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrKycNotFound
	}

	return nil
}

// SetKycRejected переводит KYC-заявку продавца в статус REJECTED с указанием причины.
func (r *PostgresRepository) SetKycRejected(ctx context.Context, sellerID, reason string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE seller_kyc
		 SET status = $2, rejection_reason = $3, rejected_at = now(), approved_at = NULL, updated_at = now()
		 WHERE seller_id = $1`,
		sellerID, string(model.KycStatusRejected), reason,
	)
	if err != nil {
		return fmt.Errorf("reject kyc: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrKycNotFound
	}

	return nil
}

const transactionSelect = `
	SELECT t.id, t.txn_code, t.title, t.description, t.amount, t.status, t.owner_type,
	       t.delivery_method, t.tracking_link, t.chat_link,
	       t.dispute_reason, t.dispute_description, t.disputed_at, t.resolved_at, t.paid_at,
	       t.created_at, t.updated_at,
	       b.id, b.name, b.phone, b.email,
	       s.id, s.name, s.phone, s.email
	FROM transactions t
	LEFT JOIN users b ON b.id = t.buyer_id
	LEFT JOIN users s ON s.id = t.seller_id`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t           model.Transaction
		amountPaise int64

		buyerID, buyerName, buyerPhone    *string
		buyerEmail                        *string
		sellerID, sellerName, sellerPhone *string
		sellerEmail                       *string
	)

	err := row.Scan(&t.ID, &t.TxnCode, &t.Title, &t.Description, &amountPaise, &t.Status,
		&t.OwnerType, &t.DeliveryMethod, &t.TrackingLink, &t.ChatLink,
		&t.DisputeReason, &t.DisputeDescription, &t.DisputedAt, &t.ResolvedAt, &t.PaidAt,
		&t.CreatedAt, &t.UpdatedAt,
		&buyerID, &buyerName, &buyerPhone, &buyerEmail,
		&sellerID, &sellerName, &sellerPhone, &sellerEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Amount = amountFromPaise(amountPaise)

	if buyerID != nil {
		t.Buyer = &model.TransactionParty{ID: *buyerID, Name: *buyerName, Phone: *buyerPhone, Email: buyerEmail}
	}
	if sellerID != nil {
		t.Seller = &model.TransactionParty{ID: *sellerID, Name: *sellerName, Phone: *sellerPhone, Email: sellerEmail}
	}

	return &t, nil
}

func (r *PostgresRepository) queryTransactions(ctx context.Context, where string, args []any, limit, offset int) ([]model.Transaction, error) {
	query := transactionSelect + " " + where +
		fmt.Sprintf(" ORDER BY t.created_at DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

func (r *PostgresRepository) loadAttachments(ctx context.Context, txns []model.Transaction) error {
	for i := range txns {
		rows, err := r.pool.Query(ctx,
			`SELECT url, name, content_type FROM dispute_attachments WHERE transaction_id = $1 ORDER BY id`,
			txns[i].ID,
		)
		if err != nil {
			return fmt.Errorf("select attachments: %w", err)
		}

		for rows.Next() {
			var a model.DisputeAttachment
			if err := rows.Scan(&a.URL, &a.Name, &a.ContentType); err != nil {
				rows.Close()
				return fmt.Errorf("scan attachment: %w", err)
			}
			txns[i].DisputeAttachments = append(txns[i].DisputeAttachments, a)
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
	}

	return nil
}

// SearchTransactions ищет сделки по коду либо телефону покупателя или продавца.
func (r *PostgresRepository) SearchTransactions(ctx context.Context, code, buyerPhone, sellerPhone string, page, limit int) ([]model.Transaction, int, error) {
	where := "WHERE 1=1"
	var args []any

	if code != "" {
		args = append(args, code)
		where += fmt.Sprintf(" AND t.txn_code = $%d", len(args))
	}
	if buyerPhone != "" {
		args = append(args, buyerPhone)
		where += fmt.Sprintf(" AND b.phone = $%d", len(args))
	}
	if sellerPhone != "" {
		args = append(args, sellerPhone)
		where += fmt.Sprintf(" AND s.phone = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*)
		FROM transactions t
		LEFT JOIN users b ON b.id = t.buyer_id
		LEFT JOIN users s ON s.id = t.seller_id ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	txns, err := r.queryTransactions(ctx, where, args, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

// ListDisputedTransactions возвращает страницу сделок в статусе DISPUTED вместе с доказательствами.
func (r *PostgresRepository) ListDisputedTransactions(ctx context.Context, page, limit int) ([]model.Transaction, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE status = $1`,
		string(model.TransactionStatusDisputed),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count disputed: %w", err)
	}

	txns, err := r.queryTransactions(ctx, "WHERE t.status = $1",
		[]any{string(model.TransactionStatusDisputed)}, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	if err := r.loadAttachments(ctx, txns); err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

// GetTransaction возвращает сделку по идентификатору вместе с доказательствами спора.
func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := r.pool.QueryRow(ctx, transactionSelect+" WHERE t.id = $1", id)

	t, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}

	txns := []model.Transaction{*t}
	if err := r.loadAttachments(ctx, txns); err != nil {
		return nil, err
	}

	return &txns[0], nil
}

// RecordResolution фиксирует новый статус сделки после решения по спору
// вместе с заметками оператора.
func (r *PostgresRepository) RecordResolution(ctx context.Context, id string, status model.TransactionStatus, resolvedAt time.Time, notes string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		 SET status = $2, resolved_at = $3, resolution_notes = NULLIF($4, ''), updated_at = now()
		 WHERE id = $1`,
		id, string(status), resolvedAt, notes,
	)
	if err != nil {
		return fmt.Errorf("record resolution: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// UpdateTransactionStatus обновляет статус сделки.
func (r *PostgresRepository) UpdateTransactionStatus(ctx context.Context, id string, status model.TransactionStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// GetTransactionsForStatusSync возвращает идентификаторы сделок, по которым выплата ещё идёт.
func (r *PostgresRepository) GetTransactionsForStatusSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id
		 FROM transactions
		 WHERE status IN ($1, $2)
		 ORDER BY updated_at
		 LIMIT $3`,
		string(model.TransactionStatusReadyForPayout),
		string(model.TransactionStatusPayoutStarted),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions for sync: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan transaction id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}
