package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDuplicatePayment = errors.New("payment already recorded")
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	ByID(ctx context.Context, id string) (*model.Payment, error)
	ByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	ByReference(ctx context.Context, userID, packageID, reference string) (*model.Payment, error)
	// Transition moves a payment from one status to another. It reports
	// false when the payment was not in the from status, which makes
	// concurrent or repeated transitions safe.
	Transition(ctx context.Context, id, from, to string, gatewayPaymentID *string, at time.Time) (bool, error)
	ListByUserID(ctx context.Context, userID string) ([]*model.Payment, error)
	List(ctx context.Context) ([]*model.Payment, error)
}

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := r.db.Rebind(`
		INSERT INTO payments (
			id, user_id, package_id, settings_id, mode, status, amount, currency,
			order_id, gateway_payment_id, reference, recorded_by, created_at, verified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.PackageID,
		payment.SettingsID,
		payment.Mode,
		payment.Status,
		payment.Amount,
		payment.Currency,
		payment.OrderID,
		payment.GatewayPaymentID,
		payment.Reference,
		payment.RecordedBy,
		payment.CreatedAt,
		payment.VerifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePayment
		}
		return err
	}

	return nil
}

func (r *paymentRepository) ByID(ctx context.Context, id string) (*model.Payment, error) {
	payment := &model.Payment{}
	query := r.db.Rebind(`SELECT * FROM payments WHERE id = ?`)

	err := sqlx.GetContext(ctx, r.db, payment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *paymentRepository) ByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	payment := &model.Payment{}
	query := r.db.Rebind(`SELECT * FROM payments WHERE order_id = ?`)

	err := sqlx.GetContext(ctx, r.db, payment, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *paymentRepository) ByReference(ctx context.Context, userID, packageID, reference string) (*model.Payment, error) {
	payment := &model.Payment{}
	query := r.db.Rebind(`SELECT * FROM payments WHERE user_id = ? AND package_id = ? AND reference = ?`)

	err := sqlx.GetContext(ctx, r.db, payment, query, userID, packageID, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *paymentRepository) Transition(ctx context.Context, id, from, to string, gatewayPaymentID *string, at time.Time) (bool, error) {
	var verifiedAt *time.Time
	if to == model.PaymentStatusVerified {
		verifiedAt = &at
	}

	query := r.db.Rebind(`
		UPDATE payments
		SET status = ?,
		    gateway_payment_id = COALESCE(?, gateway_payment_id),
		    verified_at = COALESCE(?, verified_at)
		WHERE id = ? AND status = ?
	`)

	result, err := r.db.ExecContext(ctx, query, to, gatewayPaymentID, verifiedAt, id, from)
	if err != nil {
		return false, err
	}

	rows, err := rowsAffected(result)
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

func (r *paymentRepository) ListByUserID(ctx context.Context, userID string) ([]*model.Payment, error) {
	var payments []*model.Payment
	query := r.db.Rebind(`SELECT * FROM payments WHERE user_id = ? ORDER BY created_at DESC, id`)

	err := sqlx.SelectContext(ctx, r.db, &payments, query, userID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context) ([]*model.Payment, error) {
	var payments []*model.Payment
	query := `SELECT * FROM payments ORDER BY created_at DESC, id`

	err := sqlx.SelectContext(ctx, r.db, &payments, query)
	if err != nil {
		return nil, err
	}

	return payments, nil
}
