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
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrDuplicateActivation  = errors.New("payment already activated a subscription")
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	ActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Subscription, error)
	ByPaymentID(ctx context.Context, paymentID string) (*model.Subscription, error)
	ListByUserID(ctx context.Context, userID string) ([]*model.Subscription, error)
	// DeactivateAll clears the active flag on every subscription the user holds.
	DeactivateAll(ctx context.Context, userID string, now time.Time) (int64, error)
}

type subscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	query := r.db.Rebind(`
		INSERT INTO subscriptions (
			id, user_id, package_id, payment_id, active,
			starts_at, ends_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.PackageID,
		sub.PaymentID,
		sub.Active,
		sub.StartsAt,
		sub.EndsAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActivation
		}
		return err
	}

	return nil
}

func (r *subscriptionRepository) ActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Subscription, error) {
	sub := &model.Subscription{}
	query := r.db.Rebind(`
		SELECT * FROM subscriptions
		WHERE user_id = ? AND active = ? AND ends_at > ?
		ORDER BY starts_at DESC, id
		LIMIT 1
	`)

	err := sqlx.GetContext(ctx, r.db, sub, query, userID, true, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *subscriptionRepository) ByPaymentID(ctx context.Context, paymentID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	query := r.db.Rebind(`SELECT * FROM subscriptions WHERE payment_id = ?`)

	err := sqlx.GetContext(ctx, r.db, sub, query, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (r *subscriptionRepository) ListByUserID(ctx context.Context, userID string) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	query := r.db.Rebind(`SELECT * FROM subscriptions WHERE user_id = ? ORDER BY starts_at DESC, id`)

	err := sqlx.SelectContext(ctx, r.db, &subs, query, userID)
	if err != nil {
		return nil, err
	}

	return subs, nil
}

func (r *subscriptionRepository) DeactivateAll(ctx context.Context, userID string, now time.Time) (int64, error) {
	query := r.db.Rebind(`UPDATE subscriptions SET active = ?, updated_at = ? WHERE user_id = ? AND active = ?`)

	result, err := r.db.ExecContext(ctx, query, false, now, userID, true)
	if err != nil {
		return 0, err
	}

	return rowsAffected(result)
}
