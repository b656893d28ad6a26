package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPaymentSettingNotFound = errors.New("payment setting not found")
)

// PaymentSettingRepository is append-only: rotations insert a new row and
// the most recent one wins.
type PaymentSettingRepository interface {
	Append(ctx context.Context, setting *model.PaymentSetting) error
	Latest(ctx context.Context) (*model.PaymentSetting, error)
	ByID(ctx context.Context, id string) (*model.PaymentSetting, error)
}

type paymentSettingRepository struct {
	db DBTX
}

func NewPaymentSettingRepository(db DBTX) PaymentSettingRepository {
	return &paymentSettingRepository{db: db}
}

func (r *paymentSettingRepository) Append(ctx context.Context, setting *model.PaymentSetting) error {
	query := r.db.Rebind(`
		INSERT INTO payment_settings (id, provider, key_id, key_secret, webhook_secret, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		setting.ID,
		setting.Provider,
		setting.KeyID,
		setting.KeySecret,
		setting.WebhookSecret,
		setting.CreatedBy,
		setting.CreatedAt,
	)

	return err
}

func (r *paymentSettingRepository) Latest(ctx context.Context) (*model.PaymentSetting, error) {
	setting := &model.PaymentSetting{}
	query := `SELECT * FROM payment_settings ORDER BY created_at DESC, id DESC LIMIT 1`

	err := sqlx.GetContext(ctx, r.db, setting, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentSettingNotFound
	}
	if err != nil {
		return nil, err
	}

	return setting, nil
}

func (r *paymentSettingRepository) ByID(ctx context.Context, id string) (*model.PaymentSetting, error) {
	setting := &model.PaymentSetting{}
	query := r.db.Rebind(`SELECT * FROM payment_settings WHERE id = ?`)

	err := sqlx.GetContext(ctx, r.db, setting, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentSettingNotFound
	}
	if err != nil {
		return nil, err
	}

	return setting, nil
}
