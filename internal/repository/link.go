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
	ErrLinkNotFound  = errors.New("link not found")
	ErrDuplicateCode = errors.New("link code already taken")
)

type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	ByID(ctx context.Context, id string) (*model.Link, error)
	ByCode(ctx context.Context, code string) (*model.Link, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Link, error)
	// CodeActive reports whether a non-expired link holds code at now.
	CodeActive(ctx context.Context, code string, now time.Time) (bool, error)
	// ActiveCodes lists every code held by a non-expired link at now.
	ActiveCodes(ctx context.Context, now time.Time) ([]string, error)
	// EvictExpiredCode deletes expired rows holding code so it can be reissued.
	EvictExpiredCode(ctx context.Context, code string, now time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

type linkRepository struct {
	db DBTX
}

func NewLinkRepository(db DBTX) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	query := r.db.Rebind(`INSERT INTO links (id, code, user_id, group_id, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, link.ID, link.Code, link.UserID, link.GroupID, link.CreatedAt, link.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}

	return nil
}

func (r *linkRepository) ByID(ctx context.Context, id string) (*model.Link, error) {
	link := &model.Link{}
	query := r.db.Rebind(`SELECT * FROM links WHERE id = ?`)

	err := sqlx.GetContext(ctx, r.db, link, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}

	return link, nil
}

func (r *linkRepository) ByCode(ctx context.Context, code string) (*model.Link, error) {
	link := &model.Link{}
	query := r.db.Rebind(`SELECT * FROM links WHERE code = ?`)

	err := sqlx.GetContext(ctx, r.db, link, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}

	return link, nil
}

func (r *linkRepository) ListByUser(ctx context.Context, userID string) ([]*model.Link, error) {
	var links []*model.Link
	query := r.db.Rebind(`SELECT * FROM links WHERE user_id = ? ORDER BY created_at DESC, id`)

	err := sqlx.SelectContext(ctx, r.db, &links, query, userID)
	if err != nil {
		return nil, err
	}

	return links, nil
}

func (r *linkRepository) CodeActive(ctx context.Context, code string, now time.Time) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM links WHERE code = ? AND expires_at > ?`)

	err := sqlx.GetContext(ctx, r.db, &count, query, code, now)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *linkRepository) ActiveCodes(ctx context.Context, now time.Time) ([]string, error) {
	var codes []string
	query := r.db.Rebind(`SELECT code FROM links WHERE expires_at > ?`)

	err := sqlx.SelectContext(ctx, r.db, &codes, query, now)
	if err != nil {
		return nil, err
	}

	return codes, nil
}

func (r *linkRepository) EvictExpiredCode(ctx context.Context, code string, now time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM links WHERE code = ? AND expires_at <= ?`)

	result, err := r.db.ExecContext(ctx, query, code, now)
	if err != nil {
		return 0, err
	}

	return rowsAffected(result)
}

func (r *linkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM links WHERE expires_at <= ?`)

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return rowsAffected(result)
}

func (r *linkRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM links WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLinkNotFound
	}

	return nil
}
