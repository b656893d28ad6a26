package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMediaNotFound = errors.New("media not found")
)

type MediaRepository interface {
	Create(ctx context.Context, media *model.Media) error
	ByID(ctx context.Context, id string) (*model.Media, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Media, error)
	ListByGroup(ctx context.Context, userID, groupID string) ([]*model.Media, error)
	UpdateGroup(ctx context.Context, id string, groupID *string) error
	Delete(ctx context.Context, id string) error
}

type mediaRepository struct {
	db DBTX
}

func NewMediaRepository(db DBTX) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *model.Media) error {
	query := r.db.Rebind(`INSERT INTO media (id, user_id, group_id, type, filename, original_name, mime_type, size, storage_path, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		media.ID,
		media.UserID,
		media.GroupID,
		media.Type,
		media.Filename,
		media.OriginalName,
		media.MimeType,
		media.Size,
		media.StoragePath,
		media.CreatedAt,
	)

	return err
}

func (r *mediaRepository) ByID(ctx context.Context, id string) (*model.Media, error) {
	media := &model.Media{}
	query := r.db.Rebind(`SELECT * FROM media WHERE id = ?`)

	err := sqlx.GetContext(ctx, r.db, media, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}

	return media, nil
}

func (r *mediaRepository) ListByUser(ctx context.Context, userID string) ([]*model.Media, error) {
	var media []*model.Media
	query := r.db.Rebind(`SELECT * FROM media WHERE user_id = ? ORDER BY created_at, id`)

	err := sqlx.SelectContext(ctx, r.db, &media, query, userID)
	if err != nil {
		return nil, err
	}

	return media, nil
}

// ListByGroup returns the playback order for a group: oldest first, ties
// broken by id so the order is stable across requests.
func (r *mediaRepository) ListByGroup(ctx context.Context, userID, groupID string) ([]*model.Media, error) {
	var media []*model.Media
	query := r.db.Rebind(`SELECT * FROM media WHERE user_id = ? AND group_id = ? ORDER BY created_at, id`)

	err := sqlx.SelectContext(ctx, r.db, &media, query, userID, groupID)
	if err != nil {
		return nil, err
	}

	return media, nil
}

func (r *mediaRepository) UpdateGroup(ctx context.Context, id string, groupID *string) error {
	query := r.db.Rebind(`UPDATE media SET group_id = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, groupID, id)
	if err != nil {
		return err
	}

	rows, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMediaNotFound
	}

	return nil
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM media WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMediaNotFound
	}

	return nil
}
