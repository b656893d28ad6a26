package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrGroupNotFound = errors.New("group not found")
)

type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	ByID(ctx context.Context, id string) (*model.Group, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Group, error)
	Delete(ctx context.Context, id string) error
}

type groupRepository struct {
	db DBTX
}

func NewGroupRepository(db DBTX) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	query := r.db.Rebind(`INSERT INTO media_groups (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query, group.ID, group.UserID, group.Name, group.CreatedAt)
	return err
}

func (r *groupRepository) ByID(ctx context.Context, id string) (*model.Group, error) {
	group := &model.Group{}
	query := r.db.Rebind(`SELECT * FROM media_groups WHERE id = ?`)

	err := sqlx.GetContext(ctx, r.db, group, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}

	return group, nil
}

func (r *groupRepository) ListByUser(ctx context.Context, userID string) ([]*model.Group, error) {
	var groups []*model.Group
	query := r.db.Rebind(`SELECT * FROM media_groups WHERE user_id = ? ORDER BY created_at, id`)

	err := sqlx.SelectContext(ctx, r.db, &groups, query, userID)
	if err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *groupRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM media_groups WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGroupNotFound
	}

	return nil
}
