package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrPackageNotFound = errors.New("package not found")
)

type PackageRepository interface {
	Create(ctx context.Context, pkg *model.Package) error
	ByID(ctx context.Context, id string) (*model.Package, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Package, error)
	Update(ctx context.Context, pkg *model.Package) error
}

type packageRepository struct {
	db DBTX
}

func NewPackageRepository(db DBTX) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(ctx context.Context, pkg *model.Package) error {
	query := r.db.Rebind(`
		INSERT INTO packages (id, name, features, price, duration_days, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		pkg.ID,
		pkg.Name,
		pkg.Features,
		pkg.Price,
		pkg.DurationDays,
		pkg.Active,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	)

	return err
}

func (r *packageRepository) ByID(ctx context.Context, id string) (*model.Package, error) {
	pkg := &model.Package{}
	query := r.db.Rebind(`SELECT * FROM packages WHERE id = ?`)

	err := sqlx.GetContext(ctx, r.db, pkg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}

	return pkg, nil
}

func (r *packageRepository) List(ctx context.Context, activeOnly bool) ([]*model.Package, error) {
	var packages []*model.Package
	query := `SELECT * FROM packages ORDER BY price, name`
	var args []any
	if activeOnly {
		query = r.db.Rebind(`SELECT * FROM packages WHERE active = ? ORDER BY price, name`)
		args = append(args, true)
	}

	err := sqlx.SelectContext(ctx, r.db, &packages, query, args...)
	if err != nil {
		return nil, err
	}

	return packages, nil
}

func (r *packageRepository) Update(ctx context.Context, pkg *model.Package) error {
	query := r.db.Rebind(`
		UPDATE packages
		SET name = ?,
		    features = ?,
		    price = ?,
		    duration_days = ?,
		    active = ?,
		    updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		pkg.Name,
		pkg.Features,
		pkg.Price,
		pkg.DurationDays,
		pkg.Active,
		pkg.UpdatedAt,
		pkg.ID,
	)
	if err != nil {
		return err
	}

	rows, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPackageNotFound
	}

	return nil
}
