package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx, so every repository can
// run inside or outside a transaction.
type DBTX interface {
	sqlx.ExtContext
}

// Store groups the repositories over one database handle.
type Store struct {
	db *sqlx.DB // nil when the store is bound to a transaction

	Users           UserRepository
	Groups          GroupRepository
	Media           MediaRepository
	Links           LinkRepository
	Packages        PackageRepository
	Subscriptions   SubscriptionRepository
	Payments        PaymentRepository
	PaymentSettings PaymentSettingRepository
}

func NewStore(db *sqlx.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q DBTX) *Store {
	return &Store{
		Users:           NewUserRepository(q),
		Groups:          NewGroupRepository(q),
		Media:           NewMediaRepository(q),
		Links:           NewLinkRepository(q),
		Packages:        NewPackageRepository(q),
		Subscriptions:   NewSubscriptionRepository(q),
		Payments:        NewPaymentRepository(q),
		PaymentSettings: NewPaymentSettingRepository(q),
	}
}

// InTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
// Calling InTx on a store that is already transactional reuses it.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = fn(bind(tx))
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// isUniqueViolation detects unique constraint violations for sqlite,
// postgres and mysql without importing driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value") ||
		strings.Contains(errStr, "Duplicate entry")
}

func rowsAffected(result sql.Result) (int64, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows, nil
}
