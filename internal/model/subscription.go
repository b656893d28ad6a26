package model

import (
	"time"
)

// Subscription links a user to a package for an interval. The active flag
// is the source of truth for entitlement.
type Subscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	PackageID string    `db:"package_id" json:"package_id"`
	PaymentID *string   `db:"payment_id" json:"payment_id"`
	Active    bool      `db:"active" json:"active"`
	StartsAt  time.Time `db:"starts_at" json:"starts_at"`
	EndsAt    time.Time `db:"ends_at" json:"ends_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s.Active && now.Before(s.EndsAt)
}
