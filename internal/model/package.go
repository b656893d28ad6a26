package model

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Package is a purchasable plan. Price is kept in minor currency units.
type Package struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Features     types.JSONText `db:"features" json:"features"`
	Price        int64          `db:"price" json:"price"`
	DurationDays int            `db:"duration_days" json:"duration_days"`
	Active       bool           `db:"active" json:"active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

func (p *Package) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

func (p *Package) FormatPrice(currency string) string {
	return FormatAmount(p.Price, currency)
}

// FormatAmount renders a minor-unit amount as "INR 499.00".
func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, amount/100, amount%100)
}
