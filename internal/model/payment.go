package model

import (
	"time"
)

const (
	PaymentModeOnline  = "online"
	PaymentModeOffline = "offline"
)

// Payment statuses. created covers the window in which the customer is in
// the gateway's checkout; verified and rejected are terminal.
const (
	PaymentStatusCreated  = "created"
	PaymentStatusVerified = "verified"
	PaymentStatusRejected = "rejected"
)

const (
	ProviderRazorpay = "razorpay"
	ProviderStripe   = "stripe"
)

type Payment struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	PackageID        string     `db:"package_id" json:"package_id"`
	SettingsID       *string    `db:"settings_id" json:"-"`
	Mode             string     `db:"mode" json:"mode"`
	Status           string     `db:"status" json:"status"`
	Amount           int64      `db:"amount" json:"amount"`
	Currency         string     `db:"currency" json:"currency"`
	OrderID          *string    `db:"order_id" json:"order_id,omitempty"`
	GatewayPaymentID *string    `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	Reference        *string    `db:"reference" json:"reference,omitempty"`
	RecordedBy       *string    `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt       *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

func (p *Payment) IsVerified() bool {
	return p.Status == PaymentStatusVerified
}

func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusVerified || p.Status == PaymentStatusRejected
}

// PaymentSetting is one entry in the append-only gateway credential log.
// The most recent row is the active configuration.
type PaymentSetting struct {
	ID            string    `db:"id"`
	Provider      string    `db:"provider"`
	KeyID         string    `db:"key_id"`
	KeySecret     string    `db:"key_secret"`
	WebhookSecret string    `db:"webhook_secret"`
	CreatedBy     *string   `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
}
