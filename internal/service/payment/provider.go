package payment

//go:generate mockgen -source=provider.go -destination=mocks/provider.go -package=mocks

import (
	"context"
	"encoding/json"
	"net/http"
)

// Credentials is an immutable snapshot of one payment_settings row. An
// operation captures a snapshot once and uses it to completion, so a
// concurrent rotation never changes the keys mid-flight.
type Credentials struct {
	SettingsID    string
	Provider      string
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

type OrderRequest struct {
	Amount   int64 // minor currency units
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is a gateway-side transaction intent. Descriptor is the gateway's
// response, handed to the client untouched.
type Order struct {
	ID         string
	Descriptor json.RawMessage
}

// WebhookEvent is the part of a gateway notification the bridge acts on.
type WebhookEvent struct {
	Type      string
	OrderID   string
	PaymentID string
	Paid      bool
}

// Provider defines the interface that all payment gateways must implement
type Provider interface {
	// Name returns the provider name (e.g., "razorpay", "stripe")
	Name() string

	// CreateOrder mints a gateway order for the amount using creds
	CreateOrder(ctx context.Context, creds Credentials, req OrderRequest) (*Order, error)

	// ParseWebhook authenticates a gateway notification with creds and
	// extracts the order it refers to
	ParseWebhook(creds Credentials, payload []byte, headers http.Header) (*WebhookEvent, error)
}
