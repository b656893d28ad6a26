package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

type StripeProvider struct{}

func NewStripeProvider() *StripeProvider {
	return &StripeProvider{}
}

func (s *StripeProvider) Name() string {
	return model.ProviderStripe
}

// CreateOrder creates a PaymentIntent. The intent id doubles as the order
// id; the client confirms it with the returned client_secret.
func (s *StripeProvider) CreateOrder(ctx context.Context, creds Credentials, req OrderRequest) (*Order, error) {
	sc := client.New(creds.KeySecret, nil)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("receipt", req.Receipt)
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}

	intent, err := sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	descriptor, err := json.Marshal(map[string]any{
		"id":            intent.ID,
		"client_secret": intent.ClientSecret,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
		"status":        intent.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment intent: %w", err)
	}

	slog.Info("stripe payment intent created", "intent_id", intent.ID, "receipt", req.Receipt)
	return &Order{ID: intent.ID, Descriptor: descriptor}, nil
}

func (s *StripeProvider) ParseWebhook(creds Credentials, payload []byte, headers http.Header) (*WebhookEvent, error) {
	signature := headers.Get("Stripe-Signature")

	// Use ConstructEventWithOptions to ignore API version mismatch
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		creds.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	slog.Info("stripe webhook received", "event_type", event.Type)

	out := &WebhookEvent{Type: string(event.Type)}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var intent struct {
			ID           string `json:"id"`
			LatestCharge string `json:"latest_charge"`
		}
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		out.OrderID = intent.ID
		out.PaymentID = intent.LatestCharge
		if out.PaymentID == "" {
			out.PaymentID = intent.ID
		}
		out.Paid = event.Type == "payment_intent.succeeded"
	default:
		slog.Warn("stripe webhook unknown event type", "event_type", event.Type)
	}

	return out, nil
}
