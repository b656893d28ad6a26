package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adpanel/adpanel/internal/model"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type RazorpayProvider struct{}

func NewRazorpayProvider() *RazorpayProvider {
	return &RazorpayProvider{}
}

func (p *RazorpayProvider) Name() string {
	return model.ProviderRazorpay
}

// CreateOrder builds a client from the snapshot for every call so a
// rotation takes effect on the next order without a restart.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, creds Credentials, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}

	client := razorpay.NewClient(creds.KeyID, creds.KeySecret)
	body, err := client.Order.Create(map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay order response missing id")
	}

	descriptor, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode razorpay order: %w", err)
	}

	slog.Info("razorpay order created", "order_id", id, "receipt", req.Receipt)
	return &Order{ID: id, Descriptor: descriptor}, nil
}

func (p *RazorpayProvider) ParseWebhook(creds Credentials, payload []byte, headers http.Header) (*WebhookEvent, error) {
	signature := headers.Get("X-Razorpay-Signature")
	if signature == "" || creds.WebhookSecret == "" {
		return nil, errors.New("missing razorpay webhook signature")
	}
	if !utils.VerifyWebhookSignature(string(payload), signature, creds.WebhookSecret) {
		return nil, errors.New("invalid razorpay webhook signature")
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Status  string `json:"status"`
				} `json:"entity"`
			} `json:"payment"`
			Order struct {
				Entity struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"entity"`
			} `json:"order"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse razorpay webhook: %w", err)
	}

	out := &WebhookEvent{
		Type:      event.Event,
		OrderID:   event.Payload.Payment.Entity.OrderID,
		PaymentID: event.Payload.Payment.Entity.ID,
	}
	if out.OrderID == "" {
		out.OrderID = event.Payload.Order.Entity.ID
	}

	switch event.Event {
	case "payment.captured", "order.paid":
		out.Paid = true
	}

	slog.Info("razorpay webhook received", "event_type", event.Event, "order_id", out.OrderID)
	return out, nil
}
