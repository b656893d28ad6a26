package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/ctxkeys"
	"github.com/adpanel/adpanel/internal/service"
)

// maxWebhookBody bounds gateway notification payloads.
const maxWebhookBody = 256 << 10

type BillingHandler struct {
	packageService      *service.PackageService
	subscriptionService *service.SubscriptionService
	paymentService      *service.PaymentService
}

func NewBillingHandler(packageService *service.PackageService, subscriptionService *service.SubscriptionService, paymentService *service.PaymentService) *BillingHandler {
	return &BillingHandler{
		packageService:      packageService,
		subscriptionService: subscriptionService,
		paymentService:      paymentService,
	}
}

func (h *BillingHandler) Packages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.packageService.List(r.Context(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"packages": packages})
}

func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	sub, err := h.subscriptionService.Current(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

func (h *BillingHandler) Payments(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	payments, err := h.paymentService.ListPayments(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

type createOrderRequest struct {
	PackageID string `json:"package_id"`
}

func (h *BillingHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req createOrderRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.paymentService.CreateOrder(r.Context(), user.ID, req.PackageID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

type verifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (h *BillingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req verifyRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sub, err := h.paymentService.Verify(r.Context(), user.ID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("failed to read webhook payload", "error", err)
		writeError(w, r, apperr.Validation("failed to read payload"))
		return
	}

	err = h.paymentService.HandleWebhook(r.Context(), payload, r.Header)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
