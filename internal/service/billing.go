package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/service/payment"
	"github.com/google/uuid"
)

// OrderResult is returned to the client to open the gateway checkout.
// Order is the gateway's descriptor, passed through untouched.
type OrderResult struct {
	PaymentID string          `json:"payment_id"`
	Provider  string          `json:"provider"`
	KeyID     string          `json:"key_id"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Order     json.RawMessage `json:"order"`
}

// OfflinePaymentInput is an admin's record of a payment taken outside the
// gateway. Amount is in major units; zero means the package price.
type OfflinePaymentInput struct {
	UserID    string  `json:"user_id"`
	PackageID string  `json:"package_id"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference"`
}

type OfflinePaymentResult struct {
	Payment      *model.Payment      `json:"payment"`
	Subscription *model.Subscription `json:"subscription"`
	Duplicate    bool                `json:"duplicate"`
}

type SettingsInput struct {
	Provider      string `json:"provider"`
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
}

// SettingsView is the public face of the gateway configuration. Secrets
// are reported only as present or absent.
type SettingsView struct {
	Configured       bool       `json:"configured"`
	Provider         string     `json:"provider,omitempty"`
	KeyID            string     `json:"key_id,omitempty"`
	HasKeySecret     bool       `json:"has_key_secret"`
	HasWebhookSecret bool       `json:"has_webhook_secret"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

type PaymentService struct {
	store               *repository.Store
	providers           *payment.Registry
	credentials         payment.CredentialHolder
	subscriptionService *SubscriptionService
	emailService        *EmailService
	currency            string
	defaultProvider     string
	now                 func() time.Time
}

func NewPaymentService(
	store *repository.Store,
	providers *payment.Registry,
	subscriptionService *SubscriptionService,
	emailService *EmailService,
	currency string,
	defaultProvider string,
) *PaymentService {
	return &PaymentService{
		store:               store,
		providers:           providers,
		subscriptionService: subscriptionService,
		emailService:        emailService,
		currency:            currency,
		defaultProvider:     defaultProvider,
		now:                 utcNow,
	}
}

// LoadSettings publishes the latest stored credentials. Without any the
// bridge runs unconfigured and online orders fail with NotConfigured.
func (s *PaymentService) LoadSettings(ctx context.Context) error {
	setting, err := s.store.PaymentSettings.Latest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentSettingNotFound) {
			slog.Info("payment gateway not configured")
			return nil
		}
		return fmt.Errorf("failed to load payment settings: %w", err)
	}

	s.credentials.Store(credentialsFrom(setting))
	slog.Info("payment settings loaded", "provider", setting.Provider, "settings_id", setting.ID)
	return nil
}

// CreateOrder asks the gateway for an order over the package price. The
// credential snapshot is taken once, so a concurrent rotation does not
// affect an order already in flight. Gateway calls are never retried.
func (s *PaymentService) CreateOrder(ctx context.Context, userID, packageID string) (*OrderResult, error) {
	if packageID == "" {
		return nil, apperr.Validation("package_id is required")
	}

	pkg, err := s.store.Packages.ByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			return nil, apperr.NotFound("package not found")
		}
		return nil, storeErr("get package", err)
	}
	if !pkg.Active {
		return nil, apperr.NotFound("package not found")
	}

	creds, ok := s.credentials.Load()
	if !ok {
		return nil, apperr.NotConfigured("payment gateway is not configured")
	}

	provider, err := s.providers.Get(creds.Provider)
	if err != nil {
		slog.Error("payment settings reference unknown provider", "provider", creds.Provider)
		return nil, apperr.NotConfigured("payment gateway is not configured")
	}

	paymentID := uuid.NewString()
	order, err := provider.CreateOrder(ctx, creds, payment.OrderRequest{
		Amount:   pkg.Price,
		Currency: s.currency,
		Receipt:  paymentID,
		Notes: map[string]string{
			"user_id":    userID,
			"package_id": pkg.ID,
		},
	})
	if err != nil {
		slog.Error("gateway order creation failed", "error", err, "provider", provider.Name(), "user_id", userID)
		return nil, apperr.Gateway(err)
	}

	p := &model.Payment{
		ID:         paymentID,
		UserID:     userID,
		PackageID:  pkg.ID,
		SettingsID: &creds.SettingsID,
		Mode:       model.PaymentModeOnline,
		Status:     model.PaymentStatusCreated,
		Amount:     pkg.Price,
		Currency:   s.currency,
		OrderID:    &order.ID,
		CreatedAt:  s.now(),
	}

	err = s.store.Payments.Create(ctx, p)
	if err != nil {
		return nil, storeErr("create payment", err)
	}

	slog.Info("payment order created", "payment_id", p.ID, "order_id", order.ID, "user_id", userID, "amount", p.Amount)
	return &OrderResult{
		PaymentID: p.ID,
		Provider:  provider.Name(),
		KeyID:     creds.KeyID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Order:     order.Descriptor,
	}, nil
}

// Verify checks the checkout signature for orderID and activates the
// subscription. The secret comes from the settings row the order was
// created with. A mismatch rejects the payment for good; a repeated valid
// call returns the subscription the first call created.
func (s *PaymentService) Verify(ctx context.Context, userID, orderID, gatewayPaymentID, signature string) (*model.Subscription, error) {
	if orderID == "" || gatewayPaymentID == "" || signature == "" {
		return nil, apperr.Validation("order_id, payment_id and signature are required")
	}

	p, err := s.store.Payments.ByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, storeErr("get payment", err)
	}
	if p.UserID != userID {
		return nil, apperr.NotFound("payment not found")
	}
	if p.SettingsID == nil {
		return nil, apperr.NotConfigured("payment gateway is not configured")
	}

	setting, err := s.store.PaymentSettings.ByID(ctx, *p.SettingsID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentSettingNotFound) {
			return nil, apperr.NotConfigured("payment gateway is not configured")
		}
		return nil, storeErr("get payment settings", err)
	}

	if !payment.VerifySignature(setting.KeySecret, orderID, gatewayPaymentID, signature) {
		s.reject(ctx, p)
		return nil, apperr.InvalidSignature("payment signature mismatch")
	}

	return s.confirm(ctx, p, gatewayPaymentID, false)
}

func (s *PaymentService) reject(ctx context.Context, p *model.Payment) {
	moved, err := s.store.Payments.Transition(ctx, p.ID, model.PaymentStatusCreated, model.PaymentStatusRejected, nil, s.now())
	if err != nil {
		slog.Error("failed to reject payment", "error", err, "payment_id", p.ID)
		return
	}
	if moved {
		slog.Warn("payment rejected: signature mismatch", "payment_id", p.ID, "user_id", p.UserID)
	}
}

// confirm moves p from created to verified and activates its subscription
// in one transaction. Only the caller that wins the transition activates;
// later callers get the existing subscription. With settle set, a payment
// rejected by a client verify is also moved to verified; only callers
// holding gateway-authenticated proof of payment may set it.
func (s *PaymentService) confirm(ctx context.Context, p *model.Payment, gatewayPaymentID string, settle bool) (*model.Subscription, error) {
	var (
		sub       *model.Subscription
		pkg       *model.Package
		activated bool
	)

	var gatewayRef *string
	if gatewayPaymentID != "" {
		gatewayRef = &gatewayPaymentID
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		now := s.now()

		moved, err := tx.Payments.Transition(ctx, p.ID, model.PaymentStatusCreated, model.PaymentStatusVerified, gatewayRef, now)
		if err != nil {
			return fmt.Errorf("failed to verify payment: %w", err)
		}
		if !moved && settle {
			moved, err = tx.Payments.Transition(ctx, p.ID, model.PaymentStatusRejected, model.PaymentStatusVerified, gatewayRef, now)
			if err != nil {
				return fmt.Errorf("failed to settle payment: %w", err)
			}
		}

		if !moved {
			current, err := tx.Payments.ByID(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to reload payment: %w", err)
			}
			if current.Status != model.PaymentStatusVerified {
				return apperr.InvalidSignature("payment was rejected")
			}
			sub, err = tx.Subscriptions.ByPaymentID(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to get subscription: %w", err)
			}
			return nil
		}

		pkg, err = tx.Packages.ByID(ctx, p.PackageID)
		if err != nil {
			return fmt.Errorf("failed to get package: %w", err)
		}

		sub, err = s.subscriptionService.activate(ctx, tx, p.UserID, pkg, p.ID, now)
		if err != nil {
			return err
		}
		activated = true
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateActivation) {
		sub, err = s.store.Subscriptions.ByPaymentID(ctx, p.ID)
	}
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, storeErr("confirm payment", err)
	}

	if activated {
		slog.Info("payment verified, subscription activated", "payment_id", p.ID, "user_id", p.UserID, "subscription_id", sub.ID)
		s.notifyPaid(ctx, p, pkg, sub)
	}
	return sub, nil
}

// RecordOffline records a payment an admin took outside the gateway and
// activates the subscription. Repeating a (user, package, reference)
// returns the first record without activating again.
func (s *PaymentService) RecordOffline(ctx context.Context, adminID string, in OfflinePaymentInput) (*OfflinePaymentResult, error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if in.UserID == "" || in.PackageID == "" {
		return nil, apperr.Validation("user_id and package_id are required")
	}
	if in.Reference == "" {
		return nil, apperr.Validation("reference is required")
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount > maxPrice {
		return nil, apperr.Validation("amount is out of range")
	}

	user, err := s.store.Users.ByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, storeErr("get user", err)
	}

	pkg, err := s.store.Packages.ByID(ctx, in.PackageID)
	if err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			return nil, apperr.NotFound("package not found")
		}
		return nil, storeErr("get package", err)
	}

	amount := toMinorUnits(in.Amount)
	if amount <= 0 {
		amount = pkg.Price
	}

	now := s.now()
	p := &model.Payment{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		PackageID:  pkg.ID,
		Mode:       model.PaymentModeOffline,
		Status:     model.PaymentStatusVerified,
		Amount:     amount,
		Currency:   s.currency,
		Reference:  &in.Reference,
		RecordedBy: &adminID,
		CreatedAt:  now,
		VerifiedAt: &now,
	}

	var sub *model.Subscription
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		_, err := tx.Payments.ByReference(ctx, user.ID, pkg.ID, in.Reference)
		if err == nil {
			return repository.ErrDuplicatePayment
		}
		if !errors.Is(err, repository.ErrPaymentNotFound) {
			return err
		}

		err = tx.Payments.Create(ctx, p)
		if err != nil {
			return err
		}

		sub, err = s.subscriptionService.activate(ctx, tx, user.ID, pkg, p.ID, now)
		return err
	})
	if errors.Is(err, repository.ErrDuplicatePayment) {
		return s.existingOffline(ctx, user.ID, pkg.ID, in.Reference)
	}
	if err != nil {
		return nil, storeErr("record offline payment", err)
	}

	slog.Info("offline payment recorded", "payment_id", p.ID, "user_id", user.ID, "admin_id", adminID, "amount", amount)
	s.notifyPaid(ctx, p, pkg, sub)
	return &OfflinePaymentResult{Payment: p, Subscription: sub}, nil
}

func (s *PaymentService) existingOffline(ctx context.Context, userID, packageID, reference string) (*OfflinePaymentResult, error) {
	p, err := s.store.Payments.ByReference(ctx, userID, packageID, reference)
	if err != nil {
		return nil, storeErr("get offline payment", err)
	}

	sub, err := s.store.Subscriptions.ByPaymentID(ctx, p.ID)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, storeErr("get subscription", err)
	}

	slog.Info("offline payment already recorded", "payment_id", p.ID, "reference", reference)
	return &OfflinePaymentResult{Payment: p, Subscription: sub, Duplicate: true}, nil
}

func (s *PaymentService) Settings(ctx context.Context) (*SettingsView, error) {
	setting, err := s.store.PaymentSettings.Latest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentSettingNotFound) {
			return &SettingsView{}, nil
		}
		return nil, storeErr("get payment settings", err)
	}
	return settingsView(setting), nil
}

// UpdateSettings appends a credentials row and swaps the live snapshot.
func (s *PaymentService) UpdateSettings(ctx context.Context, adminID string, in SettingsInput) (*SettingsView, error) {
	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	if in.Provider == "" {
		in.Provider = s.defaultProvider
	}
	_, err := s.providers.Get(in.Provider)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	in.KeyID = strings.TrimSpace(in.KeyID)
	if in.KeyID == "" || in.KeySecret == "" {
		return nil, apperr.Validation("key_id and key_secret are required")
	}

	setting := &model.PaymentSetting{
		ID:            uuid.Must(uuid.NewV7()).String(),
		Provider:      in.Provider,
		KeyID:         in.KeyID,
		KeySecret:     in.KeySecret,
		WebhookSecret: in.WebhookSecret,
		CreatedBy:     &adminID,
		CreatedAt:     s.now(),
	}

	err = s.store.PaymentSettings.Append(ctx, setting)
	if err != nil {
		return nil, storeErr("save payment settings", err)
	}

	s.credentials.Store(credentialsFrom(setting))
	slog.Info("payment settings rotated", "admin_id", adminID, "provider", setting.Provider, "key_id", setting.KeyID, "settings_id", setting.ID)
	return settingsView(setting), nil
}

// HandleWebhook reconciles a gateway notification through the same
// transition as Verify, so a webhook and a client verify can race safely.
// The gateway's word is final: a paid event settles an order even after a
// client verify rejected it.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	creds, ok := s.credentials.Load()
	if !ok {
		return apperr.NotConfigured("payment gateway is not configured")
	}

	provider, err := s.providers.Get(creds.Provider)
	if err != nil {
		return apperr.NotConfigured("payment gateway is not configured")
	}

	event, err := provider.ParseWebhook(creds, payload, headers)
	if err != nil {
		slog.Warn("webhook rejected", "error", err, "provider", provider.Name())
		return apperr.InvalidSignature("invalid webhook signature")
	}

	if !event.Paid || event.OrderID == "" {
		slog.Debug("webhook ignored", "event_type", event.Type, "order_id", event.OrderID)
		return nil
	}

	p, err := s.store.Payments.ByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			slog.Warn("webhook for unknown order", "order_id", event.OrderID)
			return nil
		}
		return storeErr("get payment", err)
	}

	_, err = s.confirm(ctx, p, event.PaymentID, true)
	return err
}

func (s *PaymentService) ListPayments(ctx context.Context, userID string) ([]*model.Payment, error) {
	payments, err := s.store.Payments.ListByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	return payments, nil
}

func (s *PaymentService) ListAllPayments(ctx context.Context) ([]*model.Payment, error) {
	payments, err := s.store.Payments.List(ctx)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	return payments, nil
}

func (s *PaymentService) notifyPaid(ctx context.Context, p *model.Payment, pkg *model.Package, sub *model.Subscription) {
	user, err := s.store.Users.ByID(ctx, p.UserID)
	if err != nil {
		slog.Warn("failed to load user for payment email", "error", err, "user_id", p.UserID)
		return
	}

	amount := model.FormatAmount(p.Amount, p.Currency)
	err = s.emailService.SendPaymentConfirmedEmail(ctx, user.Email, user.Name, pkg.Name, amount, sub.EndsAt)
	if err != nil {
		slog.Warn("failed to send payment email", "error", err, "user_id", user.ID)
	}
}

func credentialsFrom(setting *model.PaymentSetting) payment.Credentials {
	return payment.Credentials{
		SettingsID:    setting.ID,
		Provider:      setting.Provider,
		KeyID:         setting.KeyID,
		KeySecret:     setting.KeySecret,
		WebhookSecret: setting.WebhookSecret,
	}
}

func settingsView(setting *model.PaymentSetting) *SettingsView {
	updated := setting.CreatedAt
	return &SettingsView{
		Configured:       true,
		Provider:         setting.Provider,
		KeyID:            setting.KeyID,
		HasKeySecret:     setting.KeySecret != "",
		HasWebhookSecret: setting.WebhookSecret != "",
		UpdatedAt:        &updated,
	}
}
