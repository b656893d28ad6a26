package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/google/uuid"
)

type SubscriptionService struct {
	store *repository.Store
	now   func() time.Time
}

func NewSubscriptionService(store *repository.Store) *SubscriptionService {
	return &SubscriptionService{store: store, now: utcNow}
}

// Current returns the user's active, unexpired subscription, or nil.
func (s *SubscriptionService) Current(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.store.Subscriptions.ActiveByUserID(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, storeErr("get subscription", err)
	}
	return sub, nil
}

func (s *SubscriptionService) List(ctx context.Context, userID string) ([]*model.Subscription, error) {
	subs, err := s.store.Subscriptions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr("list subscriptions", err)
	}
	return subs, nil
}

// activate replaces the user's active subscription with a new one for pkg,
// starting at now. It must run inside tx together with the payment state
// change that paid for it.
func (s *SubscriptionService) activate(ctx context.Context, tx *repository.Store, userID string, pkg *model.Package, paymentID string, now time.Time) (*model.Subscription, error) {
	_, err := tx.Subscriptions.DeactivateAll(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate subscriptions: %w", err)
	}

	sub := &model.Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		PackageID: pkg.ID,
		PaymentID: &paymentID,
		Active:    true,
		StartsAt:  now,
		EndsAt:    now.Add(pkg.Duration()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = tx.Subscriptions.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
