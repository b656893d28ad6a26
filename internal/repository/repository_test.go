package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adpanel/adpanel/internal/db/dbtest"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbtest.Open(t))
}

func seedUser(t *testing.T, s *Store, email string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

func seedGroup(t *testing.T, s *Store, userID string) *model.Group {
	t.Helper()
	group := &model.Group{ID: uuid.NewString(), UserID: userID, Name: "Lobby", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Groups.Create(context.Background(), group))
	return group
}

func seedPackage(t *testing.T, s *Store) *model.Package {
	t.Helper()
	now := time.Now().UTC()
	pkg := &model.Package{
		ID:           uuid.NewString(),
		Name:         "Starter",
		Features:     types.JSONText(`{"screens":1}`),
		Price:        49900,
		DurationDays: 30,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Packages.Create(context.Background(), pkg))
	return pkg
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "alice@example.com")

	dup := *user
	dup.ID = uuid.NewString()
	err := s.Users.Create(ctx, &dup)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	got, err := s.Users.ByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.False(t, got.IsAdmin)

	require.NoError(t, s.Users.SetAdmin(ctx, user.ID, true))
	got, err = s.Users.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = s.Users.ByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, s.Users.SetAdmin(ctx, "missing", true), ErrUserNotFound)
}

func TestLinkRepositoryCodeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "bob@example.com")
	group := seedGroup(t, s, user.ID)
	now := time.Now().UTC()

	expired := &model.Link{ID: uuid.NewString(), Code: "1234", UserID: user.ID, GroupID: group.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.Links.Create(ctx, expired))

	active, err := s.Links.CodeActive(ctx, "1234", now)
	require.NoError(t, err)
	assert.False(t, active, "expired link does not hold its code")

	// The unique constraint still blocks reuse until the row is evicted.
	fresh := &model.Link{ID: uuid.NewString(), Code: "1234", UserID: user.ID, GroupID: group.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	assert.ErrorIs(t, s.Links.Create(ctx, fresh), ErrDuplicateCode)

	evicted, err := s.Links.EvictExpiredCode(ctx, "1234", now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, evicted)
	require.NoError(t, s.Links.Create(ctx, fresh))

	active, err = s.Links.CodeActive(ctx, "1234", now)
	require.NoError(t, err)
	assert.True(t, active)

	evicted, err = s.Links.EvictExpiredCode(ctx, "1234", now)
	require.NoError(t, err)
	assert.Zero(t, evicted, "active links are never evicted")

	codes, err := s.Links.ActiveCodes(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"1234"}, codes)

	got, err := s.Links.ByCode(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)
	assert.WithinDuration(t, fresh.ExpiresAt, got.ExpiresAt, time.Second)

	_, err = s.Links.ByCode(ctx, "9999")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestLinkRepositoryDeleteExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "carol@example.com")
	group := seedGroup(t, s, user.ID)
	now := time.Now().UTC()

	for i, offset := range []time.Duration{-time.Hour, -time.Minute, time.Hour} {
		link := &model.Link{
			ID:        uuid.NewString(),
			Code:      []string{"1111", "2222", "3333"}[i],
			UserID:    user.ID,
			GroupID:   group.ID,
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(offset),
		}
		require.NoError(t, s.Links.Create(ctx, link))
	}

	deleted, err := s.Links.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	links, err := s.Links.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "3333", links[0].Code)
}

func TestGroupDeleteCascadesLinksAndUngroupsMedia(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "dan@example.com")
	group := seedGroup(t, s, user.ID)
	now := time.Now().UTC()

	media := &model.Media{
		ID: uuid.NewString(), UserID: user.ID, GroupID: &group.ID, Type: model.MediaTypeImage,
		Filename: "a.png", OriginalName: "a.png", MimeType: "image/png", Size: 10, StoragePath: "media/a.png", CreatedAt: now,
	}
	require.NoError(t, s.Media.Create(ctx, media))
	link := &model.Link{ID: uuid.NewString(), Code: "4444", UserID: user.ID, GroupID: group.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Links.Create(ctx, link))

	require.NoError(t, s.Groups.Delete(ctx, group.ID))

	_, err := s.Links.ByID(ctx, link.ID)
	assert.ErrorIs(t, err, ErrLinkNotFound)

	got, err := s.Media.ByID(ctx, media.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)

	assert.ErrorIs(t, s.Groups.Delete(ctx, group.ID), ErrGroupNotFound)
}

func TestMediaListByGroupOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "erin@example.com")
	group := seedGroup(t, s, user.ID)
	base := time.Now().UTC()

	ids := []string{}
	for i := 0; i < 3; i++ {
		m := &model.Media{
			ID: uuid.NewString(), UserID: user.ID, GroupID: &group.ID, Type: model.MediaTypeVideo,
			Filename: "v.mp4", OriginalName: "v.mp4", MimeType: "video/mp4", Size: 100,
			StoragePath: "media/v.mp4", CreatedAt: base.Add(time.Duration(3-i) * time.Minute),
		}
		require.NoError(t, s.Media.Create(ctx, m))
		ids = append([]string{m.ID}, ids...)
	}

	got, err := s.Media.ListByGroup(ctx, user.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, ids[i], m.ID)
	}

	require.NoError(t, s.Media.UpdateGroup(ctx, got[0].ID, nil))
	got, err = s.Media.ListByGroup(ctx, user.ID, group.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPaymentTransitionIsConditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "frank@example.com")
	pkg := seedPackage(t, s)
	orderID := "order_1"

	payment := &model.Payment{
		ID: uuid.NewString(), UserID: user.ID, PackageID: pkg.ID, Mode: model.PaymentModeOnline,
		Status: model.PaymentStatusCreated, Amount: pkg.Price, Currency: "INR", OrderID: &orderID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Payments.Create(ctx, payment))

	gatewayID := "pay_1"
	moved, err := s.Payments.Transition(ctx, payment.ID, model.PaymentStatusCreated, model.PaymentStatusVerified, &gatewayID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = s.Payments.Transition(ctx, payment.ID, model.PaymentStatusCreated, model.PaymentStatusVerified, &gatewayID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, moved, "second transition is a no-op")

	got, err := s.Payments.ByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusVerified, got.Status)
	require.NotNil(t, got.GatewayPaymentID)
	assert.Equal(t, gatewayID, *got.GatewayPaymentID)
	assert.NotNil(t, got.VerifiedAt)
}

func TestPaymentReferenceIsUniquePerUserAndPackage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "gina@example.com")
	pkg := seedPackage(t, s)
	ref := "CHEQUE-42"
	now := time.Now().UTC()

	first := &model.Payment{
		ID: uuid.NewString(), UserID: user.ID, PackageID: pkg.ID, Mode: model.PaymentModeOffline,
		Status: model.PaymentStatusVerified, Amount: pkg.Price, Currency: "INR", Reference: &ref,
		CreatedAt: now, VerifiedAt: &now,
	}
	require.NoError(t, s.Payments.Create(ctx, first))

	second := *first
	second.ID = uuid.NewString()
	assert.ErrorIs(t, s.Payments.Create(ctx, &second), ErrDuplicatePayment)

	got, err := s.Payments.ByReference(ctx, user.ID, pkg.ID, ref)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	// Online payments carry no reference and never collide.
	for i := 0; i < 2; i++ {
		p := &model.Payment{
			ID: uuid.NewString(), UserID: user.ID, PackageID: pkg.ID, Mode: model.PaymentModeOnline,
			Status: model.PaymentStatusCreated, Amount: pkg.Price, Currency: "INR", CreatedAt: now,
		}
		require.NoError(t, s.Payments.Create(ctx, p))
	}
}

func TestSubscriptionActivationIsUniquePerPayment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "hank@example.com")
	pkg := seedPackage(t, s)
	now := time.Now().UTC()

	payment := &model.Payment{
		ID: uuid.NewString(), UserID: user.ID, PackageID: pkg.ID, Mode: model.PaymentModeOnline,
		Status: model.PaymentStatusVerified, Amount: pkg.Price, Currency: "INR", CreatedAt: now,
	}
	require.NoError(t, s.Payments.Create(ctx, payment))

	sub := &model.Subscription{
		ID: uuid.NewString(), UserID: user.ID, PackageID: pkg.ID, PaymentID: &payment.ID, Active: true,
		StartsAt: now, EndsAt: now.Add(pkg.Duration()), CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Subscriptions.Create(ctx, sub))

	again := *sub
	again.ID = uuid.NewString()
	assert.ErrorIs(t, s.Subscriptions.Create(ctx, &again), ErrDuplicateActivation)

	active, err := s.Subscriptions.ActiveByUserID(ctx, user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, active.ID)

	n, err := s.Subscriptions.DeactivateAll(ctx, user.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.Subscriptions.ActiveByUserID(ctx, user.ID, now)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestPaymentSettingsLatestWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.PaymentSettings.Latest(ctx)
	assert.ErrorIs(t, err, ErrPaymentSettingNotFound)

	base := time.Now().UTC()
	for i, key := range []string{"key_old", "key_new"} {
		setting := &model.PaymentSetting{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Provider:  model.ProviderRazorpay,
			KeyID:     key,
			KeySecret: "secret_" + key,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.PaymentSettings.Append(ctx, setting))
	}

	latest, err := s.PaymentSettings.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key_new", latest.KeyID)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx *Store) error {
		now := time.Now().UTC()
		user := &model.User{ID: uuid.NewString(), Name: "Ivy", Email: "ivy@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}
		require.NoError(t, tx.Users.Create(ctx, user))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Users.ByEmail(ctx, "ivy@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = s.InTx(ctx, func(tx *Store) error {
		return tx.InTx(ctx, func(inner *Store) error {
			now := time.Now().UTC()
			return inner.Users.Create(ctx, &model.User{ID: uuid.NewString(), Name: "Ivy", Email: "ivy@example.com", PasswordHash: "h", CreatedAt: now, UpdatedAt: now})
		})
	})
	require.NoError(t, err)

	_, err = s.Users.ByEmail(ctx, "ivy@example.com")
	assert.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: links.code")))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "links_code_key"`)))
	assert.True(t, isUniqueViolation(errors.New("Error 1062 (23000): Duplicate entry '1234' for key 'links.links_code_key'")))
	assert.False(t, isUniqueViolation(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, isUniqueViolation(nil))
}
