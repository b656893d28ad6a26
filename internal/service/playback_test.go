package service

import (
	"context"
	"testing"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReturnsOrderedMedia(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	st := newTestStorage(t)
	user := seedUser(t, store, "alice@example.com", false)
	group := seedGroup(t, store, user.ID, "Lobby")
	other := seedGroup(t, store, user.ID, "Window")

	media := NewMediaService(store, st, &recordingPublisher{})
	uploaded, err := media.Upload(ctx, user.ID, group.ID, fileHeaders(t,
		testFile{name: "first.png", content: pngBytes},
		testFile{name: "second.mp4", content: mp4Bytes},
	))
	require.NoError(t, err)
	_, err = media.Upload(ctx, user.ID, other.ID, fileHeaders(t, testFile{name: "elsewhere.png", content: pngBytes}))
	require.NoError(t, err)

	link := seedLink(t, store, user.ID, group.ID, "4821", time.Now().UTC().Add(time.Hour))

	svc := NewPlaybackService(store, st)
	content, err := svc.Resolve(ctx, "4821")
	require.NoError(t, err)

	assert.Equal(t, link.Code, content.Code)
	assert.Equal(t, user.ID, content.UserID)
	assert.Equal(t, group.ID, content.GroupID)
	assert.Equal(t, "Lobby", content.GroupName)
	require.Len(t, content.Media, 2)
	assert.Equal(t, uploaded[0].ID, content.Media[0].ID)
	assert.Equal(t, uploaded[1].ID, content.Media[1].ID)
	assert.NotEmpty(t, content.Media[0].URL)
}

func TestResolveExpiredLinkNeverReturnsMedia(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := seedUser(t, store, "alice@example.com", false)
	group := seedGroup(t, store, user.ID, "Lobby")
	clock := newTestClock()
	seedLink(t, store, user.ID, group.ID, "1234", clock.Now().Add(time.Minute))

	svc := NewPlaybackService(store, newTestStorage(t))
	svc.now = clock.Now

	_, err := svc.Resolve(ctx, "1234")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	content, err := svc.Resolve(ctx, "1234")
	assert.Nil(t, content)
	assert.Equal(t, apperr.KindExpired, apperr.KindOf(err), "expiry boundary counts as expired")

	clock.Advance(time.Hour)
	content, err = svc.Resolve(ctx, "1234")
	assert.Nil(t, content)
	assert.Equal(t, apperr.KindExpired, apperr.KindOf(err))
}

func TestResolveUnknownCode(t *testing.T) {
	svc := NewPlaybackService(newTestStore(t), newTestStorage(t))

	for _, code := range []string{"5555", "12a4", "123", "00000", ""} {
		_, err := svc.Resolve(context.Background(), code)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), code)
	}
}
