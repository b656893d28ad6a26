package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/adpanel/adpanel/internal/db/dbtest"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/realtime"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")
	mp4Bytes = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	return repository.NewStore(dbtest.Open(t))
}

func newTestStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	return newTestStorageAt(t, t.TempDir())
}

func newTestStorageAt(t *testing.T, root string) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(root, "https://ads.example.com/uploads")
	require.NoError(t, err)
	return s
}

func devEmail() *EmailService {
	return NewEmailService("", "noreply@example.com", "https://ads.example.com", "AdPanel", true)
}

type publishedEvent struct {
	UserID string
	Event  realtime.Event
}

// recordingPublisher captures every event published to it.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, userID string, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{UserID: userID, Event: event})
	return nil
}

func (p *recordingPublisher) For(userID string) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.Event
	for _, e := range p.events {
		if e.UserID == userID {
			out = append(out, e.Event)
		}
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seedUser(t *testing.T, store *repository.Store, email string, isAdmin bool) *model.User {
	t.Helper()
	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func seedGroup(t *testing.T, store *repository.Store, userID, name string) *model.Group {
	t.Helper()
	group := &model.Group{ID: uuid.NewString(), UserID: userID, Name: name, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Groups.Create(context.Background(), group))
	return group
}

func seedPackage(t *testing.T, store *repository.Store, price int64, active bool) *model.Package {
	t.Helper()
	now := time.Now().UTC()
	pkg := &model.Package{
		ID:           uuid.NewString(),
		Name:         "Starter",
		Features:     types.JSONText(`{"screens":1}`),
		Price:        price,
		DurationDays: 30,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Packages.Create(context.Background(), pkg))
	return pkg
}

type testFile struct {
	name    string
	content []byte
}

func fileHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()
	if len(files) == 0 {
		return nil
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["files"]
}
