package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adpanel/adpanel/internal/app"
	"github.com/adpanel/adpanel/internal/config"
	"github.com/adpanel/adpanel/internal/db/dbtest"
	"github.com/adpanel/adpanel/internal/middleware"
	"github.com/adpanel/adpanel/internal/realtime"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/service"
	"github.com/adpanel/adpanel/internal/service/payment"
	"github.com/adpanel/adpanel/internal/storage"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type testServer struct {
	*httptest.Server
	app *app.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:         "AdPanel",
		AppEnv:          "development",
		PublicDomain:    "https://ads.example.com",
		JWTSecret:       "test-secret",
		JWTExpiry:       time.Hour,
		AdminEmail:      "admin@example.com",
		LinkTTL:         720 * time.Hour,
		LinkMaxAttempts: 64,
		PaymentProvider: "razorpay",
		PaymentCurrency: "INR",
		UploadMaxBytes:  10 << 20,
	}

	store := repository.NewStore(dbtest.Open(t))
	mediaStorage, err := storage.NewLocalStorage(t.TempDir(), cfg.PublicDomain+"/uploads")
	require.NoError(t, err)

	hub := realtime.NewHub(nil)
	email := service.NewEmailService("", "noreply@example.com", cfg.PublicDomain, cfg.AppName, true)
	subscriptions := service.NewSubscriptionService(store)

	a := &app.App{
		Cfg:                 cfg,
		Store:               store,
		Storage:             mediaStorage,
		Hub:                 hub,
		AuthLimiter:         middleware.NewRateLimiter(100, time.Minute),
		AuthService:         service.NewAuthService(store, email, cfg.JWTSecret, cfg.JWTExpiry, cfg.AdminEmail),
		UserService:         service.NewUserService(store),
		EmailService:        email,
		GroupService:        service.NewGroupService(store, hub),
		MediaService:        service.NewMediaService(store, mediaStorage, hub),
		LinkService:         service.NewLinkService(store, cfg.PlaybackURL, cfg.LinkTTL, cfg.LinkMaxAttempts),
		PlaybackService:     service.NewPlaybackService(store, mediaStorage),
		PackageService:      service.NewPackageService(store),
		SubscriptionService: subscriptions,
		PaymentService:      service.NewPaymentService(store, payment.NewDefaultRegistry(), subscriptions, email, cfg.PaymentCurrency, cfg.PaymentProvider),
	}

	srv := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, app: a}
}

func (s *testServer) call(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.do(t, req, token)
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) (*http.Response, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (s *testServer) signup(t *testing.T, name, email, password string) string {
	t.Helper()
	resp, _ := s.call(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.call(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

func (s *testServer) upload(t *testing.T, token, groupID string) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("files", "banner.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("group_id", groupID))
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/media/upload", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, _ := s.do(t, req, token)
	return resp
}

func errorKind(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	kind, _ := e["kind"].(string)
	return kind
}

func TestPanelFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "alice", "alice@x.io", "pw123")

	resp, me := s.call(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, me["capabilities"].(map[string]any)["is_admin"])

	resp, group := s.call(t, http.MethodPost, "/api/groups", token, map[string]string{"name": "Lobby"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	groupID := group["id"].(string)

	// A display joins alice's channel before the upload
	userID := me["user"].(map[string]any)["id"].(string)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(realtime.Event{Type: realtime.EventJoin, UserID: userID}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, realtime.EventJoined, ev.Type)

	resp = s.upload(t, token, groupID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventMediaUpdated, ev.Type)
	assert.Equal(t, groupID, ev.GroupID)

	resp, first := s.call(t, http.MethodPost, "/api/link/generate", token, map[string]string{"group_id": groupID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, second := s.call(t, http.MethodPost, "/api/link/generate", token, map[string]string{"group_id": groupID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	code := first["code"].(string)
	assert.Regexp(t, `^[0-9]{4}$`, code)
	assert.NotEqual(t, code, second["code"])
	assert.Equal(t, "https://ads.example.com/play/"+code, first["url"])

	resp, content := s.call(t, http.MethodGet, "/api/link/"+code+"/content", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "Lobby", content["group_name"])
	media := content["media"].([]any)
	require.Len(t, media, 1)

	// The stored object is served from the media URL
	url := media[0].(map[string]any)["url"].(string)
	path := strings.TrimPrefix(url, "https://ads.example.com")
	resp, _ = s.call(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPublicErrors(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.call(t, http.MethodGet, "/api/link/0000/content", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(body))

	resp, body = s.call(t, http.MethodGet, "/api/link/abcd/content", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorKind(body))

	resp, body = s.call(t, http.MethodGet, "/api/groups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorKind(body))

	resp, body = s.call(t, http.MethodPost, "/api/login", "", map[string]string{"email": "ghost@x.io", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", body["error"].(map[string]any)["message"])

	resp, body = s.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAdminRoutesForbidNonAdmins(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "alice", "alice@x.io", "pw123")

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/payment-settings"},
		{http.MethodPost, "/api/admin/payment-settings"},
		{http.MethodPost, "/api/payment/offline"},
		{http.MethodPost, "/api/admin/packages"},
		{http.MethodPut, "/api/admin/packages/does-not-exist"},
		{http.MethodDelete, "/api/admin/packages/does-not-exist"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/admin/users/does-not-exist/impersonate"},
		{http.MethodGet, "/api/admin/payments"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp, body := s.call(t, r.method, r.path, token, map[string]string{})
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "forbidden", errorKind(body))
		})
	}
}

func TestAdminPaymentSettingsHideSecret(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, "root", "admin@example.com", "s3cret-admin")

	resp, body := s.call(t, http.MethodPost, "/api/admin/payment-settings", admin, map[string]string{
		"provider": "razorpay", "key_id": "rzp_test", "key_secret": "very-secret", "webhook_secret": "wh",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["has_key_secret"])

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/admin/payment-settings", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	text, err := io.ReadAll(raw.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(text), "very-secret")
	assert.Contains(t, string(text), "rzp_test")
}

func TestCreateOrderWithoutGatewayIsNotConfigured(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, "root", "admin@example.com", "s3cret-admin")
	user := s.signup(t, "alice", "alice@x.io", "pw123")

	resp, pkg := s.call(t, http.MethodPost, "/api/admin/packages", admin, map[string]any{
		"name": "Starter", "price": 499, "duration_days": 30, "features": map[string]int{"screens": 1},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, packages := s.call(t, http.MethodGet, "/api/packages", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, packages["packages"], 1)

	resp, body := s.call(t, http.MethodPost, "/api/payment/create-order", user, map[string]string{"package_id": pkg["id"].(string)})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "not_configured", errorKind(body))

	resp, body = s.call(t, http.MethodPost, "/api/payment/offline", admin, map[string]any{
		"user_id": "", "package_id": pkg["id"], "reference": "CASH-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", errorKind(body))
}
