package routes

import (
	"net/http"

	"github.com/adpanel/adpanel/internal/app"
	"github.com/adpanel/adpanel/internal/handler"
	"github.com/adpanel/adpanel/internal/middleware"
	"github.com/adpanel/adpanel/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.SubscriptionService)
	group := handler.NewGroupHandler(app.GroupService)
	media := handler.NewMediaHandler(app.MediaService, app.Cfg.UploadMaxBytes)
	link := handler.NewLinkHandler(app.LinkService, app.PlaybackService)
	billing := handler.NewBillingHandler(app.PackageService, app.SubscriptionService, app.PaymentService)
	admin := handler.NewAdminHandler(app.AuthService, app.UserService, app.PackageService, app.PaymentService)
	viewer := handler.NewRealtimeHandler(app.Hub)
	health := handler.NewHealthHandler(app.Store)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)

	// Locally stored media (S3 serves its own presigned URLs)
	if local, ok := app.Storage.(*storage.LocalStorage); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads", local.Handler()))
	}

	// Auth (rate limited)
	mux.HandleFunc("POST /api/register", app.AuthLimiter.Limit(auth.Register))
	mux.HandleFunc("POST /api/login", app.AuthLimiter.Limit(auth.Login))

	// Playback
	mux.HandleFunc("GET /api/link/{code}/content", link.Content)
	mux.HandleFunc("GET /ws", viewer.Viewer)

	mux.HandleFunc("GET /api/packages", billing.Packages)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/me", middleware.RequireAuth(auth.Me))

	// Groups
	mux.HandleFunc("POST /api/groups", middleware.RequireAuth(group.Create))
	mux.HandleFunc("GET /api/groups", middleware.RequireAuth(group.List))
	mux.HandleFunc("DELETE /api/groups/{id}", middleware.RequireAuth(group.Delete))

	// Media
	mux.HandleFunc("POST /api/media/upload", middleware.RequireAuth(media.Upload))
	mux.HandleFunc("GET /api/media/list", middleware.RequireAuth(media.List))
	mux.HandleFunc("PATCH /api/media/{id}", middleware.RequireAuth(media.Reassign))
	mux.HandleFunc("DELETE /api/media/{id}", middleware.RequireAuth(media.Delete))

	// Links
	mux.HandleFunc("POST /api/link/generate", middleware.RequireAuth(link.Generate))
	mux.HandleFunc("GET /api/links", middleware.RequireAuth(link.List))
	mux.HandleFunc("DELETE /api/links/{id}", middleware.RequireAuth(link.Delete))

	// Billing
	mux.HandleFunc("GET /api/subscription", middleware.RequireAuth(billing.Subscription))
	mux.HandleFunc("GET /api/payments", middleware.RequireAuth(billing.Payments))
	mux.HandleFunc("POST /api/payment/create-order", middleware.RequireAuth(billing.CreateOrder))
	mux.HandleFunc("POST /api/payment/verify", middleware.RequireAuth(billing.Verify))

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/admin/payment-settings", middleware.RequireAdmin(admin.PaymentSettings))
	mux.HandleFunc("POST /api/admin/payment-settings", middleware.RequireAdmin(admin.UpdatePaymentSettings))
	mux.HandleFunc("POST /api/payment/offline", middleware.RequireAdmin(admin.RecordOfflinePayment))
	mux.HandleFunc("GET /api/admin/packages", middleware.RequireAdmin(admin.Packages))
	mux.HandleFunc("POST /api/admin/packages", middleware.RequireAdmin(admin.CreatePackage))
	mux.HandleFunc("PUT /api/admin/packages/{id}", middleware.RequireAdmin(admin.UpdatePackage))
	mux.HandleFunc("DELETE /api/admin/packages/{id}", middleware.RequireAdmin(admin.DeletePackage))
	mux.HandleFunc("GET /api/admin/users", middleware.RequireAdmin(admin.Users))
	mux.HandleFunc("PATCH /api/admin/users/{id}", middleware.RequireAdmin(admin.SetAdmin))
	mux.HandleFunc("POST /api/admin/users/{id}/impersonate", middleware.RequireAdmin(admin.Impersonate))
	mux.HandleFunc("GET /api/admin/payments", middleware.RequireAdmin(admin.Payments))

	// ============================================================================
	// WEBHOOKS
	// ============================================================================

	// Authenticated by the gateway's signature, not a bearer token
	mux.HandleFunc("POST /webhooks/payment", billing.Webhook)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Recover,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
	)
}
