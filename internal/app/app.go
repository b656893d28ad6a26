package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adpanel/adpanel/internal/config"
	"github.com/adpanel/adpanel/internal/db"
	"github.com/adpanel/adpanel/internal/logger"
	"github.com/adpanel/adpanel/internal/middleware"
	"github.com/adpanel/adpanel/internal/realtime"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/service"
	"github.com/adpanel/adpanel/internal/service/payment"
	"github.com/adpanel/adpanel/internal/storage"
	"github.com/jmoiron/sqlx"
)

// linkPurgeInterval is how often expired links are evicted in the background.
const linkPurgeInterval = 10 * time.Minute

type App struct {
	Cfg     *config.Config
	DB      *sqlx.DB
	Store   *repository.Store
	Storage storage.Storage

	Hub   *realtime.Hub
	Relay *realtime.RedisRelay // nil without REDIS_URL

	AuthLimiter *middleware.RateLimiter

	AuthService         *service.AuthService
	UserService         *service.UserService
	EmailService        *service.EmailService
	GroupService        *service.GroupService
	MediaService        *service.MediaService
	LinkService         *service.LinkService
	PlaybackService     *service.PlaybackService
	PackageService      *service.PackageService
	SubscriptionService *service.SubscriptionService
	PaymentService      *service.PaymentService

	wg sync.WaitGroup
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store := repository.NewStore(database)

	// Storage
	mediaStorage, err := storage.New(cfg)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Broadcast channel: straight to the local hub, or through Redis when
	// several instances serve displays
	hub := realtime.NewHub(logger.Component("realtime"))
	var publisher realtime.Publisher = hub
	var relay *realtime.RedisRelay
	if cfg.RedisURL != "" {
		relay, err = realtime.NewRedisRelay(cfg.RedisURL, cfg.RedisChannelPrefix, hub, logger.Component("relay"))
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to initialize redis relay: %w", err)
		}
		publisher = relay
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.PublicDomain,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	subscriptionService := service.NewSubscriptionService(store)
	paymentService := service.NewPaymentService(
		store,
		payment.NewDefaultRegistry(),
		subscriptionService,
		emailService,
		cfg.PaymentCurrency,
		cfg.PaymentProvider,
	)

	err = paymentService.LoadSettings(ctx)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to load payment settings: %w", err)
	}

	return &App{
		Cfg:     cfg,
		DB:      database,
		Store:   store,
		Storage: mediaStorage,
		Hub:     hub,
		Relay:   relay,

		AuthLimiter: middleware.NewRateLimiter(10, 15*time.Minute),

		AuthService:         service.NewAuthService(store, emailService, cfg.JWTSecret, cfg.JWTExpiry, cfg.AdminEmail),
		UserService:         service.NewUserService(store),
		EmailService:        emailService,
		GroupService:        service.NewGroupService(store, publisher),
		MediaService:        service.NewMediaService(store, mediaStorage, publisher),
		LinkService:         service.NewLinkService(store, cfg.PlaybackURL, cfg.LinkTTL, cfg.LinkMaxAttempts),
		PlaybackService:     service.NewPlaybackService(store, mediaStorage),
		PackageService:      service.NewPackageService(store),
		SubscriptionService: subscriptionService,
		PaymentService:      paymentService,
	}, nil
}

// Start launches the background workers. They stop when ctx is done;
// Close waits for them.
func (a *App) Start(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.AuthLimiter.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.purgeLinks(ctx)
	}()

	if a.Relay != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			err := a.Relay.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("redis relay stopped", "error", err)
			}
		}()
	}
}

func (a *App) purgeLinks(ctx context.Context) {
	ticker := time.NewTicker(linkPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := a.LinkService.PurgeExpired(ctx)
			if err != nil {
				slog.Error("failed to purge expired links", "error", err)
			}
		}
	}
}

func (a *App) Close() error {
	if a.Hub != nil {
		a.Hub.Close()
	}
	a.wg.Wait()

	var errs []error
	if a.Relay != nil {
		errs = append(errs, a.Relay.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
