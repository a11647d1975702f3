package main

import (
	"context"
	"io"
	"time"

	"github.com/coagronet/console/internal/application/console"
	"github.com/coagronet/console/internal/domain/cascade"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/cache"
	"github.com/coagronet/console/internal/infrastructure/config"
	"github.com/coagronet/console/internal/infrastructure/logger"
	"github.com/coagronet/console/internal/infrastructure/migration"
	"github.com/coagronet/console/internal/infrastructure/persistence"
	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/telemetry"
	"github.com/coagronet/console/internal/infrastructure/upstream"
	"github.com/coagronet/console/internal/interfaces/http/handler"
	"github.com/coagronet/console/internal/interfaces/http/middleware"
	"github.com/coagronet/console/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	poolMetricsInterval = 15 * time.Second
	sessionPurgeEvery   = 10 * time.Minute
	cascadeSweepEvery   = time.Minute
)

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// application is the assembled console: the HTTP engine plus everything
// that must be released on shutdown.
type application struct {
	engine  *gin.Engine
	closers []io.Closer
}

func (a *application) close(log *zap.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Error("Error releasing resource", zap.Error(err))
		}
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// build wires configuration into services, handlers and routes. Background
// loops stop when ctx is cancelled.
func build(ctx context.Context, cfg *config.Config, log *zap.Logger, meter metric.Meter) (*application, error) {
	app := &application{}
	registry := telemetry.NewRegistry()

	upstreamMetrics, err := telemetry.NewUpstreamMetrics(meter)
	if err != nil {
		return nil, err
	}
	storeMetrics, err := telemetry.NewStoreMetrics(meter)
	if err != nil {
		return nil, err
	}

	system := handler.NewSystemHandler(cfg.App.Name, version)

	// Session store
	var db *persistence.Database
	sqlStore := func() (session.Store, io.Closer, error) {
		var err error
		db, err = openDatabase(ctx, cfg, log, meter)
		if err != nil {
			return nil, nil, err
		}
		store := persistence.NewGormSessionStore(db.DB, cfg.Session.TTL)
		go purgeSessions(ctx, store, log)
		return store, closeFunc(db.Close), nil
	}
	factory := cache.NewSessionStoreFactory(cfg.Session, cfg.Redis,
		cache.WithLogger(log),
		cache.WithSQLStore(sqlStore),
		cache.WithStoreObserver(storeMetrics),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	store, storeCloser, err := factory.Create()
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, storeCloser)
	if p, ok := storeCloser.(pinger); ok {
		system.AddCheck("session_store", p.Ping)
	}
	if db != nil {
		system.AddCheck("database", func(context.Context) error { return db.Ping() })
	}

	// Upstream API
	client := upstream.New(upstream.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		Timeout:      cfg.Upstream.Timeout,
		ReportPrefix: cfg.Upstream.ReportPrefix,
		RateLimit:    cfg.Upstream.RateLimit,
		RateBurst:    cfg.Upstream.RateBurst,
		UserAgent:    cfg.App.Name + "/" + version,
	}, upstream.WithLogger(log), upstream.WithObserver(upstreamMetrics))
	inspector := auth.NewTokenInspector(cfg.Upstream.TokenTTL)

	// Application services
	loc := notify.NewLocalizer()
	catalog := resource.DefaultCatalogAt(cfg.Upstream.ResourcePrefix)
	policy, err := cascade.ParseStalePolicy(cfg.Cascade.StalePolicy)
	if err != nil {
		return nil, err
	}
	opts := []console.Option{console.WithLogger(log), console.WithMetrics(registry)}

	cascades := console.NewCascadeService(cascade.DefaultCatalog(), catalog, client, store, console.CascadeConfig{
		AutoSelectSingle: cfg.Cascade.AutoSelectSingle,
		StalePolicy:      policy,
		IdleTTL:          cfg.Cascade.IdleTTL,
	}, loc, opts...)
	if cfg.Cascade.IdleTTL > 0 {
		go cascades.RunJanitor(ctx, cascadeSweepEvery)
	}

	// Services that replace or wipe the token drop the cascade chains
	// fetched with it.
	resetting := append(append([]console.Option{}, opts...), console.WithSessionReset(cascades.Forget))
	contexts := console.NewContextService(client, inspector, store, loc, resetting...)
	authSvc := console.NewAuthService(client, inspector, store, contexts, loc, resetting...)
	navigation := console.NewNavigationService(screen.NewResolver(screen.Routes{
		BasePath:      cfg.Routes.BasePath,
		DashboardPath: cfg.Routes.DashboardPath,
	}), store, loc, resetting...)
	resources := console.NewResourceService(catalog, client, store, loc, opts...)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()
	api := router.NewRouter(engine, router.WithBasePath(cfg.HTTP.APIBasePath))

	archive, stored, err := reportArchive(ctx, cfg, log, api.Prefix()+"/reports")
	if err != nil {
		return nil, err
	}
	reports := console.NewReportService(client, archive, store, loc, opts...)

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.Cookie.Secure

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.App.Name, Enabled: cfg.Telemetry.Enabled}),
		middleware.Session(middleware.SessionCookieConfig{
			Name:     cfg.Cookie.Name,
			Domain:   cfg.Cookie.Domain,
			Path:     cfg.Cookie.Path,
			Secure:   cfg.Cookie.Secure,
			SameSite: middleware.ParseSameSite(cfg.Cookie.SameSite),
			MaxAge:   cfg.Cookie.MaxAge,
		}),
		middleware.SessionSpanAttributes(),
		middleware.SpanErrorMarker(),
		middleware.Language(loc),
		middleware.HTTPMetrics(registry),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.SecureWithConfig(security),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		app.closers = append(app.closers, closeFunc(func() error { limiter.Close(); return nil }))
		engine.Use(middleware.RateLimit(limiter))
	}

	engine.GET("/health", system.Health)
	engine.GET("/ping", system.Ping)
	if cfg.Telemetry.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(registry.Handler()))
	}

	var credentialLimit gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		app.closers = append(app.closers, closeFunc(func() error { limiter.Close(); return nil }))
		credentialLimit = middleware.RateLimit(limiter)
	}

	router.Console(api, router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Session:  handler.NewSessionHandler(navigation),
		Context:  handler.NewContextHandler(contexts),
		Resource: handler.NewResourceHandler(resources),
		Cascade:  handler.NewCascadeHandler(cascades),
		Report:   handler.NewReportHandler(reports, stored),
	}, credentialLimit).Setup()

	app.engine = engine
	return app, nil
}

// openDatabase connects the sql session backend, applies migrations and
// starts connection pool metrics.
func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger, meter metric.Meter) (*persistence.Database, error) {
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Traced:   cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		m, err := migration.New(sqlDB, cfg.Database.Driver, "", log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		// The migrator is not closed: for sqlite that would close sqlDB too.
		if err := m.Up(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	pool, err := telemetry.NewPoolMetrics(meter, sqlDB, poolMetricsInterval, log)
	if err != nil {
		log.Warn("Connection pool metrics disabled", zap.Error(err))
	} else {
		pool.Start(ctx)
	}

	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

func purgeSessions(ctx context.Context, store *persistence.GormSessionStore, log *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("Failed to purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("Purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}

// reportArchive selects S3 when storage is enabled. The in-memory archive
// is also returned as the reader behind the download route.
func reportArchive(ctx context.Context, cfg *config.Config, log *zap.Logger, baseURL string) (console.ReportArchive, handler.ArchiveReader, error) {
	if !cfg.Storage.Enabled {
		mem := storage.NewMemoryReportArchive(baseURL)
		return mem, mem, nil
	}
	s3, err := storage.NewS3ReportArchive(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, nil, err
	}
	log.Info("Archiving reports to S3", zap.String("bucket", s3.Bucket()))
	return s3, nil, nil
}
