package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/kanban"
	"kanban-api/storage"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New()
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.OTelEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	if cfg.ProvisionStorage {
		if err := storage.Provision(ctx, cfg.StorageConnectionString, cfg.tables(), cfg.EventsQueue); err != nil {
			log.Fatalf("provision storage: %v", err)
		}
	}
	store, err := storage.New(cfg.StorageConnectionString, cfg.tables(), cfg.EventsQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	checks := map[string]api.HealthCheck{"items_table": store.Items.Ping}
	var cache kanban.Cache
	if cfg.RedisConnectionString != "" {
		rc := redis.NewClient(redisOptions(cfg.RedisConnectionString))
		defer rc.Close()
		cache = storage.NewRedisCache(rc, logger)
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	} else {
		logger.Warn("REDIS_CONNECTION_STRING not set; using in-process item cache")
		local := storage.NewLocalCache(cfg.LocalCacheCapacity)
		local.Start()
		defer local.Stop()
		cache = local
	}

	ids, err := storage.NewIDGenerator(cfg.MachineID)
	if err != nil {
		log.Fatalf("id generator: %v", err)
	}

	auth, err := newAuth(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	notifier := api.NewQueueNotifier(store.Enqueue, api.NotifierConfig{
		Workers:        cfg.NotifyWorkers,
		Buffer:         cfg.NotifyBuffer,
		Timeout:        cfg.NotifyTimeout,
		HandoffTimeout: cfg.NotifyHandoff,
	}, logger)

	svc := kanban.NewService(kanban.Deps{
		Store:     store.Items,
		Directory: store.Directory,
		Cache:     cache,
		Policy:    kanban.RolePolicy{},
		Notifier:  notifier,
		IDs:       ids,
		Logger:    logger,
		CacheTTL:  cfg.ItemCacheTTL,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentEncoding},
	}))
	e.Use(echoprometheus.NewMiddleware("kanban_api"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, svc, auth, logger, api.Options{
		DebugEndpoint: cfg.DebugEndpoint,
		Environment:   cfg.Environment,
		Checks:        checks,
	})

	go func() {
		if err := e.Start(":" + cfg.ListenPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	notifier.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Errorf("tracing shutdown: %v", err)
	}
}

func newAuth(cfg Config) (*api.Auth, error) {
	authCfg := api.AuthConfig{
		Audience:       cfg.Auth0Audience,
		ClaimNamespace: cfg.ClaimNamespace,
	}
	if cfg.Auth0TestMode {
		authCfg.TestSecret = []byte(cfg.TestJWTSecret)
		return api.NewAuth(nil, authCfg), nil
	}
	authCfg.Issuer = "https://" + cfg.Auth0Domain + "/"
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, authCfg), nil
}
