package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/vocalize-ai/vocalize-backend/api/routes"
	"github.com/vocalize-ai/vocalize-backend/internal/admin"
	"github.com/vocalize-ai/vocalize-backend/internal/auth"
	"github.com/vocalize-ai/vocalize-backend/internal/dashboard"
	"github.com/vocalize-ai/vocalize-backend/internal/gate"
	"github.com/vocalize-ai/vocalize-backend/internal/ledger"
	"github.com/vocalize-ai/vocalize-backend/internal/plans"
	"github.com/vocalize-ai/vocalize-backend/internal/platform"
	"github.com/vocalize-ai/vocalize-backend/internal/subscriptions"
	"github.com/vocalize-ai/vocalize-backend/internal/usage"
	"github.com/vocalize-ai/vocalize-backend/internal/users"
	"github.com/vocalize-ai/vocalize-backend/internal/voice"
	"github.com/vocalize-ai/vocalize-backend/pkg/config"
	"github.com/vocalize-ai/vocalize-backend/pkg/db"
	"github.com/vocalize-ai/vocalize-backend/pkg/kvstore"
	"github.com/vocalize-ai/vocalize-backend/pkg/logger"
	"github.com/vocalize-ai/vocalize-backend/pkg/migrate"
	"github.com/vocalize-ai/vocalize-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	usersRepo := users.NewRepository(dbClient.DB())
	plansRepo := plans.NewRepository(dbClient.DB())
	usageRepo := usage.NewRepository(dbClient.DB())
	subscriptionsRepo := subscriptions.NewRepository(dbClient.DB())
	audioRepo := voice.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	plansService, err := plans.NewService(plansRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create plans service", err)
		os.Exit(1)
	}

	usageService, err := usage.NewService(usageRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create usage service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:  subscriptionsRepo,
		Plans: plansService,
		Users: usersRepo,
		Usage: usageService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Users:         usersRepo,
		Usage:         usageService,
		Plans:         plansService,
		Subscriptions: subscriptionsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}

	engine, err := platform.NewClient(cfg.Upstream.BaseURL, &http.Client{Timeout: cfg.Upstream.RequestTimeout})
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	voiceService, err := voice.NewService(voice.ServiceParams{
		Engine: engine,
		Usage:  usageService,
		Repo:   audioRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create voice service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Repo:          admin.NewRepository(dbClient.DB()),
		Users:         usersRepo,
		Subscriptions: subscriptionsService,
		Plans:         plansService,
		Usage:         usageService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	gateRegistry, err := gate.NewRegistry(gate.Params{
		Provider: engine,
		Store:    kvstore.NewGormStore(dbClient.DB()),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quota gate", err)
		os.Exit(1)
	}

	var seeds []ledger.Record
	if cfg.FeatureFlags.SeedLedger {
		seeds = ledger.DefaultSeeds()
	}
	tokenLedger, err := ledger.New(context.Background(), ledger.Options{
		Store:      kvstore.NewGormStore(dbClient.DB()),
		Logger:     logg,
		StorageKey: cfg.Ledger.StorageKey,
		Seeds:      seeds,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create token ledger", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Auth:          authService,
			Plans:         plansService,
			Dashboard:     dashboardService,
			Subscriptions: subscriptionsService,
			Usage:         usageService,
			Voice:         voiceService,
			Ledger:        tokenLedger,
			Gate:          gateRegistry,
			Admin:         adminService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
