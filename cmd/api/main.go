package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"escrow-service/internal/adapter/memstore"
	"escrow-service/internal/adapter/postgres"
	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
	"escrow-service/internal/feed"
	"escrow-service/internal/http/handlers"
	"escrow-service/internal/http/httpapi"
	"escrow-service/internal/infra"
	"escrow-service/internal/infra/geoip"
	"escrow-service/internal/middleware"
	"escrow-service/migrations"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	// Konfigurasi & logger
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	var (
		projectStore domain.ProjectStore
		accountStore domain.AccountStore
		ready        func(ctx context.Context) error
	)
	switch cfg.StoreDriver {
	case infra.StoreDriverPostgres:
		if err := infra.Migrate(cfg.DatabaseURL, migrations.FS, logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
		pool, err := infra.NewDBPool(ctx, cfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		projectStore = postgres.NewProjectStore(pool)
		accountStore = postgres.NewAccountStore(pool)
		ready = pool.Ping
	case infra.StoreDriverMemory:
		logger.Warn().Msg("using in-memory store; state is lost on restart")
		projectStore = memstore.NewProjectStore()
		accountStore = memstore.NewAccountStore()
	}

	svc := escrow.NewService(projectStore, logger)
	auth := escrow.NewAuthService(accountStore, cfg.JWTSecret, cfg.TokenTTL, logger)

	// The feed is read-through: the worker writes entries, the API only
	// renders them. Without Redis the endpoint reports unavailable and
	// everything else keeps working.
	var feedReader *feed.Reader
	if rdb, err := infra.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; activity feed disabled")
	} else {
		defer rdb.Close()
		feedReader = feed.NewReader(feed.NewRedisStore(rdb), logger)
	}

	app := handlers.NewApp(svc, auth, feedReader, logger)
	app.Ready = ready

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable; origin annotations disabled")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, cfg, logger, lookup)
	server := infra.NewHTTPServer(cfg, router)

	// Start async
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
