package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/catalog"
	"github.com/threadmark/catalog-api/internal/config"
	"github.com/threadmark/catalog-api/internal/handlers"
	"github.com/threadmark/catalog-api/internal/lookup"
	"github.com/threadmark/catalog-api/internal/search"
	"github.com/threadmark/catalog-api/internal/storage"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "catalog-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database pool")
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := pool.Ping(pingCtx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database unreachable")
	}
	cancel()

	// Redis is preferred; an in-process store keeps the service useful
	// when it is absent.
	var store cache.Store
	redisStore, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		store = cache.NewMemoryStore(10000)
	} else {
		store = redisStore
	}
	defer store.Close()
	cacheLayer := cache.NewLayer(store, log)

	dicts := lookup.NewDictionaryStore(pool, cfg.LookupRefresh, cfg.LookupTimeout, log)
	if err := dicts.Warm(ctx); err != nil {
		log.Fatal().Err(err).Msg("lookup dictionaries empty")
	}
	synonyms := lookup.NewSynonymResolver(pool, cfg.LookupRefresh, cfg.LookupTimeout, log)
	synonyms.Warm(ctx)

	parser := search.NewParser(dicts, synonyms)
	schedule := catalog.NewScheduleStore(pool, cfg.LookupRefresh, cfg.LookupTimeout, log)

	images, err := storage.NewImageResolver(ctx, storage.ResolverConfig{
		Endpoint:  cfg.ImageEndpoint,
		Region:    cfg.ImageRegion,
		AccessKey: cfg.ImageAccessKey,
		SecretKey: cfg.ImageSecretKey,
		Bucket:    cfg.ImageBucket,
		PublicURL: cfg.ImagePublicURL,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("image storage")
	}

	svc := catalog.NewService(pool, cacheLayer, parser, schedule, images, cfg, log)

	router := handlers.Router(cfg, log,
		handlers.NewCatalogHandler(svc, log),
		handlers.NewAdminHandler(cacheLayer, dicts, synonyms, schedule, log),
		handlers.NewHealthHandler(pool, cacheLayer, dicts),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
