package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/trip-planner/internal/api"
	"github.com/neexbeast/trip-planner/internal/backfill"
	"github.com/neexbeast/trip-planner/internal/cache"
	"github.com/neexbeast/trip-planner/internal/config"
	"github.com/neexbeast/trip-planner/internal/favorites"
	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/planner"
	"github.com/neexbeast/trip-planner/internal/storage"
	"github.com/neexbeast/trip-planner/internal/suntime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Wire dependencies.
	mapbox := geocode.NewMapboxClient(cfg.MapboxToken, log)
	places := geocode.NewCache(mapbox, cache.NewGeocodeStore(redisClient), log)
	routes := geocode.NewRouteResolver(places, mapbox, log)
	sun := suntime.NewAugmenter(suntime.NewClient(log), cfg.SunTimezone, log)

	svc := planner.New(storage.NewRepository(pool), places, routes, sun, planner.Config{
		Pacing:   cfg.GeocodePacing,
		Location: cfg.SunTimezone,
	}, log)
	favs := favorites.NewService(cache.NewHashStore(redisClient, "favorites:"))

	if cfg.BackfillEnabled() {
		job, err := backfill.New(svc, cfg.BackfillSchedule, cfg.BackfillTimeout, log)
		if err != nil {
			return err
		}
		job.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			job.Stop(stopCtx)
		}()
	}

	handlers := api.NewHandlers(svc, places, routes, favs, log)
	router := api.NewRouter(handlers, api.RouterConfig{
		Token:       cfg.BearerToken,
		CORSOrigins: cfg.CORSOrigins,
	}, &pgxPoolPinger{pool: pool}, &redisPingerAdapter{client: redisClient}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // batch geocoding is paced
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to the api.dbPinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
