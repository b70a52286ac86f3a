package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"classattend/internal/attendance"
	"classattend/internal/audit"
	"classattend/internal/biometric"
	"classattend/internal/config"
	"classattend/internal/directory"
	"classattend/internal/geo"
	"classattend/internal/httpapi"
	"classattend/internal/identify"
	"classattend/internal/logger"
	"classattend/internal/queue"
	"classattend/internal/store"
	"classattend/internal/window"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Env: cfg.Env, Level: cfg.LogLevel, Dir: cfg.LogDir, Name: "api"})

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		if db == nil {
			return err
		}
		log.Warnf("db not reachable: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	q := queue.New(cfg.QueueBackend, redisClient.Client, "attendance:changes", log)
	history := audit.NewRepository(db.Client)
	if cfg.QueueBackend == "memory" {
		// No separate worker drains a process-local queue.
		go func() {
			if err := audit.NewConsumer(q, history, log).Run(ctx); err != nil {
				log.Errorf("audit consumer stopped: %v", err)
			}
		}()
	}

	dir := directory.NewRepository(db.Client, log)
	faces := biometric.NewRepository(db.Client, log)
	matcher := biometric.NewMatcher(faces, biometric.Thresholds{
		Verify:   cfg.Matching.VerifyThreshold,
		Identify: cfg.Matching.IdentifyThreshold,
	})
	proximity := geo.NewValidator(cfg.Proximity.DefaultRadiusMeters, cfg.Proximity.EarthRadiusMeters)
	windows := window.NewController(window.NewStore(cfg.WindowBackend, redisClient.Client), dir, log)

	records := attendance.NewService(attendance.Deps{
		Repo:      attendance.NewRepository(db.Client, log),
		Directory: dir,
		Windows:   windows,
		Faces:     matcher,
		Proximity: proximity,
		Changes:   audit.NewPublisher(q),
		Log:       log,
	}, attendance.Options{
		EmbeddingDim: cfg.Matching.EmbeddingDim,
		LateGrace:    cfg.LateGrace,
		Location:     cfg.Location(),
	})

	r := httpapi.NewRouter(httpapi.Deps{
		Records:   records,
		Windows:   windows,
		Matcher:   matcher,
		Registry:  biometric.NewRegistry(faces, cfg.Matching.EmbeddingDim, log),
		Identify:  identify.NewService(matcher, dir, cfg.Matching.EmbeddingDim, cfg.Matching.IdentifyThreshold, log),
		Proximity: proximity,
		Classes:   dir,
		History:   history,
		Health: func(ctx context.Context) map[string]bool {
			return map[string]bool{"db": db.Healthy(ctx), "redis": redisClient.Healthy(ctx)}
		},
		Log: log,
	}, httpapi.Options{
		JWTSigningKey:   cfg.JWTSigningKey,
		JWTIssuer:       cfg.JWTIssuer,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("server forced shutdown: %v", err)
	}
	log.Info("server exited")
	return nil
}
