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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/aggregate"
	"github.com/rgayle/waterwatch/internal/api"
	"github.com/rgayle/waterwatch/internal/blob"
	"github.com/rgayle/waterwatch/internal/config"
	"github.com/rgayle/waterwatch/internal/db"
	"github.com/rgayle/waterwatch/internal/middleware"
	"github.com/rgayle/waterwatch/internal/notify"
	"github.com/rgayle/waterwatch/internal/observ"
	"github.com/rgayle/waterwatch/internal/repository"
	pgstore "github.com/rgayle/waterwatch/internal/repository/postgres"
	litestore "github.com/rgayle/waterwatch/internal/repository/sqlite"
	"github.com/rgayle/waterwatch/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// repos bundles one backend's stores behind the shared interfaces.
type repos struct {
	users       repository.UserRepository
	supplies    repository.SupplyRepository
	points      repository.SamplingPointRepository
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		r      repos
		health func(context.Context) error
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		database, err := db.NewPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool := database.Pool()
		r = repos{
			users:       pgstore.NewUserStore(pool),
			supplies:    pgstore.NewSupplyStore(pool),
			points:      pgstore.NewSamplingPointStore(pool),
			submissions: pgstore.NewSubmissionStore(pool),
			tasks:       pgstore.NewTaskStore(pool),
		}
		health = database.Health
	case "sqlite":
		sqldb, err := db.NewSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer sqldb.Close()
		r = repos{
			users:       litestore.NewUserStore(sqldb),
			supplies:    litestore.NewSupplyStore(sqldb),
			points:      litestore.NewSamplingPointStore(sqldb),
			submissions: litestore.NewSubmissionStore(sqldb),
			tasks:       litestore.NewTaskStore(sqldb),
		}
		health = sqldb.PingContext
	default:
		return fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}

	var broker notify.Broker
	if cfg.RedisURL != "" {
		redisBroker, err := notify.NewRedisBroker(ctx, cfg.RedisURL, logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisBroker.Close()
		broker = redisBroker
	}
	hub := notify.NewHub(broker, logger)
	hub.Run(ctx)

	store, err := blob.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	if cfg.Seed {
		if err := seed.Run(ctx, r.users, r.supplies, logger); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	agg := aggregate.New(r.supplies, r.submissions, logger)

	authHandler := api.NewAuthHandler(r.users, cfg.JWTSecret, logger)
	supplyHandler := api.NewSupplyHandler(r.supplies, r.points, hub, logger)
	rollupHandler := api.NewRollupHandler(agg, logger)
	submissionHandler := api.NewSubmissionHandler(r.submissions, r.supplies, r.points, hub, logger)
	taskHandler := api.NewTaskHandler(r.tasks, r.users, r.supplies, hub, logger)
	documentHandler := api.NewDocumentHandler(store, logger)
	wsHandler := api.NewWSHandler(hub, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		if err := health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	v1.POST("/auth/login", authHandler.Login)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/supplies", supplyHandler.List)
		authed.GET("/supplies/:id", supplyHandler.GetByID)
		authed.GET("/supplies/:id/sampling-points", supplyHandler.ListSamplingPoints)

		authed.GET("/rollups/current", rollupHandler.Current)
		authed.GET("/rollups/:year/:month", rollupHandler.Period)
		authed.GET("/rollups/:year/:month/series", rollupHandler.Series)

		authed.POST("/submissions", submissionHandler.Create)
		authed.GET("/submissions", submissionHandler.BySupply)
		authed.GET("/submissions/mine", submissionHandler.Mine)
		authed.POST("/submissions/:id/bacteriological-correction", submissionHandler.CorrectBacteriological)

		authed.GET("/tasks", taskHandler.List)
		authed.POST("/tasks/:id/accept", taskHandler.Accept)
		authed.POST("/tasks/:id/reject", taskHandler.Reject)
		authed.POST("/tasks/:id/start", taskHandler.Start)
		authed.POST("/tasks/:id/complete", taskHandler.Complete)

		authed.POST("/documents", documentHandler.Upload)
		authed.GET("/documents", documentHandler.List)
		authed.GET("/documents/*key", documentHandler.Get)

		authed.GET("/ws", wsHandler.Serve)
	}

	admin := v1.Group("")
	admin.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.RequireAdmin())
	{
		admin.POST("/supplies", supplyHandler.Create)
		admin.PUT("/supplies/:id", supplyHandler.Update)
		admin.POST("/supplies/:id/sampling-points", supplyHandler.CreateSamplingPoint)
		admin.POST("/tasks", taskHandler.Create)
		admin.DELETE("/documents/*key", documentHandler.Delete)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting waterwatch",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("database_driver", cfg.DatabaseDriver),
			zap.String("blob_driver", string(store.Driver())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
