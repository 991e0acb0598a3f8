// Package entrypoint wires the service together and runs the HTTP server.
package entrypoint

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leafread/leafread/internal/config"
	"github.com/leafread/leafread/internal/database"
	http_controllers "github.com/leafread/leafread/internal/http"
	"github.com/leafread/leafread/internal/logging"
	"github.com/leafread/leafread/internal/navigator"
	"github.com/leafread/leafread/internal/pagecache"
	"github.com/leafread/leafread/internal/pagination"
	"github.com/leafread/leafread/internal/scheduler"
	"github.com/leafread/leafread/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// PaginationOptions maps the configured settings onto engine options.
func PaginationOptions(cfg *config.Config) pagination.Options {
	return pagination.Options{
		ParagraphsPerPage: pagination.ParagraphBounds{
			Min:       cfg.Pagination.MinParagraphsPerPage,
			Max:       cfg.Pagination.MaxParagraphsPerPage,
			Preferred: cfg.Pagination.PreferredParagraphsPerPage,
		},
		WordsPerPage:    cfg.Pagination.WordsPerPage,
		PagesPerChapter: cfg.Pagination.PagesPerChapter,
		WordsPerMinute:  cfg.Pagination.WordsPerMinute,
	}
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, log *zap.Logger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("host", cfg.HTTP.Host), zap.Int32("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown failed", zap.Error(err))
	}

	log.Info("server exiting")
}

// Run builds every component from configuration and serves.
func Run(cfg *config.Config, version string) {
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging configuration: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting leafread", zap.String("version", version))

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatal("database initialization failed", zap.Error(err))
	}
	defer db.Close()

	opts := PaginationOptions(cfg)

	// Result cache: probe the persistent store, fall back to memory.
	var cache *pagecache.Cache
	if cfg.Cache.Enabled {
		store := pagecache.SelectStore(db.DB, log)
		cache = pagecache.New(store, cfg.Cache.TTL, cfg.Cache.MaxEntries, log)
	} else {
		log.Info("pagination result cache disabled")
	}

	var resultCache pagination.ResultCache
	if cache != nil {
		resultCache = cache
	}
	svc := pagination.NewService(resultCache, log)

	// Navigator over the durable position store.
	history := http_controllers.NewPositionHistory(db)
	nav := navigator.New(history, cfg.Navigator.Debounce, log)
	defer nav.Close()

	// Session manager for restoring positions across requests.
	var sessionManager *http_controllers.SessionManager
	if sqlDB, err := db.SQLDB(); err == nil {
		sessionManager, err = http_controllers.NewSessionManager(sqlDB, 0)
		if err != nil {
			log.Warn("session manager unavailable, positions restore from the database only", zap.Error(err))
			sessionManager = nil
		}
	}

	// Background pregeneration queue.
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, log)
		if err != nil {
			log.Fatal("task queue initialization failed", zap.Error(err))
		}
		taskClient.Register(tasks.NewPregenerateQueue(db, svc, opts, log))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Periodic cache sweep.
	var sweeper *scheduler.CacheSweepScheduler
	if cfg.Scheduler.CacheSweepEnabled && cache != nil {
		sweeper = scheduler.NewCacheSweepScheduler(cache, cfg.Scheduler.CacheSweepSchedule, log)
		if err := sweeper.Start(); err != nil {
			log.Warn("cache sweep scheduler not started", zap.Error(err))
			sweeper = nil
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:          db,
		PaginationService: svc,
		PaginationOptions: opts,
		Cache:             cache,
		SessionManager:    sessionManager,
		Navigator:         nav,
		Version:           version,
		Logger:            log,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sweeper != nil {
			sweeper.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if taskCtxCancel != nil {
				taskCtxCancel()
			}
			taskClient.Close()
		}
		// Push out any pending debounced position write before the
		// database goes away.
		nav.Flush()
	}

	Serve(router, cfg, log, onShutdown)
}
