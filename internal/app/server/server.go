package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
	"hrleave/internal/platform/email"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/platform/lock"
	"hrleave/internal/platform/metrics"
	"hrleave/internal/platform/queue"
	"hrleave/internal/platform/store/postgres"
	"hrleave/internal/platform/store/sqlite"
	audithandler "hrleave/internal/transport/http/handlers/audit"
	leavehandler "hrleave/internal/transport/http/handlers/leave"
	notificationshandler "hrleave/internal/transport/http/handlers/notifications"
	"hrleave/internal/transport/http/middleware"
)

// backend is the union of every persistence surface the app needs.
type backend interface {
	leave.Store
	audit.StoreAPI
	notifications.StoreAPI
	jobs.RunStore
	Ping(ctx context.Context) error
}

type App struct {
	Config        config.Config
	Router        http.Handler
	Leave         *leave.Service
	Jobs          *jobs.Service
	Audit         *audit.Service
	Notifications *notifications.Service
	Metrics       *metrics.Collector

	store   backend
	worker  *queue.Worker
	queue   *queue.Client
	closers []func()
}

// New opens storage, applies migrations and seeds, and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Metrics: metrics.New()}

	store, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	app.store = store

	app.Audit = audit.New(store)
	app.Notifications = notifications.New(store, email.New(cfg))
	app.Notifications.DefaultFrom = cfg.EmailFrom
	app.Notifications.Directory = notifications.DomainDirectory{Domain: emailDomain(cfg.EmailFrom)}

	app.Jobs = jobs.New(store)
	app.Jobs.Metrics = app.Metrics

	svc := leave.NewService(store)
	svc.Audit = app.Audit
	svc.Metrics = app.Metrics
	svc.StrictPolicy = cfg.LeaveStrictPolicy
	svc.AccrualConcurrency = cfg.AccrualConcurrency
	app.Leave = svc

	if cfg.RedisAddr != "" {
		if err := app.wireRedis(); err != nil {
			app.Close()
			return nil, err
		}
	} else {
		svc.Locker = leave.NewLocalLocker()
		svc.Notify = jobs.Notifier{Jobs: app.Jobs, Deliverer: app.Notifications}
	}

	if cfg.RunSeed {
		if err := db.Seed(ctx, svc); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	app.Router = app.routes()
	return app, nil
}

func (a *App) openStore(ctx context.Context) (backend, error) {
	switch a.Config.StoreDriver {
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(a.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		if a.Config.RunMigrations {
			if err := db.MigrateSQLite(ctx, conn); err != nil {
				conn.Close()
				return nil, err
			}
		}
		store := sqlite.New(conn)
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		pool, err := db.Connect(ctx, a.Config)
		if err != nil {
			return nil, fmt.Errorf("db connect failed: %w", err)
		}
		if a.Config.RunMigrations {
			if err := db.MigratePostgres(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		a.closers = append(a.closers, pool.Close)
		return postgres.New(pool), nil
	}
}

// wireRedis moves accrual locking and notification delivery onto Redis.
func (a *App) wireRedis() error {
	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.Leave.Locker = lock.NewRedisLocker(rdb, a.Config.AccrualLockTTL)

	opts := asynq.RedisClientOpt{Addr: a.Config.RedisAddr}
	a.queue = queue.NewClient(opts)
	a.closers = append(a.closers, func() { _ = a.queue.Close() })
	a.Leave.Notify = a.queue

	worker, err := queue.NewWorker(queue.WorkerConfig{
		RedisOpts:   opts,
		Logger:      slog.Default(),
		Concurrency: a.Config.AccrualConcurrency,
		Handlers: queue.Handlers{
			Leave:     a.Leave,
			Deliverer: a.Notifications,
			Jobs:      a.Jobs,
		},
		AccrualCron: a.Config.LeaveAccrualCron,
	})
	if err != nil {
		return fmt.Errorf("queue worker: %w", err)
	}
	a.worker = worker
	return nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if cfg.MetricsEnabled {
		router.Use(a.Metrics.Middleware)
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

		leaveHandler := leavehandler.NewHandler(a.Leave, perms, a.Jobs)
		leaveHandler.SensitiveLimit = middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute)
		leaveHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(a.Audit, perms)
		auditHandler.RegisterRoutes(r)

		notificationsHandler := notificationshandler.NewHandler(a.Notifications, perms)
		notificationsHandler.RegisterRoutes(r)
	})

	return router
}

// Run serves HTTP and background work until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Jobs.Start(ctx)
	if a.worker == nil {
		a.Jobs.ScheduleAccruals(ctx, a.Config.LeaveAccrualInterval, a.Leave)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("hrleave server listening", "addr", a.Config.Addr, "driver", a.Config.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.worker != nil {
		g.Go(func() error {
			if err := a.worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func emailDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 {
		return from[i+1:]
	}
	return ""
}
