// Package server wires the busauth components together: storage, lockout
// state, sessions, audit pipeline, metrics, and the gRPC and admin HTTP
// endpoints. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/busauth/internal/cryptox"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/audit"
	"github.com/dmitrijs2005/busauth/internal/server/config"
	"github.com/dmitrijs2005/busauth/internal/server/httpadmin"
	"github.com/dmitrijs2005/busauth/internal/server/lockout"
	"github.com/dmitrijs2005/busauth/internal/server/metrics"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/properties"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/repomanager"
	sessionrepo "github.com/dmitrijs2005/busauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/busauth/internal/server/services"
	"github.com/dmitrijs2005/busauth/internal/server/sessions"
	"github.com/dmitrijs2005/busauth/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/busauth/internal/server/grpc"
)

// lockoutKeyTTL bounds how long idle lockout keys live in Redis and memory.
const lockoutKeyTTL = 24 * time.Hour

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open(repomanager.DriverName, dsn)
	}
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	auth     *services.AuthService
	tracker  *lockout.Tracker
	audit    *audit.Dispatcher
	registry *prometheus.Registry
}

func NewLogger(c *config.Config) logging.Logger {
	h := logging.NewHandler(os.Stdout, c.LogFormat, logging.ParseLevel(c.LogLevel))
	return logging.NewSlogLogger(slog.New(h))
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	store, err := app.lockoutStore(ctx, rm)
	if err != nil {
		return err
	}
	app.tracker = lockout.NewTracker(store, lockout.Config{
		MaxAttempts: c.LockoutMaxAttempts,
		Window:      c.LockoutWindow,
	})

	secret := c.SecretKey
	if secret == "" {
		secret, err = shared.MakeRandHexString(32)
		if err != nil {
			return fmt.Errorf("generating secret key: %w", err)
		}
		app.logger.Warn(ctx, "no secret key configured, using a random one; sessions will not survive a restart")
	}
	sm := sessions.NewManager(app.sessionRepository(ctx, rm), []byte(secret), c.SessionTTL, app.logger)

	sink := audit.MultiSink{rm.Audit(db)}
	if c.AuditS3Enabled {
		s3sink, err := audit.NewS3Sink(ctx, audit.S3Config{
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.S3Prefix,
		})
		if err != nil {
			return fmt.Errorf("audit archive init error: %w", err)
		}
		sink = append(sink, s3sink)
	}
	app.audit = audit.NewDispatcher(sink, audit.Config{BufferSize: c.AuditBufferSize}, app.logger)

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(app.registry)
	metrics.RegisterAuditDropped(app.registry, app.audit.Dropped)
	metrics.RegisterAuditFailed(app.registry, app.audit.Failed)

	app.auth, err = services.NewAuthService(rm.Users(db), sm, app.tracker, app.logger,
		services.WithHasher(cryptox.NewHasher(cryptox.Params{
			Memory:     c.Argon2MemoryKiB,
			Iterations: c.Argon2Iterations,
			Threads:    c.Argon2Threads,
			SaltLength: cryptox.DefaultParams.SaltLength,
			KeyLength:  cryptox.DefaultParams.KeyLength,
		})),
		services.WithAudit(app.audit),
		services.WithMetrics(collector),
	)
	return err
}

func (app *App) lockoutStore(ctx context.Context, rm repomanager.RepositoryManager) (lockout.Store, error) {
	c := app.config
	switch c.LockoutStore {
	case config.StoreRedis:
		app.redis = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		return properties.NewRedisStore(app.redis, c.RedisPrefix, lockoutKeyTTL), nil
	case config.StoreMemory:
		app.logger.Warn(ctx, "lockout state kept in memory, not shared between instances")
		return properties.NewMemoryStore(lockoutKeyTTL), nil
	default:
		return rm.Properties(app.db), nil
	}
}

func (app *App) sessionRepository(ctx context.Context, rm repomanager.RepositoryManager) sessionrepo.Repository {
	if app.config.SessionStore == config.StoreMemory {
		app.logger.Warn(ctx, "sessions kept in memory, lost on restart and not shared between instances")
		return sessionrepo.NewMemoryRepository()
	}
	return rm.Sessions(app.db)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	c := app.config
	s := gs.NewGRPCServer(gs.Config{
		Address:               c.EndpointAddrGRPC,
		LoginRate:             float64(c.LoginRatePerMinute) / 60,
		LoginBurst:            c.LoginBurst,
		AllowSelfRegistration: c.AllowSelfRegistration,
	}, app.auth, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startAdminServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.EndpointAddrAdmin == "" {
		return
	}

	h := httpadmin.NewRouter(httpadmin.Deps{
		Gatherer: app.registry,
		DB:       app.db,
		Lockout:  app.tracker,
		Logger:   app.logger,
	})
	if err := httpadmin.NewServer(app.config.EndpointAddrAdmin, h, app.logger).Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases all resources.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startAdminServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close drains the audit queue and closes connections. Safe on a partially
// initialized App.
func (app *App) Close() {
	ctx := context.Background()
	if app.audit != nil {
		app.audit.Close()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "closing redis", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "closing database", "error", err)
		}
	}
}
