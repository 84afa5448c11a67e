// Package dashboard composes the dashboard's long-lived components with fx.
package dashboard

import (
	"context"
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moatasem-alhilali/wadash/internal/api"
	"github.com/moatasem-alhilali/wadash/internal/bus"
	"github.com/moatasem-alhilali/wadash/internal/config"
	"github.com/moatasem-alhilali/wadash/internal/lock"
	"github.com/moatasem-alhilali/wadash/internal/logging"
	"github.com/moatasem-alhilali/wadash/internal/mirror"
	"github.com/moatasem-alhilali/wadash/internal/profile"
	"github.com/moatasem-alhilali/wadash/internal/realtime"
	"github.com/moatasem-alhilali/wadash/internal/store"
	intsync "github.com/moatasem-alhilali/wadash/internal/sync"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	Config  *config.Config
	Dir     string // optional override for testing; empty = profile.Dir(Profile)
	// FileOnlyLog keeps the logger off stderr, for the TUI.
	FileOnlyLog bool
	// Logger, when set, replaces the profile log file.
	Logger *zap.Logger
}

func (p Params) dir() string {
	if p.Dir != "" {
		return p.Dir
	}
	return profile.Dir(p.Profile)
}

func (p Params) config() *config.Config {
	if p.Config != nil {
		return p.Config
	}
	return config.Default()
}

// Module returns the fx module for a dashboard profile.
func Module(p Params) fx.Option {
	return fx.Module("dashboard",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideMirror,
			provideLock,
			provideStore,
			provideSyncEngine,
			provideAPIClient,
			provideSynchronizer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	return p.config()
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	logPath := filepath.Join(p.dir(), "logs", "wadash.log")
	if p.FileOnlyLog {
		return logging.NewFileOnly(logPath, p.Profile, zapcore.InfoLevel)
	}
	return logging.New(logPath, p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideMirror(cfg *config.Config) *mirror.Mirror {
	return mirror.New(cfg.Mirror.MessageLogCap)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(p.dir())
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the cache is only opened by its owner.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := filepath.Join(p.dir(), "cache.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger)
}

func provideAPIClient(cfg *config.Config, logger *zap.Logger) (*api.Client, error) {
	return api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.Timeouts.HTTP.Duration),
		api.WithLogger(logger),
	)
}

func provideSynchronizer(cfg *config.Config, m *mirror.Mirror, b *bus.Bus, logger *zap.Logger) *realtime.Synchronizer {
	return realtime.New(realtime.Options{
		URL:            cfg.WSURL,
		ConnectTimeout: cfg.Timeouts.Connect.Duration,
		RequestTimeout: cfg.Timeouts.Request.Duration,
		JoinTimeout:    cfg.Timeouts.Join.Duration,
	}, m, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, lk *lock.Lock, db *store.DB, engine *intsync.Engine, m *mirror.Mirror, b *bus.Bus, sync *realtime.Synchronizer, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Seed before the engine subscribes so restored history is not
			// written back.
			if err := engine.SeedMirror(m, cfg.Mirror.MessageLogCap); err != nil {
				logger.Warn("cache seed failed", zap.Error(err))
			}
			engine.Start(context.Background())
			sync.Start(context.Background())
			logger.Info("dashboard started", zap.String("api", cfg.APIURL), zap.String("ws", cfg.WSURL))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sync.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("dashboard stopped", zap.Uint64("dropped_events", b.Dropped()))
			_ = logger.Sync()
			return nil
		},
	})
}
