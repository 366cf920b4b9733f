package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pelican/internal/config"
	"github.com/MrSnakeDoc/pelican/internal/httpserver"
	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pelican/internal/library"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/monitor"
	"github.com/MrSnakeDoc/pelican/internal/playlist"
	"github.com/MrSnakeDoc/pelican/internal/redis"
	"github.com/MrSnakeDoc/pelican/internal/registry"
	"github.com/MrSnakeDoc/pelican/internal/scheduler"
	"github.com/MrSnakeDoc/pelican/internal/sources/servicefile"
	redisstore "github.com/MrSnakeDoc/pelican/internal/store/redis"
	"github.com/MrSnakeDoc/pelican/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       *redisstore.Store
	monitor     *monitor.Monitor
	registry    *registry.Registry
	reloader    *scheduler.ServiceReloader
	poller      *scheduler.MonitorScheduler
	gc          *scheduler.GarbageCollector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it history and settings are not persisted
	var (
		redisClient *goredis.Client
		store       *redisstore.Store
	)
	client, err := redis.Connect(context.Background(), redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient.Named("redis"))
	switch {
	case errors.Is(err, redis.ErrDisabled):
		loggerClient.Info("redis not configured, status history and settings will not be persisted")
	case err != nil:
		loggerClient.Warn("redis unavailable, continuing without persistence", logger.Error(err))
	default:
		redisClient = client
		store = redisstore.NewStore(client)
	}

	mon := monitor.New(monitor.Options{
		Timeout:     cfg.CheckTimeout,
		UserAgent:   cfg.CheckUserAgent,
		Concurrency: cfg.CheckConcurrency,
	}, loggerClient.Named("monitor"))

	// Restore status history so uptime survives restarts
	if store != nil {
		syncer := scheduler.NewHistorySyncer(store, mon, loggerClient)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to restore status history from redis",
				logger.Error(err))
		}
	}

	reg := registry.New()
	reg.OnRemove(func(names []string) {
		for _, name := range names {
			mon.RemoveService(name)
			if store == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := store.DeleteStatusRecord(ctx, name); err != nil {
				loggerClient.Warn("failed to delete status record from redis",
					logger.String("service", name),
					logger.Error(err))
			}
			cancel()
		}
	})

	poller, err := scheduler.NewMonitorScheduler(mon, reg, store, loggerClient.Named("poller"),
		scheduler.PollWindow{Min: cfg.PollMin, Max: cfg.PollMax}, nil)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	loader := servicefile.NewLoader(cfg.ServiceFile)
	var watcher *servicefile.Watcher
	if cfg.WatchService {
		watcher, err = servicefile.NewWatcher(cfg.ServiceFile, servicefile.DefaultDebounce, loggerClient.Named("watcher"))
		if err != nil {
			loggerClient.Warn("services file watcher disabled", logger.Error(err))
			watcher = nil
		}
	}
	reloader := scheduler.NewServiceReloader(loader, watcher, reg, loggerClient, func() { poller.Trigger() })

	gc := scheduler.NewGarbageCollector(store, mon, reg, loggerClient, cfg.GCInterval)

	var scanner *library.Scanner
	if cfg.MusicDir != "" {
		scanner = library.NewScanner(cfg.MusicDir, loggerClient.Named("library"))
	}

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimit:       cfg.RateLimit,
		Registry:        reg,
		Monitor:         mon,
		Playlist:        playlist.New(nil, loggerClient.Named("playlist")),
		Library:         scanner,
		Store:           store,
		CheckTrigger:    poller.Trigger,
		PersistServices: reloader.Persist,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		store:       store,
		monitor:     mon,
		registry:    reg,
		reloader:    reloader,
		poller:      poller,
		gc:          gc,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Pelican %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load services.yaml (seeding defaults) before the first poll
	if err := a.reloader.Bootstrap(); err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}
	a.reloader.Start(ctx)

	// Drop history restored for services that are no longer configured
	a.gc.Collect(ctx)
	a.gc.Start(ctx)

	if err := a.poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	a.logger.Info("service poller started",
		logger.Duration("min_interval", a.cfg.PollMin),
		logger.Duration("max_interval", a.cfg.PollMax))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.poller.Stop()
	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	// Final flush so the next start resumes with the latest history
	if a.store != nil {
		if err := a.store.SaveStatusRecords(shutdownCtx, a.monitor.History()); err != nil {
			a.logger.Warn("failed to save status history on shutdown", logger.Error(err))
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if runErr == nil {
		a.logger.Info("✅ Pelican stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}
