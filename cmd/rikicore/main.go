package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rikirpg/rikicore/internal/audit"
	"github.com/rikirpg/rikicore/internal/dao"
	"github.com/rikirpg/rikicore/internal/gameconfig"
	"github.com/rikirpg/rikicore/internal/metrics"
	"github.com/rikirpg/rikicore/internal/ratelimit"
	"github.com/rikirpg/rikicore/internal/repository"
	"github.com/rikirpg/rikicore/internal/service"
	"github.com/rikirpg/rikicore/pkg/database/postgres"
	"github.com/rikirpg/rikicore/pkg/database/redis"
	"github.com/rikirpg/rikicore/pkg/logger"
)

func main() {
	cfg, mgr, err := loadConfig()
	if err != nil {
		panic(err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	// 配置文件热更新只跟踪日志级别
	if err := mgr.Watch(func() {
		level := logger.Level(mgr.GetString("log.level"))
		if err := l.SetLevel(level); err != nil {
			l.Warn("invalid log level in config reload", "level", level)
		}
	}); err != nil {
		l.Warn("config watch unavailable", "error", err)
	}

	if err := run(cfg, l); err != nil {
		l.Error("rikicore exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *Config, l logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 指标
	gameMetrics := metrics.New("rikicore")
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := gameMetrics.Register(registry); err != nil {
		return err
	}

	// 存储层
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return err
	}

	rdb, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	rdb.Breaker().OnStateChange(func(from, to redis.BreakerState) {
		l.Warn("cache breaker state changed", "from", from.String(), "to", to.String())
		gameMetrics.RecordBreakerState(int32(to))
	})

	repo := repository.New(db, rdb, l, gameMetrics)

	// 游戏数值配置：数据库为权威来源，不可达时退回内置默认值
	configStore := gameconfig.NewStore(
		dao.NewConfigDAO(db, l, gameMetrics),
		l,
		gameconfig.WithCacheTTL(cfg.GameConfig.CacheTTL),
	)
	configStore.Initialize(ctx)

	// 服务层
	rng := service.NewCryptoRNG()
	leaders := service.NewLeaderService(repo, l)
	resources := service.NewResourceService(repo, configStore, leaders, l, gameMetrics)
	players := service.NewPlayerService(repo, configStore, resources, l)
	summons := service.NewSummonService(repo, configStore, resources, rng, l, gameMetrics)
	fusions := service.NewFusionService(repo, configStore, resources, leaders, rng, l, gameMetrics)
	limiter := ratelimit.New(l)

	exporter, err := audit.NewExporter(repo, audit.NewLogSink(l), l, audit.WithWorkers(cfg.Audit.Workers))
	if err != nil {
		return err
	}
	defer exporter.Close()

	engine := service.NewEngine(repo, players, resources, summons, fusions, limiter, l)

	// 后台任务
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", func() {
		configStore.Refresh(context.Background())
	}); err != nil {
		return err
	}

	var (
		checkpointMu sync.Mutex
		checkpoint   = time.Now().UTC()
	)
	if _, err := scheduler.AddFunc("@every 30s", func() {
		checkpointMu.Lock()
		defer checkpointMu.Unlock()
		next, err := exporter.ExportSince(context.Background(), checkpoint)
		if err != nil {
			l.Warn("audit export batch failed", "error", err)
			return
		}
		checkpoint = next
	}); err != nil {
		return err
	}

	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	if _, err := scheduler.AddFunc("@daily", func() {
		if _, err := exporter.CleanupBefore(context.Background(), time.Now().UTC().Add(-retention)); err != nil {
			l.Warn("audit retention sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := scheduler.AddFunc("@hourly", func() {
		limiter.Prune(time.Hour)
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 指标、健康检查与运维查询
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/debug/player", newProfileHandler(engine, l))

	server := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("metrics server listening", "addr", cfg.Server.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	l.Info("rikicore started")
	return g.Wait()
}
