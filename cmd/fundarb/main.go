package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundarb/internal/application/container"
	"fundarb/internal/application/port"
	appsvc "fundarb/internal/application/service"
	"fundarb/internal/application/usecase/countdown"
	"fundarb/internal/application/usecase/dashboard"
	"fundarb/internal/application/usecase/execute"
	"fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/backend"
	"fundarb/internal/infrastructure/cache/composite"
	memcache "fundarb/internal/infrastructure/cache/memory"
	rediscache "fundarb/internal/infrastructure/cache/redis"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/events"
	"fundarb/internal/infrastructure/logger"
	"fundarb/internal/interfaces/console"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second

	// 缓存：进程内 L1，redis 启用时叠加为 L2
	cache := buildCache(cfg, ttl)

	client := backend.NewClient(cfg.Backend.BaseURL, time.Duration(cfg.Backend.TimeoutSec)*time.Second)
	c := container.New(client, cache)
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("container close failed")
		}
	}()

	// 推送流：连接后端 ws，事件到达时失效对应快照键
	if cfg.Events.Enabled {
		es := events.NewClient(cfg.Events.WsURL)
		go func() {
			if err := es.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("events client exited")
			}
		}()
		inv := appsvc.NewInvalidator(es, cache)
		go func() {
			if err := inv.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("invalidator exited")
			}
		}()
	} else {
		log.Warn().Msg("events disabled by config, falling back to ttl-only cache")
	}

	sched := port.WallClock{}
	urgentWindow := time.Duration(cfg.App.UrgentWindowMin) * time.Minute

	watch := countdown.NewClock(sched)
	watch.SetUrgentWindow(urgentWindow)
	orch := execute.NewOrchestrator(client, cache, sched)

	// stdin 命令通道：exec/close/start/stop/watch/unwatch
	commands := console.NewCommandLoop(console.CommandDeps{
		Opportunities: c.OpportunityService(),
		Positions:     c.PositionService(),
		Status:        c.StatusService(),
		Executor:      orch,
		Watch:         watch,
	})
	go func() {
		if err := commands.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("command loop exited")
		}
	}()

	svc := dashboard.NewService(dashboard.ServiceDeps{
		Opportunities: c.OpportunityService(),
		Positions:     c.PositionService(),
		Status:        c.StatusService(),
		Sink:          console.NewSink(),
		Sched:         sched,
		RefreshEvery:  time.Duration(cfg.App.RefreshEverySec) * time.Second,
		MinScore:      cfg.App.MinScore,
		SortKey:       service.SortKey(cfg.App.SortKey),
		SortDesc:      cfg.App.SortDesc,
		UrgentWindow:  urgentWindow,
	})

	log.Info().
		Str("config", *configPath).
		Str("backend", cfg.Backend.BaseURL).
		Bool("events", cfg.Events.Enabled).
		Bool("redis", cfg.Cache.Redis.Enabled).
		Int("refresh_every_sec", cfg.App.RefreshEverySec).
		Msg("fundarb started")

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("dashboard exited")
	}
}

func buildCache(cfg *config.Config, ttl time.Duration) port.QueryCache {
	l1 := memcache.New(ttl)
	if !cfg.Cache.Redis.Enabled {
		return l1
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Cache.Redis.Addr})
	l2 := rediscache.New(rdb, cfg.Cache.Redis.Prefix, ttl)
	return composite.New(l1, l2)
}
