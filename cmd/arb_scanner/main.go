package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hetulpatel/arbscanner/internal/alerts"
	"github.com/hetulpatel/arbscanner/internal/cache"
	"github.com/hetulpatel/arbscanner/internal/config"
	"github.com/hetulpatel/arbscanner/internal/kafka"
	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/polymarket"
	"github.com/hetulpatel/arbscanner/internal/queue"
	"github.com/hetulpatel/arbscanner/internal/scanner"
	"github.com/hetulpatel/arbscanner/internal/storage/stores"
	"github.com/hetulpatel/arbscanner/internal/tracker"
)

func main() {
	configPath := flag.String("config", envString("SCANNER_CONFIG", ""), "path to a TOML config file")
	once := flag.Bool("once", false, "run a single pass and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[arb-scanner] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatalf("[arb-scanner] %v", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogEncoding); err != nil {
		logging.Fatalf("[arb-scanner] init logging: %v", err)
	}
	defer logging.Sync()

	store, err := stores.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logging.Fatalf("[arb-scanner] open %s store: %v", cfg.Store.Driver, err)
	}
	defer store.Close()

	var (
		locker     tracker.Locker
		alertCache cache.AlertCache
		writer     queue.MessageWriter
	)

	if cfg.Redis.Enabled || cfg.Redis.DistributedLock {
		rdb, err := cache.Connect(ctx, cache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logging.Fatalf("[arb-scanner] %v", err)
		}
		defer rdb.Close()
		if cfg.Redis.Enabled {
			alertCache = cache.NewRedisAlertCache(rdb, cfg.Redis.AlertTTL.Duration, "")
		}
		if cfg.Redis.DistributedLock {
			locker = cache.NewLockManager(rdb, cache.LockOptions{
				TTL:  cfg.Redis.LockTTL.Duration,
				Wait: cfg.Redis.LockWait.Duration,
			})
		}
		logging.Infof("[arb-scanner] redis %s (alert dedup=%v, distributed lock=%v)",
			cfg.Redis.Addr, cfg.Redis.Enabled, cfg.Redis.DistributedLock)
	}

	if cfg.Kafka.Enabled {
		brokers := cfg.Kafka.Brokers
		waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
			logging.Fatalf("[arb-scanner] wait for broker: %v", err)
		}
		cancel()

		ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
		if err := kafka.EnsureTopic(ensureCtx, brokers, cfg.Kafka.AlertTopic, 3); err != nil {
			logging.Errorf("[arb-scanner] ensure topic warning: %v", err)
		}
		cancelEnsure()

		w := kafka.NewWriter(brokers, cfg.Kafka.AlertTopic)
		defer w.Close()
		writer = w
		logging.Infof("[arb-scanner] publishing alerts to %s", cfg.Kafka.AlertTopic)
	}

	client := polymarket.NewClient(cfg.PolymarketConfig())
	alerter := alerts.New(cfg.Thresholds(), alertCache, writer)
	sc := scanner.New(cfg.ScannerConfig(), client, client, store, tracker.New(store, locker), alerter)

	sizes := cfg.TargetSizes()
	logging.Infof("[arb-scanner] store=%s sizes=%v poll=%s window=%s",
		cfg.Store.Driver, sizes, cfg.Scanner.PollInterval.Duration, cfg.Scanner.OpportunityWindow.Duration)

	if *once {
		n, err := sc.ScanOnce(ctx)
		if err != nil {
			logging.Fatalf("[arb-scanner] %v", err)
		}
		logging.Infof("[arb-scanner] single pass found %d opportunities", n)
		return
	}

	passes := sc.Run(ctx)
	logging.Infof("[arb-scanner] stopped after %d passes", passes)
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
