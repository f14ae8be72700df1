// Package config defines the scanner's configuration and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/arbscanner/internal/arb"
	"github.com/hetulpatel/arbscanner/internal/polymarket"
	"github.com/hetulpatel/arbscanner/internal/scanner"
	"github.com/hetulpatel/arbscanner/internal/storage/postgres"
	"github.com/hetulpatel/arbscanner/internal/storage/stores"
)

// Config is the root configuration, read from TOML and then overridden by
// environment variables.
type Config struct {
	Scanner     ScannerConfig    `toml:"scanner"`
	Polymarket  PolymarketConfig `toml:"polymarket"`
	Store       StoreConfig      `toml:"store"`
	Redis       RedisConfig      `toml:"redis"`
	Kafka       KafkaConfig      `toml:"kafka"`
	S3          S3Config         `toml:"s3"`
	LogLevel    string           `toml:"log_level"`
	LogEncoding string           `toml:"log_encoding"`
}

// ScannerConfig holds detection parameters. Edge thresholds only drive
// alerting and reports.
type ScannerConfig struct {
	PollInterval      duration `toml:"poll_interval"`
	TargetSizes       []number `toml:"target_sizes"`
	EdgeThresholds    []number `toml:"edge_thresholds"`
	FeeRateYes        number   `toml:"fee_rate_yes"`
	FeeRateNo         number   `toml:"fee_rate_no"`
	OpportunityWindow duration `toml:"opportunity_window"`
	FetchConcurrency  int      `toml:"fetch_concurrency"`
	VWAPLogLimit      int      `toml:"vwap_log_limit"`
}

type PolymarketConfig struct {
	GammaURL       string   `toml:"gamma_url"`
	BookURL        string   `toml:"book_url"`
	RequestTimeout duration `toml:"request_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	RetryBackoff   float64  `toml:"retry_backoff"`
	PageSize       int      `toml:"page_size"`
	MaxMarkets     int      `toml:"max_markets"`
}

// StoreConfig selects the persistence backend: sqlite, postgres or memory.
type StoreConfig struct {
	Driver           string `toml:"driver"`
	SQLitePath       string `toml:"sqlite_path"`
	PostgresDSN      string `toml:"postgres_dsn"`
	PostgresMaxConns int    `toml:"postgres_max_conns"`
	RunMigrations    bool   `toml:"run_migrations"`
}

// RedisConfig enables alert dedup and, with DistributedLock, cross-process
// serialization of persistence updates.
type RedisConfig struct {
	Enabled         bool     `toml:"enabled"`
	Addr            string   `toml:"addr"`
	Password        string   `toml:"password"`
	DB              int      `toml:"db"`
	AlertTTL        duration `toml:"alert_ttl"`
	DistributedLock bool     `toml:"distributed_lock"`
	LockTTL         duration `toml:"lock_ttl"`
	LockWait        duration `toml:"lock_wait"`
}

type KafkaConfig struct {
	Enabled    bool     `toml:"enabled"`
	Brokers    []string `toml:"brokers"`
	AlertTopic string   `toml:"alert_topic"`
	Group      string   `toml:"group"`
}

// S3Config is used by arb_report to upload CSV exports.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

type duration struct {
	time.Duration
}

// UnmarshalText accepts Go durations ("30s") and bare seconds ("30").
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := parseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// number decodes TOML integers, floats and strings into an exact decimal.
// Strings keep every digit; floats go through their shortest representation.
type number struct {
	decimal.Decimal
}

func (n *number) UnmarshalTOML(v interface{}) error {
	switch x := v.(type) {
	case int64:
		n.Decimal = decimal.NewFromInt(x)
	case float64:
		n.Decimal = decimal.NewFromFloat(x)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return fmt.Errorf("invalid decimal %q: %w", x, err)
		}
		n.Decimal = parsed
	default:
		return fmt.Errorf("unsupported decimal value %v (%T)", v, v)
	}
	return nil
}

func num(s string) number {
	return number{decimal.RequireFromString(s)}
}

func decimals(ns []number) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ns))
	for i, n := range ns {
		out[i] = n.Decimal
	}
	return out
}

// Defaults returns the configuration used when no file or env overrides
// are present.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			PollInterval:      duration{10 * time.Second},
			TargetSizes:       []number{num("50"), num("200")},
			EdgeThresholds:    []number{num("0.005"), num("0.01"), num("0.02")},
			FeeRateYes:        num("0.015"),
			FeeRateNo:         num("0.015"),
			OpportunityWindow: duration{30 * time.Second},
			FetchConcurrency:  4,
			VWAPLogLimit:      3,
		},
		Polymarket: PolymarketConfig{
			GammaURL:       "https://gamma-api.polymarket.com",
			BookURL:        "https://clob.polymarket.com/book",
			RequestTimeout: duration{10 * time.Second},
			MaxRetries:     3,
			RetryBackoff:   2,
			PageSize:       100,
			MaxMarkets:     1000,
		},
		Store: StoreConfig{
			Driver:           stores.DriverSQLite,
			SQLitePath:       "data/polymarket_arbitrage.db",
			PostgresMaxConns: 4,
			RunMigrations:    true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			AlertTTL: duration{time.Hour},
			LockTTL:  duration{10 * time.Second},
			LockWait: duration{5 * time.Second},
		},
		Kafka: KafkaConfig{
			Brokers:    []string{"kafka-broker:9092"},
			AlertTopic: "polymarket.arb_alerts",
			Group:      "arb-alert-tail",
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		LogLevel:    "info",
		LogEncoding: "console",
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validDrivers = map[string]bool{
	stores.DriverSQLite:   true,
	stores.DriverPostgres: true,
	stores.DriverMemory:   true,
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if enc := strings.ToLower(c.LogEncoding); enc != "console" && enc != "json" {
		errs = append(errs, fmt.Sprintf("unknown log_encoding %q (valid: console, json)", c.LogEncoding))
	}

	s := c.Scanner
	if s.PollInterval.Duration <= 0 {
		errs = append(errs, "scanner: poll_interval must be > 0")
	}
	if len(s.TargetSizes) == 0 {
		errs = append(errs, "scanner: target_sizes must not be empty")
	}
	for _, size := range s.TargetSizes {
		if !size.IsPositive() {
			errs = append(errs, fmt.Sprintf("scanner: target size %s must be > 0", size))
		}
	}
	for _, th := range s.EdgeThresholds {
		if th.IsNegative() {
			errs = append(errs, fmt.Sprintf("scanner: edge threshold %s must be >= 0", th))
		}
	}
	for name, fee := range map[string]number{"fee_rate_yes": s.FeeRateYes, "fee_rate_no": s.FeeRateNo} {
		if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Sprintf("scanner: %s must be in [0, 1), got %s", name, fee))
		}
	}
	if s.OpportunityWindow.Duration < time.Second || s.OpportunityWindow.Duration%time.Second != 0 {
		errs = append(errs, fmt.Sprintf("scanner: opportunity_window must be a whole number of seconds >= 1s, got %s", s.OpportunityWindow))
	}
	if s.FetchConcurrency < 1 {
		errs = append(errs, "scanner: fetch_concurrency must be >= 1")
	}

	p := c.Polymarket
	if p.GammaURL == "" || p.BookURL == "" {
		errs = append(errs, "polymarket: gamma_url and book_url must not be empty")
	}
	if p.MaxRetries < 1 {
		errs = append(errs, "polymarket: max_retries must be >= 1")
	}
	if p.RetryBackoff < 1 {
		errs = append(errs, "polymarket: retry_backoff must be >= 1")
	}
	if p.PageSize < 1 || p.MaxMarkets < 1 {
		errs = append(errs, "polymarket: page_size and max_markets must be >= 1")
	}
	if p.RequestTimeout.Duration <= 0 {
		errs = append(errs, "polymarket: request_timeout must be > 0")
	}

	driver := strings.ToLower(c.Store.Driver)
	if !validDrivers[driver] {
		errs = append(errs, fmt.Sprintf("store: unknown driver %q (valid: sqlite, postgres, memory)", c.Store.Driver))
	}
	if driver == stores.DriverPostgres && strings.TrimSpace(c.Store.PostgresDSN) == "" {
		errs = append(errs, "store: postgres_dsn is required for the postgres driver")
	}

	if (c.Redis.Enabled || c.Redis.DistributedLock) && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka: brokers must not be empty when kafka is enabled")
		}
		if c.Kafka.AlertTopic == "" {
			errs = append(errs, "kafka: alert_topic must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ScannerConfig converts the detection settings for scanner.New.
func (c *Config) ScannerConfig() scanner.Config {
	return scanner.Config{
		TargetSizes:      decimals(c.Scanner.TargetSizes),
		Fees:             arb.Fees{Yes: c.Scanner.FeeRateYes.Decimal, No: c.Scanner.FeeRateNo.Decimal},
		Window:           c.Scanner.OpportunityWindow.Duration,
		PollInterval:     c.Scanner.PollInterval.Duration,
		FetchConcurrency: c.Scanner.FetchConcurrency,
		VWAPLogLimit:     c.Scanner.VWAPLogLimit,
	}
}

// Thresholds returns the alert and report edge thresholds.
func (c *Config) Thresholds() []decimal.Decimal {
	return decimals(c.Scanner.EdgeThresholds)
}

func (c *Config) TargetSizes() []decimal.Decimal {
	return decimals(c.Scanner.TargetSizes)
}

func (c *Config) PolymarketConfig() polymarket.Config {
	p := c.Polymarket
	return polymarket.Config{
		GammaURL:     p.GammaURL,
		BookURL:      p.BookURL,
		Timeout:      p.RequestTimeout.Duration,
		MaxRetries:   p.MaxRetries,
		RetryBackoff: p.RetryBackoff,
		PageSize:     p.PageSize,
		MaxMarkets:   p.MaxMarkets,
	}
}

func (c *Config) StoreOptions() stores.Options {
	return stores.Options{
		Driver:     c.Store.Driver,
		SQLitePath: c.Store.SQLitePath,
		Postgres: postgres.ClientConfig{
			DSN:      c.Store.PostgresDSN,
			MaxConns: c.Store.PostgresMaxConns,
		},
		RunMigrations: c.Store.RunMigrations,
	}
}
