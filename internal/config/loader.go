package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load merges the TOML file at path (skipped when path is empty) over
// Defaults, loads .env if present, then applies environment overrides. The
// result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides reads SCANNER_* variables plus the shared names the
// other tools use (SQLITE_PATH, LOG_LEVEL, KAFKA_BROKERS, REDIS_ADDR).
func applyEnvOverrides(cfg *Config) {
	// scanner
	setDuration(&cfg.Scanner.PollInterval, "SCANNER_POLL_INTERVAL")
	setNumbers(&cfg.Scanner.TargetSizes, "SCANNER_TARGET_SIZES")
	setNumbers(&cfg.Scanner.EdgeThresholds, "SCANNER_EDGE_THRESHOLDS")
	setNumber(&cfg.Scanner.FeeRateYes, "SCANNER_FEE_RATE_YES")
	setNumber(&cfg.Scanner.FeeRateNo, "SCANNER_FEE_RATE_NO")
	setDuration(&cfg.Scanner.OpportunityWindow, "SCANNER_OPPORTUNITY_WINDOW")
	setInt(&cfg.Scanner.FetchConcurrency, "SCANNER_FETCH_CONCURRENCY")
	setInt(&cfg.Scanner.VWAPLogLimit, "SCANNER_VWAP_LOG_LIMIT")

	// polymarket
	setStr(&cfg.Polymarket.GammaURL, "SCANNER_GAMMA_URL")
	setStr(&cfg.Polymarket.BookURL, "SCANNER_BOOK_URL")
	setDuration(&cfg.Polymarket.RequestTimeout, "SCANNER_REQUEST_TIMEOUT")
	setInt(&cfg.Polymarket.MaxRetries, "SCANNER_MAX_RETRIES")
	setFloat64(&cfg.Polymarket.RetryBackoff, "SCANNER_RETRY_BACKOFF")
	setInt(&cfg.Polymarket.PageSize, "SCANNER_PAGE_SIZE")
	setInt(&cfg.Polymarket.MaxMarkets, "SCANNER_MAX_MARKETS")

	// store
	setStr(&cfg.Store.Driver, "SCANNER_STORE_DRIVER")
	setStr(&cfg.Store.SQLitePath, "SQLITE_PATH")
	setStr(&cfg.Store.PostgresDSN, "SCANNER_POSTGRES_DSN")
	setInt(&cfg.Store.PostgresMaxConns, "SCANNER_POSTGRES_MAX_CONNS")
	setBool(&cfg.Store.RunMigrations, "SCANNER_RUN_MIGRATIONS")

	// redis
	setBool(&cfg.Redis.Enabled, "SCANNER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setBool(&cfg.Redis.DistributedLock, "SCANNER_DISTRIBUTED_LOCK")

	// kafka
	setBool(&cfg.Kafka.Enabled, "SCANNER_KAFKA_ENABLED")
	setStringSlice(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	setStr(&cfg.Kafka.AlertTopic, "SCANNER_ALERT_TOPIC")
	setStr(&cfg.Kafka.Group, "SCANNER_ALERT_GROUP")

	// s3
	setStr(&cfg.S3.Endpoint, "SCANNER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SCANNER_S3_REGION")
	setStr(&cfg.S3.Bucket, "SCANNER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SCANNER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SCANNER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SCANNER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SCANNER_S3_FORCE_PATH_STYLE")

	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.LogEncoding, "LOG_ENCODING")
}

func parseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := parseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setNumber(dst *number, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			dst.Decimal = d
		}
	}
}

// setNumbers replaces dst only if every element parses.
func setNumbers(dst *[]number, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []number
	for _, p := range splitList(v) {
		d, err := decimal.NewFromString(p)
		if err != nil {
			return
		}
		out = append(out, number{d})
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		if cleaned := splitList(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
