package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"time"

	"github.com/hetulpatel/arbscanner/internal/blob/s3"
	"github.com/hetulpatel/arbscanner/internal/config"
	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/report"
	"github.com/hetulpatel/arbscanner/internal/storage/stores"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCANNER_CONFIG"), "path to a TOML config file")
	export := flag.String("export", "", "write opportunities to this CSV file")
	upload := flag.Bool("upload", false, "upload the CSV export to the configured S3 bucket")
	s3Key := flag.String("s3-key", "", "object key for the upload (implies -upload)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[arb-report] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Fatalf("[arb-report] %v", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogEncoding); err != nil {
		logging.Fatalf("[arb-report] init logging: %v", err)
	}
	defer logging.Sync()

	store, err := stores.Open(ctx, cfg.StoreOptions())
	if err != nil {
		logging.Fatalf("[arb-report] open store: %v", err)
	}
	defer store.Close()

	opps, err := store.ListOpportunities(ctx)
	if err != nil {
		logging.Fatalf("[arb-report] list opportunities: %v", err)
	}
	records, err := store.ListPersistenceRecords(ctx)
	if err != nil {
		logging.Fatalf("[arb-report] list persistence: %v", err)
	}

	summary := report.Analyze(opps, records, cfg.Thresholds(), cfg.TargetSizes())
	if err := summary.Render(os.Stdout); err != nil {
		logging.Fatalf("[arb-report] render: %v", err)
	}

	if *export == "" && !*upload && *s3Key == "" {
		return
	}
	if len(opps) == 0 {
		logging.Infof("[arb-report] no opportunities to export")
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, opps); err != nil {
		logging.Fatalf("[arb-report] encode csv: %v", err)
	}
	if *export != "" {
		if err := os.WriteFile(*export, buf.Bytes(), 0o644); err != nil {
			logging.Fatalf("[arb-report] write %s: %v", *export, err)
		}
		logging.Infof("[arb-report] exported %d opportunities to %s", len(opps), *export)
	}

	if *upload || *s3Key != "" {
		key := *s3Key
		if key == "" {
			key = s3blob.ExportKey(time.Now())
		}
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			logging.Fatalf("[arb-report] %v", err)
		}
		if err := s3blob.NewWriter(client).Put(ctx, key, bytes.NewReader(buf.Bytes()), "text/csv"); err != nil {
			logging.Fatalf("[arb-report] %v", err)
		}
		logging.Infof("[arb-report] uploaded export to s3://%s/%s", client.Bucket(), key)
	}
}
