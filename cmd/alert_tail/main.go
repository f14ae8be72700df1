package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/hetulpatel/arbscanner/internal/config"
	"github.com/hetulpatel/arbscanner/internal/kafka"
	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/queue"
)

func main() {
	configPath := flag.String("config", os.Getenv("SCANNER_CONFIG"), "path to a TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[alert-tail] %v", err)
	}
	if err := logging.Init(cfg.LogLevel, cfg.LogEncoding); err != nil {
		logging.Fatalf("[alert-tail] init logging: %v", err)
	}
	defer logging.Sync()

	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		brokers = kafka.ParseBrokers("")
	}
	topic := cfg.Kafka.AlertTopic
	if topic == "" {
		topic = kafka.DefaultAlertTopic
	}
	group := cfg.Kafka.Group
	if group == "" {
		group = kafka.DefaultAlertGroup
	}

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[alert-tail] wait for broker: %v", err)
	}
	cancel()

	reader := kafka.NewReader(brokers, topic, group)
	defer reader.Close()

	logging.Infof("[alert-tail] consuming %s with group %s", topic, group)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("[alert-tail] read error: %v", err)
			continue
		}
		alert, err := queue.DecodeAlert(msg)
		if err != nil {
			logging.Errorf("[alert-tail] %v", err)
			continue
		}
		fmt.Printf("%s  edge=%s%%  >=%s%%  size=%s  %s (%s)\n",
			alert.DetectedAt.UTC().Format(time.RFC3339),
			alert.Edge.Shift(2).StringFixed(2),
			alert.Threshold.Shift(2).StringFixed(1),
			alert.TargetSize,
			alert.MarketTitle,
			alert.MarketID,
		)
	}
}
