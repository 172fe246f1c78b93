package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"caravela.dev/busmetrics"
	"caravela.dev/busmetrics/config"
	"caravela.dev/busmetrics/metrics"
	"caravela.dev/busmetrics/publisher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the cron trigger endpoint",
	RunE:  serve,
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET must be set")
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := busmetrics.NewPipeline(store)
	pipeline.ChunkSize = cfg.ChunkSize

	var metricsSrv interface{ Shutdown(context.Context) error }
	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		pipeline.Metrics = collector
		metricsSrv = collector.Serve(cfg.MetricsAddr)
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
	}

	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer pub.Close()
		pipeline.Publisher = pub
	}

	server := busmetrics.NewServer(pipeline, cfg.CronSecret)
	server.Start(cfg.Port)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}

	return nil
}
