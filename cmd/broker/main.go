package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kopperstack/internal/broker"
	"kopperstack/internal/kopper"
	"kopperstack/internal/partitionlog"
	"kopperstack/internal/protocol"
	"kopperstack/internal/publisher"
	"kopperstack/internal/topic"
)

const defaultTopic = "events"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()
	protocol.SetLogger(log)

	cfg := broker.Config{
		ListenAddr: envOr("KOPPERSTACK_LISTEN_ADDR", ":9092"),
		AdminAddr:  envOr("KOPPERSTACK_ADMIN_ADDR", ":9093"),
		BaseDir:    envOr("KOPPERSTACK_DATA_DIR", "data"),
	}

	metaStore, err := kopper.Open(filepath.Join(cfg.BaseDir, "meta"), kopper.WithLogger(log))
	if err != nil {
		log.Fatalw("failed to open metadata store", "error", err)
	}
	defer metaStore.Close()

	topics := topic.New(metaStore, log)

	knownTopics, err := topics.GetTopics()
	if err != nil {
		log.Fatalw("failed to list topics", "error", err)
	}
	if len(knownTopics) == 0 {
		if err := topics.CreateTopic(topic.TopicEntry{Name: defaultTopic, Owner: "system"}); err != nil {
			log.Fatalw("failed to seed default topic", "error", err)
		}
		knownTopics, err = topics.GetTopics()
		if err != nil {
			log.Fatalw("failed to list topics after seeding", "error", err)
		}
	}

	partitions := make(map[string]*partitionlog.Guard, len(knownTopics))
	for _, t := range knownTopics {
		p, err := partitionlog.New(filepath.Join(cfg.BaseDir, "partitions", t.Name), partitionlog.WithLogger(log))
		if err != nil {
			log.Fatalw("failed to open partition", "topic", t.Name, "error", err)
		}
		guard := partitionlog.NewGuard(p)
		partitions[t.Name] = guard
		defer guard.Close()
	}

	pub := publisher.New(topics, partitions, log)
	b := broker.NewBroker(cfg, topics, pub, partitions, log)
	admin := broker.NewAdminServer(topics, log)

	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: admin.Handler(),
	}

	go func() {
		log.Infow("admin server listening", "addr", cfg.AdminAddr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("admin server error", "error", err)
		}
	}()

	go func() {
		if err := b.Start(); err != nil {
			log.Fatalw("broker stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Infow("shutting down")
	b.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := adminServer.Shutdown(ctx); err != nil {
		log.Warnw("admin server shutdown error", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
