package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/config"
	kafkax "github.com/FadilRifaldy/Final-Project-Backend/internal/kafka"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/logx"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/orders"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/postgres"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.ServiceName + "-worker")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	cancelProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	cancelProd.Start(ctx)

	sweeper := &orders.Sweeper{
		Store:       &orders.Repo{DB: db},
		Redis:       rdb,
		Producer:    cancelProd,
		Log:         log,
		ServiceName: cfg.ServiceName + "-worker",
		Interval:    cfg.SweepInterval,
		Batch:       cfg.SweepBatch,
	}

	group := getenv("WORKER_GROUP", "order-worker")
	workers := mustAtoi(os.Getenv("WORKER_CONSUMERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderCreated, workers, log)
	cache := &orders.StatusCache{Redis: rdb, Log: log, ServiceName: cfg.ServiceName + "-worker"}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("expiry sweeper started",
			zap.Duration("interval", cfg.SweepInterval),
			zap.Int("batch", cfg.SweepBatch))
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		log.Info("order consumer started",
			zap.String("group", group),
			zap.Int("workers", workers))
		return cons.Start(gctx, cache.HandleOrderEvent)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down worker")
		cancel()
	case <-gctx.Done():
	}

	if err := g.Wait(); err != nil {
		log.Error("worker exit", zap.Error(err))
	}
	cancelProd.Close()
	cancelProd.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
