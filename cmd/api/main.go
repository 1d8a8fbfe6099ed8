package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/FadilRifaldy/Final-Project-Backend/internal/config"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/httpx"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/inventory"
	kafkax "github.com/FadilRifaldy/Final-Project-Backend/internal/kafka"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/logx"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/orders"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/postgres"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/redisx"
	"github.com/FadilRifaldy/Final-Project-Backend/internal/stockjournal"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logx.New(cfg.ServiceName)
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

	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	orderProd.Start(ctx)
	stockProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockMutated, 1024)
	stockProd.Start(ctx)

	invSvc := &inventory.Service{Store: &inventory.Repo{DB: db}, Log: log}
	journalSvc := &stockjournal.Service{Store: &stockjournal.Repo{DB: db}, Log: log}
	orderSvc := &orders.Service{Store: &orders.Repo{DB: db}, Inventory: invSvc, Log: log}

	router := httpx.NewRouter()

	(&httpx.InventoryHandler{Inventory: invSvc, Redis: rdb}).Register(router)
	(&httpx.StockJournalHandler{Journal: journalSvc, Producer: stockProd, Service: cfg.ServiceName}).Register(router)
	(&httpx.OrdersHandler{Orders: orderSvc, Redis: rdb, Producer: orderProd, Service: cfg.ServiceName}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	orderProd.Close()
	stockProd.Close()
	cancel()
	orderProd.WaitClosed()
	stockProd.WaitClosed()
}
