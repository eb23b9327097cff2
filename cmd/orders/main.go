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

	"github.com/ariefcatur/go-shop-saga.git/internal/clients"
	"github.com/ariefcatur/go-shop-saga.git/internal/config"
	"github.com/ariefcatur/go-shop-saga.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-saga.git/internal/kafka"
	"github.com/ariefcatur/go-shop-saga.git/internal/logging"
	"github.com/ariefcatur/go-shop-saga.git/internal/metrics"
	"github.com/ariefcatur/go-shop-saga.git/internal/orders"
	"github.com/ariefcatur/go-shop-saga.git/internal/outbox"
	"github.com/ariefcatur/go-shop-saga.git/internal/postgres"
	"github.com/ariefcatur/go-shop-saga.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.MustNew(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db, append(orders.Schema, outbox.Schema...)); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	created := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	created.Start(ctx)
	paid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024, log)
	paid.Start(ctx)
	payFailed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPayFailed, 1024, log)
	payFailed.Start(ctx)

	hc := &http.Client{Timeout: cfg.RequestTimeout}
	invClient := &clients.Inventory{BaseURL: cfg.InventoryBaseURL, HC: hc}

	repo := &orders.Repo{DB: db}
	queue := &outbox.Queue{DB: db}
	saga := &orders.Saga{
		Store:     repo,
		Inventory: invClient,
		Payments:  &clients.Payments{BaseURL: cfg.PaymentBaseURL, HC: hc},
		Shipping:  &clients.Shipping{BaseURL: cfg.ShippingBaseURL, HC: hc},
		Notify:    &clients.Notify{BaseURL: cfg.NotifyBaseURL, HC: hc},
		Comp:      queue,
		Metrics:   metrics.NewSagaMetrics(),
		Log:       log,
	}

	comp := &orders.Compensator{
		Queue:     queue,
		Inventory: invClient,
		Log:       log,
		Interval:  10 * time.Second,
	}
	go comp.Run(ctx)

	m := metrics.NewServerMetrics("orders")
	router := httpx.NewRouter(m)
	oh := &httpx.OrdersHandler{
		Repo:      repo,
		Saga:      saga,
		Redis:     rdb,
		Created:   created,
		Paid:      paid,
		PayFailed: payFailed,
		Service:   cfg.ServiceName,
		Log:       log,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
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

	created.Close()
	paid.Close()
	payFailed.Close()
	cancel()
	created.WaitClosed()
	paid.WaitClosed()
	payFailed.WaitClosed()
}
