package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/config"
	"github.com/ariefcatur/go-shop-saga.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-saga.git/internal/kafka"
	"github.com/ariefcatur/go-shop-saga.git/internal/logging"
	"github.com/ariefcatur/go-shop-saga.git/internal/metrics"
	"github.com/ariefcatur/go-shop-saga.git/internal/notify"
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
	if err := postgres.EnsureSchema(ctx, db, notify.Schema); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	store := &notify.PGStore{DB: db}

	prod := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicDispatch, 1024, log)
	prod.Start(ctx)

	svc := &notify.Service{Store: store, Producer: prod, ServiceName: cfg.ServiceName, Log: log}

	// dispatch consumer: delivers queued notifications
	group := getenv("NOTIFY_GROUP", "notify-dispatch")
	workers := mustAtoi(getenv("NOTIFY_WORKERS", "4"))
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, notify.TopicDispatch, workers, log)
	disp := &notify.Dispatcher{Store: store, Redis: rdb, Log: log}
	go func() {
		log.Info("dispatch consumer started", zap.String("group", group), zap.Int("workers", workers))
		if err := cons.Start(ctx, disp.HandleQueued); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	m := metrics.NewServerMetrics("notify")
	router := httpx.NewRouter(m)
	nh := &httpx.NotifyHandler{Svc: svc, Log: log}
	nh.Register(router)

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

	prod.Close()
	cancel()
	prod.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
