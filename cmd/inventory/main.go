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

	"github.com/ariefcatur/go-shop-saga.git/internal/config"
	"github.com/ariefcatur/go-shop-saga.git/internal/httpx"
	"github.com/ariefcatur/go-shop-saga.git/internal/inventory"
	"github.com/ariefcatur/go-shop-saga.git/internal/logging"
	"github.com/ariefcatur/go-shop-saga.git/internal/metrics"
	"github.com/ariefcatur/go-shop-saga.git/internal/postgres"
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
	if err := postgres.EnsureSchema(ctx, db, inventory.Schema); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	svc := &inventory.Service{Store: &inventory.PGStore{DB: db}, Log: log}

	m := metrics.NewServerMetrics("inventory")
	router := httpx.NewRouter(m)
	ih := &httpx.InventoryHandler{Svc: svc, AdminToken: cfg.AdminToken, Log: log}
	ih.Register(router)

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
}
