package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardiansyah/go-shop-api/internal/cart"
	"github.com/ardiansyah/go-shop-api/internal/config"
	"github.com/ardiansyah/go-shop-api/internal/httpx"
	"github.com/ardiansyah/go-shop-api/internal/inventory"
	kafkax "github.com/ardiansyah/go-shop-api/internal/kafka"
	"github.com/ardiansyah/go-shop-api/internal/logx"
	"github.com/ardiansyah/go-shop-api/internal/orders"
	"github.com/ardiansyah/go-shop-api/internal/postgres"
	"github.com/ardiansyah/go-shop-api/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
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

	prodCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prodCreated.Start(ctx)
	prodCancel := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	prodCancel.Start(ctx)

	ledger := &inventory.Ledger{DB: db}
	cartRepo := &cart.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db, Ledger: ledger}

	router := httpx.NewRouter(log)
	router.Group(func(r chi.Router) {
		r.Use(httpx.Authenticate(cfg.JWTSecret))

		ch := &httpx.CartHandler{Repo: cartRepo, Log: log}
		ch.Register(r)

		oh := &httpx.OrdersHandler{
			Repo:            orderRepo,
			Redis:           rdb,
			ProducerCreated: prodCreated,
			ProducerCancel:  prodCancel,
			Service:         cfg.ServiceName,
			Log:             log,
		}
		oh.Register(r)

		ph := &httpx.ProductsHandler{Ledger: ledger}
		ph.Register(r)
	})

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

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)

	prodCreated.Close()
	prodCancel.Close()
	cancel()
	prodCreated.WaitClosed()
	prodCancel.WaitClosed()
}
