// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"razorpay-subscription-service/internal/config"
	"razorpay-subscription-service/internal/infra/api"
	pg "razorpay-subscription-service/internal/infra/db/postgres"
	"razorpay-subscription-service/internal/infra/logging"
	"razorpay-subscription-service/internal/infra/metrics"
	pay "razorpay-subscription-service/internal/infra/payment"
	red "razorpay-subscription-service/internal/infra/redis"
	"razorpay-subscription-service/internal/infra/sched"
	"razorpay-subscription-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)

	// ---- Gateway ----
	gateway, err := pay.NewRazorpayGateway(cfg.Gateway.KeyID, cfg.Gateway.KeySecret, cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("razorpay gateway")
	}

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, gateway, tm, cfg.Gateway.KeySecret, logger)
	subUC := usecase.NewSubscriptionUseCase(userRepo, subRepo, gateway, tm, locker, logger)
	planUC := usecase.NewPlanUseCase(gateway, logger)
	webhookUC := usecase.NewWebhookUseCase(userRepo, subRepo, eventRepo, tm, cfg.Gateway.WebhookSecret, logger)

	// ---- HTTP server ----
	srv := api.NewServer(paymentUC, subUC, planUC, webhookUC, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// scrape endpoint on its own port, kept off the public surface
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// ---- Payment reconciler ----
	reconciler := sched.NewPaymentReconciler(paymentRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
