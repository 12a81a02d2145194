package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/credfacil/credfacil-backend/api/routes"
	"github.com/credfacil/credfacil-backend/internal/contracts"
	"github.com/credfacil/credfacil-backend/internal/disbursements"
	"github.com/credfacil/credfacil-backend/internal/ledger"
	"github.com/credfacil/credfacil-backend/internal/matching"
	"github.com/credfacil/credfacil-backend/internal/payments"
	"github.com/credfacil/credfacil-backend/internal/reconciliation"
	"github.com/credfacil/credfacil-backend/internal/recovery"
	"github.com/credfacil/credfacil-backend/pkg/config"
	"github.com/credfacil/credfacil-backend/pkg/db"
	"github.com/credfacil/credfacil-backend/pkg/logger"
	"github.com/credfacil/credfacil-backend/pkg/metrics"
	"github.com/credfacil/credfacil-backend/pkg/migrate"
	"github.com/credfacil/credfacil-backend/pkg/redis"
	"github.com/credfacil/credfacil-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var stripeClient *stripe.Client
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe api key not set, fallback card recovery disabled")
	}

	batchMetrics := metrics.NewBatchJobMetrics(prometheus.DefaultRegisterer)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	contractsRepo := contracts.NewRepository(dbClient.DB())
	matchingRepo := matching.NewRepository(dbClient.DB())
	disbursementsRepo := disbursements.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	recoveryRepo := recovery.NewRepository(dbClient.DB())
	reconciliationRepo := reconciliation.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(dbClient, ledgerRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	contractService, err := contracts.NewService(dbClient, contractsRepo, batchMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create contract service", err)
		os.Exit(1)
	}
	matchingService, err := matching.NewService(matchingRepo, redisClient, cfg.Matching.AmountToleranceCents, cfg.Matching.ReviewQueueTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}
	disbursementService, err := disbursements.NewService(dbClient, disbursementsRepo, contractsRepo, ledgerRepo, ledgerService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create disbursement service", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(dbClient, paymentsRepo, contractsRepo, disbursementsRepo, disbursementService, matchingService, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}
	// A nil *stripe.Client must not reach the service as a non-nil interface,
	// so the gateway argument is spelled out per branch.
	var recoveryService recovery.Service
	if stripeClient != nil {
		recoveryService, err = recovery.NewService(dbClient, recoveryRepo, contractsRepo, disbursementsRepo, ledgerRepo, ledgerService, stripeClient, paymentService, cfg.Recovery.ChargeTimeout, logg)
	} else {
		recoveryService, err = recovery.NewService(dbClient, recoveryRepo, contractsRepo, disbursementsRepo, ledgerRepo, ledgerService, nil, paymentService, cfg.Recovery.ChargeTimeout, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create recovery service", err)
		os.Exit(1)
	}
	reconciliationService, err := reconciliation.NewService(dbClient, reconciliationRepo, batchMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			contractService,
			matchingService,
			paymentService,
			disbursementService,
			disbursementsRepo,
			recoveryService,
			reconciliationService,
			ledgerService,
			ledgerRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
