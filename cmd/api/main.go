package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/api"
	"github.com/meridianpay/custodyops/internal/cardgateway"
	"github.com/meridianpay/custodyops/internal/config"
	"github.com/meridianpay/custodyops/internal/provider"
	"github.com/meridianpay/custodyops/internal/service"
	"github.com/meridianpay/custodyops/internal/store"
	"github.com/meridianpay/custodyops/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	mirror, err := store.NewStore(cfg.DBSource)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer mirror.Close()

	// Initialize Layers
	auditor := service.NewAuditRecorder(mirror, logger)
	defer auditor.Flush()
	notifier := service.NewNotifier(mirror, logger)

	providerClient := provider.NewClient(cfg, logger, auditor)
	gatewayClient := cardgateway.NewClient(cfg, logger)

	customers := service.NewCustomerService(mirror, providerClient, notifier, logger)
	wallets := service.NewWalletService(mirror, providerClient, logger)
	transfers := service.NewTransferService(mirror, providerClient, notifier, logger)
	cards := service.NewCardService(mirror, gatewayClient, notifier, logger)
	virtualAccounts := service.NewVirtualAccountService(mirror, providerClient, logger)
	liquidation := service.NewLiquidationAddressService(mirror, providerClient, logger)

	pipeline := webhook.NewPipeline(customers, wallets, transfers, cards, virtualAccounts, notifier, auditor, logger)
	handler := api.NewHandler(customers, wallets, transfers, cards, virtualAccounts, liquidation, notifier, pipeline, logger)

	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(":"+cfg.Port, handler.Router()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
