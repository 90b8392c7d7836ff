package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"finanze/internal/amqp"
	"finanze/internal/bridge"
	"finanze/internal/cache"
	"finanze/internal/cli"
	"finanze/internal/config"
	"finanze/internal/core"
	"finanze/internal/fetcher"
	apphttp "finanze/internal/http"
	"finanze/internal/log"
	"finanze/internal/rates"
	"finanze/internal/services"
	"finanze/internal/settings"
	"finanze/internal/storage"
)

func serve(ctx context.Context) error {
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		return err
	}
	repo := cli.InitSQLite(logger, cfg.DBPath())
	defer repo.Close()

	creds := credentialStore(cfg, repo)

	settingsStore, err := settings.NewStore(cfg.SettingsPath(), logger)
	if err != nil {
		return errors.Wrap(err, "open settings")
	}
	defer settingsStore.Close()

	rw, err := cli.InitSheets(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var publisher services.JobPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			return err
		}
		defer client.Close()
		publisher = client
		logger.Info("Exports will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	fetchers := fetcher.Demo()
	loginSvc := services.NewLoginService(repo, creds, fetchers, logger)
	fetchSvc := services.NewFetchService(repo, creds, fetchers, settingsStore, loginSvc, logger)
	ratesSvc := services.NewRatesService(
		rates.NewClient(rates.NewHTTPClient(), cfg.RatesBaseURL, cfg.MetalsBaseURL),
		cfg.Currencies, cfg.RatesTTL, logger)
	authSvc := services.NewAuthService(repo, logger)

	if cfg.LoggedUsername != "" {
		err := authSvc.LoginOrSignup(ctx, core.AuthRequest{Username: cfg.LoggedUsername, Password: cfg.LoggedPassword})
		if err != nil {
			logger.Error("Preconfigured user could not log in", log.FieldError, err.Error())
			return err
		}
	}

	addr := ":" + cfg.Port
	host := bridge.NewLocalHost("http://127.0.0.1"+addr+"/api/v1", Version, bridge.NewBroker(), logger)

	opts := apphttp.DefaultOptions()
	srv := apphttp.NewServer(addr, apphttp.Services{
		Auth:        authSvc,
		Entities:    services.NewEntityService(repo, creds, logger),
		EntityStore: repo,
		Login:       loginSvc,
		Fetch:       fetchSvc,
		Virtual:     services.NewVirtualFetchService(repo, settingsStore, rw, logger),
		Export:      services.NewExportService(repo, settingsStore, rw, publisher, cfg.ExportWorkers, logger),
		Settings:    settingsStore,
		Rates:       ratesSvc,
		Wallets:     services.NewWalletService(repo, logger),
		Commodities: services.NewCommodityService(repo, ratesSvc, cfg.Currencies[0], logger),
		Data:        services.NewDataService(repo, logger),
		Host:        host,
		DB:          repo,

		Integrations: core.IntegrationsResponse{
			GoogleSheets: core.StatusOf(rw != nil),
			ExportQueue:  core.StatusOf(publisher != nil),
		},
	}, opts, logger)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	go cache.NewJanitor(logger, ratesSvc.Caches()...).Run(runCtx, time.Minute)

	logger.Info("Starting finanze server",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"credentials_mode", cfg.CredentialsStorageMode,
		"sheets", rw != nil,
		"version", Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		return err
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
	return nil
}

// credentialStore picks where entity credentials live. In ENV mode the fields
// to look up come from each entity's credentials template.
func credentialStore(c *config.Config, repo *storage.SQLiteRepository) services.CredentialStore {
	if c.CredentialsStorageMode != config.CredentialsStorageEnv {
		return repo
	}
	return storage.NewEnvCredentials(func(entityID string) []string {
		entity, err := repo.GetEntity(context.Background(), entityID)
		if err != nil {
			return nil
		}
		return lo.Keys(entity.CredentialsTemplate)
	})
}
