package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/licitabrasil/licita-api/internal/auth"
	"github.com/licitabrasil/licita-api/internal/config"
	"github.com/licitabrasil/licita-api/internal/db"
	"github.com/licitabrasil/licita-api/internal/excel"
	httphandler "github.com/licitabrasil/licita-api/internal/http"
	"github.com/licitabrasil/licita-api/internal/logger"
	"github.com/licitabrasil/licita-api/internal/metrics"
	"github.com/licitabrasil/licita-api/internal/pdf"
	"github.com/licitabrasil/licita-api/internal/realtime"
	"github.com/licitabrasil/licita-api/internal/repository"
	"github.com/licitabrasil/licita-api/internal/scheduler"
	"github.com/licitabrasil/licita-api/internal/service"
	"github.com/licitabrasil/licita-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect redis")
	}

	appMetrics := metrics.New()

	userRepo := repository.NewUserRepository(database)
	supplierRepo := repository.NewSupplierRepository(database)
	entityRepo := repository.NewPublicEntityRepository(database)
	biddingRepo := repository.NewBiddingRepository(database)
	proposalRepo := repository.NewProposalRepository(database)
	contractRepo := repository.NewContractRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	settingRepo := repository.NewSettingRepository(database)
	reportRepo := repository.NewReportRepository(database)

	var documents service.DocumentStorage
	if cfg.Storage.Enabled() {
		store, err := storage.New(cfg.Storage, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init document storage")
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare document bucket")
		}
		documents = store
	} else {
		log.Warn().Msg("document storage disabled, STORAGE_ENDPOINT is empty")
	}

	tokens := auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL)
	refreshStore := auth.NewRefreshStore(redisClient)

	settings := service.NewSettingsService(settingRepo, log)
	notifications := service.NewNotificationService(service.NotificationDeps{
		Store:     notificationRepo,
		Users:     userRepo,
		Suppliers: supplierRepo,
		Entities:  entityRepo,
		Proposals: proposalRepo,
		Metrics:   appMetrics,
	}, log)
	biddings := service.NewBiddingService(service.BiddingDeps{
		Biddings:      biddingRepo,
		Proposals:     proposalRepo,
		Entities:      entityRepo,
		Contracts:     contractRepo,
		Notifications: notifications,
		Settings:      settings,
		Storage:       documents,
		MaxUploadMB:   cfg.Storage.MaxUploadMB,
		Metrics:       appMetrics,
	}, log)
	proposals := service.NewProposalService(service.ProposalDeps{
		Proposals:     proposalRepo,
		Biddings:      biddingRepo,
		Suppliers:     supplierRepo,
		Entities:      entityRepo,
		Notifications: notifications,
		Settings:      settings,
	}, log)
	reports := service.NewReportService(service.ReportDeps{
		Users:         userRepo,
		Biddings:      biddingRepo,
		Proposals:     proposalRepo,
		Contracts:     contractRepo,
		Notifications: notificationRepo,
		Reports:       reportRepo,
		XLSX:          excel.NewGenerator(),
		PDF:           pdf.NewGenerator(),
	}, log)

	hub := realtime.NewHub(cfg.HTTP.AllowedOrigins, appMetrics, log)
	notifications.SetEmitter(hub)

	handler := httphandler.NewHandler(httphandler.Services{
		Auth:          service.NewAuthService(userRepo, refreshStore, tokens, notifications, cfg.Auth.RefreshTTL, log),
		Users:         service.NewUserService(userRepo, refreshStore, log),
		Biddings:      biddings,
		Proposals:     proposals,
		Contracts:     service.NewContractService(contractRepo, supplierRepo, entityRepo),
		Suppliers:     service.NewSupplierService(supplierRepo, notifications, log),
		Entities:      service.NewPublicEntityService(entityRepo, notifications, log),
		Notifications: notifications,
		Reports:       reports,
		Settings:      settings,
		Audit:         service.NewAuditService(auditRepo, log),
	}, hub, log)
	router := httphandler.NewRouter(handler, tokens, appMetrics, httphandler.RouterConfig{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.New(scheduler.Config{
			StatusInterval: cfg.Scheduler.StatusInterval,
			Retention:      time.Duration(cfg.Notifications.RetentionDays) * 24 * time.Hour,
		}, biddings, notifications, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init scheduler")
		}
		jobs.Start()
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting licita api")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	hub.Shutdown()
	if jobs != nil {
		if err := jobs.Stop(); err != nil {
			log.Warn().Err(err).Msg("scheduler shutdown failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
