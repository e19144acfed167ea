package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/tib-ai/triage/pkg/catalog"
	"github.com/tib-ai/triage/pkg/common/config"
	"github.com/tib-ai/triage/pkg/common/database"
	"github.com/tib-ai/triage/pkg/common/kafka"
	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/diagnosis"
	"github.com/tib-ai/triage/pkg/gateway/auth"
	"github.com/tib-ai/triage/pkg/gateway/middleware"
	"github.com/tib-ai/triage/pkg/intake"
	"github.com/tib-ai/triage/pkg/observability/metrics"
	"github.com/tib-ai/triage/pkg/records"
	"github.com/tib-ai/triage/pkg/reporting"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load catalog")
	}

	db, err := database.Get(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	repo := records.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to run migrations")
	}
	if err := repo.SeedCatalog(context.Background(), cat); err != nil {
		logger.Log.WithError(err).Fatal("Failed to seed catalog")
	}

	var cache reporting.Cache
	if client := database.GetRedis(cfg); client != nil {
		cache = reporting.NewRedisCache(client, "", cfg.ReportCacheTTL)
		defer database.CloseRedis()
	} else {
		logger.Log.Info("Report cache disabled")
	}

	var publisher intake.Publisher
	if cfg.EventsEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaDiagnosisTopic)
		defer producer.Close()
		publisher = producer
	}

	images, err := newImageStore(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize image store")
	}

	rnd := diagnosis.DefaultSource()
	reports := reporting.NewService(repo, cat, cache, reporting.StatsOptions{
		Placeholders: cfg.ReportPlaceholders,
		Rand:         rnd,
	})
	intakeService := intake.NewService(
		intake.NewValidator(cfg.ImageExtensions),
		diagnosis.NewSynthesizer(cat, rnd),
		repo,
		images,
		publisher,
		reports,
	)

	var validator middleware.TokenValidator
	if oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret); err != nil {
		logger.Log.WithError(err).Warn("OIDC authentication not configured, running without auth")
	} else {
		validator = oidcAuth
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.Ping(r.Context(), db); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	intakeHandler := intake.NewHTTPHandler(intakeService, cfg.MaxRequestBody)
	intakeHandler.RegisterSubmit(api)

	// Stored records and dashboards require a bearer token when OIDC is configured.
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(validator))
	intakeHandler.RegisterReads(protected)
	reporting.NewHTTPHandler(reports).Register(protected)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      middleware.CORS(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Starting triage service")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down triage service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Triage service stopped")
}

func newImageStore(cfg *config.Config) (intake.ImageStore, error) {
	switch cfg.ImageStore {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := intake.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "local", "":
		store, err := intake.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}
