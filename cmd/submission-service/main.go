package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formrelay/platform/pkg/common/config"
	"github.com/formrelay/platform/pkg/common/database"
	"github.com/formrelay/platform/pkg/common/kafka"
	"github.com/formrelay/platform/pkg/common/logger"
	"github.com/formrelay/platform/pkg/fanout"
	"github.com/formrelay/platform/pkg/forms"
	"github.com/formrelay/platform/pkg/gateway/httpclient"
	"github.com/formrelay/platform/pkg/gateway/middleware"
	"github.com/formrelay/platform/pkg/mailer"
	"github.com/formrelay/platform/pkg/observability/metrics"
	"github.com/formrelay/platform/pkg/submission"
	"github.com/formrelay/platform/pkg/verification"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	formRepo := forms.NewRepository(db)
	submissionRepo := submission.NewRepository(db)
	if cfg.AutoMigrate {
		if err := formRepo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate form tables")
		}
		if err := submissionRepo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate submission tables")
		}
	}

	deliveryClient := httpclient.New(cfg.DeliveryTimeout)
	channels := []fanout.Channel{
		fanout.NewWebhook(deliveryClient),
		fanout.NewSlack(deliveryClient),
		fanout.NewDiscord(deliveryClient),
		// Apps Script bridges answer the POST with a redirect to their result.
		fanout.NewSheets(httpclient.NewFollowing(cfg.DeliveryTimeout)),
		fanout.NewTelegram(deliveryClient, cfg.TelegramBaseURL),
		fanout.NewNotion(deliveryClient, cfg.NotionBaseURL, cfg.NotionVersion),
	}

	if cfg.EmailAPIKey != "" {
		templates, err := mailer.LoadTemplates(cfg.MailTemplatesPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load mail templates")
		}
		mail := mailer.NewClient(deliveryClient, cfg.EmailAPIKey, cfg.EmailBaseURL, cfg.EmailFrom)
		channels = append(channels,
			fanout.NewOwnerEmail(mail, templates),
			fanout.NewAutoResponder(mail, templates),
		)
	} else {
		logger.Log.Warn("EMAIL_API_KEY not set, email notifications disabled")
	}

	dispatcher := fanout.NewDispatcher(cfg.DeliveryTimeout, channels...)

	var signals []submission.Signal
	if rdb := database.GetRedis(cfg); rdb != nil {
		defer database.CloseRedis()
		signals = append(signals, submission.NewCacheSignal(rdb))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.SubmissionEventsTopic)
		defer producer.Close()
		signals = append(signals, submission.NewEventSignal(producer))
	}

	turnstile := verification.NewTurnstile(httpclient.New(cfg.TurnstileTimeout), cfg.TurnstileSecret, cfg.TurnstileVerifyURL, cfg.TurnstileTimeout)
	if cfg.TurnstileSecret == "" {
		logger.Log.Warn("TURNSTILE_SECRET_KEY not set, tokens on verified forms will be classified as spam")
	}

	svc := submission.NewService(formRepo, submissionRepo, verification.NewGate(turnstile), dispatcher, signals, cfg.FanoutAwait)
	handler := submission.NewHTTPHandler(svc, cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingPostgres(r.Context()); err != nil {
			logger.Log.WithError(err).Warn("readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":         cfg.ServerHost,
			"port":         cfg.ServerPort,
			"fanout_await": cfg.FanoutAwait,
			"channels":     len(channels),
			"signals":      len(signals),
		}).Info("Submission Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Submission Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("in-flight deliveries abandoned at shutdown")
	}

	logger.Log.Info("Submission Service stopped")
}
