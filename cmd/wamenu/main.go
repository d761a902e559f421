package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lojasmm/wamenu/internal/admin"
	"github.com/lojasmm/wamenu/internal/bot"
	"github.com/lojasmm/wamenu/internal/config"
	"github.com/lojasmm/wamenu/internal/logger"
	"github.com/lojasmm/wamenu/internal/resolver"
	"github.com/lojasmm/wamenu/internal/stats"
	"github.com/lojasmm/wamenu/internal/store"
	"github.com/lojasmm/wamenu/internal/throttle"
	"github.com/lojasmm/wamenu/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "wamenu.db"))
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	// One outbound budget shared by every client built over the process lifetime.
	// WA_SEND_RATE=0 leaves it nil, which disables throttling.
	sendLimiter := whatsapp.NewSendLimiter(cfg.WASendRate)
	newClient := func(phoneNumberID, accessToken string) whatsapp.Sender {
		return whatsapp.NewClient(phoneNumberID, accessToken,
			whatsapp.WithAPIVersion(cfg.WAAPIVersion),
			whatsapp.WithLimiter(sendLimiter),
		)
	}

	senders := whatsapp.NewSenderRef(nil)
	creds, err := db.Credentials()
	if err != nil {
		log.WithError(err).Warn("reading stored credentials")
	}
	switch {
	case creds != nil:
		senders.Swap(newClient(creds.PhoneNumberID, creds.AccessToken))
		log.WithField("updated_at", creds.UpdatedAt).Info("using credentials saved from the admin API")
	case cfg.HasCredentials():
		senders.Swap(newClient(cfg.WAPhoneNumberID, cfg.WAAccessToken))
	default:
		log.Fatal("WA_PHONE_NUMBER_ID and WA_ACCESS_TOKEN are required (or credentials saved through PUT /api/credentials)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := stats.NewRecorder(db, 1024, log)
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		recorder.Run(ctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := bot.New(senders, resolver.New(db, log), recorder,
		bot.WithLogger(log),
		bot.WithMetrics(bot.NewMetrics(reg)),
		bot.WithDefaultList(cfg.DefaultListID),
	)

	inbound := throttle.NewLimiter(cfg.InboundRateLimit)

	// Periodic cleanup of idle per-sender limiters
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				inbound.Cleanup(1 * time.Hour)
				log.WithField("tracked_senders", inbound.Len()).Debug("inbound limiter cleanup")
			}
		}
	}()

	webhookOpts := []whatsapp.WebhookOption{whatsapp.WithSenderLimiter(inbound)}
	if cfg.WAAppSecret != "" {
		webhookOpts = append(webhookOpts, whatsapp.WithAppSecret(cfg.WAAppSecret))
	} else {
		log.Warn("WA_APP_SECRET not set, webhook signatures are not checked")
	}
	webhookHandler := whatsapp.NewWebhookHandler(cfg.WAVerifyToken, engine, log, webhookOpts...)
	adminHandler := admin.NewHandler(db, engine, senders, newClient, cfg.AdminToken, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/webhook", webhookHandler.HandleVerify)
	r.Post("/webhook", webhookHandler.HandleIncoming)

	adminHandler.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("wamenu: listening on :%s", cfg.Port)
		log.Infof("wamenu: webhook verify token = %s", cfg.WAVerifyToken)
		if cfg.AdminToken == "" {
			log.Warn("ADMIN_TOKEN not set, admin API is open")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("wamenu: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	<-recorderDone
	log.Info("wamenu: stopped")
}
