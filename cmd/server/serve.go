package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Skufu/SymptomDx/internal/auth"
	"github.com/Skufu/SymptomDx/internal/classifier"
	"github.com/Skufu/SymptomDx/internal/config"
	"github.com/Skufu/SymptomDx/internal/diagnosis"
	"github.com/Skufu/SymptomDx/internal/notify"
	"github.com/Skufu/SymptomDx/internal/server"
	"github.com/Skufu/SymptomDx/internal/store"
)

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	gin.SetMode(cfg.GinMode)

	engine, err := diagnosis.Load(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		engine.Close()
		if cfg.HasONNXModels() {
			classifier.ShutdownRuntime()
		}
	}()

	ctx := context.Background()
	var (
		st store.Store
		db server.HealthChecker
	)
	if cfg.EnableDB {
		st, err = store.Open(ctx, cfg.DatabaseURL, store.Options{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return err
		}
		defer st.Close()
		db = st
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("ENABLE_DB is false, records will not be kept")
	}

	svc := diagnosis.NewService(engine, st, newSender(cfg, logger), logger)
	router := server.NewRouter(server.Options{
		Service: svc,
		DB:      db,
		Auth: auth.Config{
			SigningKey: []byte(cfg.JWTSigningKey),
			Issuer:     cfg.AuthIssuer,
			Dev:        cfg.DevAuth(),
		},
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		StaticRoot:   server.DetectStaticRoot(),
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("server listening")
	return waitForShutdown(srv, errCh, logger)
}

func newSender(cfg *config.Config, logger zerolog.Logger) notify.Sender {
	if cfg.MailServer == "" {
		logger.Warn().Msg("MAIL_SERVER not set, emails are logged instead of sent")
		return notify.LogSender{Logger: logger}
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.MailServer,
		Port:     cfg.MailPort,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
		From:     cfg.MailDefaultSender,
	})
}

func waitForShutdown(srv *http.Server, errCh <-chan error, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
