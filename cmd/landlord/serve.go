package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/landlord/internal/amqp"
	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/email"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServe(); err != nil {
			return err
		}
		return serve()
	},
}

func serve() error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// With a broker the queue workers only publish; a notify-worker
	// process does the actual email delivery.
	var sender notify.Sender
	if cfg.AMQPURL != "" {
		broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.With("component", "amqp"))
		if err != nil {
			return err
		}
		defer broker.Close()
		sender = broker
	} else if emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.FromName); emailClient.Configured() {
		sender = emailClient
	}

	var dispatcher notify.Dispatcher = notify.Discard{}
	if sender != nil {
		queue := notify.NewQueue(sender, notify.QueueConfig{
			Workers: cfg.NotifyWorkers,
			Buffer:  cfg.NotifyBuffer,
		}, logger.With("component", "notify"))
		// Not tied to ctx so Stop can drain queued events after a signal.
		queue.Start(context.Background())
		defer queue.Stop()
		dispatcher = queue
	} else {
		logger.Warn("notifications disabled: no postmark token or AMQP URL set")
	}

	srv := server.New(db, dispatcher, server.Config{
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		Location:    loc,
		CORSOrigins: cfg.CORSOrigins,
	}, logger)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("landlord API listening", "addr", httpServer.Addr, "timezone", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
