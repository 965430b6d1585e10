package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/landlord/internal/amqp"
	"github.com/dukerupert/landlord/internal/email"
)

var workerSendTimeout time.Duration

var workerCmd = &cobra.Command{
	Use:   "notify-worker",
	Short: "Deliver queued notifications from the AMQP broker by email",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AMQPURL == "" {
			return errors.New("LANDLORD_AMQP_URL is required for notify-worker")
		}
		return runWorker()
	},
}

func init() {
	workerCmd.Flags().DurationVar(&workerSendTimeout, "send-timeout", 15*time.Second, "timeout for a single email send")
}

func runWorker() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.With("component", "amqp"))
	if err != nil {
		return err
	}
	defer broker.Close()

	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.FromName)
	if !emailClient.Configured() {
		logger.Warn("postmark token not set, messages will be acknowledged without sending")
	}

	return broker.Consume(ctx, emailClient, workerSendTimeout)
}
