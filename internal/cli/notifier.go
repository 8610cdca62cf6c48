package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/flightdesk/internal/calendar"
	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/queue"
)

func newNotifierCmd() *cobra.Command {
	var prefetch int
	cmd := &cobra.Command{
		Use:   "notifier",
		Short: "Consume dispatch events and write pilot calendar entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.LoadLenient()
			log := logger.New(cfg.Env).With("component", "notifier")

			sink, err := newSink(ctx, cfg.Calendar, log)
			if err != nil {
				return err
			}
			c := &queue.Consumer{URL: cfg.AMQPURL, Queue: queue.DefaultQueue, Prefetch: prefetch, Sink: sink, Log: log}
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("notifier stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&prefetch, "prefetch", 50, "unacknowledged messages held at once")
	return cmd
}

func newSink(ctx context.Context, cfg config.CalendarConfig, log logger.Logger) (*calendar.Sink, error) {
	if !cfg.Enabled() {
		log.Warn("google calendar credentials not set, events will only be logged")
		return calendar.NewLogSink(log), nil
	}
	return calendar.NewGoogleSink(ctx, cfg, log)
}
