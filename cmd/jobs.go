package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-momo/app/service"
	"github.com/vibast-solutions/ms-go-momo/config"
)

var (
	workerMode bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Recover payment sessions stuck in processing",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"monitor",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.MonitorInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				_, err := s.RunMonitorSweep(ctx)
				return err
			},
		)
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Run notification related commands",
}

var notificationsDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch pending payment notifications",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"notifications_dispatch",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.NotifyDispatchInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunDispatchNotificationsBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsDispatchCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(cfg), paymentService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(paymentService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	paymentService *service.PaymentService,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(paymentService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(paymentService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
