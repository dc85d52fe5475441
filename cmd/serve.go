package cmd

import (
	"context"
	"crypto/hmac"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-momo/app/controller"
	"github.com/vibast-solutions/ms-go-momo/app/gateway"
	"github.com/vibast-solutions/ms-go-momo/app/repository"
	"github.com/vibast-solutions/ms-go-momo/app/service"
	"github.com/vibast-solutions/ms-go-momo/app/types"
	"github.com/vibast-solutions/ms-go-momo/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the mobile money payments service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, paymentService, cleanup := mustCreatePaymentService()
	defer cleanup()

	paymentController := controller.NewPaymentController(paymentService, cfg.App.AdminSecret)

	e := setupHTTPServer(paymentController, cfg.App.APIKey)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(paymentController *controller.PaymentController, apiKey string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", paymentController.Health)

	// The gateway cannot send a request id or an internal API key, so the
	// webhook route sits outside the guarded group and authenticates with
	// the shared key or signature instead.
	e.POST("/payments/webhooks", paymentController.HandleGatewayWebhook)

	// Admin replay authenticates per-handler with the admin secret.
	e.POST("/payments/admin/replay", paymentController.AdminReplay)

	payments := e.Group("/payments")
	payments.Use(requireRequestID())
	payments.Use(requireAPIKey(apiKey))
	payments.POST("/initiate", paymentController.InitiatePayment)
	payments.POST("/status", paymentController.GetPaymentStatus)
	payments.GET("/:reference/status", paymentController.GetPaymentStatus)
	payments.GET("/monitor", paymentController.RunMonitor)
	payments.POST("/monitor", paymentController.RunMonitor)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func requireAPIKey(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey == "" {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "api key authentication is not configured"})
			}
			provided := ctx.Request().Header.Get("X-API-Key")
			if provided == "" || !hmac.Equal([]byte(provided), []byte(apiKey)) {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid api key"})
			}
			return next(ctx)
		}
	}
}

func mustCreatePaymentService() (*config.Config, *service.PaymentService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	sessionRepo := repository.NewSessionRepository(db)
	sessionEventRepo := repository.NewSessionEventRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	clickpesa := gateway.NewClickPesaClient(gateway.ClickPesaConfig{
		BaseURL:     cfg.Gateway.BaseURL,
		APIKey:      cfg.Gateway.APIKey,
		HTTPTimeout: cfg.Gateway.HTTPTimeout,
	})

	gatewayRegistry := gateway.NewRegistry(clickpesa)
	paymentService := service.NewPaymentService(
		sessionRepo,
		sessionEventRepo,
		webhookEventRepo,
		notificationRepo,
		orderRepo,
		gatewayRegistry,
		cfg.Payments,
		cfg.Webhook,
		cfg.App.APIKey,
	)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, paymentService, cleanup
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
