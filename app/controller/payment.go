package controller

import (
	"crypto/hmac"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-momo/app/factory"
	"github.com/vibast-solutions/ms-go-momo/app/mapper"
	"github.com/vibast-solutions/ms-go-momo/app/service"
	"github.com/vibast-solutions/ms-go-momo/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	adminSecret    string
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService, adminSecret string) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		adminSecret:    adminSecret,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) InitiatePayment(ctx echo.Context) error {
	req, err := types.NewInitiatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	session, err := c.paymentService.InitiatePayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrGatewayUnavailable):
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			c.logger.WithError(err).Error("Initiate payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.SessionEnvelopeResponse{Session: mapper.SessionToResponse(session)})
}

func (c *PaymentController) GetPaymentStatus(ctx echo.Context) error {
	req, err := types.NewPaymentStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	session, order, err := c.paymentService.GetPaymentStatus(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment session not found")
		}
		c.logger.WithError(err).Error("Get payment status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	resp := &types.PaymentStatusResponse{
		Reference: session.Reference,
		Status:    string(session.Status),
	}
	if order != nil {
		orderID := order.ID
		resp.OrderID = &orderID
	}

	return ctx.JSON(http.StatusOK, resp)
}

// HandleGatewayWebhook acknowledges every authenticated delivery with 200 so
// the gateway stops retrying; the outcome field tells duplicates, no-ops and
// conflicts apart from applied transitions.
func (c *PaymentController) HandleGatewayWebhook(ctx echo.Context) error {
	req, err := types.NewGatewayWebhookRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.paymentService.HandleGatewayWebhook(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			return c.writeError(ctx, http.StatusUnauthorized, "webhook authentication failed")
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, "invalid webhook payload")
		default:
			c.logger.WithError(err).Error("Handle gateway webhook failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{
		Message:   "Webhook processed",
		Outcome:   outcome.Outcome,
		Reference: outcome.Reference,
		Duplicate: outcome.Duplicate,
	})
}

func (c *PaymentController) RunMonitor(ctx echo.Context) error {
	outcomes, err := c.paymentService.RunMonitorSweep(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("Monitor sweep failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	results := make([]types.MonitorResult, 0, len(outcomes))
	for _, outcome := range outcomes {
		result := types.MonitorResult{
			Reference:  outcome.Reference,
			AgeSeconds: int64(outcome.Age.Seconds()),
			Outcome:    outcome.Outcome,
		}
		if outcome.Err != nil {
			result.Error = outcome.Err.Error()
		}
		results = append(results, result)
	}

	return ctx.JSON(http.StatusOK, &types.MonitorResponse{Results: results})
}

func (c *PaymentController) AdminReplay(ctx echo.Context) error {
	if !c.authorizeAdmin(ctx) {
		return c.writeError(ctx, http.StatusUnauthorized, "admin authentication failed")
	}

	req, err := types.NewAdminReplayRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.paymentService.AdminReplay(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, "unrecognized status")
		}
		c.logger.WithError(err).Error("Admin replay failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{
		Message:   "Replay processed",
		Outcome:   outcome.Outcome,
		Reference: outcome.Reference,
		Duplicate: outcome.Duplicate,
	})
}

func (c *PaymentController) authorizeAdmin(ctx echo.Context) bool {
	if c.adminSecret == "" {
		return false
	}
	provided := ctx.Request().Header.Get("X-Admin-Secret")
	return provided != "" && hmac.Equal([]byte(provided), []byte(c.adminSecret))
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
