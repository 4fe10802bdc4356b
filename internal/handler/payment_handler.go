package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/dto"
	"github.com/noah-isme/feeline-api/internal/service"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/response"
)

// PaymentHandler exposes the gateway bridge: order creation for payment
// pages and the capture webhook.
type PaymentHandler struct {
	payments  *service.PaymentService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{payments: payments, validator: validator.New(), logger: logger}
}

// CreateOrder godoc
// @Summary Create a gateway order for a student's dues
// @Tags Payments
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.CreateOrderRequest false "Optional partial amount in rupees"
// @Success 200 {object} response.Envelope
// @Router /payments/orders/{studentId} [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid order payload"))
			return
		}
		if err := h.validator.Struct(req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid order amount"))
			return
		}
	}

	order, err := h.payments.CreateOrder(c.Request.Context(), c.Param("studentId"), req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, order, nil)
}

// Webhook godoc
// @Summary Razorpay event webhook
// @Tags Payments
// @Accept json
// @Produce plain
// @Param X-Razorpay-Signature header string true "HMAC signature of the raw body"
// @Success 200 {string} string "OK"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("webhook body read failed", zap.Error(err))
		c.String(http.StatusBadRequest, "unreadable body")
		return
	}

	err = h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		// Always acknowledge so Razorpay does not retry-storm. A signature
		// mismatch is rejected without mutation; other processing failures
		// release the dedup claim so a replay can succeed later.
		if errors.Is(err, appErrors.ErrInvalidSignature) {
			h.logger.Warn("webhook signature mismatch")
			c.String(http.StatusOK, "Invalid signature")
			return
		}
		h.logger.Error("webhook processing failed", zap.Error(err))
	}
	c.String(http.StatusOK, "OK")
}
