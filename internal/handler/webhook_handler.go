package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/dto"
	"github.com/noah-isme/feeline-api/internal/service"
)

// WebhookHandler terminates the WhatsApp Cloud API webhook: the one-time
// verification handshake plus inbound message deliveries.
type WebhookHandler struct {
	messages    *service.MessageService
	verifyToken string
	logger      *zap.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(messages *service.MessageService, verifyToken string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{messages: messages, verifyToken: verifyToken, logger: logger}
}

// Verify godoc
// @Summary WhatsApp webhook verification handshake
// @Tags Webhook
// @Produce plain
// @Param hub.mode query string true "Must be subscribe"
// @Param hub.verify_token query string true "Configured verify token"
// @Param hub.challenge query string true "Challenge to echo"
// @Success 200 {string} string "challenge"
// @Router /webhook [get]
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive godoc
// @Summary Inbound WhatsApp events
// @Tags Webhook
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload dto.WhatsAppWebhook
	if err := c.ShouldBindJSON(&payload); err != nil {
		// Meta retries non-2xx deliveries; a payload this service cannot
		// read will not get better on the second attempt.
		h.logger.Warn("unreadable webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	from, text, ok := payload.FirstText()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	h.logger.Info("message received", zap.String("from", from))
	h.messages.HandleText(c.Request.Context(), from, text)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
