package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/checkout"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/logger"
)

// webhook acknowledges every delivery it could process, including duplicates
// and failed materializations, so the gateway stops redelivering. Storage
// errors return 5xx to get a retry.
func (h *handler) webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
		return
	}

	res, err := h.checkout.HandleWebhook(c.Request.Context(), body, c.GetHeader(gateway.SignatureHeader), c.ClientIP())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, checkout.ErrSignatureInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
	case errors.Is(err, gateway.ErrMalformedWebhook):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_payload"})
	default:
		h.log.Error("webhook processing failed",
			zap.String("request_id", logger.RequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
