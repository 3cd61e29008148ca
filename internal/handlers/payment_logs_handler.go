package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/validation"
)

func (h *handler) listPaymentLogs(c *gin.Context) {
	var q validation.PaymentLogQuery
	if err := validation.BindQueryAndValidate(c, &q, h.validate); err != nil {
		return
	}

	f := auditlog.Filter{
		EventType:      auditlog.EventType(q.EventType),
		Status:         auditlog.Status(q.Status),
		CorrelationID:  q.CorrelationID,
		GatewayOrderID: q.GatewayOrderID,
		PageSize:       q.PageSize,
		PageToken:      q.PageToken,
	}
	// formats were checked by the validator
	if q.From != "" {
		f.From, _ = time.Parse(time.RFC3339, q.From)
	}
	if q.To != "" {
		f.To, _ = time.Parse(time.RFC3339, q.To)
	}

	page, err := h.logs.List(c.Request.Context(), f)
	if errors.Is(err, auditlog.ErrInvalidPageToken) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page_token"})
		return
	}
	if err != nil {
		h.log.Error("list payment logs failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handler) paymentLogTimeline(c *gin.Context) {
	id := c.Param("correlationID")
	entries, err := h.logs.Timeline(c.Request.Context(), id)
	if err != nil {
		h.log.Error("payment log timeline failed", zap.String("correlation_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlation_id": id, "items": entries})
}
