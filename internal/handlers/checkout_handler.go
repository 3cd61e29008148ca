package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/auth"
	"github.com/imrishuroy/nursery-checkout/internal/checkout"
	"github.com/imrishuroy/nursery-checkout/internal/logger"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
	"github.com/imrishuroy/nursery-checkout/internal/validation"
)

func (h *handler) validateCart(c *gin.Context) {
	res, err := h.checkout.ValidateCart(c.Request.Context(), auth.FromContext(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) createIntent(c *gin.Context) {
	var req validation.ShippingDetailsRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	ship := payments.Shipping{
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		Email:      strings.TrimSpace(req.Email),
		Line1:      strings.TrimSpace(req.Line1),
		Line2:      strings.TrimSpace(req.Line2),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.ToUpper(req.Country),
	}
	intent, err := h.checkout.CreatePaymentIntent(c.Request.Context(), auth.FromContext(c), ship, c.ClientIP())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *handler) verify(c *gin.Context) {
	var req validation.VerifyRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	res, err := h.checkout.VerifyClientCallback(c.Request.Context(), checkout.CallbackRequest{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
		ClientIP:         c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) cancel(c *gin.Context) {
	var req validation.CancelRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	if err := h.checkout.Cancel(c.Request.Context(), auth.FromContext(c), req.GatewayOrderID, req.Reason, c.ClientIP()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

// writeError maps checkout errors onto HTTP responses.
func (h *handler) writeError(c *gin.Context, err error) {
	var (
		cartErr *checkout.CartInvalidError
		matErr  *checkout.MaterializationError
	)
	switch {
	case errors.As(err, &cartErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart_invalid", "issues": cartErr.Issues})
	case errors.Is(err, checkout.ErrCartEmpty):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart_empty"})
	case errors.Is(err, checkout.ErrCartTooLarge):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart_too_large"})
	case errors.Is(err, checkout.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, checkout.ErrGateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_unavailable"})
	case errors.Is(err, checkout.ErrSignatureInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
	case errors.As(err, &matErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "order_not_created",
			"support_reference": matErr.Reference,
			"msg":               "payment received but the order could not be placed; contact support with this reference",
		})
	case errors.Is(err, checkout.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment_not_found"})
	case errors.Is(err, checkout.ErrPaymentNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": "payment_not_open"})
	default:
		h.log.Error("request failed",
			zap.String("request_id", logger.RequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
