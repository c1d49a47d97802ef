package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/logging"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/01moynul/storefront-golang/internal/orders"
	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 64 << 10

//
// --- Payment Handlers ---
//

// PaymentSummary is the handler for GET /payment/:method/:id
func (h *Handlers) PaymentSummary(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	method := c.Param("method")
	if method != orders.MethodCard && method != orders.MethodPayPal {
		h.writeError(c, apperr.NotFound("payment method"))
		return
	}

	itemID, err := cartItemParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	summary, err := h.Orders.Summary(ctx, userID, itemID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"method":     method,
		"line":       summary.Line,
		"totalPrice": summary.TotalPrice,
		"hasAddress": summary.HasAddress,
	})
}

// StartPayment is the handler for POST /payment/:method/:id
// It opens a hosted checkout session and sends the client to it.
func (h *Handlers) StartPayment(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	// 1. --- Parse Path ---
	itemID, err := cartItemParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 2. --- Customer Email ---
	user, err := h.Accounts.Get(ctx, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 3. --- Create Session ---
	session, err := h.Payments.CreateSession(ctx, payment.SessionInput{
		UserID:     userID,
		Email:      user.Email,
		CartItemID: itemID,
		Method:     c.Param("method"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", session.URL)
	c.JSON(http.StatusSeeOther, gin.H{"sessionId": session.ID, "url": session.URL})
}

// PaymentSuccess is the handler for GET /success/?session_id=
func (h *Handlers) PaymentSuccess(c *gin.Context) {
	result, err := h.Payments.ConfirmSuccess(c.Request.Context(), middleware.UserID(c), c.Query("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !result.Paid {
		c.Redirect(http.StatusSeeOther, result.Redirect)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment successful", "order": result.Order})
}

// PaymentCancel is the handler for GET /cancel/
func (h *Handlers) PaymentCancel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Payment was cancelled"})
}

// StripeWebhook is the handler for POST /stripe-webhook/
func (h *Handlers) StripeWebhook(c *gin.Context) {
	logger := logging.FromContext(c.Request.Context(), h.Logger)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("webhook_read_failed", zap.Error(err))
		c.Status(http.StatusServiceUnavailable)
		return
	}

	err = h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, payment.ErrInvalidSignature), errors.Is(err, payment.ErrInvalidPayload):
		c.Status(http.StatusBadRequest)
	default:
		// Non-2xx makes the gateway redeliver.
		logger.Error("webhook_failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}
