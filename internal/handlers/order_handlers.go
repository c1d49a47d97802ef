package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/01moynul/storefront-golang/internal/orders"
	"github.com/gin-gonic/gin"
)

//
// --- Checkout Handlers (Login Required) ---
//

// cartItemParam reads the :id path segment, a cart item id.
func cartItemParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("cart item")
	}
	return id, nil
}

// CheckoutSummary is the handler for GET /checkout/:id
func (h *Handlers) CheckoutSummary(c *gin.Context) {
	itemID, err := cartItemParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	summary, err := h.Orders.Summary(c.Request.Context(), middleware.UserID(c), itemID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SubmitCheckout is the handler for POST /checkout/:id
func (h *Handlers) SubmitCheckout(c *gin.Context) {
	// 1. --- Parse Path ---
	itemID, err := cartItemParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 2. --- Bind & Validate JSON ---
	var form orders.CheckoutForm
	if err := bindJSON(c, &form); err != nil {
		h.writeError(c, err)
		return
	}

	// 3. --- Create or Update Order ---
	result, err := h.Orders.Checkout(c.Request.Context(), middleware.UserID(c), itemID, form)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
