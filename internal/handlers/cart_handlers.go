package handlers

import (
	"net/http"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

//
// --- Cart Handlers (Login Required) ---
//

// AddToCart is the handler for POST /add-to-cart/:slug/
func (h *Handlers) AddToCart(c *gin.Context) {
	ctx := c.Request.Context()

	// 1. --- Bind & Validate JSON ---
	var input cart.AddItemInput
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	// 2. --- Find the Product ---
	product, err := h.Catalog.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 3. --- Upsert Cart Line ---
	item, err := h.Cart.AddItem(ctx, middleware.UserID(c), product.ID, input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Item added to cart", "item": item})
}

// GetCart is the handler for GET /cart/
func (h *Handlers) GetCart(c *gin.Context) {
	lines, err := h.Cart.Items(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	totalItems := 0
	for _, l := range lines {
		totalItems += l.Quantity
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      lines,
		"total":      cart.Total(lines),
		"totalItems": totalItems,
	})
}

// Cart form actions for POST /cart/.
const (
	cartActionUpdate = "update"
	cartActionRemove = "remove"
)

// UpdateCartInput is the JSON body for POST /cart/.
type UpdateCartInput struct {
	Action     string        `json:"action" binding:"required,oneof=update remove"`
	ItemID     int64         `json:"itemId"`
	Quantities map[int64]int `json:"quantities"`
}

// UpdateCart is the handler for POST /cart/
func (h *Handlers) UpdateCart(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	var input UpdateCartInput
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	switch input.Action {
	case cartActionUpdate:
		if len(input.Quantities) == 0 {
			h.writeError(c, apperr.InvalidField("quantities", "This field is required."))
			return
		}
		if err := h.Cart.UpdateQuantities(ctx, userID, input.Quantities); err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
	case cartActionRemove:
		if err := h.Cart.RemoveItem(ctx, userID, input.ItemID); err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
	}
}
