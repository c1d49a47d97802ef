package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/catalog"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

// homeReviewLimit is how many recent reviews the home page shows.
const homeReviewLimit = 4

//
// --- Catalog (Public) ---
//

// Home is the handler for GET /
func (h *Handlers) Home(c *gin.Context) {
	ctx := c.Request.Context()

	products, err := h.Catalog.List(ctx, "")
	if err != nil {
		h.writeError(c, err)
		return
	}
	reviews, err := h.Catalog.RecentReviews(ctx, homeReviewLimit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	categories, err := h.Catalog.Categories(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":   products,
		"reviews":    reviews,
		"categories": categories,
	})
}

// Shop is the handler for GET /shop/?price_range=min-max
func (h *Handlers) Shop(c *gin.Context) {
	products, err := h.Catalog.List(c.Request.Context(), c.Query("price_range"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Search is the handler for GET /search/?q=
func (h *Handlers) Search(c *gin.Context) {
	q := c.Query("q")
	products, err := h.Catalog.Search(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "products": products})
}

// ProductDetail is the handler for GET /product/:slug/
func (h *Handlers) ProductDetail(c *gin.Context) {
	product, err := h.Catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

//
// --- Catalog (Login Required) ---
//

// PostReview is the handler for POST /product/:slug/
func (h *Handlers) PostReview(c *gin.Context) {
	var input catalog.ReviewInput
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	review, err := h.Catalog.AddReview(c.Request.Context(), middleware.UserID(c), c.Param("slug"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review posted", "review": review})
}

// CreateProduct is the handler for POST /create-product/
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input catalog.ProductInput
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	product, err := h.Catalog.CreateProduct(c.Request.Context(), middleware.UserID(c), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product created", "product": product})
}

// EditProduct is the handler for PUT /edit-product/:slug/
func (h *Handlers) EditProduct(c *gin.Context) {
	var input catalog.ProductInput
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	product, err := h.Catalog.UpdateProduct(c.Request.Context(), middleware.UserID(c), c.Param("slug"), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product})
}

// MyProducts is the handler for GET /products/
func (h *Handlers) MyProducts(c *gin.Context) {
	products, err := h.Catalog.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// DeleteProduct is the handler for DELETE /products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.writeError(c, apperr.NotFound("product"))
		return
	}

	if err := h.Catalog.DeleteProduct(c.Request.Context(), middleware.UserID(c), productID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// ProductOptions is the handler for GET /options, the lists the product form offers.
func (h *Handlers) ProductOptions(c *gin.Context) {
	ctx := c.Request.Context()

	categories, err := h.Catalog.Categories(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	colors, err := h.Catalog.Colors(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sizes, err := h.Catalog.Sizes(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "colors": colors, "sizes": sizes})
}
