package routes

import (
	"net/http"

	"github.com/01moynul/storefront-golang/internal/handlers"
	"github.com/01moynul/storefront-golang/internal/metrics"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the router beyond the handlers themselves.
type Options struct {
	CORSOrigin string
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer // serves /metrics when set
	Logger     *zap.Logger
}

// CORSMiddleware allows the configured frontend origin to call the API
// with credentials.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, opts Options) *gin.Engine {
	handlers.RegisterValidation()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware(opts.CORSOrigin))
	if opts.Logger != nil {
		router.Use(middleware.RequestLogger(opts.Logger))
	}
	router.Use(middleware.Metrics(opts.Metrics))

	// --- Public Routes ---
	router.GET("/ping", h.Ping)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/", h.Home)
	router.GET("/shop/", h.Shop)
	router.GET("/search/", h.Search)
	router.GET("/product/:slug/", h.ProductDetail)
	router.GET("/options", h.ProductOptions)
	if h.MediaDir != "" {
		router.Static("/media", h.MediaDir)
	}

	router.POST("/register", h.Register)
	router.POST("/login", h.Login)

	// --- Payment Return & Webhook ---
	router.GET("/success/", middleware.OptionalAuth(h.Tokens), h.PaymentSuccess)
	router.GET("/cancel/", h.PaymentCancel)
	router.POST("/stripe-webhook/", h.StripeWebhook)

	// --- Protected Routes (Login Required) ---
	auth := router.Group("/")
	auth.Use(middleware.AuthMiddleware(h.Tokens))
	{
		// Catalog
		auth.POST("/product/:slug/", h.PostReview)
		auth.POST("/upload-images/", h.UploadProductImages)
		auth.POST("/create-product/", h.CreateProduct)
		auth.PUT("/edit-product/:slug/", h.EditProduct)
		auth.GET("/products/", h.MyProducts)
		auth.DELETE("/products/:id", h.DeleteProduct)

		// Cart
		auth.POST("/add-to-cart/:slug/", h.AddToCart)
		auth.GET("/cart/", h.GetCart)
		auth.POST("/cart/", h.UpdateCart)

		// Checkout & Payment
		auth.GET("/checkout/:id", h.CheckoutSummary)
		auth.POST("/checkout/:id", h.SubmitCheckout)
		auth.GET("/payment/:method/:id", h.PaymentSummary)
		auth.POST("/payment/:method/:id", h.StartPayment)

		// Notifications
		auth.GET("/notifications", h.GetMyNotifications)
		auth.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	}

	return router
}
