package handlers

import (
	"database/sql"

	"github.com/01moynul/storefront-golang/internal/accounts"
	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/catalog"
	"github.com/01moynul/storefront-golang/internal/notify"
	"github.com/01moynul/storefront-golang/internal/orders"
	"github.com/01moynul/storefront-golang/internal/payment"
	"go.uber.org/zap"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB            *sql.DB // health check only; data access goes through the services
	Catalog       *catalog.Store
	Cart          *cart.Manager
	Orders        *orders.Manager
	Payments      *payment.Service
	Accounts      *accounts.Service
	Tokens        *auth.TokenIssuer
	Notifications *notify.Store
	Logger        *zap.Logger

	// MediaDir is where uploaded product images are written and served from.
	MediaDir string
}
