// Package orders turns a cart line into a pending order with a billing
// address, and completes it once the payment is confirmed.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/metrics"
	"github.com/01moynul/storefront-golang/internal/models"
	"go.uber.org/zap"
)

// Form values of the checkout payment_method field.
const (
	FormCreditCard = "CreditCard"
	FormPayPal     = "PayPal"
)

// Gateway payment methods used in /payment/:method/:id.
const (
	MethodCard   = "card"
	MethodPayPal = "paypal"
)

// CheckoutForm is the JSON body for POST /checkout/:id.
type CheckoutForm struct {
	StreetAddress            string `json:"streetAddress" binding:"max=255"`
	ApartmentAddress         string `json:"apartmentAddress" binding:"max=255"`
	ZipCode                  string `json:"zipCode" binding:"max=10"`
	Country                  string `json:"country" binding:"omitempty,iso3166_1_alpha2"`
	UseDefaultBillingAddress bool   `json:"useDefaultBillingAddress"`
	PaymentMethod            string `json:"paymentMethod" binding:"required,oneof=CreditCard PayPal"`
	OrderNotes               string `json:"orderNotes" binding:"max=500"`
}

// CheckoutResult tells the client where to go next.
type CheckoutResult struct {
	Order    *models.Order `json:"order"`
	Method   string        `json:"method"`
	Redirect string        `json:"redirect"`
}

// Summary is the GET /checkout/:id view.
type Summary struct {
	Line           *models.CartLine `json:"line"`
	TotalPrice     int64            `json:"totalPrice"`
	HasAddress     bool             `json:"hasAddress"`
	DefaultAddress *models.Address  `json:"defaultAddress,omitempty"`
}

type Manager struct {
	db      *sql.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewManager(db *sql.DB, m *metrics.Metrics, logger *zap.Logger) *Manager {
	return &Manager{db: db, metrics: m, logger: logger}
}

// GatewayMethod maps a checkout form value to the gateway method.
func GatewayMethod(formValue string) (string, bool) {
	switch formValue {
	case FormCreditCard:
		return MethodCard, true
	case FormPayPal:
		return MethodPayPal, true
	}
	return "", false
}

// Checkout binds the user's cart line to a pending order with a billing
// address. Submitting again for the same line updates the same order.
func (m *Manager) Checkout(ctx context.Context, userID, cartItemID int64, form CheckoutForm) (*CheckoutResult, error) {
	method, ok := GatewayMethod(form.PaymentMethod)
	if !ok {
		m.metrics.Checkout("invalid")
		return nil, apperr.InvalidField("paymentMethod", "Select a valid choice.")
	}

	var order *models.Order
	err := database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		// 1. --- Cart Line Ownership ---
		if _, err := cart.GetTx(ctx, tx, userID, cartItemID); err != nil {
			return err
		}

		// 2. --- Billing Address ---
		addressID, err := m.billingAddress(ctx, tx, userID, form)
		if err != nil {
			return err
		}

		// 3. --- Get or Create Order ---
		order, err = getOrCreate(ctx, tx, userID, cartItemID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderPending {
			return apperr.Invalid("This order has already been paid")
		}

		order.BillingAddressID = &addressID
		if note := strings.TrimSpace(form.OrderNotes); note != "" {
			order.Note = &note
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET billing_address_id = ?, order_note = ? WHERE id = ?",
			order.BillingAddressID, order.Note, order.ID)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperr.IsValidation(err) || apperr.IsNotFound(err) {
			m.metrics.Checkout("invalid")
		} else {
			m.metrics.Checkout("error")
		}
		return nil, err
	}

	m.metrics.Checkout("ok")
	m.logger.Info("checkout_submitted",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", order.ID),
		zap.String("method", method),
	)
	return &CheckoutResult{
		Order:    order,
		Method:   method,
		Redirect: fmt.Sprintf("/payment/%s/%d", method, cartItemID),
	}, nil
}

// billingAddress returns the id of the address the order should bill to,
// inserting a new default address when the form carries one.
func (m *Manager) billingAddress(ctx context.Context, tx *sql.Tx, userID int64, form CheckoutForm) (int64, error) {
	if form.UseDefaultBillingAddress {
		addr, err := defaultAddress(ctx, tx, userID)
		if err != nil {
			return 0, err
		}
		if addr == nil {
			return 0, apperr.InvalidField("useDefaultBillingAddress", "No default billing address available.")
		}
		return addr.ID, nil
	}

	addr := models.Address{
		UserID:           userID,
		StreetAddress:    strings.TrimSpace(form.StreetAddress),
		ApartmentAddress: strings.TrimSpace(form.ApartmentAddress),
		ZipCode:          strings.TrimSpace(form.ZipCode),
		Country:          strings.ToUpper(strings.TrimSpace(form.Country)),
		Default:          true,
	}
	fields := map[string]string{}
	if addr.StreetAddress == "" {
		fields["streetAddress"] = "This field is required."
	}
	if addr.ZipCode == "" {
		fields["zipCode"] = "This field is required."
	}
	if addr.Country == "" {
		fields["country"] = "This field is required."
	}
	if len(fields) > 0 {
		return 0, &apperr.ValidationError{Message: "Please fill in the required fields", Fields: fields}
	}

	// At most one default address per user.
	if _, err := tx.ExecContext(ctx, "UPDATE addresses SET is_default = 0 WHERE user_id = ? AND is_default = 1", userID); err != nil {
		return 0, fmt.Errorf("clear default address: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO addresses (user_id, street_address, apartment_address, zip_code, country, is_default)
		VALUES (?, ?, ?, ?, ?, 1)`,
		addr.UserID, addr.StreetAddress, addr.ApartmentAddress, addr.ZipCode, addr.Country)
	if err != nil {
		return 0, fmt.Errorf("insert address: %w", err)
	}
	return res.LastInsertId()
}

func getOrCreate(ctx context.Context, tx *sql.Tx, userID, cartItemID int64) (*models.Order, error) {
	order, err := findOrder(ctx, tx, userID, cartItemID, "")
	if err == nil {
		return order, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	order = &models.Order{
		UserID:     userID,
		CartItemID: &cartItemID,
		Status:     models.OrderPending,
		CreatedAt:  time.Now(),
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, cart_item_id, status, created_at) VALUES (?, ?, ?, ?)",
		order.UserID, order.CartItemID, order.Status, order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	order.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("order id: %w", err)
	}
	return order, nil
}

// Summary returns what the checkout page shows for a cart line.
func (m *Manager) Summary(ctx context.Context, userID, cartItemID int64) (*Summary, error) {
	line, err := cart.GetTx(ctx, m.db, userID, cartItemID)
	if err != nil {
		return nil, err
	}

	hasAddress, err := m.HasAddress(ctx, userID)
	if err != nil {
		return nil, err
	}
	def, err := defaultAddress(ctx, m.db, userID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Line:           line,
		TotalPrice:     line.LineTotal(),
		HasAddress:     hasAddress,
		DefaultAddress: def,
	}, nil
}

// HasAddress reports whether the user has saved any billing address.
func (m *Manager) HasAddress(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := m.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM addresses WHERE user_id = ?)", userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check addresses: %w", err)
	}
	return ok, nil
}

// FindPending returns the pending order for the user's cart line.
func (m *Manager) FindPending(ctx context.Context, userID, cartItemID int64) (*models.Order, error) {
	order, err := findOrder(ctx, m.db, userID, cartItemID, "")
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, apperr.NotFound("order")
	}
	return order, nil
}

// FindPendingForUpdate locks and returns the pending order for the user's
// cart line within tx.
func FindPendingForUpdate(ctx context.Context, tx *sql.Tx, userID, cartItemID int64) (*models.Order, error) {
	order, err := findOrder(ctx, tx, userID, cartItemID, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, models.ErrOrderNotPending
	}
	return order, nil
}

// MarkCompleted applies the Pending -> Completed transition for a persisted
// payment and writes it through tx.
func MarkCompleted(ctx context.Context, tx *sql.Tx, order *models.Order, payment *models.Payment) error {
	if err := order.Complete(payment); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, payment_id = ? WHERE id = ? AND status = ?",
		order.Status, order.PaymentID, order.ID, models.OrderPending)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	return nil
}

// Total derives the order total: from the cart line while it exists, from
// the payment once the line has been consumed.
func Total(line *models.CartLine, payment *models.Payment) int64 {
	if line != nil {
		return line.LineTotal()
	}
	if payment != nil {
		return payment.Amount
	}
	return 0
}

func findOrder(ctx context.Context, q database.Querier, userID, cartItemID int64, suffix string) (*models.Order, error) {
	var o models.Order
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, cart_item_id, billing_address_id, payment_id, order_note, status, created_at
		FROM orders
		WHERE user_id = ? AND cart_item_id = ?`+suffix,
		userID, cartItemID).Scan(
		&o.ID, &o.UserID, &o.CartItemID, &o.BillingAddressID, &o.PaymentID, &o.Note, &o.Status, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order")
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func defaultAddress(ctx context.Context, q database.Querier, userID int64) (*models.Address, error) {
	var a models.Address
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, street_address, apartment_address, zip_code, country, is_default
		FROM addresses
		WHERE user_id = ? AND is_default = 1
		ORDER BY id DESC LIMIT 1`, userID).Scan(
		&a.ID, &a.UserID, &a.StreetAddress, &a.ApartmentAddress, &a.ZipCode, &a.Country, &a.Default,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find default address: %w", err)
	}
	return &a, nil
}
