package models

import (
	"errors"
	"time"
)

// Order statuses. The only transition is Pending -> Completed.
const (
	OrderPending   = "Pending"
	OrderCompleted = "Completed"
)

var (
	ErrPaymentRequired = errors.New("order cannot complete without a successful payment")
	ErrOrderNotPending = errors.New("order is not pending")
)

// Order is the model for the 'orders' table. It has no total column: the
// total is derived from the cart line, or from the payment once the line is gone.
type Order struct {
	ID               int64     `json:"id" db:"id"`
	UserID           int64     `json:"userId" db:"user_id"`
	CartItemID       *int64    `json:"cartItemId,omitempty" db:"cart_item_id"`
	BillingAddressID *int64    `json:"billingAddressId,omitempty" db:"billing_address_id"`
	PaymentID        *int64    `json:"paymentId,omitempty" db:"payment_id"`
	Note             *string   `json:"orderNote,omitempty" db:"order_note"`
	Status           string    `json:"status" db:"status"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// Complete moves a pending order to Completed. p must be a persisted, paid payment.
func (o *Order) Complete(p *Payment) error {
	if o.Status != OrderPending {
		return ErrOrderNotPending
	}
	if p == nil || p.ID == 0 || !p.Paid {
		return ErrPaymentRequired
	}
	o.Status = OrderCompleted
	o.PaymentID = &p.ID
	return nil
}

// Address is the model for the 'addresses' table
type Address struct {
	ID               int64  `json:"id" db:"id"`
	UserID           int64  `json:"userId" db:"user_id"`
	StreetAddress    string `json:"streetAddress" db:"street_address"`
	ApartmentAddress string `json:"apartmentAddress" db:"apartment_address"`
	ZipCode          string `json:"zipCode" db:"zip_code"`
	Country          string `json:"country" db:"country"`
	Default          bool   `json:"default" db:"is_default"`
}

// Payment methods as recorded on the payment row.
const (
	PaymentMethodStripe = "Stripe"
	PaymentMethodPayPal = "PayPal"
)

// Payment is the model for the 'payments' table. Rows are written only
// after the gateway confirms the session.
type Payment struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Method    string    `json:"method" db:"method"`
	Amount    int64     `json:"amount" db:"amount"`
	Paid      bool      `json:"paid" db:"paid"`
	SessionID string    `json:"sessionId" db:"session_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
