// Package payment creates hosted checkout sessions and applies confirmed
// payments to orders.
package payment

import (
	"context"
	"errors"
)

// ErrInvalidSignature is returned by Gateway.ParseWebhook when the payload
// was not signed with the shared webhook secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrInvalidPayload is returned for a signed webhook whose session cannot be
// decoded or mapped back to a cart line.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// Event types handled by the webhook.
const EventCheckoutCompleted = "checkout.session.completed"

// PaymentStatusPaid is the session payment status once funds are captured.
const PaymentStatusPaid = "paid"

// Session metadata keys. The webhook and the success page rebuild the
// completion from these.
const (
	MetaItemID        = "item_id"
	MetaItemName      = "item_name"
	MetaUserID        = "user_id"
	MetaOrderID       = "order_id"
	MetaPaymentMethod = "payment_method"
)

// SessionRequest describes a single-line hosted checkout session.
type SessionRequest struct {
	Method         string
	ProductTitle   string
	UnitAmount     int64 // minor units
	Quantity       int64
	Currency       string
	CustomerEmail  string
	Metadata       map[string]string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// Session is the gateway's view of a checkout session. AmountTotal is what
// the gateway charges, in minor units.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	CustomerEmail string
	AmountTotal   int64
	Metadata      map[string]string
}

// Event is a verified webhook delivery. Session is set for checkout events.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// Gateway is a hosted-checkout payment provider.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
