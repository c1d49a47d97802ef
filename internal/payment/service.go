package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/metrics"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/notify"
	"github.com/01moynul/storefront-golang/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyProcessed means the session was completed by an earlier delivery.
var ErrAlreadyProcessed = errors.New("payment session already processed")

const cancelPath = "/cancel/"

// Config holds the settings the service needs from the app config.
type Config struct {
	BaseURL  string
	Currency string
}

type Service struct {
	db      *sql.DB
	gateway Gateway
	orders  *orders.Manager
	mailer  notify.Mailer
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     Config
}

func NewService(db *sql.DB, gw Gateway, om *orders.Manager, mailer notify.Mailer, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		db:      db,
		gateway: gw,
		orders:  om,
		mailer:  mailer,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

// SessionInput identifies the cart line a user wants to pay for.
type SessionInput struct {
	UserID     int64
	Email      string
	CartItemID int64
	Method     string
}

// CreateSession opens a hosted checkout session for the pending order of a
// cart line and returns it. The caller redirects the user to Session.URL.
func (s *Service) CreateSession(ctx context.Context, in SessionInput) (*Session, error) {
	if in.Method != orders.MethodCard && in.Method != orders.MethodPayPal {
		return nil, apperr.InvalidField("method", "Unsupported payment method.")
	}
	checkoutPath := fmt.Sprintf("/checkout/%d", in.CartItemID)

	// 1. --- Preconditions ---
	hasAddress, err := s.orders.HasAddress(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !hasAddress {
		s.metrics.PaymentSession("precondition")
		return nil, &apperr.GatewayError{
			Level:    apperr.LevelWarning,
			Message:  "You have not added a billing address",
			Redirect: checkoutPath,
		}
	}

	line, err := cart.GetTx(ctx, s.db, in.UserID, in.CartItemID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindPending(ctx, in.UserID, in.CartItemID)
	if err != nil {
		if apperr.IsNotFound(err) {
			s.metrics.PaymentSession("precondition")
			return nil, &apperr.GatewayError{
				Level:    apperr.LevelWarning,
				Message:  "Please complete the checkout form first",
				Redirect: checkoutPath,
			}
		}
		return nil, err
	}

	// 2. --- Build Session ---
	req := SessionRequest{
		Method:        in.Method,
		ProductTitle:  line.ProductTitle,
		UnitAmount:    models.MinorUnits(line.Price),
		Quantity:      int64(line.Quantity),
		Currency:      s.cfg.Currency,
		CustomerEmail: in.Email,
		Metadata: map[string]string{
			MetaItemID:        strconv.FormatInt(line.ID, 10),
			MetaItemName:      line.ProductTitle,
			MetaUserID:        strconv.FormatInt(in.UserID, 10),
			MetaOrderID:       strconv.FormatInt(order.ID, 10),
			MetaPaymentMethod: in.Method,
		},
		SuccessURL:     s.cfg.BaseURL + "/success/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:      s.cfg.BaseURL + cancelPath,
		IdempotencyKey: uuid.NewString(),
	}

	// 3. --- Call Gateway ---
	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.metrics.PaymentSession("rejected")
		s.logger.Error("payment_session_failed",
			zap.Int64("order_id", order.ID),
			zap.Int64("user_id", in.UserID),
			zap.Error(err),
		)
		return nil, &apperr.GatewayError{
			Level:    apperr.LevelError,
			Message:  "The payment provider rejected the request",
			Redirect: checkoutPath,
			Err:      err,
		}
	}

	s.metrics.PaymentSession("ok")
	s.logger.Info("payment_session_created",
		zap.String("session_id", session.ID),
		zap.Int64("order_id", order.ID),
		zap.Int64("amount", line.LineTotal()),
	)
	return session, nil
}

// CompletedSession is a paid gateway session mapped back to its cart line.
type CompletedSession struct {
	SessionID     string
	UserID        int64
	CartItemID    int64
	Method        string
	CustomerEmail string
	AmountTotal   int64 // minor units charged; 0 when unknown
}

// completedFromSession reads the metadata written by CreateSession.
func completedFromSession(s *Session) (CompletedSession, error) {
	userID, err := strconv.ParseInt(s.Metadata[MetaUserID], 10, 64)
	if err != nil {
		return CompletedSession{}, fmt.Errorf("%w: session %s: bad %s metadata: %v", ErrInvalidPayload, s.ID, MetaUserID, err)
	}
	itemID, err := strconv.ParseInt(s.Metadata[MetaItemID], 10, 64)
	if err != nil {
		return CompletedSession{}, fmt.Errorf("%w: session %s: bad %s metadata: %v", ErrInvalidPayload, s.ID, MetaItemID, err)
	}
	return CompletedSession{
		SessionID:     s.ID,
		UserID:        userID,
		CartItemID:    itemID,
		Method:        s.Metadata[MetaPaymentMethod],
		CustomerEmail: s.CustomerEmail,
		AmountTotal:   s.AmountTotal,
	}, nil
}

// chargedAmount is the gateway's total for the session in whole units, or
// the line total when the gateway did not report one. The line may have
// changed since the session was opened.
func (s *Service) chargedAmount(cs CompletedSession, line *models.CartLine) int64 {
	lineTotal := line.LineTotal()
	if cs.AmountTotal <= 0 {
		return lineTotal
	}
	charged := models.FromMinorUnits(cs.AmountTotal)
	if charged != lineTotal {
		s.logger.Warn("payment_amount_mismatch",
			zap.String("session_id", cs.SessionID),
			zap.Int64("charged", charged),
			zap.Int64("line_total", lineTotal),
			zap.Int("quantity", line.Quantity),
		)
	}
	return charged
}

// recordedMethod maps the gateway method to the value stored on the payment row.
func recordedMethod(method string) string {
	if method == orders.MethodPayPal {
		return models.PaymentMethodPayPal
	}
	return models.PaymentMethodStripe
}

// Complete applies a paid session: creates the payment, completes the
// order, consumes the cart line and notifies the user, all in one
// transaction. A session that was already applied returns ErrAlreadyProcessed
// and changes nothing.
func (s *Service) Complete(ctx context.Context, cs CompletedSession) (*models.Order, error) {
	var (
		order   *models.Order
		payment *models.Payment
		line    *models.CartLine
	)

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// 1. --- Claim Session ---
		_, err := tx.ExecContext(ctx,
			"INSERT INTO processed_sessions (session_id, processed_at) VALUES (?, ?)",
			cs.SessionID, time.Now())
		if err != nil {
			if database.IsDuplicateKey(err) {
				return ErrAlreadyProcessed
			}
			return fmt.Errorf("claim session: %w", err)
		}

		// 2. --- Lock Order & Line ---
		order, err = orders.FindPendingForUpdate(ctx, tx, cs.UserID, cs.CartItemID)
		if err != nil {
			return err
		}
		line, err = cart.GetTx(ctx, tx, cs.UserID, cs.CartItemID)
		if err != nil {
			return err
		}

		// 3. --- Payment ---
		payment = &models.Payment{
			UserID:    cs.UserID,
			Method:    recordedMethod(cs.Method),
			Amount:    s.chargedAmount(cs, line),
			Paid:      true,
			SessionID: cs.SessionID,
			CreatedAt: time.Now(),
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO payments (user_id, method, amount, paid, session_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			payment.UserID, payment.Method, payment.Amount, payment.Paid, payment.SessionID, payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if payment.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("payment id: %w", err)
		}

		// 4. --- Complete Order ---
		if err := orders.MarkCompleted(ctx, tx, order, payment); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE processed_sessions SET order_id = ? WHERE session_id = ?", order.ID, cs.SessionID); err != nil {
			return fmt.Errorf("record session order: %w", err)
		}

		// 5. --- Consume Cart Line ---
		if err := cart.DeleteTx(ctx, tx, cs.UserID, cs.CartItemID); err != nil {
			return err
		}
		order.CartItemID = nil

		// 6. --- Notify ---
		message := fmt.Sprintf("Payment received for order #%d (%s).", order.ID, line.ProductTitle)
		return notify.Add(ctx, tx, cs.UserID, message, "/product/"+line.ProductSlug+"/")
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			s.metrics.PaymentCompletion("duplicate")
			s.logger.Info("payment_session_replayed", zap.String("session_id", cs.SessionID))
		default:
			s.metrics.PaymentCompletion("error")
			s.logger.Error("payment_completion_failed", zap.String("session_id", cs.SessionID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.PaymentCompletion("completed")
	s.logger.Info("order_completed",
		zap.Int64("order_id", order.ID),
		zap.Int64("payment_id", payment.ID),
		zap.Int64("amount", payment.Amount),
		zap.String("session_id", cs.SessionID),
	)

	if cs.CustomerEmail != "" {
		subject, body := notify.PaymentConfirmation(line.ProductTitle, order.ID, payment.Amount, s.cfg.Currency)
		if err := s.mailer.Send(ctx, cs.CustomerEmail, subject, body); err != nil {
			s.logger.Warn("confirmation_email_failed", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

// HandleWebhook verifies and applies a gateway webhook delivery. Only an
// invalid signature or payload is returned as an error; deliveries that
// cannot be applied are logged and acknowledged.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("webhook_rejected", zap.Error(err))
		return err
	}

	if event.Type != EventCheckoutCompleted || event.Session == nil {
		s.logger.Debug("webhook_ignored", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return nil
	}
	if event.Session.PaymentStatus != PaymentStatusPaid {
		s.logger.Info("webhook_session_unpaid",
			zap.String("session_id", event.Session.ID),
			zap.String("payment_status", event.Session.PaymentStatus),
		)
		return nil
	}

	cs, err := completedFromSession(event.Session)
	if err != nil {
		s.logger.Error("webhook_bad_metadata", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}

	_, err = s.Complete(ctx, cs)
	switch {
	case err == nil, errors.Is(err, ErrAlreadyProcessed):
		return nil
	case apperr.IsNotFound(err), errors.Is(err, models.ErrOrderNotPending):
		// Nothing left to complete; a retry would not change that.
		return nil
	}
	return err
}

// SuccessResult is what the success page reports.
type SuccessResult struct {
	Paid     bool          `json:"paid"`
	Order    *models.Order `json:"order,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
}

// ConfirmSuccess handles the return from the hosted page. userID is 0 for
// anonymous visitors, who get the session status but never complete it.
func (s *Service) ConfirmSuccess(ctx context.Context, userID int64, sessionID string) (*SuccessResult, error) {
	if sessionID == "" {
		return &SuccessResult{Redirect: cancelPath}, nil
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		s.logger.Warn("payment_session_lookup_failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, &apperr.GatewayError{
			Level:    apperr.LevelError,
			Message:  "Could not confirm the payment",
			Redirect: cancelPath,
			Err:      err,
		}
	}
	if session.PaymentStatus != PaymentStatusPaid {
		return &SuccessResult{Redirect: cancelPath}, nil
	}
	if userID == 0 {
		return &SuccessResult{Paid: true}, nil
	}

	cs, err := completedFromSession(session)
	if err != nil {
		return nil, err
	}
	if cs.UserID != userID {
		return nil, apperr.Forbidden("This payment belongs to another account")
	}

	order, err := s.Complete(ctx, cs)
	if err != nil && !errors.Is(err, ErrAlreadyProcessed) {
		return nil, err
	}
	return &SuccessResult{Paid: true, Order: order}, nil
}
