package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/01moynul/storefront-golang/internal/accounts"
	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/auth"
	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/catalog"
	"github.com/01moynul/storefront-golang/internal/middleware"
	"github.com/01moynul/storefront-golang/internal/notify"
	"github.com/01moynul/storefront-golang/internal/orders"
	"github.com/01moynul/storefront-golang/internal/payment"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidation()
}

type stubGateway struct {
	event    *payment.Event
	parseErr error
}

func (s *stubGateway) CreateSession(context.Context, payment.SessionRequest) (*payment.Session, error) {
	return nil, errors.New("not used")
}

func (s *stubGateway) RetrieveSession(context.Context, string) (*payment.Session, error) {
	return nil, errors.New("not used")
}

func (s *stubGateway) ParseWebhook([]byte, string) (*payment.Event, error) {
	return s.event, s.parseErr
}

func newHandlers(t *testing.T, gw payment.Gateway) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	om := orders.NewManager(db, nil, logger)
	return &Handlers{
		DB:            db,
		Catalog:       catalog.NewStore(db, logger),
		Cart:          cart.NewManager(db, nil, logger),
		Orders:        om,
		Payments:      payment.NewService(db, gw, om, notify.NewLogMailer(logger), nil, logger, payment.Config{BaseURL: "http://localhost:8080", Currency: "usd"}),
		Accounts:      accounts.NewService(db, logger),
		Tokens:        auth.NewTokenIssuer("test-secret", auth.DefaultTTL),
		Notifications: notify.NewStore(db),
		Logger:        logger,
		MediaDir:      t.TempDir(),
	}, mock
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	h := &Handlers{Logger: zap.NewNop()}

	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "validation",
			err:    apperr.InvalidField("zipCode", "This field is required."),
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, map[string]any{"zipCode": "This field is required."}, body["fields"])
			},
		},
		{
			name:   "not found",
			err:    fmt.Errorf("checkout: %w", apperr.NotFound("cart item")),
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "cart item not found", body["error"])
			},
		},
		{
			name:   "gateway",
			err:    &apperr.GatewayError{Level: apperr.LevelWarning, Message: "You have not added a billing address", Redirect: "/checkout/5"},
			status: http.StatusBadGateway,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "warning", body["level"])
				assert.Equal(t, "/checkout/5", body["redirect"])
			},
		},
		{
			name:   "forbidden",
			err:    apperr.Forbidden("You can only edit your own products"),
			status: http.StatusForbidden,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "/", body["redirect"])
			},
		},
		{
			name:   "internal",
			err:    errors.New("connection refused"),
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.NotContains(t, body["error"], "connection refused")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.writeError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			tt.check(t, decode(t, w))
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	h, mock := newHandlers(t, &stubGateway{})
	r := gin.New()
	r.POST("/register", h.Register)

	body := `{"username": "ada", "email": "not-an-email", "password": "short"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Equal(t, "Enter a valid email address.", fields["email"])
	assert.Equal(t, "Ensure this value is at least 8.", fields["password"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutBindsPaymentMethod(t *testing.T) {
	h, _ := newHandlers(t, &stubGateway{})
	r := gin.New()
	r.POST("/checkout/:id", func(c *gin.Context) { c.Set(middleware.UserIDKey, int64(3)) }, h.SubmitCheckout)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout/5", strings.NewReader(`{"paymentMethod": "Cash"}`)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Equal(t, "Select a valid choice.", fields["paymentMethod"])
}

func TestStripeWebhook(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{parseErr: fmt.Errorf("%w: mismatch", payment.ErrInvalidSignature)})
		r := gin.New()
		r.POST("/stripe-webhook/", h.StripeWebhook)

		req := httptest.NewRequest(http.MethodPost, "/stripe-webhook/", strings.NewReader(`{"type":"checkout.session.completed"}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=bad")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed payload", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{parseErr: fmt.Errorf("%w: decode checkout session", payment.ErrInvalidPayload)})
		r := gin.New()
		r.POST("/stripe-webhook/", h.StripeWebhook)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stripe-webhook/", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ignored event", func(t *testing.T) {
		h, _ := newHandlers(t, &stubGateway{event: &payment.Event{ID: "evt_1", Type: "charge.refunded"}})
		r := gin.New()
		r.POST("/stripe-webhook/", h.StripeWebhook)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stripe-webhook/", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestPaymentSuccessWithoutSession(t *testing.T) {
	h, _ := newHandlers(t, &stubGateway{})
	r := gin.New()
	r.GET("/success/", h.PaymentSuccess)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/success/", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/cancel/", w.Header().Get("Location"))
}

func multipartImages(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadProductImages(t *testing.T) {
	h, _ := newHandlers(t, &stubGateway{})
	r := gin.New()
	r.POST("/upload-images/", h.UploadProductImages)

	t.Run("saves images", func(t *testing.T) {
		body, ct := multipartImages(t, "front.png", "back.JPG")
		req := httptest.NewRequest(http.MethodPost, "/upload-images/", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		images := decode(t, w)["images"].([]any)
		require.Len(t, images, 2)
		for _, img := range images {
			p := img.(string)
			assert.True(t, strings.HasPrefix(p, "product_images/"))
			_, err := os.Stat(filepath.Join(h.MediaDir, filepath.FromSlash(p)))
			assert.NoError(t, err)
		}
	})

	t.Run("at most three", func(t *testing.T) {
		body, ct := multipartImages(t, "a.png", "b.png", "c.png", "d.png")
		req := httptest.NewRequest(http.MethodPost, "/upload-images/", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-images", func(t *testing.T) {
		body, ct := multipartImages(t, "script.sh")
		req := httptest.NewRequest(http.MethodPost, "/upload-images/", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func cartRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	signedIn := func(c *gin.Context) { c.Set(middleware.UserIDKey, int64(3)) }
	r.POST("/add-to-cart/:slug/", signedIn, h.AddToCart)
	r.POST("/cart/", signedIn, h.UpdateCart)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return w
}

// expectMug loads product 8 "mug": not clothing, one color, no sizes.
func expectMug(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM products p").WithArgs("mug").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "title", "price", "description", "additional_information",
			"category_id", "is_clothing", "slug", "created_at", "name",
		}).AddRow(8, 2, "Mug", 15, "Ceramic", nil, nil, false, "mug", time.Now(), nil))
	mock.ExpectQuery("FROM colors c").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Black"))
	mock.ExpectQuery("FROM sizes s").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectQuery("FROM product_images").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "path"}))
	mock.ExpectQuery("FROM reviews r").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "user_id", "content", "rating", "created_at", "username"}))
}

func TestAddToCart(t *testing.T) {
	t.Run("adds the line", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		expectMug(mock)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT is_clothing FROM products WHERE id = ?")).WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"is_clothing"}).AddRow(false))
		mock.ExpectQuery("FROM product_colors").WithArgs(int64(8), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cart_items")).
			WithArgs(int64(3), int64(8), int64(1), nil, 2).
			WillReturnResult(sqlmock.NewResult(6, 1))
		mock.ExpectQuery("SELECT id, quantity, size_id FROM cart_items").
			WillReturnRows(sqlmock.NewRows([]string{"id", "quantity", "size_id"}).AddRow(6, 2, nil))

		// A size sent for a non-clothing product is dropped.
		w := postJSON(cartRouter(h), "/add-to-cart/mug/", `{"colorId": 1, "sizeId": 4, "quantity": 2}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		item := decode(t, w)["item"].(map[string]any)
		assert.Equal(t, float64(6), item["id"])
		assert.Equal(t, float64(2), item["quantity"])
		assert.NotContains(t, item, "sizeId")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("color is required", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		w := postJSON(cartRouter(h), "/add-to-cart/mug/", `{"quantity": 1}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := decode(t, w)["fields"].(map[string]any)
		assert.Equal(t, "This field is required.", fields["colorId"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown product", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		mock.ExpectQuery("FROM products p").WithArgs("nope").WillReturnError(sql.ErrNoRows)

		w := postJSON(cartRouter(h), "/add-to-cart/nope/", `{"colorId": 1, "quantity": 1}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateCart(t *testing.T) {
	owned := regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM cart_items WHERE id = ? AND user_id = ?)")
	update := regexp.QuoteMeta("UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?")

	t.Run("updates quantities", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		mock.ExpectBegin()
		mock.ExpectQuery(owned).WithArgs(int64(5), int64(3)).WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		mock.ExpectExec(update).WithArgs(3, int64(5), int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(owned).WithArgs(int64(6), int64(3)).WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		mock.ExpectExec(update).WithArgs(1, int64(6), int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := postJSON(cartRouter(h), "/cart/", `{"action": "update", "quantities": {"6": 1, "5": 3}}`)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero quantity rejects the batch", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		w := postJSON(cartRouter(h), "/cart/", `{"action": "update", "quantities": {"5": 3, "6": 0}}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := decode(t, w)["fields"].(map[string]any)
		assert.Equal(t, "Quantity must be at least 1.", fields["quantity_6"])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update needs quantities", func(t *testing.T) {
		h, _ := newHandlers(t, &stubGateway{})
		w := postJSON(cartRouter(h), "/cart/", `{"action": "update"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("removes the line and its pending order", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM orders").WithArgs(int64(5), int64(3), "Pending").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM cart_items").WithArgs(int64(5), int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w := postJSON(cartRouter(h), "/cart/", `{"action": "remove", "itemId": 5}`)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remove someone else's line", func(t *testing.T) {
		h, mock := newHandlers(t, &stubGateway{})
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM orders").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		w := postJSON(cartRouter(h), "/cart/", `{"action": "remove", "itemId": 9}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown action", func(t *testing.T) {
		h, _ := newHandlers(t, &stubGateway{})
		w := postJSON(cartRouter(h), "/cart/", `{"action": "clear"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		fields := decode(t, w)["fields"].(map[string]any)
		assert.Equal(t, "Select a valid choice.", fields["action"])
	})
}
