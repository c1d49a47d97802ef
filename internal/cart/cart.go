// Package cart manages a user's cart lines: one row per (user, product, color).
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/metrics"
	"github.com/01moynul/storefront-golang/internal/models"
	"go.uber.org/zap"
)

// AddItemInput is the JSON body for POST /add-to-cart/:slug/.
type AddItemInput struct {
	ColorID  *int64 `json:"colorId" binding:"required"`
	SizeID   *int64 `json:"sizeId"`
	Quantity int    `json:"quantity" binding:"required"`
}

type Manager struct {
	db      *sql.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewManager(db *sql.DB, m *metrics.Metrics, logger *zap.Logger) *Manager {
	return &Manager{db: db, metrics: m, logger: logger}
}

// AddItem adds quantity of a product to the user's cart. A repeat add of the
// same (product, color) accumulates quantity on the existing row.
func (m *Manager) AddItem(ctx context.Context, userID, productID int64, in AddItemInput) (*models.CartItem, error) {
	// 1. --- Validate Input ---
	if in.Quantity < 1 {
		return nil, apperr.InvalidField("quantity", "Quantity must be at least 1.")
	}
	if in.ColorID == nil {
		return nil, apperr.InvalidField("colorId", "This field is required.")
	}

	// 2. --- Check Product Options ---
	var isClothing bool
	err := m.db.QueryRowContext(ctx, "SELECT is_clothing FROM products WHERE id = ?", productID).Scan(&isClothing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	ok, err := m.hasOption(ctx, "product_colors", "color_id", productID, *in.ColorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidField("colorId", "Select a valid color for this product.")
	}

	sizeID := in.SizeID
	if !isClothing {
		sizeID = nil
	} else {
		if sizeID == nil {
			return nil, apperr.InvalidField("sizeId", "Select a size for this product.")
		}
		ok, err := m.hasOption(ctx, "product_sizes", "size_id", productID, *sizeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.InvalidField("sizeId", "Select a valid size for this product.")
		}
	}

	// 3. --- Upsert ---
	// A stored size is only overwritten when the repeat add carries one.
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, color_id, size_id, quantity)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quantity = quantity + VALUES(quantity),
			size_id = COALESCE(VALUES(size_id), size_id)`,
		userID, productID, *in.ColorID, sizeID, in.Quantity)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	item := &models.CartItem{UserID: userID, ProductID: productID, ColorID: in.ColorID, SizeID: sizeID}
	err = m.db.QueryRowContext(ctx, `
		SELECT id, quantity, size_id FROM cart_items
		WHERE user_id = ? AND product_id = ? AND color_id = ?`,
		userID, productID, *in.ColorID).Scan(&item.ID, &item.Quantity, &item.SizeID)
	if err != nil {
		return nil, fmt.Errorf("reload cart item: %w", err)
	}

	m.metrics.CartItemAdded()
	m.logger.Info("cart_item_added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", item.Quantity),
	)
	return item, nil
}

// UpdateQuantities sets the quantity of each listed item. Every id must
// belong to userID and every quantity must be at least 1; otherwise nothing
// is changed.
func (m *Manager) UpdateQuantities(ctx context.Context, userID int64, quantities map[int64]int) error {
	fields := map[string]string{}
	for id, qty := range quantities {
		if qty < 1 {
			fields[fmt.Sprintf("quantity_%d", id)] = "Quantity must be at least 1."
		}
	}
	if len(fields) > 0 {
		return &apperr.ValidationError{Message: "Invalid quantities", Fields: fields}
	}

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			qty := quantities[id]
			// Matching rows, not changed rows: an unchanged quantity still counts.
			var owned bool
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM cart_items WHERE id = ? AND user_id = ?)", id, userID).Scan(&owned)
			if err != nil {
				return fmt.Errorf("check cart item: %w", err)
			}
			if !owned {
				return apperr.NotFound("cart item")
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?", qty, id, userID); err != nil {
				return fmt.Errorf("update cart item: %w", err)
			}
		}
		return nil
	})
}

// RemoveItem deletes one of the user's cart lines together with its
// pending order, if checkout was started. Completed orders are kept.
func (m *Manager) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return database.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		// The order goes first: deleting the line nulls orders.cart_item_id.
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM orders WHERE cart_item_id = ? AND user_id = ? AND status = ?",
			itemID, userID, models.OrderPending); err != nil {
			return fmt.Errorf("delete pending order: %w", err)
		}
		return DeleteTx(ctx, tx, userID, itemID)
	})
}

// DeleteTx deletes a cart line owned by userID using q, which may be a
// transaction.
func DeleteTx(ctx context.Context, q database.Querier, userID, itemID int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM cart_items WHERE id = ? AND user_id = ?", itemID, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("cart item")
	}
	return nil
}

const lineQuery = `
	SELECT ci.id, ci.user_id, ci.product_id, ci.color_id, ci.size_id, ci.quantity,
		p.title, p.slug, p.price, c.name, s.name
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	LEFT JOIN colors c ON c.id = ci.color_id
	LEFT JOIN sizes s ON s.id = ci.size_id
	WHERE ci.user_id = ?`

// Items returns the user's cart lines, oldest first.
func (m *Manager) Items(ctx context.Context, userID int64) ([]models.CartLine, error) {
	rows, err := m.db.QueryContext(ctx, lineQuery+" ORDER BY ci.id", userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		if err := scanLine(rows, &l); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Get returns one of the user's cart lines.
func (m *Manager) Get(ctx context.Context, userID, itemID int64) (*models.CartLine, error) {
	return GetTx(ctx, m.db, userID, itemID)
}

// GetTx is Get on an explicit Querier.
func GetTx(ctx context.Context, q database.Querier, userID, itemID int64) (*models.CartLine, error) {
	var l models.CartLine
	err := scanLine(q.QueryRowContext(ctx, lineQuery+" AND ci.id = ?", userID, itemID), &l)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("cart item")
		}
		return nil, err
	}
	return &l, nil
}

// Total is the sum of the lines' price * quantity.
func Total(lines []models.CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineTotal()
	}
	return total
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLine(row scanner, l *models.CartLine) error {
	err := row.Scan(
		&l.ID, &l.UserID, &l.ProductID, &l.ColorID, &l.SizeID, &l.Quantity,
		&l.ProductTitle, &l.ProductSlug, &l.Price, &l.ColorName, &l.SizeName,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("scan cart line: %w", err)
	}
	return err
}

func (m *Manager) hasOption(ctx context.Context, table, column string, productID, optionID int64) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE product_id = ? AND %s = ?)", table, column)
	if err := m.db.QueryRowContext(ctx, query, productID, optionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return exists, nil
}
