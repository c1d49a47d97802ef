package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/01moynul/storefront-golang/internal/models"
	"go.uber.org/zap"
)

// slugAttempts bounds retries when a concurrent create takes the same slug
// between the existence check and the insert.
const slugAttempts = 3

const productColumns = `p.id, p.user_id, p.title, p.price, p.description, p.additional_information,
	p.category_id, p.is_clothing, p.slug, p.created_at`

// Store holds Product, Category, Color, Size, Image and Review records.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CreateProduct validates in, derives a unique slug and inserts the product
// together with its color/size join rows and images.
func (s *Store) CreateProduct(ctx context.Context, ownerID int64, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		OwnerID:               ownerID,
		Title:                 in.Title,
		Price:                 *in.Price,
		Description:           in.Description,
		AdditionalInformation: in.AdditionalInformation,
		CategoryID:            in.CategoryID,
		IsClothing:            in.IsClothing,
		CreatedAt:             time.Now(),
	}

	var err error
	for attempt := 1; attempt <= slugAttempts; attempt++ {
		err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			// 1. --- Unique Slug ---
			slug, err := UniqueSlug(ctx, tx, in.Title)
			if err != nil {
				return err
			}
			product.Slug = slug

			// 2. --- Product Row ---
			res, err := tx.ExecContext(ctx, `
				INSERT INTO products
				(user_id, title, price, description, additional_information, category_id, is_clothing, slug, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				product.OwnerID, product.Title, product.Price, product.Description,
				product.AdditionalInformation, product.CategoryID, product.IsClothing,
				product.Slug, product.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert product: %w", err)
			}
			product.ID, err = res.LastInsertId()
			if err != nil {
				return fmt.Errorf("product id: %w", err)
			}

			// 3. --- Join Rows & Images ---
			if err := insertOptions(ctx, tx, product.ID, in.ColorIDs, in.SizeIDs); err != nil {
				return err
			}
			return insertImages(ctx, tx, product.ID, in.Images)
		})
		if database.IsDuplicateKey(err) && attempt < slugAttempts {
			s.logger.Debug("product_slug_collision", zap.String("slug", product.Slug), zap.Int("attempt", attempt))
			continue
		}
		break
	}
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperr.Invalid("Unknown category, color or size")
		}
		return nil, err
	}

	s.logger.Info("product_created", zap.Int64("product_id", product.ID), zap.String("slug", product.Slug))
	return product, nil
}

// UpdateProduct edits a product owned by ownerID. The slug is never changed;
// color and size sets are replaced and images are appended.
func (s *Store) UpdateProduct(ctx context.Context, ownerID int64, slug string, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		productID, err := lockOwnedProduct(ctx, tx, ownerID, slug)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET title = ?, price = ?, description = ?, additional_information = ?, category_id = ?, is_clothing = ?
			WHERE id = ?`,
			in.Title, *in.Price, in.Description, in.AdditionalInformation, in.CategoryID, in.IsClothing, productID)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM product_colors WHERE product_id = ?", productID); err != nil {
			return fmt.Errorf("clear colors: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM product_sizes WHERE product_id = ?", productID); err != nil {
			return fmt.Errorf("clear sizes: %w", err)
		}
		if err := insertOptions(ctx, tx, productID, in.ColorIDs, in.SizeIDs); err != nil {
			return err
		}
		return insertImages(ctx, tx, productID, in.Images)
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperr.Invalid("Unknown category, color or size")
		}
		return nil, err
	}

	return s.GetBySlug(ctx, slug)
}

// DeleteProduct removes a product owned by ownerID. Join rows, images,
// reviews and cart lines cascade.
func (s *Store) DeleteProduct(ctx context.Context, ownerID, productID int64) error {
	var owner int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM products WHERE id = ?", productID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("find product: %w", err)
	}
	if owner != ownerID {
		return apperr.Forbidden("You can only delete your own products")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.Info("product_deleted", zap.Int64("product_id", productID))
	return nil
}

// GetBySlug returns a product with its category, colors, sizes, images and reviews.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var (
		p            models.Product
		categoryName sql.NullString
	)
	query := "SELECT " + productColumns + `, c.name
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.slug = ?`
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Price, &p.Description, &p.AdditionalInformation,
		&p.CategoryID, &p.IsClothing, &p.Slug, &p.CreatedAt, &categoryName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p.CategoryID != nil && categoryName.Valid {
		p.Category = &models.Category{ID: *p.CategoryID, Name: categoryName.String}
	}

	if p.Colors, err = s.namedRows(ctx, `
		SELECT c.id, c.name FROM colors c
		JOIN product_colors pc ON pc.color_id = c.id
		WHERE pc.product_id = ? ORDER BY c.name`, p.ID); err != nil {
		return nil, err
	}
	sizes, err := s.namedRows(ctx, `
		SELECT s.id, s.name FROM sizes s
		JOIN product_sizes ps ON ps.size_id = s.id
		WHERE ps.product_id = ? ORDER BY s.id`, p.ID)
	if err != nil {
		return nil, err
	}
	for _, sz := range sizes {
		p.Sizes = append(p.Sizes, models.Size(sz))
	}
	if p.Images, err = s.images(ctx, p.ID); err != nil {
		return nil, err
	}
	if p.Reviews, err = s.reviews(ctx, "WHERE r.product_id = ? ORDER BY r.created_at DESC", p.ID); err != nil {
		return nil, err
	}

	return &p, nil
}

// List returns all products, newest first. A valid "min-max" priceRange
// filters to min <= price < max; when that matches nothing, every product
// is returned instead.
func (s *Store) List(ctx context.Context, priceRange string) ([]models.Product, error) {
	if minPrice, maxPrice, ok := ParsePriceRange(priceRange); ok {
		filtered, err := s.products(ctx, "WHERE p.price >= ? AND p.price < ? ORDER BY p.created_at DESC", minPrice, maxPrice)
		if err != nil {
			return nil, err
		}
		if len(filtered) > 0 {
			return filtered, nil
		}
	}
	return s.products(ctx, "ORDER BY p.created_at DESC")
}

// Search matches q anywhere in the product title.
func (s *Store) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.InvalidField("q", "This field is required.")
	}
	return s.products(ctx, "WHERE p.title LIKE ? ORDER BY p.created_at DESC", "%"+escapeLike(q)+"%")
}

// ListByOwner returns the products created by ownerID.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]models.Product, error) {
	return s.products(ctx, "WHERE p.user_id = ? ORDER BY p.created_at DESC", ownerID)
}

func (s *Store) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.namedRows(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	out := make([]models.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Category(r))
	}
	return out, nil
}

func (s *Store) Colors(ctx context.Context) ([]models.Color, error) {
	return s.namedRows(ctx, "SELECT id, name FROM colors ORDER BY name")
}

func (s *Store) Sizes(ctx context.Context) ([]models.Size, error) {
	rows, err := s.namedRows(ctx, "SELECT id, name FROM sizes ORDER BY id")
	if err != nil {
		return nil, err
	}
	out := make([]models.Size, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Size(r))
	}
	return out, nil
}

// RecentReviews feeds the home page.
func (s *Store) RecentReviews(ctx context.Context, limit int) ([]models.Review, error) {
	return s.reviews(ctx, "ORDER BY r.created_at DESC LIMIT ?", limit)
}

// AddReview posts a review. Owners cannot review their own products and a
// user reviews a product at most once.
func (s *Store) AddReview(ctx context.Context, userID int64, slug string, in ReviewInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var productID, ownerID int64
	err := s.db.QueryRowContext(ctx, "SELECT id, user_id FROM products WHERE slug = ?", slug).Scan(&productID, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if ownerID == userID {
		return nil, apperr.Forbidden("You cannot review your own product")
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    userID,
		Content:   in.Content,
		Rating:    in.Rating,
		CreatedAt: time.Now(),
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (product_id, user_id, content, rating, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		review.ProductID, review.UserID, review.Content, review.Rating, review.CreatedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return nil, apperr.Invalid("You have already reviewed this product")
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	review.ID, _ = res.LastInsertId()
	return review, nil
}

// lockOwnedProduct returns the id of the product with slug, locked for the
// rest of tx, after checking ownership.
func lockOwnedProduct(ctx context.Context, tx *sql.Tx, ownerID int64, slug string) (int64, error) {
	var productID, owner int64
	err := tx.QueryRowContext(ctx, "SELECT id, user_id FROM products WHERE slug = ? FOR UPDATE", slug).Scan(&productID, &owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("product")
		}
		return 0, fmt.Errorf("find product: %w", err)
	}
	if owner != ownerID {
		return 0, apperr.Forbidden("You can only edit your own products")
	}
	return productID, nil
}

func insertOptions(ctx context.Context, tx *sql.Tx, productID int64, colorIDs, sizeIDs []int64) error {
	for _, colorID := range colorIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO product_colors (product_id, color_id) VALUES (?, ?)", productID, colorID); err != nil {
			return fmt.Errorf("insert product color: %w", err)
		}
	}
	for _, sizeID := range sizeIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO product_sizes (product_id, size_id) VALUES (?, ?)", productID, sizeID); err != nil {
			return fmt.Errorf("insert product size: %w", err)
		}
	}
	return nil
}

func insertImages(ctx context.Context, tx *sql.Tx, productID int64, paths []string) error {
	for _, path := range paths {
		if _, err := tx.ExecContext(ctx, "INSERT INTO product_images (product_id, path) VALUES (?, ?)", productID, path); err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}
	return nil
}

func (s *Store) products(ctx context.Context, clause string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products p "+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Title, &p.Price, &p.Description, &p.AdditionalInformation,
			&p.CategoryID, &p.IsClothing, &p.Slug, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// namedRows scans (id, name) pairs. Category, Color and Size share the shape.
func (s *Store) namedRows(ctx context.Context, query string, args ...any) ([]models.Color, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []models.Color{}
	for rows.Next() {
		var c models.Color
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) images(ctx context.Context, productID int64) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, product_id, path FROM product_images WHERE product_id = ? ORDER BY id", productID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	out := []models.Image{}
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.ProductID, &img.Path); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *Store) reviews(ctx context.Context, clause string, args ...any) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.product_id, r.user_id, r.content, r.rating, r.created_at, u.username
		FROM reviews r
		JOIN users u ON u.id = r.user_id `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Content, &r.Rating, &r.CreatedAt, &r.Username); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
