package models

// CartItem defines the struct for the 'cart_items' table.
// One row per (user, product, color).
type CartItem struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"userId" db:"user_id"`
	ProductID int64  `json:"productId" db:"product_id"`
	ColorID   *int64 `json:"colorId,omitempty" db:"color_id"`
	SizeID    *int64 `json:"sizeId,omitempty" db:"size_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
}

// CartLine is a cart item joined with the product details needed to price it.
type CartLine struct {
	CartItem
	ProductTitle string  `json:"productTitle"`
	ProductSlug  string  `json:"productSlug"`
	Price        int64   `json:"price"`
	ColorName    *string `json:"colorName,omitempty"`
	SizeName     *string `json:"sizeName,omitempty"`
}

// LineTotal is price * quantity.
func (l CartLine) LineTotal() int64 {
	return l.Price * int64(l.Quantity)
}
