package models

import (
	"time"
)

// Price bounds, in whole currency units.
const (
	MinPrice int64 = 0
	MaxPrice int64 = 9999999
)

// Product is the model for the 'products' table.
// Colors and sizes live in the product_colors / product_sizes join tables.
type Product struct {
	ID                    int64   `json:"id" db:"id"`
	OwnerID               int64   `json:"ownerId" db:"user_id"`
	Title                 string  `json:"title" db:"title"`
	Price                 int64   `json:"price" db:"price"`
	Description           string  `json:"description" db:"description"`
	AdditionalInformation *string `json:"additionalInformation,omitempty" db:"additional_information"`
	CategoryID            *int64  `json:"categoryId,omitempty" db:"category_id"`
	IsClothing            bool    `json:"isClothing" db:"is_clothing"`

	// Slug is set once on create and never rewritten.
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Joins (Not in DB table, populated manually)
	Category *Category `json:"category,omitempty" db:"-"`
	Colors   []Color   `json:"colors,omitempty" db:"-"`
	Sizes    []Size    `json:"sizes,omitempty" db:"-"`
	Images   []Image   `json:"images,omitempty" db:"-"`
	Reviews  []Review  `json:"reviews,omitempty" db:"-"`
}

// MinorUnits converts a whole-unit price to the gateway's minor units (cents).
func MinorUnits(price int64) int64 {
	return price * 100
}

// FromMinorUnits converts a gateway amount back to whole units.
func FromMinorUnits(amount int64) int64 {
	return amount / 100
}

// HasColor reports whether colorID is one of the product's colors.
func (p *Product) HasColor(colorID int64) bool {
	for _, c := range p.Colors {
		if c.ID == colorID {
			return true
		}
	}
	return false
}

// HasSize reports whether sizeID is one of the product's sizes.
func (p *Product) HasSize(sizeID int64) bool {
	for _, s := range p.Sizes {
		if s.ID == sizeID {
			return true
		}
	}
	return false
}

// Image is the model for the 'product_images' table
type Image struct {
	ID        int64  `json:"id" db:"id"`
	ProductID int64  `json:"productId" db:"product_id"`
	Path      string `json:"path" db:"path"`
}

// Review is the model for the 'reviews' table
type Review struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"productId" db:"product_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	Rating    int       `json:"rating" db:"rating"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	Username string `json:"username,omitempty" db:"-"`
}
