package catalog

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/01moynul/storefront-golang/internal/models"
)

const (
	maxTitleLength   = 200
	maxImagesPerCall = 3
	maxReviewLength  = 200
	minRating        = 1
	maxRating        = 5
)

// ProductInput is the JSON body for creating or editing a product.
type ProductInput struct {
	Title                 string   `json:"title" binding:"required,max=200"`
	Price                 *int64   `json:"price" binding:"required,min=0,max=9999999"`
	Description           string   `json:"description" binding:"required"`
	AdditionalInformation *string  `json:"additionalInformation"`
	CategoryID            *int64   `json:"categoryId"`
	ColorIDs              []int64  `json:"colorIds" binding:"required,min=1"`
	SizeIDs               []int64  `json:"sizeIds"`
	IsClothing            bool     `json:"isClothing"`
	Images                []string `json:"images" binding:"max=3"`
}

// validate repeats the binding rules so the store is safe to call directly.
func (in *ProductInput) validate() error {
	fields := map[string]string{}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		fields["title"] = "This field is required."
	} else if utf8.RuneCountInString(in.Title) > maxTitleLength {
		fields["title"] = "Ensure this value has at most 200 characters."
	}

	if in.Price == nil {
		fields["price"] = "This field is required."
	} else if *in.Price < models.MinPrice || *in.Price > models.MaxPrice {
		fields["price"] = "Ensure this value is between 0 and 9999999."
	}

	if strings.TrimSpace(in.Description) == "" {
		fields["description"] = "This field is required."
	}

	in.ColorIDs = dedupe(in.ColorIDs)
	if len(in.ColorIDs) == 0 {
		fields["colorIds"] = "Select at least one color."
	}
	in.SizeIDs = dedupe(in.SizeIDs)

	if len(in.Images) > maxImagesPerCall {
		fields["images"] = "You can only upload up to 3 images."
	}

	if len(fields) > 0 {
		return &apperr.ValidationError{Message: "Invalid product", Fields: fields}
	}
	return nil
}

// ReviewInput is the JSON body for posting a review.
type ReviewInput struct {
	Content string `json:"content" binding:"required,max=200"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
}

func (in *ReviewInput) validate() error {
	fields := map[string]string{}

	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		fields["content"] = "This field is required."
	} else if utf8.RuneCountInString(in.Content) > maxReviewLength {
		fields["content"] = "Ensure this value has at most 200 characters."
	}
	if in.Rating > maxRating {
		fields["rating"] = "Rating cannot be greater than 5."
	} else if in.Rating < minRating {
		fields["rating"] = "Rating cannot be less than 1."
	}

	if len(fields) > 0 {
		return &apperr.ValidationError{Message: "Invalid review", Fields: fields}
	}
	return nil
}

// ParsePriceRange parses "min-max" as used by the shop filter.
func ParsePriceRange(s string) (minPrice, maxPrice int64, ok bool) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return 0, 0, false
	}
	minPrice, err := strconv.ParseInt(lo, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	maxPrice, err = strconv.ParseInt(hi, 10, 64)
	if err != nil || maxPrice < minPrice {
		return 0, 0, false
	}
	return minPrice, maxPrice, true
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
