package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/01moynul/storefront-golang/internal/database"
	"github.com/gosimple/slug"
)

// fallbackSlug is used when a title has no sluggable characters.
const fallbackSlug = "product"

// maxSlugBase bounds the slug before any -N suffix. Transliteration can
// grow a title several times over, and both products.slug and the
// "/product/<slug>/" notification link are VARCHAR(255).
const maxSlugBase = 200

// UniqueSlug derives a slug from title and appends -1, -2, ... until it no
// longer collides with an existing product.
func UniqueSlug(ctx context.Context, q database.Querier, title string) (string, error) {
	base := slug.Make(title)
	if len(base) > maxSlugBase {
		// slug output is ASCII, so a byte cut is a rune cut.
		base = strings.TrimRight(base[:maxSlugBase], "-")
	}
	if base == "" {
		base = fallbackSlug
	}

	candidate := base
	for n := 1; ; n++ {
		var exists bool
		err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE slug = ?)", candidate).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
