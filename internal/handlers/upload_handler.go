package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/01moynul/storefront-golang/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Product image upload limits.
const (
	maxImagesPerUpload = 3
	maxImageBytes      = 5 << 20
	productImageDir    = "product_images"
)

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// UploadProductImages handles POST /upload-images/
// It saves up to three "images" files under the media directory and returns
// their paths, which the product form then submits.
func (h *Handlers) UploadProductImages(c *gin.Context) {
	// 1. Get the files from the request
	form, err := c.MultipartForm()
	if err != nil {
		h.writeError(c, apperr.InvalidField("images", "No file uploaded."))
		return
	}
	files := form.File["images"]
	switch {
	case len(files) == 0:
		h.writeError(c, apperr.InvalidField("images", "No file uploaded."))
		return
	case len(files) > maxImagesPerUpload:
		h.writeError(c, apperr.InvalidField("images", "You can only upload up to 3 images."))
		return
	}

	// 2. Check every file before saving any
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedImageExt[ext] {
			h.writeError(c, apperr.InvalidField("images", "Upload a valid image."))
			return
		}
		if file.Size > maxImageBytes {
			h.writeError(c, apperr.InvalidField("images", "Each image must be 5 MB or smaller."))
			return
		}
	}

	// 3. Create the image directory if it doesn't exist
	dir := filepath.Join(h.MediaDir, productImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.writeError(c, fmt.Errorf("create media dir: %w", err))
		return
	}

	// 4. Save under a unique filename (uuid + extension)
	paths := make([]string, 0, len(files))
	for _, file := range files {
		name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
		if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
			h.writeError(c, fmt.Errorf("save upload: %w", err))
			return
		}
		paths = append(paths, path.Join(productImageDir, name))
	}

	c.JSON(http.StatusCreated, gin.H{"images": paths})
}
