package handlers

import (
	"io"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// PhotoReader opens a stored photo by reference.
type PhotoReader interface {
	Open(ref string) (io.ReadCloser, error)
}

// PhotosHandler serves uploaded ticket photos.
type PhotosHandler struct {
	photos PhotoReader
}

// NewPhotosHandler constructs handler.
func NewPhotosHandler(photos PhotoReader) *PhotosHandler {
	return &PhotosHandler{photos: photos}
}

// Get handles GET /photos/:ref.
func (h *PhotosHandler) Get(c *fiber.Ctx) error {
	ref := c.Params("ref")
	rc, err := h.photos.Open(ref)
	if err != nil {
		return err
	}
	c.Type(filepath.Ext(ref))
	c.Set(fiber.HeaderCacheControl, "private, max-age=86400")
	// SendStream closes rc once the body is written.
	return c.SendStream(rc)
}
