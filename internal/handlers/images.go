package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/terminal-bench/lendvault/internal/config"
	"github.com/terminal-bench/lendvault/internal/services/imagestore"
)

// ImageHandler handles image upload and retrieval.
type ImageHandler struct {
	cfg    *config.Config
	images *imagestore.Service
}

// NewImageHandler creates an image handler.
func NewImageHandler(cfg *config.Config, images *imagestore.Service) *ImageHandler {
	return &ImageHandler{cfg: cfg, images: images}
}

// Upload accepts a multipart form with one to five image files and
// returns their stored keys.
func (h *ImageHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one image is required"})
		return
	}
	if len(files) > imagestore.MaxImagesPerUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many images"})
		return
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		if file.Size > h.cfg.MaxUploadSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		src, err := file.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		key, err := h.images.Upload(c.Request.Context(), userID, src,
			file.Size, file.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		keys = append(keys, key)
	}
	c.JSON(http.StatusCreated, gin.H{"images": keys})
}

// Serve streams a stored image. The key is the wildcard path segment.
func (h *ImageHandler) Serve(c *gin.Context) {
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image key"})
		return
	}

	obj, err := h.images.Open(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	defer obj.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, obj); err != nil {
		// Response already started; nothing sensible to send.
		return
	}
}
