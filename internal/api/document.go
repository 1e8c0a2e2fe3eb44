package api

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/blob"
	"github.com/rgayle/waterwatch/internal/middleware"
)

// DocumentHandler serves supporting documents (lab certificates, photos).
// Keys are "<parish>/<uuid>-<filename>", so the parish prefix carries the
// same tenancy boundary as every other read.
type DocumentHandler struct {
	store  blob.Store
	logger *zap.Logger
}

func NewDocumentHandler(store blob.Store, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{store: store, logger: logger}
}

// Upload handles POST /api/v1/documents (multipart, field "file").
// Inspectors upload into their own parish; admins may name one with the
// "parish" form field.
func (h *DocumentHandler) Upload(c *gin.Context) {
	sc := middleware.GetScope(c)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	parish := sc.Parish
	if sc.IsAdmin() {
		if p := c.PostForm("parish"); p != "" {
			parish = p
		}
	}
	if parish == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "parish is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s-%s", parish, uuid.New(), path.Base(header.Filename))
	info, err := h.store.Put(c.Request.Context(), key, file, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("document stored",
		zap.String("key", info.Key),
		zap.Int64("size", info.Size),
		zap.String("driver", string(h.store.Driver())),
	)
	c.JSON(http.StatusCreated, info)
}

// Get handles GET /api/v1/documents/*key and streams the blob back.
func (h *DocumentHandler) Get(c *gin.Context) {
	sc := middleware.GetScope(c)
	key := documentKey(c)
	if key == "" || !sc.CanAccessParish(keyParish(key)) {
		notFound(c, "document")
		return
	}

	info, body, err := h.store.Get(c.Request.Context(), key)
	if err != nil {
		if err == blob.ErrNotFound {
			notFound(c, "document")
			return
		}
		respondError(c, h.logger, err)
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, body, nil)
}

// List handles GET /api/v1/documents: everything under the caller's
// parish, or everything for admins.
func (h *DocumentHandler) List(c *gin.Context) {
	sc := middleware.GetScope(c)
	prefix := ""
	if !sc.IsAdmin() {
		prefix = sc.Parish + "/"
	}

	infos, err := h.store.List(c.Request.Context(), prefix)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

// Delete handles DELETE /api/v1/documents/*key (admin only).
func (h *DocumentHandler) Delete(c *gin.Context) {
	key := documentKey(c)
	if key == "" {
		notFound(c, "document")
		return
	}

	existed, err := h.store.Delete(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !existed {
		notFound(c, "document")
		return
	}
	c.Status(http.StatusNoContent)
}

func documentKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

func keyParish(key string) string {
	if i := strings.IndexByte(key, '/'); i > 0 {
		return key[:i]
	}
	return key
}
