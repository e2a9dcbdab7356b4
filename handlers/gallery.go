package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/service"
	"github.com/snsphoto/gallery-api/internal/gallery/updater"
)

// GalleryHandler serves the public read API. Hidden images are never
// returned here; the page renders from cache or stale data before it
// renders an error.
type GalleryHandler struct {
	svc *service.Service
}

func NewGalleryHandler(svc *service.Service) *GalleryHandler {
	return &GalleryHandler{svc: svc}
}

func (h *GalleryHandler) Register(r *gin.Engine) {
	r.GET("/api/gallery/:category", h.List)
	r.GET("/api/gallery/:category/featured", h.Featured)
}

func (h *GalleryHandler) List(c *gin.Context) {
	doc, err := h.svc.List(c.Request.Context(), c.Param("category"), service.ListOptions{
		VisibleOnly: true,
		Fresh:       c.Query("fresh") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

func (h *GalleryHandler) Featured(c *gin.Context) {
	doc, err := h.svc.List(c.Request.Context(), c.Param("category"), service.ListOptions{
		VisibleOnly:  true,
		FeaturedOnly: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

// respondError maps the service error taxonomy onto HTTP statuses. Writers
// get the precise failure kind; provider error shapes never leak past here.
func respondError(c *gin.Context, err error) {
	var verr *gallery.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Error()})
	case errors.Is(err, service.ErrUnknownCategory):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid category"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "image not found"})
	case errors.Is(err, updater.ErrConcurrencyExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "too many concurrent edits, try again", "kind": "concurrency_exhausted"})
	case errors.Is(err, updater.ErrTransientExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "content store unavailable, try again", "kind": "transient_failure"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}
