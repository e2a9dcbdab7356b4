package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snsphoto/gallery-api/internal/config"
	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/service"
	"github.com/snsphoto/gallery-api/internal/media"
	"github.com/snsphoto/gallery-api/internal/tokens"
	"github.com/snsphoto/gallery-api/pkg/logger"
)

// AdminHandler serves the CMS surface: CRUD on category documents, media
// upload, and the credential login that issues admin tokens. All routes
// except login sit behind the auth middleware.
type AdminHandler struct {
	cfg     *config.Config
	svc     *service.Service
	storage *media.Storage
	issuer  *tokens.Issuer
}

// NewAdminHandler wires the admin surface. storage may be nil when media
// upload is not configured; the upload route then reports 503.
func NewAdminHandler(cfg *config.Config, svc *service.Service, storage *media.Storage, issuer *tokens.Issuer) *AdminHandler {
	return &AdminHandler{cfg: cfg, svc: svc, storage: storage, issuer: issuer}
}

// RegisterLogin registers the unauthenticated login route.
func (h *AdminHandler) RegisterLogin(r *gin.Engine) {
	r.POST("/api/admin/login", h.Login)
}

// Register registers the authenticated admin routes on rg.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/:category", h.List)
	rg.POST("/:category", h.Create)
	rg.PUT("/:category/:id", h.Update)
	rg.DELETE("/:category/:id", h.Delete)
	rg.PATCH("/:category/:id/visibility", h.SetVisibility)
	rg.PATCH("/:category/:id/featured", h.SetFeatured)
	rg.POST("/upload", h.Upload)
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON in request body"})
		return
	}
	if !tokens.CheckCredentials(h.cfg.Admin.Username, h.cfg.Admin.Password, req.Username, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
		return
	}
	token, err := h.issuer.GenerateAccessToken(req.Username)
	if err != nil {
		logger.Errorf("generate admin token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"token": token, "expiresInMinutes": int(h.cfg.Admin.TokenTTL.Minutes())}})
}

// List returns the full category document, hidden images included, always
// bypassing the cache so the dashboard reflects the latest write.
func (h *AdminHandler) List(c *gin.Context) {
	doc, err := h.svc.List(c.Request.Context(), c.Param("category"), service.ListOptions{Fresh: true})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}

func (h *AdminHandler) Create(c *gin.Context) {
	var req struct {
		ImageData *gallery.NewImageFields `json:"imageData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON in request body"})
		return
	}
	rec, err := h.svc.Create(c.Request.Context(), c.Param("category"), req.ImageData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "image": rec})
}

func (h *AdminHandler) Update(c *gin.Context) {
	var req struct {
		ImageData *gallery.ImagePatch `json:"imageData"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageData == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing imageData in request"})
		return
	}
	rec, err := h.svc.Update(c.Request.Context(), c.Param("category"), c.Param("id"), req.ImageData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "image": rec})
}

func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("category"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "image deleted"})
}

func (h *AdminHandler) SetVisibility(c *gin.Context) {
	var req struct {
		Visible *bool `json:"isVisible"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Visible == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing isVisible in request"})
		return
	}
	rec, err := h.svc.SetVisibility(c.Request.Context(), c.Param("category"), c.Param("id"), *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "image": rec})
}

func (h *AdminHandler) SetFeatured(c *gin.Context) {
	var req struct {
		Featured *bool `json:"featured"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Featured == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing featured in request"})
		return
	}
	rec, err := h.svc.SetFeatured(c.Request.Context(), c.Param("category"), c.Param("id"), *req.Featured)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "image": rec})
}

// Upload stores the binary in the media bucket, then creates the gallery
// record from the returned URL + object id.
func (h *AdminHandler) Upload(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "media storage not configured"})
		return
	}

	category := c.PostForm("category")
	if !gallery.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid category"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no file provided"})
		return
	}
	defer file.Close()
	if header.Size > h.storage.MaxUploadBytes() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file too large"})
		return
	}

	result, err := h.storage.Upload(c.Request.Context(), category, header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		logger.Errorf("media upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "media upload failed"})
		return
	}

	fields := &gallery.NewImageFields{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: c.PostForm("description"),
		MediaURL:    result.SecureURL,
		PublicID:    result.PublicID,
		FileSize:    formatByteSize(result.ByteSize),
	}
	if fields.Title == "" {
		fields.Title = "Untitled"
	}
	if tags := c.PostForm("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				fields.Tags = append(fields.Tags, t)
			}
		}
	}
	if result.Width > 0 && result.Height > 0 {
		fields.Dimensions = &gallery.Dimensions{Width: result.Width, Height: result.Height}
	}

	rec, err := h.svc.Create(c.Request.Context(), category, fields)
	if err != nil {
		// record creation lost; drop the orphaned object
		if derr := h.storage.Delete(c.Request.Context(), result.PublicID); derr != nil {
			logger.Warnf("could not remove orphaned upload %s: %v", result.PublicID, derr)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "image": rec, "upload": result})
}

// formatByteSize renders a display hint like "2.4 MB"; not authoritative.
func formatByteSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
