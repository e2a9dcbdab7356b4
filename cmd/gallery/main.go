package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snsphoto/gallery-api/handlers"
	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/cache"
	"github.com/snsphoto/gallery-api/internal/gallery/service"
	"github.com/snsphoto/gallery-api/internal/gallery/store"
	"github.com/snsphoto/gallery-api/internal/gallery/updater"
)

// Standalone gallery read API over the in-memory store, for local frontend
// development without a content repository or credentials.
func main() {
	port := os.Getenv("GALLERY_SERVICE_PORT")
	if port == "" {
		port = "5012"
	}

	r := gin.New()
	r.Use(gin.Recovery())

	memStore := store.NewMemoryStore()
	snapCache := cache.NewMemoryCache(30 * time.Second)
	engine := updater.New(memStore, 3, 100*time.Millisecond)
	svc := service.New(memStore, snapCache, engine, gallery.NewID, time.Now)

	handlers.NewGalleryHandler(svc).Register(r)
	r.GET("/health", func(c *gin.Context) { c.String(200, "healthy") })

	log.Printf("standalone gallery service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
