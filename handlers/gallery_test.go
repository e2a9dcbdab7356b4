package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/snsphoto/gallery-api/internal/config"
	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/cache"
	"github.com/snsphoto/gallery-api/internal/gallery/service"
	"github.com/snsphoto/gallery-api/internal/gallery/store"
	"github.com/snsphoto/gallery-api/internal/gallery/updater"
	"github.com/snsphoto/gallery-api/internal/tokens"
	"github.com/snsphoto/gallery-api/pkg/middleware"
)

// testApp wires the full HTTP surface against in-memory backends.
type testApp struct {
	router *gin.Engine
	svc    *service.Service
	store  *store.MemoryStore
	cfg    *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "secret"
	cfg.Admin.JWTSecret = "handler-test-secret-32-bytes-xxxx"
	cfg.Admin.TokenTTL = time.Hour

	mem := store.NewMemoryStore()
	svc := service.New(
		mem,
		cache.NewMemoryCache(30*time.Second),
		updater.New(mem, 3, time.Millisecond),
		nil, nil,
	)

	issuer := tokens.NewIssuer(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)

	r := gin.New()
	NewGalleryHandler(svc).Register(r)

	admin := NewAdminHandler(cfg, svc, nil, issuer)
	admin.RegisterLogin(r)
	grp := r.Group("/api/admin")
	grp.Use(middleware.AuthMiddleware(issuer))
	admin.Register(grp)

	return &testApp{router: r, svc: svc, store: mem, cfg: cfg}
}

func (a *testApp) seed(t *testing.T, category, title string) *gallery.ImageRecord {
	t.Helper()
	rec, err := a.svc.Create(context.Background(), category, &gallery.NewImageFields{
		Title:    title,
		MediaURL: "https://cdn/" + title + ".jpg",
		PublicID: "gallery/" + title,
	})
	require.NoError(t, err)
	return rec
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPublicList_EmptyCategory(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/api/gallery/portrait")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	require.Equal(t, "portrait", data["category"])
	require.Equal(t, float64(0), data["totalImages"])
}

func TestPublicList_InvalidCategory(t *testing.T) {
	app := newTestApp(t)

	w := app.get("/api/gallery/weddings")
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, "invalid category", body["error"])
}

func TestPublicList_HidesInvisibleImages(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	shown := app.seed(t, "portrait", "shown")
	hidden := app.seed(t, "portrait", "hidden")
	_, err := app.svc.SetVisibility(ctx, "portrait", hidden.ID, false)
	require.NoError(t, err)

	w := app.get("/api/gallery/portrait")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	images := data["images"].([]interface{})
	require.Len(t, images, 1)
	require.Equal(t, shown.ID, images[0].(map[string]interface{})["id"])
}

func TestPublicFeatured(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	app.seed(t, "landscape", "plain")
	star := app.seed(t, "landscape", "star")
	_, err := app.svc.SetFeatured(ctx, "landscape", star.ID, true)
	require.NoError(t, err)

	w := app.get("/api/gallery/landscape/featured")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	images := data["images"].([]interface{})
	require.Len(t, images, 1)
	require.Equal(t, "star", images[0].(map[string]interface{})["title"])
}

func TestPublicList_FreshQueryBypassesCache(t *testing.T) {
	app := newTestApp(t)

	app.seed(t, "bw", "one")
	w := app.get("/api/gallery/bw")
	require.Equal(t, http.StatusOK, w.Code)

	// write bypasses the handler, cache invalidation happens in the service;
	// fresh=true must reflect the latest store state regardless
	app.seed(t, "bw", "two")
	w = app.get("/api/gallery/bw?fresh=true")
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)["data"].(map[string]interface{})
	require.Equal(t, float64(2), data["totalImages"])
}

func TestPublicList_ExhaustedRetriesMapTo503(t *testing.T) {
	app := newTestApp(t)

	app.store.FailWrites = func(key string, attempt int) error {
		return store.ErrConflict
	}

	_, err := app.svc.Create(context.Background(), "portrait", &gallery.NewImageFields{
		Title: "x", MediaURL: "u", PublicID: "p",
	})
	require.Error(t, err)

	// surface the mapping through a handler response
	rw := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rw)
	respondError(c, err)
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)

	body := decodeBody(t, rw)
	require.Equal(t, "concurrency_exhausted", body["kind"])
}
