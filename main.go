package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/snsphoto/gallery-api/handlers"
	"github.com/snsphoto/gallery-api/internal/config"
	"github.com/snsphoto/gallery-api/internal/database"
	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/internal/gallery/cache"
	"github.com/snsphoto/gallery-api/internal/gallery/service"
	"github.com/snsphoto/gallery-api/internal/gallery/store"
	"github.com/snsphoto/gallery-api/internal/gallery/updater"
	"github.com/snsphoto/gallery-api/internal/media"
	"github.com/snsphoto/gallery-api/internal/oidc"
	"github.com/snsphoto/gallery-api/internal/tokens"
	"github.com/snsphoto/gallery-api/pkg/logger"
	"github.com/snsphoto/gallery-api/pkg/metrics"
	"github.com/snsphoto/gallery-api/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: github=%v mongo=%v redis=%v media=%v",
		cfg.GitHub.Owner != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Media.Endpoint != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early so the cache and rate-limiter can use it when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-admin when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Document store selection: content repository by default, Mongo as the
	// self-hosted alternative, memory only as a last-resort dev fallback.
	var docStore store.Store
	var storeBackend string
	ctx := context.Background()
	switch {
	case cfg.GitHub.Owner != "" || cfg.GitHub.Repo != "" || cfg.GitHub.Token != "":
		cfg.RequireGitHub()
		docStore = store.NewGitHubStore(&cfg.GitHub)
		storeBackend = "github"
	case cfg.MongoDB.URI != "":
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			logger.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			logger.Fatalf("%v", err)
		}
		defer func() { _ = client.Disconnect(ctx) }()
		col := client.Database(cfg.MongoDB.Database).Collection("collections")
		docStore = store.NewMongoStore(col)
		storeBackend = "mongo"
	default:
		logger.Warn("no document store configured; using in-memory store (data is not persisted)")
		docStore = store.NewMemoryStore()
		storeBackend = "memory"
	}
	logger.Infof("document store backend: %s", storeBackend)

	// Snapshot cache: shared via Redis when available, process-local otherwise
	var snapCache cache.Cache
	if redisClient != nil {
		snapCache = cache.NewRedisCache(redisClient, "gallery:", cfg.Cache.TTL)
	} else {
		snapCache = cache.NewMemoryCache(cfg.Cache.TTL)
	}

	engine := updater.New(docStore, cfg.Retry.MaxAttempts, cfg.Retry.BaseBackoff)
	svc := service.New(docStore, snapCache, engine, gallery.NewID, time.Now)

	// Media storage for the upload route
	var mediaStorage *media.Storage
	if cfg.Media.Endpoint != "" {
		mediaStorage, err = media.NewStorage(&cfg.Media)
		if err != nil {
			logger.Warnf("media storage unavailable: %v", err)
			mediaStorage = nil
		}
	}

	// Admin token verifier: OIDC issuer when configured, built-in JWT otherwise.
	issuer := tokens.NewIssuer(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	var verifier middleware.Verifier = issuer
	if cfg.Admin.OIDCIssuer != "" && cfg.Admin.OIDCClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Admin.OIDCIssuer, cfg.Admin.OIDCClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	// Optional insecure verifier for integration tests: parse token claims without signature verification
	if val := strings.ToLower(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN"))); val == "true" {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		deps["store"] = docStore != nil
		if !deps["store"] {
			ready = false
		}
		deps["media"] = mediaStorage != nil
		if cfg.Redis.Host != "" {
			deps["redis"] = redisClient != nil
			if cfg.RateLimit.UseRedis && !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	// Public gallery API
	handlers.NewGalleryHandler(svc).Register(r)

	// Admin API behind bearer auth
	admin := handlers.NewAdminHandler(cfg, svc, mediaStorage, issuer)
	admin.RegisterLogin(r)
	adminGroup := r.Group("/api/admin", middleware.AuthMiddleware(verifier))
	admin.Register(adminGroup)

	// Swagger UI + JSON for API documentation
	handlers.RegisterSwagger(r)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Config summary: store=%s cache_ttl=%s retries=%d admin_secret_set=%v",
		storeBackend, cfg.Cache.TTL, cfg.Retry.MaxAttempts, cfg.Admin.JWTSecret != "")
	logger.Infof("Starting gallery service on %s", addr)
	// run server in goroutine and keep process alive — defensive: prevents
	// the container from exiting silently if r.Run ever returns.
	go func() {
		if err := r.Run(addr); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()
	select {}
}
