package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	GitHub    GitHubConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Retry     RetryConfig
	Media     MediaConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GitHubConfig points at the content repository holding the per-category
// JSON documents. Token needs contents read/write scope.
type GitHubConfig struct {
	Owner   string
	Repo    string
	Branch  string
	Token   string
	Timeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type CacheConfig struct {
	TTL time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

type MediaConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	Bucket       string
	Folder       string
	MaxUploadMB  int64
	PublicURLTTL time.Duration
}

type AdminConfig struct {
	Username     string
	Password     string
	JWTSecret    string
	TokenTTL     time.Duration
	OIDCIssuer   string
	OIDCClientID string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5002")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("GITHUB_BRANCH", "main")
	viper.SetDefault("GITHUB_TIMEOUT", 8)
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("CACHE_TTL_SECONDS", 30)
	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_BACKOFF_MS", 100)
	viper.SetDefault("MEDIA_BUCKET", "sns-gallery")
	viper.SetDefault("MEDIA_FOLDER", "sns-gallery")
	viper.SetDefault("MEDIA_MAX_UPLOAD_MB", 10)
	viper.SetDefault("MEDIA_URL_TTL_HOURS", 24)
	viper.SetDefault("ADMIN_TOKEN_TTL_MINUTES", 60)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		GitHub: GitHubConfig{
			Owner:   viper.GetString("GITHUB_OWNER"),
			Repo:    viper.GetString("GITHUB_REPO"),
			Branch:  viper.GetString("GITHUB_BRANCH"),
			Token:   os.Getenv("GITHUB_TOKEN"),
			Timeout: time.Duration(viper.GetInt("GITHUB_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Cache: CacheConfig{
			TTL: time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: viper.GetInt("RETRY_MAX_ATTEMPTS"),
			BaseBackoff: time.Duration(viper.GetInt("RETRY_BASE_BACKOFF_MS")) * time.Millisecond,
		},
		Media: MediaConfig{
			Endpoint:     viper.GetString("MEDIA_ENDPOINT"),
			AccessKey:    os.Getenv("MEDIA_ACCESS_KEY"),
			SecretKey:    os.Getenv("MEDIA_SECRET_KEY"),
			UseSSL:       viper.GetString("MEDIA_USE_SSL") == "true",
			Bucket:       viper.GetString("MEDIA_BUCKET"),
			Folder:       viper.GetString("MEDIA_FOLDER"),
			MaxUploadMB:  viper.GetInt64("MEDIA_MAX_UPLOAD_MB"),
			PublicURLTTL: time.Duration(viper.GetInt("MEDIA_URL_TTL_HOURS")) * time.Hour,
		},
		Admin: AdminConfig{
			Username:     viper.GetString("ADMIN_USERNAME"),
			Password:     os.Getenv("ADMIN_PASSWORD"),
			JWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
			TokenTTL:     time.Duration(viper.GetInt("ADMIN_TOKEN_TTL_MINUTES")) * time.Minute,
			OIDCIssuer:   viper.GetString("ADMIN_OIDC_ISSUER"),
			OIDCClientID: viper.GetString("ADMIN_OIDC_CLIENT_ID"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetString("RATE_LIMIT_ENABLED") == "true",
			UseRedis:      viper.GetString("RATE_LIMIT_USE_REDIS") == "true",
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.Admin.JWTSecret == "" {
		log.Println("WARNING: ADMIN_JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}

// RequireGitHub panics unless the content repository variables are present.
// Called by wiring code that selects the GitHub store backend.
func (c *Config) RequireGitHub() {
	for _, kv := range []struct{ key, val string }{
		{"GITHUB_OWNER", c.GitHub.Owner},
		{"GITHUB_REPO", c.GitHub.Repo},
		{"GITHUB_TOKEN", c.GitHub.Token},
	} {
		if kv.val == "" {
			log.Fatalf("environment variable %s is required", kv.key)
		}
	}
}
