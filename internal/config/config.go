package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zcheck/blogpipe/pkg/logger"
)

const (
	TopicSourceQueue = "queue"
	TopicSourcePool  = "pool"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	Gemini    GeminiConfig
	Instagram InstagramConfig
	Threads   ThreadsConfig
	Telegram  TelegramConfig
	Deploy    DeployConfig
	Site      SiteConfig
	Cron      CronConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// MongoDBConfig is optional; an empty URI keeps posts and run history in memory.
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	ConnectAttempts int
}

// RedisConfig is optional; an empty host keeps queue, handoff and markers in memory.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

type GeminiConfig struct {
	APIKey           string
	BaseURL          string
	TextModel        string
	ImageModel       string
	Temperature      float32
	RetryTemperature float32
	MaxOutputTokens  int32
	MinBodyChars     int
}

type InstagramConfig struct {
	AccessToken  string
	UserID       string
	APIBase      string
	PollAttempts int
	PollInterval time.Duration
}

type ThreadsConfig struct {
	AccessToken  string
	UserID       string
	APIBase      string
	PublishDelay time.Duration
	ReplyGap     time.Duration
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIBase  string
}

type DeployConfig struct {
	HookURL string
	Delay   time.Duration
}

type SiteConfig struct {
	URL         string
	ContentDir  string
	DistDir     string
	PublicDir   string
	TemplateDir string
	// ContentAPIURL is the content store the site builder reads remote posts from.
	ContentAPIURL string
}

type CronConfig struct {
	Secret     string
	AdminToken string
}

type PipelineConfig struct {
	TopicSource     string
	ChannelGap      time.Duration
	MarkerTTL       time.Duration
	ArchiveFallback bool
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	Window  time.Duration
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Path:       v.GetString("LOG_PATH"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
		MongoDB: MongoDBConfig{
			URI:             v.GetString("MONGODB_URI"),
			Database:        v.GetString("MONGODB_DATABASE"),
			Timeout:         time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			ConnectAttempts: v.GetInt("MONGODB_CONNECT_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		MinIO: MinIOConfig{
			Endpoint:      v.GetString("MINIO_ENDPOINT"),
			AccessKey:     v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     v.GetString("MINIO_SECRET_KEY"),
			UseSSL:        v.GetBool("MINIO_USE_SSL"),
			Bucket:        v.GetString("MINIO_BUCKET"),
			PublicBaseURL: v.GetString("MINIO_PUBLIC_BASE_URL"),
		},
		Gemini: GeminiConfig{
			APIKey:           v.GetString("GEMINI_API_KEY"),
			BaseURL:          v.GetString("GEMINI_BASE_URL"),
			TextModel:        v.GetString("GEMINI_TEXT_MODEL"),
			ImageModel:       v.GetString("GEMINI_IMAGE_MODEL"),
			Temperature:      float32(v.GetFloat64("GEMINI_TEMPERATURE")),
			RetryTemperature: float32(v.GetFloat64("GEMINI_RETRY_TEMPERATURE")),
			MaxOutputTokens:  v.GetInt32("GEMINI_MAX_OUTPUT_TOKENS"),
			MinBodyChars:     v.GetInt("GEMINI_MIN_BODY_CHARS"),
		},
		Instagram: InstagramConfig{
			AccessToken:  v.GetString("INSTAGRAM_ACCESS_TOKEN"),
			UserID:       v.GetString("INSTAGRAM_USER_ID"),
			APIBase:      v.GetString("INSTAGRAM_API_BASE"),
			PollAttempts: v.GetInt("INSTAGRAM_POLL_ATTEMPTS"),
			PollInterval: v.GetDuration("INSTAGRAM_POLL_INTERVAL"),
		},
		Threads: ThreadsConfig{
			AccessToken:  v.GetString("THREADS_ACCESS_TOKEN"),
			UserID:       v.GetString("THREADS_USER_ID"),
			APIBase:      v.GetString("THREADS_API_BASE"),
			PublishDelay: v.GetDuration("THREADS_PUBLISH_DELAY"),
			ReplyGap:     v.GetDuration("THREADS_REPLY_GAP"),
		},
		Telegram: TelegramConfig{
			BotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			ChatID:   v.GetString("TELEGRAM_CHAT_ID"),
			APIBase:  v.GetString("TELEGRAM_API_BASE"),
		},
		Deploy: DeployConfig{
			HookURL: v.GetString("DEPLOY_HOOK_URL"),
			Delay:   v.GetDuration("DEPLOY_DELAY"),
		},
		Site: SiteConfig{
			URL:           v.GetString("SITE_URL"),
			ContentDir:    v.GetString("SITE_CONTENT_DIR"),
			DistDir:       v.GetString("SITE_DIST_DIR"),
			PublicDir:     v.GetString("SITE_PUBLIC_DIR"),
			TemplateDir:   v.GetString("SITE_TEMPLATE_DIR"),
			ContentAPIURL: v.GetString("CONTENT_API_URL"),
		},
		Cron: CronConfig{
			Secret:     v.GetString("CRON_SECRET"),
			AdminToken: v.GetString("ADMIN_TOKEN"),
		},
		Pipeline: PipelineConfig{
			TopicSource:     strings.ToLower(strings.TrimSpace(v.GetString("TOPIC_SOURCE"))),
			ChannelGap:      v.GetDuration("SOCIAL_CHANNEL_GAP"),
			MarkerTTL:       v.GetDuration("PUBLISHED_MARKER_TTL"),
			ArchiveFallback: v.GetBool("ARCHIVE_FALLBACK"),
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   v.GetInt("RATE_LIMIT_BURST"),
			Window:  v.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Cron.Secret == "" {
		logger.Warn("CRON_SECRET is not set; cron endpoints will reject every request")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	// auto-generate waits on Gemini and the deploy delay inside one request
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	v.SetDefault("MONGODB_DATABASE", "blogpipe")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MONGODB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PREFIX", "blogpipe:")

	v.SetDefault("MINIO_BUCKET", "blog-images")

	v.SetDefault("GEMINI_TEXT_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("GEMINI_TEMPERATURE", 0.85)
	v.SetDefault("GEMINI_RETRY_TEMPERATURE", 1.0)
	v.SetDefault("GEMINI_MAX_OUTPUT_TOKENS", 8192)
	v.SetDefault("GEMINI_MIN_BODY_CHARS", 1200)

	v.SetDefault("INSTAGRAM_API_BASE", "https://graph.facebook.com/v21.0")
	v.SetDefault("INSTAGRAM_POLL_ATTEMPTS", 12)
	v.SetDefault("INSTAGRAM_POLL_INTERVAL", 5*time.Second)
	v.SetDefault("THREADS_API_BASE", "https://graph.threads.net/v1.0")
	v.SetDefault("THREADS_PUBLISH_DELAY", 2*time.Second)
	v.SetDefault("THREADS_REPLY_GAP", 3*time.Second)
	v.SetDefault("TELEGRAM_API_BASE", "https://api.telegram.org")

	v.SetDefault("DEPLOY_DELAY", 2*time.Second)

	v.SetDefault("SITE_URL", "https://blog.zcheck.co.kr")
	v.SetDefault("SITE_CONTENT_DIR", "content")
	v.SetDefault("SITE_DIST_DIR", "dist")
	v.SetDefault("SITE_PUBLIC_DIR", "public")

	v.SetDefault("TOPIC_SOURCE", TopicSourceQueue)
	v.SetDefault("SOCIAL_CHANNEL_GAP", 10*time.Second)
	v.SetDefault("PUBLISHED_MARKER_TTL", 30*24*time.Hour)
	v.SetDefault("ARCHIVE_FALLBACK", true)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Second)
}

func (c *Config) validate() error {
	switch c.Pipeline.TopicSource {
	case TopicSourceQueue, TopicSourcePool:
	default:
		return fmt.Errorf("TOPIC_SOURCE must be %q or %q, got %q", TopicSourceQueue, TopicSourcePool, c.Pipeline.TopicSource)
	}
	if c.Gemini.MinBodyChars < 0 {
		return fmt.Errorf("GEMINI_MIN_BODY_CHARS must not be negative")
	}
	return nil
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
