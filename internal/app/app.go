// Package app assembles the pipeline and its stores from configuration. The HTTP server and
// the one-shot publish command share it so both run the same wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zcheck/blogpipe/internal/archive"
	"github.com/zcheck/blogpipe/internal/config"
	"github.com/zcheck/blogpipe/internal/database"
	"github.com/zcheck/blogpipe/internal/deploy"
	"github.com/zcheck/blogpipe/internal/generator"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/notify"
	"github.com/zcheck/blogpipe/internal/pipeline"
	"github.com/zcheck/blogpipe/internal/post/service"
	"github.com/zcheck/blogpipe/internal/runs"
	"github.com/zcheck/blogpipe/internal/social"
	"github.com/zcheck/blogpipe/internal/storage"
	"github.com/zcheck/blogpipe/internal/topics"
	"github.com/zcheck/blogpipe/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// App holds the wired pipeline and the clients it owns.
type App struct {
	Config   *config.Config
	Redis    *redis.Client
	Mongo    *mongo.Client
	KV       kv.Store
	Posts    service.Service
	Runs     runs.Store
	Storage  *storage.MinIOStorage
	Queue    *topics.Queue
	Pool     *topics.Pool
	Pipeline *pipeline.Pipeline
}

// New connects the optional backends and builds the pipeline. Missing Redis or Mongo fall back
// to in-memory stores; missing Gemini or MinIO credentials leave those steps failing at run time.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	a.KV = kv.NewMemoryStore()
	if addr := cfg.RedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		a.Redis = client
		a.KV = kv.NewRedisStore(client, cfg.Redis.Prefix)
		logger.Infof("using Redis kv store at %s", addr)
	} else {
		logger.Warn("REDIS_HOST not set, topic queue and markers are kept in memory")
	}

	a.Posts = service.NewMemoryService()
	a.Runs = runs.NewMemoryStore()
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts, time.Second)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Mongo = client
		db := client.Database(cfg.MongoDB.Database)
		if a.Posts, err = service.NewMongoService(ctx, db.Collection(database.PostsCollection)); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("post store: %w", err)
		}
		if a.Runs, err = runs.NewMongoStore(ctx, db.Collection(database.RunsCollection)); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("run store: %w", err)
		}
		logger.Infof("using MongoDB database %s", cfg.MongoDB.Database)
	} else {
		logger.Warn("MONGODB_URI not set, posts and runs are kept in memory")
	}

	if cfg.MinIO.Endpoint != "" {
		st, err := storage.NewMinIOStorage(ctx, &storage.MinIOConfig{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			UseSSL:        cfg.MinIO.UseSSL,
			Bucket:        cfg.MinIO.Bucket,
			PublicBaseURL: cfg.MinIO.PublicBaseURL,
		})
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Storage = st
	} else {
		logger.Warn("MINIO_ENDPOINT not set, image uploads are disabled")
	}

	a.Queue = topics.NewQueue(a.KV)
	a.Pool = topics.NewPool(nil, a.Posts.Slugs)

	deps := pipeline.Deps{
		Posts:    a.Posts,
		KV:       a.KV,
		Runs:     a.Runs,
		Notifier: notify.NewTelegram(notify.TelegramConfig{BotToken: cfg.Telegram.BotToken, ChatID: cfg.Telegram.ChatID, APIBase: cfg.Telegram.APIBase}),
		Topics:   a.Queue,
	}
	if cfg.Pipeline.TopicSource == config.TopicSourcePool {
		deps.Topics = a.Pool
	}

	gen, err := generator.New(ctx, generator.Config{
		APIKey:           cfg.Gemini.APIKey,
		BaseURL:          cfg.Gemini.BaseURL,
		TextModel:        cfg.Gemini.TextModel,
		ImageModel:       cfg.Gemini.ImageModel,
		Temperature:      cfg.Gemini.Temperature,
		RetryTemperature: cfg.Gemini.RetryTemperature,
		MaxOutputTokens:  cfg.Gemini.MaxOutputTokens,
		MinBodyChars:     cfg.Gemini.MinBodyChars,
	})
	if err != nil {
		logger.Warnf("generator disabled: %v", err)
		deps.Generator = unavailable{err: err}
	} else {
		deps.Generator = gen
	}

	if a.Storage != nil {
		deps.Images = a.Storage
		if cfg.Pipeline.ArchiveFallback {
			deps.Archive = archive.New(a.KV, a.Storage)
		}
	} else {
		deps.Images = unavailable{err: fmt.Errorf("image storage: %w", errStorageDisabled)}
	}

	if hook := deploy.NewHook(cfg.Deploy.HookURL, nil); hook != nil {
		deps.Deploy = hook
	} else {
		logger.Warn("DEPLOY_HOOK_URL not set, rebuilds are not triggered")
	}

	if ig, err := social.NewInstagram(social.InstagramConfig{
		AccessToken:  cfg.Instagram.AccessToken,
		UserID:       cfg.Instagram.UserID,
		APIBase:      cfg.Instagram.APIBase,
		PollAttempts: cfg.Instagram.PollAttempts,
		PollInterval: cfg.Instagram.PollInterval,
	}); err == nil {
		deps.Instagram = ig
	} else {
		logger.Warnf("instagram skipped: %v", err)
	}
	if th, err := social.NewThreads(social.ThreadsConfig{
		AccessToken:  cfg.Threads.AccessToken,
		UserID:       cfg.Threads.UserID,
		APIBase:      cfg.Threads.APIBase,
		PublishDelay: cfg.Threads.PublishDelay,
		ReplyGap:     cfg.Threads.ReplyGap,
	}); err == nil {
		deps.Threads = th
	} else {
		logger.Warnf("threads skipped: %v", err)
	}

	a.Pipeline = pipeline.New(deps, pipeline.Options{
		SiteURL:     cfg.Site.URL,
		DeployDelay: cfg.Deploy.Delay,
		ChannelGap:  cfg.Pipeline.ChannelGap,
		MarkerTTL:   cfg.Pipeline.MarkerTTL,
	})
	return a, nil
}

// Check pings every configured backend and reports which are reachable.
func (a *App) Check(ctx context.Context) map[string]bool {
	deps := map[string]bool{}
	if a.Redis != nil {
		deps["redis"] = a.Redis.Ping(ctx).Err() == nil
	}
	if a.Mongo != nil {
		deps["mongodb"] = a.Mongo.Ping(ctx, nil) == nil
	}
	if a.Storage != nil {
		deps["storage"] = a.Storage.Ping(ctx) == nil
	}
	return deps
}

// Close releases the backend clients. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.Mongo != nil {
		if err := a.Mongo.Disconnect(ctx); err != nil {
			logger.Warnf("mongo disconnect: %v", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warnf("redis close: %v", err)
		}
	}
}
