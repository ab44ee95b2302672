// Package database opens the Mongo connection behind the content store and run history.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/zcheck/blogpipe/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PostsCollection = "posts"
	RunsCollection  = "runs"
)

// ConnectMongo opens a connection and pings it. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("blogpipe"))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry tolerates startup races with the database container by retrying
// ConnectMongo with exponential backoff starting at delay.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, delay time.Duration) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	builder := retrypolicy.NewBuilder[*mongo.Client]().
		WithMaxAttempts(attempts).
		ReturnLastFailure()
	if delay > 0 {
		builder = builder.WithBackoff(delay, 8*delay)
	}
	attempt := 0
	return failsafe.With(builder.Build()).WithContext(ctx).Get(func() (*mongo.Client, error) {
		attempt++
		client, err := ConnectMongo(ctx, uri, timeout)
		if err != nil {
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, attempts, err)
		}
		return client, err
	})
}
