package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectMongoWithRetry_GivesUp(t *testing.T) {
	start := time.Now()
	_, err := ConnectMongoWithRetry(context.Background(), "mongodb://127.0.0.1:1/?connect=direct", 200*time.Millisecond, 2, 10*time.Millisecond)
	require.ErrorContains(t, err, "mongo ping")
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestConnectMongoWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConnectMongoWithRetry(ctx, "mongodb://127.0.0.1:1", 200*time.Millisecond, 5, time.Second)
	require.Error(t, err)
}
