package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/post"
)

func TestService_UpsertNormalizesAndValidates(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()

	err := svc.Upsert(ctx, &post.Post{Slug: "Bad Slug", Title: "x"})
	require.ErrorIs(t, err, post.ErrInvalidSlug)

	p := &post.Post{Slug: "fraud-cases", Title: "사기 사례", Category: "인테리어 사기"}
	require.NoError(t, svc.Upsert(ctx, p))

	got, err := svc.Get(ctx, "fraud-cases")
	require.NoError(t, err)
	require.Equal(t, post.CategoryPrevention, got.Category)
	require.Equal(t, "3분", got.ReadTime)

	slugs, err := svc.Slugs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"fraud-cases"}, slugs)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)
}
