package topics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/kv"
)

func TestQueue_NextConsumesOnce(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(kv.NewMemoryStore())
	require.NoError(t, q.Replace(ctx, []string{"주방 리모델링", " ", "욕실 타일"}))

	first, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "주방 리모델링", first.Keyword)

	left, err := q.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"욕실 타일"}, left)

	second, err := q.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "욕실 타일", second.Keyword)

	_, err = q.Next(ctx)
	require.ErrorIs(t, err, ErrNoTopics)
}

func TestQueue_MissingIsEmpty(t *testing.T) {
	q := NewQueue(kv.NewMemoryStore())
	list, err := q.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = q.Next(context.Background())
	require.ErrorIs(t, err, ErrNoTopics)
}

func TestPool_SkipsPublished(t *testing.T) {
	list := []Topic{{Keyword: "a", Slug: "a"}, {Keyword: "b", Slug: "b"}}
	p := NewPool(list, func(context.Context) ([]string, error) { return []string{"a"}, nil })
	p.intn = func(int) int { return 0 }

	got, err := p.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "b", got.Slug)

	p = NewPool(list, func(context.Context) ([]string, error) { return []string{"a", "b"}, nil })
	_, err = p.Next(context.Background())
	require.ErrorIs(t, err, ErrNoTopics)
}

func TestDefaultPool(t *testing.T) {
	require.Len(t, DefaultPool, 25)
	seen := map[string]bool{}
	for _, tp := range DefaultPool {
		require.False(t, seen[tp.Slug], tp.Slug)
		seen[tp.Slug] = true
	}
}
