package archive

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/kv"
)

type fakeObjects map[string][]byte

func (f fakeObjects) ReadObject(_ context.Context, key string) ([]byte, error) {
	b, ok := f[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return b, nil
}

const catalog = `{"images":[
	{"id":"a","filename":"a.webp","status":"approved","quality_score":9},
	{"id":"b","filename":"b.webp","status":"approved","quality_score":7,"used_in":["blog"]},
	{"id":"c","filename":"c.webp","status":"rejected","quality_score":10},
	{"id":"d","filename":"d.webp","status":"approved","quality_score":3}
]}`

func newArchive(t *testing.T) (*Archive, kv.Store) {
	t.Helper()
	store := kv.NewMemoryStore()
	a := New(store, fakeObjects{CatalogKey: []byte(catalog), ImagePrefix + "a.webp": []byte("webp-bytes")})
	a.intn = func(int) int { return 0 }
	return a, store
}

func TestManifest_SyncedFromCatalogWhenMissing(t *testing.T) {
	a, store := newArchive(t)
	ctx := context.Background()

	m, err := a.Manifest(ctx)
	require.NoError(t, err)
	require.Len(t, m.Images, 4)
	require.Equal(t, []string{"blog"}, m.Images["b"].UsedIn)
	require.Equal(t, []string{}, m.Images["a"].UsedIn)

	_, err = store.Get(ctx, manifestNamespace, manifestKey)
	require.NoError(t, err)
}

func TestManifest_NullEntriesDropped(t *testing.T) {
	a, store := newArchive(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, manifestNamespace, manifestKey,
		[]byte(`{"images":{"x":null,"y":{"filename":"y.webp","status":"approved","quality_score":5}}}`), 0))

	m, err := a.Manifest(ctx)
	require.NoError(t, err)
	require.Len(t, m.Images, 1)
	require.Equal(t, []string{}, m.Images["y"].UsedIn)

	img, err := a.Select(ctx, ChannelBlog)
	require.NoError(t, err)
	require.Equal(t, "y", img.ID)
	require.NoError(t, a.MarkUsed(ctx, "y", ChannelBlog))
}

func TestSelect_HighestQualityApprovedUnused(t *testing.T) {
	a, _ := newArchive(t)
	img, err := a.Select(context.Background(), ChannelBlog)
	require.NoError(t, err)
	require.Equal(t, "a", img.ID)
	require.Equal(t, "a.webp", img.Filename)
}

func TestSelect_RandomAmongTopFive(t *testing.T) {
	a, _ := newArchive(t)
	var bound int
	a.intn = func(n int) int { bound = n; return n - 1 }

	img, err := a.Select(context.Background(), "instagram")
	require.NoError(t, err)
	require.Equal(t, 3, bound)
	require.Equal(t, "d", img.ID)
}

func TestSelect_ResetsExhaustedChannelOnly(t *testing.T) {
	a, _ := newArchive(t)
	ctx := context.Background()
	require.NoError(t, a.MarkUsed(ctx, "a", ChannelBlog))
	require.NoError(t, a.MarkUsed(ctx, "d", ChannelBlog))
	require.NoError(t, a.MarkUsed(ctx, "a", "threads"))

	img, err := a.Select(ctx, ChannelBlog)
	require.NoError(t, err)
	require.Equal(t, "a", img.ID)

	m, err := a.Manifest(ctx)
	require.NoError(t, err)
	require.Empty(t, m.Images["b"].UsedIn)
	require.Equal(t, []string{"threads"}, m.Images["a"].UsedIn)
}

func TestSelect_NoApproved(t *testing.T) {
	a := New(kv.NewMemoryStore(), fakeObjects{CatalogKey: []byte(`{"images":[{"id":"x","status":"pending"}]}`)})
	_, err := a.Select(context.Background(), ChannelBlog)
	require.ErrorIs(t, err, ErrNoApprovedImages)
}

func TestMarkUsed_IdempotentAndIgnoresUnknown(t *testing.T) {
	a, _ := newArchive(t)
	ctx := context.Background()
	require.NoError(t, a.MarkUsed(ctx, "a", ChannelBlog))
	require.NoError(t, a.MarkUsed(ctx, "a", ChannelBlog))
	require.NoError(t, a.MarkUsed(ctx, "missing", ChannelBlog))

	m, err := a.Manifest(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{ChannelBlog}, m.Images["a"].UsedIn)
}

func TestFetch(t *testing.T) {
	a, _ := newArchive(t)
	b64, mime, err := a.Fetch(context.Background(), &Image{ID: "a", Filename: "a.webp"})
	require.NoError(t, err)
	require.Equal(t, ImageMIME, mime)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("webp-bytes")), b64)
}
