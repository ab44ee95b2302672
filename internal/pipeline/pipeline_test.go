package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/internal/archive"
	"github.com/zcheck/blogpipe/internal/generator"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/runs"
	"github.com/zcheck/blogpipe/internal/social"
	"github.com/zcheck/blogpipe/internal/storage"
	"github.com/zcheck/blogpipe/internal/topics"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, m string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, m)
	n.mu.Unlock()
}

type fakeGenerator struct {
	postCalls  int
	imageCalls int
	imageErr   error
	prompt     string
}

func (g *fakeGenerator) GeneratePost(_ context.Context, t topics.Topic) (*post.Post, error) {
	g.postCalls++
	return &post.Post{
		Slug:     "kitchen-cost",
		Title:    "주방 리모델링 비용",
		Category: post.CategoryInfo,
		Tags:     []string{"주방"},
		BodySections: post.Sections{
			{Type: post.SectionText, Content: "도입부입니다."},
			{Type: post.SectionHeading, Content: "견적 비교"},
			{Type: post.SectionText, Content: "견적은 세 곳 이상 받으세요."},
		},
	}, nil
}

func (g *fakeGenerator) GenerateImage(_ context.Context, prompt string) (*generator.Image, error) {
	g.imageCalls++
	g.prompt = prompt
	if g.imageErr != nil {
		return nil, g.imageErr
	}
	return &generator.Image{Base64: "aGVybw==", MIMEType: "image/png"}, nil
}

type fakeUploader struct{ slug, b64, mime string }

func (u *fakeUploader) UploadImage(_ context.Context, slug, b64, mime string) (*storage.Upload, error) {
	u.slug, u.b64, u.mime = slug, b64, mime
	return &storage.Upload{Key: "images/" + slug + ".png", URL: "https://cdn.example/images/" + slug + ".png"}, nil
}

type fakePosts struct{ saved []*post.Post }

func (f *fakePosts) Upsert(_ context.Context, p *post.Post) error {
	f.saved = append(f.saved, p)
	return nil
}

type fakeDeploy struct{ calls int }

func (d *fakeDeploy) Trigger(context.Context) (string, bool, error) {
	d.calls++
	return "dpl_1", true, nil
}

type fakeArchive struct{ marked []string }

func (a *fakeArchive) Select(context.Context, string) (*archive.Image, error) {
	return &archive.Image{ID: "img-7", Filename: "img-7.webp"}, nil
}

func (a *fakeArchive) Fetch(context.Context, *archive.Image) (string, string, error) {
	return "d2VicA==", archive.ImageMIME, nil
}

func (a *fakeArchive) MarkUsed(_ context.Context, id, channel string) error {
	a.marked = append(a.marked, id+"/"+channel)
	return nil
}

type fakeInstagram struct {
	calls    int
	imageURL string
	err      error
}

func (f *fakeInstagram) Publish(_ context.Context, imageURL, _ string) (string, error) {
	f.calls++
	f.imageURL = imageURL
	if f.err != nil {
		return "", f.err
	}
	return "ig-1", nil
}

type fakeThreads struct {
	calls int
	chain []string
}

func (f *fakeThreads) PublishChain(_ context.Context, chain []string) (string, error) {
	f.calls++
	f.chain = chain
	return "th-1", nil
}

type harness struct {
	p        *Pipeline
	store    *kv.MemoryStore
	notifier *recordingNotifier
	gen      *fakeGenerator
	uploader *fakeUploader
	posts    *fakePosts
	deploy   *fakeDeploy
	queue    *topics.Queue
	sleeps   []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    kv.NewMemoryStore(),
		notifier: &recordingNotifier{},
		gen:      &fakeGenerator{},
		uploader: &fakeUploader{},
		posts:    &fakePosts{},
		deploy:   &fakeDeploy{},
	}
	h.queue = topics.NewQueue(h.store)
	h.p = New(Deps{
		Topics:    h.queue,
		Generator: h.gen,
		Images:    h.uploader,
		Posts:     h.posts,
		KV:        h.store,
		Notifier:  h.notifier,
		Deploy:    h.deploy,
	}, Options{SiteURL: "https://blog.example.com", DeployDelay: 2 * time.Second, ChannelGap: 10 * time.Second})
	h.p.now = func() time.Time { return time.Date(2025, 6, 30, 16, 30, 0, 0, time.UTC) }
	h.p.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	h.p.newID = func() string { return "run-1" }
	return h
}

func TestAutoGenerate_EmptyQueueNotifiesOnce(t *testing.T) {
	h := newHarness(t)

	res, err := h.p.AutoGenerate(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusNoTopics, res.Status)
	require.Len(t, h.notifier.msgs, 1)
	require.Zero(t, h.gen.postCalls)
	require.Zero(t, h.gen.imageCalls)
	require.Zero(t, h.deploy.calls)
	require.Empty(t, h.posts.saved)

	run, err := h.p.Run(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, StatusNoTopics, run.Status)
}

func TestAutoGenerate_HappyPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.queue.Replace(ctx, []string{"주방 리모델링", "욕실"}))

	res, err := h.p.AutoGenerate(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, "kitchen-cost", res.Slug)
	require.Equal(t, "dpl_1", res.DeployID)
	require.Equal(t, ImageSourceGenerated, res.ImageSource)
	require.True(t, strings.HasSuffix(h.gen.prompt, " 주제: 주방 리모델링 비용"))

	left, err := h.queue.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"욕실"}, left)

	require.Len(t, h.posts.saved, 1)
	saved := h.posts.saved[0]
	require.True(t, saved.Published)
	require.Equal(t, "https://cdn.example/images/kitchen-cost.png", saved.HeroImage)
	require.False(t, saved.PublishedAt.IsZero())

	today, err := h.p.Today(ctx)
	require.NoError(t, err)
	require.Equal(t, "kitchen-cost", today.Slug)
	require.Equal(t, "2025-07-01", today.PublishedDate)
	require.NotEmpty(t, today.InstagramCaption)
	require.NotEmpty(t, today.ThreadsChain)
	require.Contains(t, today.ThreadsChain[len(today.ThreadsChain)-1], "https://blog.example.com/kitchen-cost/")

	require.Equal(t, []time.Duration{2 * time.Second}, h.sleeps)
	require.Len(t, h.notifier.msgs, 1)
	require.Contains(t, h.notifier.msgs[0], "✅")
}

func TestAutoGenerate_ImageFailureWithoutArchiveFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.queue.Replace(ctx, []string{"주방"}))
	h.gen.imageErr = errors.New("quota")

	res, err := h.p.AutoGenerate(ctx)
	require.Error(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.Empty(t, h.posts.saved)
	require.Zero(t, h.deploy.calls)
	require.Len(t, h.notifier.msgs, 1)
	require.Contains(t, h.notifier.msgs[0], "실패")

	// the topic stays consumed
	left, err := h.queue.List(ctx)
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestAutoGenerate_ImageFailureFallsBackToArchive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.queue.Replace(ctx, []string{"주방"}))
	h.gen.imageErr = errors.New("quota")
	arc := &fakeArchive{}
	h.p.deps.Archive = arc

	res, err := h.p.AutoGenerate(ctx)
	require.NoError(t, err)
	require.Equal(t, ImageSourceArchive, res.ImageSource)
	require.Equal(t, "d2VicA==", h.uploader.b64)
	require.Equal(t, archive.ImageMIME, h.uploader.mime)
	require.Equal(t, []string{"img-7/blog"}, arc.marked)
}

func seedToday(t *testing.T, h *harness, thumb string) {
	t.Helper()
	require.NoError(t, kv.PutJSON(context.Background(), h.store, todayNamespace, todayKey, TodayData{
		Slug: "kitchen-cost", Title: "주방", ThumbnailURL: thumb,
		InstagramCaption: "caption", ThreadsChain: []string{"one", "two"}, PublishedDate: "2025-07-01",
	}, 0))
}

func TestPublishSocial_PublishesBothAndDedupes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ig, th := &fakeInstagram{}, &fakeThreads{}
	h.p.deps.Instagram, h.p.deps.Threads = ig, th
	seedToday(t, h, "/images/kitchen-cost.png")

	res, err := h.p.PublishSocial(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	require.True(t, res.Instagram.Success)
	require.True(t, res.Threads.Success)
	require.Equal(t, "https://blog.example.com/images/kitchen-cost.png", ig.imageURL)
	require.Equal(t, []string{"one", "two"}, th.chain)
	require.Equal(t, []time.Duration{10 * time.Second}, h.sleeps)

	_, err = h.store.Get(ctx, publishedNamespace, "kitchen-cost:2025-07-01")
	require.NoError(t, err)

	res, err = h.p.PublishSocial(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyPublished, res.Status)
	require.Equal(t, 1, ig.calls)
	require.Equal(t, 1, th.calls)
	require.Len(t, h.notifier.msgs, 2)
	require.Contains(t, h.notifier.msgs[0], "Instagram: ✅")
}

func TestPublishSocial_NoMarkerWhenAllChannelsFail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.p.deps.Instagram = &fakeInstagram{err: social.ErrProcessingTimeout}
	seedToday(t, h, "https://cdn.example/a.png")

	res, err := h.p.PublishSocial(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.Contains(t, res.Instagram.Error, "did not finish")
	require.Equal(t, social.ReasonNotConfigured, res.Threads.Reason)

	_, err = h.store.Get(ctx, publishedNamespace, "kitchen-cost:2025-07-01")
	require.ErrorIs(t, err, kv.ErrNotFound)
	require.Contains(t, h.notifier.msgs[0], "Threads: ❌ (not configured)")
}

type markerCheckingThreads struct {
	store  *kv.MemoryStore
	marked bool
}

func (f *markerCheckingThreads) PublishChain(ctx context.Context, _ []string) (string, error) {
	_, err := f.store.Get(ctx, publishedNamespace, "kitchen-cost:2025-07-01")
	f.marked = err == nil
	return "", errors.New("threads down")
}

func TestPublishSocial_MarkerWrittenBeforeSecondChannel(t *testing.T) {
	h := newHarness(t)
	th := &markerCheckingThreads{store: h.store}
	h.p.deps.Instagram, h.p.deps.Threads = &fakeInstagram{}, th
	seedToday(t, h, "https://cdn.example/a.png")

	res, err := h.p.PublishSocial(context.Background())
	require.NoError(t, err)
	require.True(t, th.marked)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, "threads down", res.Threads.Error)
}

func TestPublishSocial_InterruptedBetweenChannels(t *testing.T) {
	h := newHarness(t)
	ig, th := &fakeInstagram{}, &fakeThreads{}
	h.p.deps.Instagram, h.p.deps.Threads = ig, th
	h.p.deps.Runs = runs.NewMemoryStore()
	seedToday(t, h, "https://cdn.example/a.png")

	ctx, cancel := context.WithCancel(context.Background())
	h.p.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res, err := h.p.PublishSocial(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StatusOK, res.Status)
	require.True(t, res.Instagram.Success)
	require.Contains(t, res.Threads.Error, "wait before threads")
	require.Zero(t, th.calls)

	_, err = h.store.Get(context.Background(), publishedNamespace, "kitchen-cost:2025-07-01")
	require.NoError(t, err)

	require.Len(t, h.notifier.msgs, 1)
	require.Contains(t, h.notifier.msgs[0], "Instagram: ✅")
	require.Contains(t, h.notifier.msgs[0], "중단됨")

	run, err := h.p.deps.Runs.Load(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Equal(t, StatusOK, run.Status)
	require.Contains(t, run.Error, "context canceled")

	res, err = h.p.PublishSocial(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyPublished, res.Status)
	require.Equal(t, 1, ig.calls)
}

func TestPublishSocial_NoContent(t *testing.T) {
	h := newHarness(t)
	ig := &fakeInstagram{}
	h.p.deps.Instagram = ig

	res, err := h.p.PublishSocial(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusNoContent, res.Status)
	require.Zero(t, ig.calls)
	require.Len(t, h.notifier.msgs, 1)
}

func TestRecentRuns(t *testing.T) {
	h := newHarness(t)
	h.p.deps.Runs = runs.NewMemoryStore()
	_, err := h.p.AutoGenerate(context.Background())
	require.NoError(t, err)

	list, err := h.p.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, JobAutoGenerate, list[0].Job)
}
