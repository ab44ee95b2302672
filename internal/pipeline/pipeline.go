// Package pipeline runs the two scheduled jobs: auto-generate (topic to published post)
// and publish-social (today's post to Instagram and Threads).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zcheck/blogpipe/internal/archive"
	"github.com/zcheck/blogpipe/internal/generator"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/notify"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/runs"
	"github.com/zcheck/blogpipe/internal/storage"
	"github.com/zcheck/blogpipe/internal/topics"
	"github.com/zcheck/blogpipe/pkg/logger"
	"github.com/zcheck/blogpipe/pkg/metrics"
	"github.com/zcheck/blogpipe/pkg/retry"
	"go.uber.org/zap"
)

const (
	JobAutoGenerate  = "auto-generate"
	JobPublishSocial = "publish-social"

	StatusOK               = "ok"
	StatusNoTopics         = "no_topics"
	StatusNoContent        = "no_content"
	StatusAlreadyPublished = "already_published"
	StatusFailed           = "failed"
	statusRunning          = "running"

	todayNamespace     = "blog"
	todayKey           = "today"
	publishedNamespace = "published"
)

// Generator writes post documents and hero images.
type Generator interface {
	GeneratePost(ctx context.Context, topic topics.Topic) (*post.Post, error)
	GenerateImage(ctx context.Context, prompt string) (*generator.Image, error)
}

type ImageUploader interface {
	UploadImage(ctx context.Context, slug, imageBase64, mimeType string) (*storage.Upload, error)
}

type PostWriter interface {
	Upsert(ctx context.Context, p *post.Post) error
}

// ImageArchive supplies fallback images when generation fails.
type ImageArchive interface {
	Select(ctx context.Context, channel string) (*archive.Image, error)
	Fetch(ctx context.Context, img *archive.Image) (string, string, error)
	MarkUsed(ctx context.Context, id, channel string) error
}

type Deployer interface {
	Trigger(ctx context.Context) (string, bool, error)
}

type InstagramPublisher interface {
	Publish(ctx context.Context, imageURL, caption string) (string, error)
}

type ThreadsPublisher interface {
	PublishChain(ctx context.Context, chain []string) (string, error)
}

// Deps are the collaborators of a Pipeline. Archive, Deploy, Instagram and Threads may be nil.
type Deps struct {
	Topics    topics.Source
	Generator Generator
	Images    ImageUploader
	Posts     PostWriter
	KV        kv.Store
	Notifier  notify.Notifier
	Archive   ImageArchive
	Deploy    Deployer
	Instagram InstagramPublisher
	Threads   ThreadsPublisher
	Runs      runs.Store
}

type Options struct {
	SiteURL string
	// DeployDelay lets the content store settle before the rebuild is triggered.
	DeployDelay time.Duration
	// ChannelGap separates the Instagram and Threads publishes.
	ChannelGap time.Duration
	MarkerTTL  time.Duration
}

type Pipeline struct {
	deps  Deps
	opts  Options
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

func New(deps Deps, opts Options) *Pipeline {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Runs == nil {
		deps.Runs = runs.NewMemoryStore()
	}
	if opts.SiteURL == "" {
		opts.SiteURL = post.DefaultSiteURL
	}
	if opts.MarkerTTL == 0 {
		opts.MarkerTTL = 30 * 24 * time.Hour
	}
	return &Pipeline{deps: deps, opts: opts, now: time.Now, sleep: retry.Sleep, newID: uuid.NewString}
}

// TodayData is the handoff from auto-generate to publish-social.
type TodayData struct {
	Slug             string   `json:"slug"`
	Title            string   `json:"title"`
	ThumbnailURL     string   `json:"thumbnail_url"`
	InstagramCaption string   `json:"instagram_caption"`
	ThreadsChain     []string `json:"threads_chain"`
	PublishedDate    string   `json:"published_date"`
}

// Today returns the stored handoff record.
func (p *Pipeline) Today(ctx context.Context) (*TodayData, error) {
	var d TodayData
	if err := kv.GetJSON(ctx, p.deps.KV, todayNamespace, todayKey, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Run looks up a recorded run.
func (p *Pipeline) Run(ctx context.Context, runID string) (*runs.Run, error) {
	return p.deps.Runs.Load(ctx, runID)
}

func (p *Pipeline) RecentRuns(ctx context.Context, limit int) ([]*runs.Run, error) {
	return p.deps.Runs.Recent(ctx, limit)
}

func (p *Pipeline) todayKST() string {
	return p.now().In(post.KST).Format("2006-01-02")
}

func (p *Pipeline) startRun(ctx context.Context, job string) *runs.Run {
	r := &runs.Run{RunID: p.newID(), Job: job, Status: statusRunning, StartedAt: p.now().UTC()}
	p.saveRun(ctx, r)
	return r
}

func (p *Pipeline) finishRun(ctx context.Context, r *runs.Run, status string, err error) {
	r.Status = status
	r.FinishedAt = p.now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
	metrics.PipelineRuns.WithLabelValues(r.Job, status).Inc()
	p.saveRun(ctx, r)
}

// saveRun is best effort; a lost run record never fails the job.
func (p *Pipeline) saveRun(ctx context.Context, r *runs.Run) {
	if err := p.deps.Runs.Save(context.WithoutCancel(ctx), r); err != nil {
		logger.L().Warn("save run record", zap.String("run_id", r.RunID), zap.Error(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

func wrapStep(step string, err error) error {
	return fmt.Errorf("%s: %w", step, err)
}
