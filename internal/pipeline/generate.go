package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/zcheck/blogpipe/internal/archive"
	"github.com/zcheck/blogpipe/internal/diversify"
	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/notify"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/topics"
	"github.com/zcheck/blogpipe/internal/transform"
	"github.com/zcheck/blogpipe/pkg/logger"
	"go.uber.org/zap"
)

const (
	ImageSourceGenerated = "generated"
	ImageSourceArchive   = "archive"
)

// GenerateResult describes one auto-generate run.
type GenerateResult struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	Keyword      string `json:"keyword,omitempty"`
	Slug         string `json:"slug,omitempty"`
	Title        string `json:"title,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ImageSource  string `json:"image_source,omitempty"`
	DeployID     string `json:"deploy_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// AutoGenerate takes the next topic and turns it into a published post, then hands the social
// copy to publish-social and triggers a site rebuild. The topic is consumed before generation
// starts, so a failed run loses it. Any error is notified and returned with the partial result.
func (p *Pipeline) AutoGenerate(ctx context.Context) (*GenerateResult, error) {
	run := p.startRun(ctx, JobAutoGenerate)
	res := &GenerateResult{RunID: run.RunID}
	log := logger.L().With(zap.String("job", JobAutoGenerate), zap.String("run_id", run.RunID))
	today := p.todayKST()

	topic, err := p.deps.Topics.Next(ctx)
	if errors.Is(err, topics.ErrNoTopics) {
		log.Info("topic queue empty")
		res.Status = StatusNoTopics
		p.deps.Notifier.Notify(ctx, fmt.Sprintf("<b>⚠️ Auto-Generate</b>\n\n%s\n주제 큐가 비었습니다. 주제를 추가해주세요.", today))
		p.finishRun(ctx, run, StatusNoTopics, nil)
		return res, nil
	}
	if err == nil {
		res.Keyword = topic.Keyword
		err = p.generate(ctx, topic, today, res, log)
	} else {
		err = wrapStep("next topic", err)
	}

	run.Slug = res.Slug
	run.Details = map[string]any{"keyword": res.Keyword, "image_source": res.ImageSource, "deploy_id": res.DeployID}
	if err != nil {
		log.Error("auto-generate failed", zap.Error(err))
		res.Status = StatusFailed
		res.Error = err.Error()
		p.deps.Notifier.Notify(ctx, fmt.Sprintf("<b>❌ 블로그 자동 생성 실패</b>\n\n%s\n\n%s", today, notify.Escape(err.Error())))
		p.finishRun(ctx, run, StatusFailed, err)
		return res, err
	}

	res.Status = StatusOK
	deployLine := res.DeployID
	if deployLine == "" {
		deployLine = "미설정"
	}
	p.deps.Notifier.Notify(ctx, fmt.Sprintf(
		"<b>✅ 블로그 자동 생성 완료</b>\n\n<b>%s</b>\n슬러그: %s\n주소: %s\n이미지: %s (%s)\n배포 ID: %s\n\n소셜 발행 예정",
		notify.Escape(res.Title), res.Slug, post.URL(p.opts.SiteURL, res.Slug), res.ThumbnailURL, res.ImageSource, deployLine))
	p.finishRun(ctx, run, StatusOK, nil)
	log.Info("auto-generate finished", zap.String("slug", res.Slug), zap.String("deploy_id", res.DeployID))
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, topic topics.Topic, today string, res *GenerateResult, log *zap.Logger) error {
	doc, err := p.deps.Generator.GeneratePost(ctx, topic)
	if err != nil {
		return wrapStep("generate content", err)
	}
	res.Slug, res.Title = doc.Slug, doc.Title
	log.Info("content generated", zap.String("slug", doc.Slug), zap.String("title", doc.Title))

	b64, mime, archived, err := p.heroImage(ctx, doc, log)
	if err != nil {
		return err
	}
	upload, err := p.deps.Images.UploadImage(ctx, doc.Slug, b64, mime)
	if err != nil {
		return wrapStep("upload image", err)
	}
	res.ThumbnailURL = upload.URL
	if archived != nil {
		res.ImageSource = ImageSourceArchive
		if err := p.deps.Archive.MarkUsed(ctx, archived.ID, archive.ChannelBlog); err != nil {
			log.Warn("mark archive image used", zap.String("image", archived.ID), zap.Error(err))
		}
	} else {
		res.ImageSource = ImageSourceGenerated
	}

	doc.HeroImage = upload.URL
	doc.Published = true
	doc.PublishedAt = p.now().UTC()
	if err := p.deps.Posts.Upsert(ctx, doc); err != nil {
		return wrapStep("save post", err)
	}

	handoff := TodayData{
		Slug:             doc.Slug,
		Title:            doc.Title,
		ThumbnailURL:     upload.URL,
		InstagramCaption: transform.InstagramCaption(doc),
		ThreadsChain:     transform.ThreadsChain(doc, post.URL(p.opts.SiteURL, doc.Slug)),
		PublishedDate:    today,
	}
	if err := kv.PutJSON(ctx, p.deps.KV, todayNamespace, todayKey, handoff, 0); err != nil {
		return wrapStep("save today data", err)
	}

	if p.deps.Deploy == nil {
		return nil
	}
	if err := p.sleep(ctx, p.opts.DeployDelay); err != nil {
		return err
	}
	id, ok, err := p.deps.Deploy.Trigger(ctx)
	if err != nil {
		return wrapStep("trigger deploy", err)
	}
	if !ok {
		log.Warn("deploy hook not configured, skipping rebuild")
	}
	res.DeployID = id
	return nil
}

// heroImage generates the hero image, falling back to an unused archive image when
// generation fails and an archive is configured.
func (p *Pipeline) heroImage(ctx context.Context, doc *post.Post, log *zap.Logger) (string, string, *archive.Image, error) {
	img, genErr := p.deps.Generator.GenerateImage(ctx, diversify.ImagePrompt(doc.Slug, doc.Title))
	if genErr == nil {
		return img.Base64, img.MIMEType, nil, nil
	}
	if p.deps.Archive == nil {
		return "", "", nil, wrapStep("generate image", genErr)
	}
	log.Warn("image generation failed, using archive", zap.Error(genErr))

	picked, err := p.deps.Archive.Select(ctx, archive.ChannelBlog)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate image: %w; archive fallback: %w", genErr, err)
	}
	b64, mime, err := p.deps.Archive.Fetch(ctx, picked)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate image: %w; archive fallback: %w", genErr, err)
	}
	return b64, mime, picked, nil
}
