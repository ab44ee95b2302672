package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/internal/notify"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/social"
	"github.com/zcheck/blogpipe/pkg/logger"
	"github.com/zcheck/blogpipe/pkg/metrics"
	"go.uber.org/zap"
)

// SocialResult describes one publish-social run.
type SocialResult struct {
	RunID     string         `json:"run_id"`
	Status    string         `json:"status"`
	Date      string         `json:"date"`
	Slug      string         `json:"slug,omitempty"`
	Instagram *social.Result `json:"instagram,omitempty"`
	Threads   *social.Result `json:"threads,omitempty"`
}

func markerKey(slug, date string) string {
	return slug + ":" + date
}

// PublishSocial posts today's handoff record to Instagram and then Threads. A channel failure
// does not stop the other. The published marker is written right after the first successful
// channel and prevents a second publish of the same slug on the same KST date. When the run is
// interrupted between channels the result, run record and notification still report it.
func (p *Pipeline) PublishSocial(ctx context.Context) (*SocialResult, error) {
	run := p.startRun(ctx, JobPublishSocial)
	today := p.todayKST()
	res := &SocialResult{RunID: run.RunID, Date: today}
	log := logger.L().With(zap.String("job", JobPublishSocial), zap.String("run_id", run.RunID))

	data, err := p.Today(ctx)
	switch {
	case isNotFound(err) || (err == nil && data.Slug == ""):
		log.Info("no content scheduled for today")
		res.Status = StatusNoContent
		p.deps.Notifier.Notify(ctx, fmt.Sprintf("<b>소셜 발행</b>\n%s\n발행 예정 콘텐츠 없음", today))
		p.finishRun(ctx, run, StatusNoContent, nil)
		return res, nil
	case err != nil:
		err = wrapStep("read today data", err)
		res.Status = StatusFailed
		p.deps.Notifier.Notify(ctx, fmt.Sprintf("<b>소셜 발행</b>\n%s\n오늘 데이터 조회 실패: %s", today, notify.Escape(err.Error())))
		p.finishRun(ctx, run, StatusFailed, err)
		return res, err
	}
	res.Slug = data.Slug
	run.Slug = data.Slug
	log = log.With(zap.String("slug", data.Slug))

	marker := markerKey(data.Slug, today)
	if _, err := p.deps.KV.Get(ctx, publishedNamespace, marker); err == nil {
		log.Info("already published today")
		res.Status = StatusAlreadyPublished
		p.deps.Notifier.Notify(ctx, fmt.Sprintf("<b>소셜 발행</b>\n%s\n이미 발행됨: %s", today, data.Slug))
		p.finishRun(ctx, run, StatusAlreadyPublished, nil)
		return res, nil
	} else if !isNotFound(err) {
		log.Warn("published marker check failed, continuing", zap.Error(err))
	}

	// The marker goes in as soon as one channel succeeds so an interrupted run is not reposted.
	marked := false
	markPublished := func() {
		if err := kv.PutJSON(context.WithoutCancel(ctx), p.deps.KV, publishedNamespace, marker, res, p.opts.MarkerTTL); err != nil {
			log.Warn("write published marker", zap.Error(err))
			return
		}
		marked = true
	}

	ig := p.publishInstagram(ctx, data)
	res.Instagram = &ig
	record(ig, log)
	if ig.Success {
		res.Status = StatusOK
		markPublished()
	}

	var (
		th     social.Result
		runErr error
	)
	if !ig.Skipped() {
		if err := p.sleep(ctx, p.opts.ChannelGap); err != nil {
			runErr = wrapStep("wait before threads", err)
		}
	}
	if runErr != nil {
		th = social.Result{Channel: social.ChannelThreads, Error: runErr.Error()}
	} else {
		th = p.publishThreads(ctx, data)
	}
	res.Threads = &th
	record(th, log)

	res.Status = StatusFailed
	if ig.Success || th.Success {
		res.Status = StatusOK
		// rewrite so the marker carries both channel results
		markPublished()
	}

	title := data.Title
	if title == "" {
		title = data.Slug
	}
	msg := fmt.Sprintf("<b>소셜 자동 발행</b>\n\n<b>%s</b>\n%s\n\nInstagram: %s\nThreads: %s",
		notify.Escape(title), post.URL(p.opts.SiteURL, data.Slug), mark(ig), mark(th))
	if runErr != nil {
		msg += "\n\n중단됨: " + notify.Escape(runErr.Error())
	}
	p.deps.Notifier.Notify(context.WithoutCancel(ctx), msg)

	run.Details = map[string]any{"instagram": ig, "threads": th, "marked": marked}
	p.finishRun(ctx, run, res.Status, runErr)
	return res, runErr
}

func (p *Pipeline) publishInstagram(ctx context.Context, data *TodayData) social.Result {
	r := social.Result{Channel: social.ChannelInstagram}
	if p.deps.Instagram == nil {
		r.Reason = social.ReasonNotConfigured
		return r
	}
	imageURL := post.AbsoluteURL(p.opts.SiteURL, strings.TrimSpace(data.ThumbnailURL))
	if imageURL == "" {
		r.Reason = social.ReasonNoImage
		return r
	}
	id, err := p.deps.Instagram.Publish(ctx, imageURL, data.InstagramCaption)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Success, r.ID = true, id
	return r
}

func (p *Pipeline) publishThreads(ctx context.Context, data *TodayData) social.Result {
	r := social.Result{Channel: social.ChannelThreads}
	if p.deps.Threads == nil {
		r.Reason = social.ReasonNotConfigured
		return r
	}
	if len(data.ThreadsChain) == 0 {
		r.Reason = social.ReasonNoChain
		return r
	}
	id, err := p.deps.Threads.PublishChain(ctx, data.ThreadsChain)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Success, r.ID = true, id
	return r
}

func record(r social.Result, log *zap.Logger) {
	outcome := "failed"
	switch {
	case r.Success:
		outcome = "success"
		log.Info("social published", zap.String("channel", r.Channel), zap.String("id", r.ID))
	case r.Skipped():
		outcome = "skipped"
		log.Info("social channel skipped", zap.String("channel", r.Channel), zap.String("reason", r.Reason))
	default:
		log.Error("social publish failed", zap.String("channel", r.Channel), zap.String("error", r.Error))
	}
	metrics.SocialPublishes.WithLabelValues(r.Channel, outcome).Inc()
}

func mark(r social.Result) string {
	switch {
	case r.Success:
		return "✅"
	case r.Skipped():
		return "❌ (" + r.Reason + ")"
	}
	return "❌"
}
