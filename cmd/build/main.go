package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/zcheck/blogpipe/internal/config"
	"github.com/zcheck/blogpipe/internal/site"
	"github.com/zcheck/blogpipe/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var remote *site.RemoteSource
	if cfg.Site.ContentAPIURL != "" {
		remote = site.NewRemoteSource(cfg.Site.ContentAPIURL, nil)
	}
	posts, err := site.LoadAll(ctx, cfg.Site.ContentDir, remote)
	if err != nil && remote != nil {
		// the content store being down should not block a rebuild of local posts
		logger.Warnf("%v; building local posts only", err)
		posts, err = site.LoadAll(ctx, cfg.Site.ContentDir, nil)
	}
	if err != nil {
		logger.Fatalf("load posts: %v", err)
	}

	b, err := site.NewBuilder(site.Config{
		SiteURL:     cfg.Site.URL,
		DistDir:     cfg.Site.DistDir,
		PublicDir:   cfg.Site.PublicDir,
		TemplateDir: cfg.Site.TemplateDir,
	})
	if err != nil {
		logger.Fatalf("templates: %v", err)
	}
	res, err := b.Build(ctx, posts)
	if err != nil {
		logger.Fatalf("build: %v", err)
	}
	logger.Infof("built %d pages and %d images into %s", res.Pages, res.Images, cfg.Site.DistDir)
}
