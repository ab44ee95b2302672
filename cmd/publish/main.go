// Command publish runs one pipeline job and exits, for OS schedulers:
//
//	publish auto-generate
//	publish publish-social
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zcheck/blogpipe/internal/app"
	"github.com/zcheck/blogpipe/internal/config"
	"github.com/zcheck/blogpipe/internal/pipeline"
	"github.com/zcheck/blogpipe/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger.Init(os.Getenv("LOG_LEVEL"))
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: publish <%s|%s>\n", pipeline.JobAutoGenerate, pipeline.JobPublishSocial)
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Errorf("failed to initialize: %v", err)
		return 1
	}
	defer a.Close(context.Background())

	var res any
	switch args[0] {
	case pipeline.JobAutoGenerate:
		res, err = a.Pipeline.AutoGenerate(ctx)
	case pipeline.JobPublishSocial:
		res, err = a.Pipeline.PublishSocial(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown job %q\n", args[0])
		return 2
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if err != nil {
		logger.Errorf("%s failed: %v", args[0], err)
		return 1
	}
	return 0
}
