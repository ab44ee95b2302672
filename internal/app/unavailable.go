package app

import (
	"context"
	"errors"

	"github.com/zcheck/blogpipe/internal/generator"
	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/storage"
	"github.com/zcheck/blogpipe/internal/topics"
)

var errStorageDisabled = errors.New("MINIO_ENDPOINT not configured")

// unavailable stands in for a collaborator whose credentials are missing, so the job
// fails at the step that needs it with the configuration error.
type unavailable struct {
	err error
}

func (u unavailable) GeneratePost(context.Context, topics.Topic) (*post.Post, error) {
	return nil, u.err
}

func (u unavailable) GenerateImage(context.Context, string) (*generator.Image, error) {
	return nil, u.err
}

func (u unavailable) UploadImage(context.Context, string, string, string) (*storage.Upload, error) {
	return nil, u.err
}
