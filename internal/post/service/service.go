package service

import (
	"context"
	"errors"

	"github.com/zcheck/blogpipe/internal/post"
	"github.com/zcheck/blogpipe/internal/post/repository"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound = errors.New("not found")
)

// Service defines the content-store operations used by the handler layer and the pipeline.
type Service interface {
	Upsert(ctx context.Context, p *post.Post) error
	Get(ctx context.Context, slug string) (*post.Post, error)
	List(ctx context.Context) ([]*post.Post, error)
	Delete(ctx context.Context, slug string) error
	Slugs(ctx context.Context) ([]string, error)
}

type repo interface {
	Upsert(ctx context.Context, p *post.Post) error
	Get(ctx context.Context, slug string) (*post.Post, error)
	List(ctx context.Context) ([]*post.Post, error)
	Delete(ctx context.Context, slug string) error
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return &postService{repo: repository.NewMemoryRepo()}
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(ctx context.Context, col *mongo.Collection) (Service, error) {
	r, err := repository.NewMongoRepo(ctx, col)
	if err != nil {
		return nil, err
	}
	return &postService{repo: r}, nil
}

type postService struct {
	repo repo
}

func (s *postService) Upsert(ctx context.Context, p *post.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Category = post.NormalizeCategory(string(p.Category))
	if p.ReadTime == "" {
		p.ReadTime = post.ReadTime(p)
	}
	return s.repo.Upsert(ctx, p)
}

func (s *postService) Get(ctx context.Context, slug string) (*post.Post, error) {
	p, err := s.repo.Get(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *postService) List(ctx context.Context) ([]*post.Post, error) {
	return s.repo.List(ctx)
}

func (s *postService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.Delete(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Slugs lists the slug of every stored post.
func (s *postService) Slugs(ctx context.Context) ([]string, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.Slug)
	}
	return out, nil
}
