// Package topics supplies the next content topic for a generation run.
package topics

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/zcheck/blogpipe/internal/kv"
)

var ErrNoTopics = errors.New("no topics available")

const (
	queueNamespace = "topics"
	queueKey       = "queue"
)

// Topic is a keyword with an optional preassigned slug.
type Topic struct {
	Keyword string `json:"keyword"`
	Slug    string `json:"slug,omitempty"`
}

// Source hands out topics. A topic returned by Next is consumed even if the run later fails.
type Source interface {
	Next(ctx context.Context) (Topic, error)
}

// Queue is a keyword list persisted in the kv store.
type Queue struct {
	store kv.Store
}

func NewQueue(store kv.Store) *Queue {
	return &Queue{store: store}
}

// List returns the queued keywords; an absent queue is empty.
func (q *Queue) List(ctx context.Context) ([]string, error) {
	var list []string
	if err := kv.GetJSON(ctx, q.store, queueNamespace, queueKey, &list); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read topic queue: %w", err)
	}
	return list, nil
}

// Replace overwrites the queue. Blank entries are dropped.
func (q *Queue) Replace(ctx context.Context, list []string) error {
	clean := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	if err := kv.PutJSON(ctx, q.store, queueNamespace, queueKey, clean, 0); err != nil {
		return fmt.Errorf("write topic queue: %w", err)
	}
	return nil
}

// Next removes the head of the queue and writes the remainder back before returning it.
func (q *Queue) Next(ctx context.Context) (Topic, error) {
	list, err := q.List(ctx)
	if err != nil {
		return Topic{}, err
	}
	for len(list) > 0 && strings.TrimSpace(list[0]) == "" {
		list = list[1:]
	}
	if len(list) == 0 {
		return Topic{}, ErrNoTopics
	}
	head := strings.TrimSpace(list[0])
	if err := q.Replace(ctx, list[1:]); err != nil {
		return Topic{}, err
	}
	return Topic{Keyword: head}, nil
}

// SlugsFunc lists slugs that already have a post.
type SlugsFunc func(ctx context.Context) ([]string, error)

// Pool picks at random among fixed topics whose slug has not been published yet.
type Pool struct {
	topics    []Topic
	published SlugsFunc
	intn      func(n int) int
}

// NewPool uses DefaultPool when list is empty.
func NewPool(list []Topic, published SlugsFunc) *Pool {
	if len(list) == 0 {
		list = DefaultPool
	}
	return &Pool{topics: list, published: published, intn: rand.IntN}
}

// Remaining returns the pool topics without a published post.
func (p *Pool) Remaining(ctx context.Context) ([]Topic, error) {
	done := map[string]struct{}{}
	if p.published != nil {
		slugs, err := p.published(ctx)
		if err != nil {
			return nil, fmt.Errorf("list published slugs: %w", err)
		}
		for _, s := range slugs {
			done[s] = struct{}{}
		}
	}
	out := make([]Topic, 0, len(p.topics))
	for _, t := range p.topics {
		if _, ok := done[t.Slug]; !ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *Pool) Next(ctx context.Context) (Topic, error) {
	left, err := p.Remaining(ctx)
	if err != nil {
		return Topic{}, err
	}
	if len(left) == 0 {
		return Topic{}, ErrNoTopics
	}
	return left[p.intn(len(left))], nil
}

// DefaultPool is the built-in topic list.
var DefaultPool = []Topic{
	{Keyword: "아파트 거실 인테리어", Slug: "apartment-living-room-interior"},
	{Keyword: "주방 리모델링 비용", Slug: "kitchen-remodeling-cost"},
	{Keyword: "욕실 리모델링 체크리스트", Slug: "bathroom-remodeling-checklist"},
	{Keyword: "인테리어 견적서 보는 법", Slug: "how-to-read-interior-quote"},
	{Keyword: "인테리어 업체 고르는 법", Slug: "how-to-choose-interior-company"},
	{Keyword: "인테리어 계약서 필수 항목", Slug: "interior-contract-essentials"},
	{Keyword: "인테리어 하자 보수 기간", Slug: "interior-defect-warranty-period"},
	{Keyword: "인테리어 사기 유형", Slug: "interior-fraud-types"},
	{Keyword: "인테리어 중도금 지급 시기", Slug: "interior-interim-payment-timing"},
	{Keyword: "도배 장판 비용", Slug: "wallpaper-flooring-cost"},
	{Keyword: "마루 바닥재 종류", Slug: "wood-flooring-types"},
	{Keyword: "샷시 교체 비용", Slug: "window-frame-replacement-cost"},
	{Keyword: "베란다 확장 장단점", Slug: "balcony-extension-pros-cons"},
	{Keyword: "붙박이장 설치 비용", Slug: "built-in-closet-cost"},
	{Keyword: "조명 인테리어 팁", Slug: "lighting-interior-tips"},
	{Keyword: "신혼집 인테리어", Slug: "newlywed-home-interior"},
	{Keyword: "30평 아파트 인테리어 비용", Slug: "30-pyeong-apartment-interior-cost"},
	{Keyword: "20평 아파트 인테리어", Slug: "20-pyeong-apartment-interior"},
	{Keyword: "오래된 아파트 리모델링", Slug: "old-apartment-remodeling"},
	{Keyword: "부분 인테리어 순서", Slug: "partial-interior-order"},
	{Keyword: "셀프 인테리어 주의사항", Slug: "self-interior-cautions"},
	{Keyword: "인테리어 공사 기간", Slug: "interior-construction-period"},
	{Keyword: "입주 청소 체크리스트", Slug: "move-in-cleaning-checklist"},
	{Keyword: "타일 시공 비용", Slug: "tile-installation-cost"},
	{Keyword: "현관 중문 설치", Slug: "entrance-door-installation"},
}
