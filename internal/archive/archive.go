// Package archive picks pre-approved stock images that a channel has not used yet.
//
// The catalog (images/metadata.json) lives in blob storage next to the image files. Usage
// is tracked in a manifest kept in the kv store; a missing manifest is rebuilt from the catalog.
package archive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"slices"
	"sort"
	"time"

	"github.com/zcheck/blogpipe/internal/kv"
	"github.com/zcheck/blogpipe/pkg/logger"
	"go.uber.org/zap"
)

const (
	CatalogKey  = "images/metadata.json"
	ImagePrefix = "images/webp/"
	ImageMIME   = "image/webp"

	StatusApproved = "approved"

	ChannelBlog = "blog"

	manifestNamespace = "archive"
	manifestKey       = "manifest"
	topN              = 5
)

var ErrNoApprovedImages = errors.New("no approved archive images")

// ObjectReader reads a whole object from blob storage.
type ObjectReader interface {
	ReadObject(ctx context.Context, key string) ([]byte, error)
}

type Entry struct {
	Filename     string   `json:"filename"`
	Status       string   `json:"status"`
	UsedIn       []string `json:"used_in"`
	QualityScore float64  `json:"quality_score"`
}

type Manifest struct {
	LastSynced time.Time         `json:"last_synced"`
	Images     map[string]*Entry `json:"images"`
}

type catalogEntry struct {
	ID           string   `json:"id"`
	Filename     string   `json:"filename"`
	Status       string   `json:"status"`
	UsedIn       []string `json:"used_in"`
	QualityScore float64  `json:"quality_score"`
}

// Image is a selected archive image.
type Image struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type Archive struct {
	store   kv.Store
	objects ObjectReader
	now     func() time.Time
	intn    func(int) int
}

func New(store kv.Store, objects ObjectReader) *Archive {
	return &Archive{store: store, objects: objects, now: time.Now, intn: rand.IntN}
}

// Manifest returns the stored manifest, syncing it from the catalog when absent.
func (a *Archive) Manifest(ctx context.Context) (*Manifest, error) {
	var m Manifest
	err := kv.GetJSON(ctx, a.store, manifestNamespace, manifestKey, &m)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return a.Sync(ctx)
	case err != nil:
		return nil, fmt.Errorf("read archive manifest: %w", err)
	}
	if m.Images == nil {
		m.Images = map[string]*Entry{}
	}
	for id, e := range m.Images {
		if e == nil {
			delete(m.Images, id)
			continue
		}
		if e.UsedIn == nil {
			e.UsedIn = []string{}
		}
	}
	return &m, nil
}

// Sync rebuilds the manifest from the catalog, taking usage from the catalog entries.
func (a *Archive) Sync(ctx context.Context) (*Manifest, error) {
	b, err := a.objects.ReadObject(ctx, CatalogKey)
	if err != nil {
		return nil, fmt.Errorf("read archive catalog: %w", err)
	}
	var catalog struct {
		Images []catalogEntry `json:"images"`
	}
	if err := json.Unmarshal(b, &catalog); err != nil {
		return nil, fmt.Errorf("decode archive catalog: %w", err)
	}

	m := &Manifest{LastSynced: a.now().UTC(), Images: make(map[string]*Entry, len(catalog.Images))}
	for _, img := range catalog.Images {
		if img.ID == "" {
			continue
		}
		used := img.UsedIn
		if used == nil {
			used = []string{}
		}
		m.Images[img.ID] = &Entry{Filename: img.Filename, Status: img.Status, UsedIn: used, QualityScore: img.QualityScore}
	}
	if err := a.save(ctx, m); err != nil {
		return nil, err
	}
	logger.L().Info("archive manifest synced", zap.Int("images", len(m.Images)))
	return m, nil
}

// Select picks an approved image unused on channel: highest quality first, random among the top five.
// When the channel has used every approved image its markers are cleared and selection starts over.
func (a *Archive) Select(ctx context.Context, channel string) (*Image, error) {
	m, err := a.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	candidates := unused(m, channel)
	if len(candidates) == 0 {
		reset := false
		for _, e := range m.Images {
			if slices.Contains(e.UsedIn, channel) {
				e.UsedIn = slices.DeleteFunc(e.UsedIn, func(c string) bool { return c == channel })
				reset = true
			}
		}
		if reset {
			logger.L().Info("archive channel exhausted, resetting", zap.String("channel", channel))
			if err := a.save(ctx, m); err != nil {
				return nil, err
			}
		}
		candidates = unused(m, channel)
	}
	if len(candidates) == 0 {
		return nil, ErrNoApprovedImages
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		qi, qj := m.Images[candidates[i]].QualityScore, m.Images[candidates[j]].QualityScore
		if qi != qj {
			return qi > qj
		}
		return candidates[i] < candidates[j]
	})
	top := candidates[:min(topN, len(candidates))]
	id := top[a.intn(len(top))]
	return &Image{ID: id, Filename: m.Images[id].Filename}, nil
}

// MarkUsed records that channel used image id. Unknown ids are ignored.
func (a *Archive) MarkUsed(ctx context.Context, id, channel string) error {
	m, err := a.Manifest(ctx)
	if err != nil {
		return err
	}
	e, ok := m.Images[id]
	if !ok || slices.Contains(e.UsedIn, channel) {
		return nil
	}
	e.UsedIn = append(e.UsedIn, channel)
	return a.save(ctx, m)
}

// Fetch downloads the image file and returns it base64 encoded.
func (a *Archive) Fetch(ctx context.Context, img *Image) (b64, mimeType string, err error) {
	b, err := a.objects.ReadObject(ctx, path.Join(ImagePrefix, img.Filename))
	if err != nil {
		return "", "", fmt.Errorf("download archive image %s: %w", img.Filename, err)
	}
	return base64.StdEncoding.EncodeToString(b), ImageMIME, nil
}

func (a *Archive) save(ctx context.Context, m *Manifest) error {
	if err := kv.PutJSON(ctx, a.store, manifestNamespace, manifestKey, m, 0); err != nil {
		return fmt.Errorf("write archive manifest: %w", err)
	}
	return nil
}

func unused(m *Manifest, channel string) []string {
	var ids []string
	for id, e := range m.Images {
		if e.Status == StatusApproved && !slices.Contains(e.UsedIn, channel) {
			ids = append(ids, id)
		}
	}
	return ids
}
