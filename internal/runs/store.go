// Package runs keeps the outcome of each pipeline run so a scheduler failure can be inspected later.
package runs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("run not found")

// Run is the persisted record of one auto-generate or publish-social invocation.
type Run struct {
	RunID      string         `bson:"runId" json:"run_id"`
	Job        string         `bson:"job" json:"job"`
	Status     string         `bson:"status" json:"status"`
	Slug       string         `bson:"slug,omitempty" json:"slug,omitempty"`
	Error      string         `bson:"error,omitempty" json:"error,omitempty"`
	Details    map[string]any `bson:"details,omitempty" json:"details,omitempty"`
	StartedAt  time.Time      `bson:"startedAt" json:"started_at"`
	FinishedAt time.Time      `bson:"finishedAt" json:"finished_at"`
}

type Store interface {
	Save(ctx context.Context, r *Run) error
	Load(ctx context.Context, runID string) (*Run, error)
	Recent(ctx context.Context, limit int) ([]*Run, error)
}

// MongoStore upserts runs into a collection keyed by runId.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(ctx context.Context, col *mongo.Collection) (*MongoStore, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "runId", Value: 1}}, Options: options.Index().SetUnique(true)}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create run index: %w", err)
	}
	return &MongoStore{col: col}, nil
}

func (m *MongoStore) Save(ctx context.Context, r *Run) error {
	filter := bson.M{"runId": r.RunID}
	if _, err := m.col.UpdateOne(ctx, filter, bson.M{"$set": r}, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (m *MongoStore) Load(ctx context.Context, runID string) (*Run, error) {
	var r Run
	if err := m.col.FindOne(ctx, bson.M{"runId": runID}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (m *MongoStore) Recent(ctx context.Context, limit int) ([]*Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Run{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryStore keeps runs in process.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string]Run{}}
}

func (m *MemoryStore) Save(_ context.Context, r *Run) error {
	m.mu.Lock()
	m.runs[r.RunID] = *r
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, runID string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]*Run, error) {
	m.mu.RLock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		r := r
		out = append(out, &r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
