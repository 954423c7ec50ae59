package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"report-backend/internal/queue"
	"report-backend/internal/reports/builder"
	"report-backend/internal/reports/variants"
	"report-backend/internal/shared/storage/object"
)

var testNow = time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)

const sampleAssessment = `{
  "overallScore": 58,
  "scoresByCategory": {"TIN": 30, "OPS": 64, "RSK": 72, "MKT": 55},
  "categoryDetails": {
    "TIN": {
      "score": 30,
      "strengths": ["Cloud email"],
      "weaknesses": ["No backups"],
      "recommendations": [{"title": "Upgrade firewall", "description": "Replace the consumer router.", "estimatedImpact": "high"}]
    }
  }
}`

func sampleInput() GenerateInput {
	return GenerateInput{
		SubjectName: "Acme Corp",
		Variant:     "technology",
		Assessment:  json.RawMessage(sampleAssessment),
	}
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]string{}}
}

func (m *memStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if m.putErr != nil {
		return 0, m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)
	return int64(len(data)), nil
}

func (m *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

var _ object.ObjectStore = (*memStore)(nil)

type fakeQueue struct {
	mu   sync.Mutex
	sent []queue.Message
	err  error
}

func (f *fakeQueue) Send(ctx context.Context, msg queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type builderFunc func(ctx context.Context, req builder.Request) (builder.Output, error)

func (f builderFunc) Build(ctx context.Context, req builder.Request) (builder.Output, error) {
	return f(ctx, req)
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("r-%d", atomic.AddInt64(&n, 1))
	}
}

func newTestService() (*Service, *MemoryRepo, *memStore) {
	repo := NewMemoryRepo()
	store := newMemStore()
	clock := func() time.Time { return testNow }
	svc := &Service{
		Repo:    repo,
		Store:   store,
		Catalog: variants.Builtin(),
		Builder: &builder.Builder{Catalog: variants.Builtin(), Clock: clock},
		Clock:   clock,
		NewID:   sequentialIDs(),
	}
	return svc, repo, store
}
