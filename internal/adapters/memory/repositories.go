// Package memory holds in-process repositories used when no database is
// configured and by tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/ports"
)

var errInjected = errors.New("injected storage failure")

type Repositories struct {
	Outcomes *OutcomeRepository
	Models   *ModelStore
	Cache    *ModelCache
	Outbox   *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Outcomes: &OutcomeRepository{},
		Models:   &ModelStore{},
		Cache:    &ModelCache{entries: map[string]cachedModel{}},
		Outbox:   &OutboxRepository{records: map[uuid.UUID]ports.OutboxRecord{}},
	}
}

type OutcomeRepository struct {
	mu      sync.Mutex
	records []domain.OutcomeRecord
}

// Save replaces any earlier record for the same content id.
func (r *OutcomeRepository) Save(_ context.Context, record domain.OutcomeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.Features = cloneFeatures(record.Features)
	for i := range r.records {
		if r.records[i].ContentID == record.ContentID {
			r.records[i] = record
			return nil
		}
	}
	r.records = append(r.records, record)
	return nil
}

// ListTrainingRecords returns the newest records first.
func (r *OutcomeRepository) ListTrainingRecords(_ context.Context, limit int) ([]domain.OutcomeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OutcomeRecord, 0, len(r.records))
	for _, rec := range r.records {
		rec.Features = cloneFeatures(rec.Features)
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ModelStore keeps versions in insertion order. The Fail* counters make the
// next n calls of an operation return an error.
type ModelStore struct {
	mu       sync.Mutex
	versions []domain.ModelVersion

	failCreate     int
	failDeactivate int
	failGetActive  int
}

func (s *ModelStore) FailCreate(n int) {
	s.mu.Lock()
	s.failCreate = n
	s.mu.Unlock()
}

func (s *ModelStore) FailDeactivate(n int) {
	s.mu.Lock()
	s.failDeactivate = n
	s.mu.Unlock()
}

func (s *ModelStore) FailGetActive(n int) {
	s.mu.Lock()
	s.failGetActive = n
	s.mu.Unlock()
}

func (s *ModelStore) Create(_ context.Context, version domain.ModelVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate > 0 {
		s.failCreate--
		return errInjected
	}
	for _, v := range s.versions {
		if v.ModelName == version.ModelName && v.Version == version.Version {
			return domain.ErrInvalidInput
		}
	}
	version.Weights = version.Weights.Clone()
	s.versions = append(s.versions, version)
	return nil
}

func (s *ModelStore) DeactivateAllExcept(_ context.Context, modelName, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeactivate > 0 {
		s.failDeactivate--
		return errInjected
	}
	for i := range s.versions {
		if s.versions[i].ModelName == modelName && s.versions[i].Version != version {
			s.versions[i].Active = false
		}
	}
	return nil
}

// GetActive returns the newest active version, or nil when none is active.
func (s *ModelStore) GetActive(_ context.Context, modelName string) (*domain.ModelVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetActive > 0 {
		s.failGetActive--
		return nil, errInjected
	}
	for i := len(s.versions) - 1; i >= 0; i-- {
		v := s.versions[i]
		if v.ModelName == modelName && v.Active {
			v.Weights = v.Weights.Clone()
			return &v, nil
		}
	}
	return nil, nil
}

func (s *ModelStore) List(_ context.Context, modelName string, limit int) ([]domain.ModelVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ModelVersion, 0, len(s.versions))
	for i := len(s.versions) - 1; i >= 0; i-- {
		v := s.versions[i]
		if v.ModelName != modelName {
			continue
		}
		v.Weights = v.Weights.Clone()
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ActiveCount reports how many versions of modelName are flagged active.
func (s *ModelStore) ActiveCount(modelName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.versions {
		if v.ModelName == modelName && v.Active {
			n++
		}
	}
	return n
}

type cachedModel struct {
	version   domain.ModelVersion
	expiresAt time.Time
}

type ModelCache struct {
	mu      sync.Mutex
	entries map[string]cachedModel
}

func (c *ModelCache) PutActive(_ context.Context, version domain.ModelVersion, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	version.Weights = version.Weights.Clone()
	c.entries[version.ModelName] = cachedModel{version: version, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *ModelCache) GetActive(_ context.Context, modelName string) (*domain.ModelVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[modelName]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, modelName)
		return nil, nil
	}
	v := entry.version
	v.Weights = v.Weights.Clone()
	return &v, nil
}

type OutboxRepository struct {
	mu      sync.Mutex
	order   []uuid.UUID
	records map[uuid.UUID]ports.OutboxRecord
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[event.EventID]; ok {
		return nil
	}
	r.records[event.EventID] = ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		FirstSeenAt:  event.OccurredAt,
	}
	r.order = append(r.order, event.EventID)
	return nil
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit, maxRetries int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		rec := r.records[id]
		if rec.PublishedAt != nil || (maxRetries > 0 && rec.RetryCount >= maxRetries) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.PublishedAt = &at
	rec.LastError = nil
	r.records[outboxID] = rec
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, errMsg string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.RetryCount++
	rec.LastError = &errMsg
	r.records[outboxID] = rec
	return nil
}

// EventTypes lists enqueued event types in order.
func (r *OutboxRepository) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id].EventType)
	}
	return out
}

func cloneFeatures(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
