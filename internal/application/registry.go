package application

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/viralforge/mesh/services/data-ai/M56-predictive-analytics/internal/domain"
)

// ActiveModel is an immutable snapshot of the weights serving predictions.
// Nothing may write to Weights after the snapshot is published.
type ActiveModel struct {
	ModelName   string
	Version     string
	Weights     domain.WeightVector
	Performance domain.Performance
	AdoptedAt   time.Time
}

func defaultActiveModel(modelName string) *ActiveModel {
	return &ActiveModel{
		ModelName: modelName,
		Version:   domain.DefaultModelVersion,
		Weights:   domain.DefaultWeights(),
	}
}

func activeFromVersion(v domain.ModelVersion) *ActiveModel {
	return &ActiveModel{
		ModelName:   v.ModelName,
		Version:     v.Version,
		Weights:     v.Weights.Clone(),
		Performance: v.Performance,
		AdoptedAt:   v.CreatedAt,
	}
}

// Registry holds the active model per name. Readers get a whole snapshot;
// Publish swaps it with a single pointer store.
type Registry struct {
	mu    sync.RWMutex
	slots map[string]*atomic.Pointer[ActiveModel]
}

func NewRegistry() *Registry {
	return &Registry{slots: map[string]*atomic.Pointer[ActiveModel]{}}
}

// Load returns the active snapshot for modelName, or the default weights if
// nothing has been adopted yet.
func (r *Registry) Load(modelName string) *ActiveModel {
	if model := r.slot(modelName).Load(); model != nil {
		return model
	}
	return defaultActiveModel(modelName)
}

func (r *Registry) Publish(model *ActiveModel) {
	if model == nil {
		return
	}
	r.slot(model.ModelName).Store(model)
}

func (r *Registry) slot(modelName string) *atomic.Pointer[ActiveModel] {
	r.mu.RLock()
	slot, ok := r.slots[modelName]
	r.mu.RUnlock()
	if ok {
		return slot
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok = r.slots[modelName]; ok {
		return slot
	}
	slot = &atomic.Pointer[ActiveModel]{}
	r.slots[modelName] = slot
	return slot
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*sync.Mutex{}}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}
