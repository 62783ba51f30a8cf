package memory

import (
	"context"
	"sync"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

// ConfigRepository implements domain.ConfigRepository with in-memory storage
type ConfigRepository struct {
	mu     sync.RWMutex
	record domain.Record
	stored bool
}

// NewConfigRepository creates an empty in-memory repository
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

// SaveConfig replaces the stored record
func (r *ConfigRepository) SaveConfig(ctx context.Context, rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.record = rec
	r.stored = true
	return nil
}

// LoadConfig returns the stored record
func (r *ConfigRepository) LoadConfig(ctx context.Context) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.stored {
		return domain.Record{}, domain.ErrConfigNotFound
	}
	return r.record, nil
}
