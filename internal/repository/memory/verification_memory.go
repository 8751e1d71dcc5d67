// Package memory provides an in-process repository used when no database is configured.
package memory

import (
	"context"
	"sync"

	"docverify/internal/model"
	"docverify/internal/repository"
)

// VerificationMemory keeps records in a map guarded by a mutex.
type VerificationMemory struct {
	mu      sync.RWMutex
	records map[string]model.VerificationRecord
}

// NewVerificationMemory creates an empty in-memory repository.
func NewVerificationMemory() *VerificationMemory {
	return &VerificationMemory{records: make(map[string]model.VerificationRecord)}
}

var _ repository.VerificationRepository = (*VerificationMemory)(nil)

func (s *VerificationMemory) Save(ctx context.Context, rec *model.VerificationRecord) (*model.VerificationRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.records[rec.ID]
	if !exists {
		stored = clone(*rec)
		s.records[rec.ID] = stored
	}
	out := clone(stored)
	return &out, !exists, nil
}

func (s *VerificationMemory) FindByID(ctx context.Context, id string) (*model.VerificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clone(rec)
	return &out, nil
}

// clone copies the map and slice so callers cannot mutate stored state.
func clone(rec model.VerificationRecord) model.VerificationRecord {
	fields := make(model.ExtractedFields, len(rec.ExtractedFields))
	for k, v := range rec.ExtractedFields {
		fields[k] = v
	}
	rec.ExtractedFields = fields
	rec.Checks = append([]model.RuleResult{}, rec.Checks...)
	return rec
}
