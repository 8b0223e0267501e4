package store

import (
	"context"
	"sync"

	"github.com/shandysiswandi/goferry/internal/ferry/entity"
	"github.com/shandysiswandi/goferry/internal/ferry/usecase"
	"github.com/shandysiswandi/goferry/internal/pkg/pkgerror"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*runRecord
}

type runRecord struct {
	mu       sync.RWMutex
	meta     entity.RunMeta
	results  []entity.TransferResult
	progress entity.ProgressEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]*runRecord),
	}
}

func (s *InMemoryStore) CreateRun(ctx context.Context, meta entity.RunMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[meta.ID]; exists {
		return pkgerror.NewBusiness("transfer run already exists", pkgerror.CodeConflict)
	}

	s.runs[meta.ID] = &runRecord{
		meta: meta,
	}

	return nil
}

func (s *InMemoryStore) UpdateMeta(ctx context.Context, runID string, fn func(meta *entity.RunMeta)) error {
	rec, err := s.get(runID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	fn(&rec.meta)

	return nil
}

func (s *InMemoryStore) AppendResults(ctx context.Context, runID string, results ...entity.TransferResult) error {
	rec, err := s.get(runID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.results = append(rec.results, results...)

	return nil
}

// SetProgress keeps only the latest event per run; status polling reads it
// back alongside the meta.
func (s *InMemoryStore) SetProgress(ctx context.Context, event entity.ProgressEvent) error {
	rec, err := s.get(event.RunID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.progress = event

	return nil
}

func (s *InMemoryStore) GetRun(ctx context.Context, runID string) (entity.RunMeta, entity.ProgressEvent, error) {
	rec, err := s.get(runID)
	if err != nil {
		return entity.RunMeta{}, entity.ProgressEvent{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.meta, rec.progress, nil
}

func (s *InMemoryStore) ListResults(ctx context.Context, runID string, filter usecase.ResultFilter, page, pageSize int) ([]entity.TransferResult, int, entity.RunMeta, error) {
	rec, err := s.get(runID)
	if err != nil {
		return nil, 0, entity.RunMeta{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	total := 0
	start := (page - 1) * pageSize
	end := start + pageSize
	items := make([]entity.TransferResult, 0, pageSize)

	for _, result := range rec.results {
		if !filter.Matches(result) {
			continue
		}

		if total >= start && total < end {
			items = append(items, result)
		}
		total++
	}

	return items, total, rec.meta, nil
}

func (s *InMemoryStore) get(runID string) (*runRecord, error) {
	s.mu.RLock()
	rec, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}
