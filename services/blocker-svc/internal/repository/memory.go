package repository

import (
	"context"
	"sort"
	"sync"

	"netblock/pkg/domain"
)

// MemoryRunRepository история в памяти процесса, когда база отключена
type MemoryRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryRunRepository создаёт пустое хранилище
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: make(map[string]*Run)}
}

func (r *MemoryRunRepository) Save(ctx context.Context, run *Run) error {
	if _, err := prepareRun(run); err != nil {
		return err
	}

	r.mu.Lock()
	r.runs[run.ID] = cloneRun(run)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRunRepository) Get(ctx context.Context, id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound(id)
	}
	return cloneRun(run), nil
}

func (r *MemoryRunRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	r.mu.RLock()
	runs := make([]*Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, cloneRun(run))
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})

	if limit = clampLimit(limit); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func cloneRun(run *Run) *Run {
	out := *run
	out.Blocked = make([]domain.LinkKey, len(run.Blocked))
	copy(out.Blocked, run.Blocked)
	if run.Cost != nil {
		cost := *run.Cost
		out.Cost = &cost
	}
	return &out
}
