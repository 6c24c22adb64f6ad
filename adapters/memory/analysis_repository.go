package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"relialab/domain/core"
	"relialab/domain/lifedata"
	"relialab/ports"
)

// AnalysisRepository keeps analyses in process memory. It is used when no
// database is configured and in tests.
type AnalysisRepository struct {
	mu       sync.RWMutex
	analyses map[core.AnalysisID]*lifedata.Analysis
}

var _ ports.AnalysisRepository = (*AnalysisRepository)(nil)

// NewAnalysisRepository creates an empty in-memory repository
func NewAnalysisRepository() *AnalysisRepository {
	return &AnalysisRepository{analyses: make(map[core.AnalysisID]*lifedata.Analysis)}
}

func (r *AnalysisRepository) Save(_ context.Context, a *lifedata.Analysis) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("analysis must have an ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[a.ID] = clone(a)
	return nil
}

func (r *AnalysisRepository) Get(_ context.Context, id core.AnalysisID) (*lifedata.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
	}
	return clone(a), nil
}

// List returns analyses newest first, ties ordered by ID
func (r *AnalysisRepository) List(_ context.Context, limit, offset int) ([]*lifedata.Analysis, error) {
	r.mu.RLock()
	all := make([]*lifedata.Analysis, 0, len(r.analyses))
	for _, a := range r.analyses {
		all = append(all, clone(a))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []*lifedata.Analysis{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *AnalysisRepository) Delete(_ context.Context, id core.AnalysisID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.analyses[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
	}
	delete(r.analyses, id)
	return nil
}

func (r *AnalysisRepository) SaveOverrides(_ context.Context, id core.AnalysisID, overrides map[string]float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrAnalysisNotFound, id)
	}
	a.Overrides = copyValues(overrides)
	return nil
}

// clone copies the mutable parts so callers cannot alias stored state
func clone(a *lifedata.Analysis) *lifedata.Analysis {
	c := *a
	c.Sample = lifedata.Sample{
		Failures:    append([]float64(nil), a.Sample.Failures...),
		Suspensions: append([]float64(nil), a.Sample.Suspensions...),
	}
	c.Overrides = copyValues(a.Overrides)
	if a.Model.Plot != nil {
		plot := *a.Model.Plot
		plot.Points = append([]lifedata.XY(nil), a.Model.Plot.Points...)
		c.Model.Plot = &plot
	}
	return &c
}

func copyValues(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
