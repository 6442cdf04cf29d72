package appraisals

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository keeps appraisals in process memory. It backs the service
// when no database is configured.
type MemoryRepository struct {
	mu         sync.RWMutex
	appraisals map[string]Appraisal
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appraisals: make(map[string]Appraisal)}
}

func (r *MemoryRepository) Create(ctx context.Context, appraisal *Appraisal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appraisals[appraisal.ID.String()] = *appraisal
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Appraisal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appraisals[strings.ToLower(id)]
	if !ok {
		return nil, ErrAppraisalNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) List(ctx context.Context, filters ListFilters) ([]Appraisal, int64, error) {
	r.mu.RLock()
	matched := make([]Appraisal, 0, len(r.appraisals))
	for _, a := range r.appraisals {
		if filters.Category != "" && a.Category != string(filters.Category) {
			continue
		}
		if filters.State != "" && !strings.EqualFold(a.State, filters.State) {
			continue
		}
		if filters.City != "" && !strings.EqualFold(a.City, filters.City) {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		matched = append(matched, a)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filters.Page - 1) * filters.PageSize
	if start >= len(matched) {
		return []Appraisal{}, total, nil
	}
	end := start + filters.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}
