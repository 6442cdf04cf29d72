package samples

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"avaliar/appraisal-backend/internal/valuation"
)

// MemoryRepository is a process-local sample store. It backs deployments
// without a database and mirrors the remote store inside FallbackRepository.
type MemoryRepository struct {
	mu      sync.RWMutex
	samples map[string]valuation.Sample
}

// NewMemoryRepository creates a memory repository holding the given samples
func NewMemoryRepository(seed ...valuation.Sample) *MemoryRepository {
	r := &MemoryRepository{samples: make(map[string]valuation.Sample, len(seed))}
	for _, s := range seed {
		r.samples[s.ID] = s
	}
	return r
}

// LoadMemoryRepository reads a JSON array of samples from disk
func LoadMemoryRepository(path string) (*MemoryRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples file: %w", err)
	}
	var seed []valuation.Sample
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse samples file: %w", err)
	}
	return NewMemoryRepository(seed...), nil
}

func (r *MemoryRepository) FilterSamples(ctx context.Context, category valuation.Category, city, state, subtype string) ([]valuation.Sample, error) {
	return r.selectWhere(func(s valuation.Sample) bool {
		return matches(s, category, city, state, subtype)
	}), nil
}

func (r *MemoryRepository) SamplesByCities(ctx context.Context, cities []string, state string, category valuation.Category, subtype string) ([]valuation.Sample, error) {
	wanted := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		wanted[strings.ToLower(c)] = struct{}{}
	}
	return r.selectWhere(func(s valuation.Sample) bool {
		if _, ok := wanted[strings.ToLower(s.City)]; !ok {
			return false
		}
		return matches(s, category, "", state, subtype)
	}), nil
}

func (r *MemoryRepository) Create(ctx context.Context, sample *valuation.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.samples[sample.ID]; exists {
		return fmt.Errorf("sample %s already exists", sample.ID)
	}
	r.samples[sample.ID] = *sample
	return nil
}

func (r *MemoryRepository) CreateBatch(ctx context.Context, samples []valuation.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		if _, exists := r.samples[s.ID]; exists {
			return fmt.Errorf("sample %s already exists", s.ID)
		}
	}
	for _, s := range samples {
		r.samples[s.ID] = s
	}
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*valuation.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.samples[id]
	if !ok {
		return nil, ErrSampleNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) List(ctx context.Context, filters ListFilters) ([]valuation.Sample, int, error) {
	filters = filters.normalize()
	all := r.selectWhere(func(s valuation.Sample) bool {
		if filters.Category != "" && s.Category != filters.Category {
			return false
		}
		if filters.State != "" && !strings.EqualFold(s.State, filters.State) {
			return false
		}
		if filters.City != "" && !strings.EqualFold(s.City, filters.City) {
			return false
		}
		return filters.Subtype == "" || strings.EqualFold(s.Subtype, filters.Subtype)
	})

	start := (filters.Page - 1) * filters.PageSize
	if start >= len(all) {
		return []valuation.Sample{}, len(all), nil
	}
	end := start + filters.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.samples[id]; !ok {
		return ErrSampleNotFound
	}
	delete(r.samples, id)
	return nil
}

func (r *MemoryRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.samples {
		if s.Date.Before(cutoff) {
			delete(r.samples, id)
			n++
		}
	}
	return n, nil
}

// selectWhere returns matching samples newest first, ties broken by ID, the
// same order the Postgres repository uses.
func (r *MemoryRepository) selectWhere(keep func(valuation.Sample) bool) []valuation.Sample {
	r.mu.RLock()
	out := make([]valuation.Sample, 0)
	for _, s := range r.samples {
		if keep(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
