package samples

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/valuation"
)

// FallbackRepository reads from a primary store and falls back to a local
// one when the primary fails. Writes go to the primary and are mirrored to
// the local store on a best-effort basis.
type FallbackRepository struct {
	primary  Repository
	fallback Repository
	logger   *zap.Logger
}

// NewFallbackRepository creates a repository that prefers primary
func NewFallbackRepository(primary, fallback Repository, logger *zap.Logger) *FallbackRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackRepository{primary: primary, fallback: fallback, logger: logger}
}

func (r *FallbackRepository) FilterSamples(ctx context.Context, category valuation.Category, city, state, subtype string) ([]valuation.Sample, error) {
	samples, err := r.primary.FilterSamples(ctx, category, city, state, subtype)
	if err == nil {
		return samples, nil
	}
	r.degraded("FilterSamples", err)
	local, ferr := r.fallback.FilterSamples(ctx, category, city, state, subtype)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return local, nil
}

func (r *FallbackRepository) SamplesByCities(ctx context.Context, cities []string, state string, category valuation.Category, subtype string) ([]valuation.Sample, error) {
	samples, err := r.primary.SamplesByCities(ctx, cities, state, category, subtype)
	if err == nil {
		return samples, nil
	}
	r.degraded("SamplesByCities", err)
	local, ferr := r.fallback.SamplesByCities(ctx, cities, state, category, subtype)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return local, nil
}

func (r *FallbackRepository) Create(ctx context.Context, sample *valuation.Sample) error {
	if err := r.primary.Create(ctx, sample); err != nil {
		return err
	}
	if err := r.fallback.Create(ctx, sample); err != nil {
		r.logger.Warn("Failed to mirror sample locally", zap.String("sample_id", sample.ID), zap.Error(err))
	}
	return nil
}

func (r *FallbackRepository) CreateBatch(ctx context.Context, samples []valuation.Sample) error {
	if err := r.primary.CreateBatch(ctx, samples); err != nil {
		return err
	}
	if err := r.fallback.CreateBatch(ctx, samples); err != nil {
		r.logger.Warn("Failed to mirror sample batch locally", zap.Int("count", len(samples)), zap.Error(err))
	}
	return nil
}

func (r *FallbackRepository) Get(ctx context.Context, id string) (*valuation.Sample, error) {
	s, err := r.primary.Get(ctx, id)
	if err == nil || errors.Is(err, ErrSampleNotFound) {
		return s, err
	}
	r.degraded("Get", err)
	return r.fallback.Get(ctx, id)
}

func (r *FallbackRepository) List(ctx context.Context, filters ListFilters) ([]valuation.Sample, int, error) {
	samples, total, err := r.primary.List(ctx, filters)
	if err == nil {
		return samples, total, nil
	}
	r.degraded("List", err)
	return r.fallback.List(ctx, filters)
}

func (r *FallbackRepository) Delete(ctx context.Context, id string) error {
	if err := r.primary.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.fallback.Delete(ctx, id); err != nil && !errors.Is(err, ErrSampleNotFound) {
		r.logger.Warn("Failed to delete mirrored sample", zap.String("sample_id", id), zap.Error(err))
	}
	return nil
}

func (r *FallbackRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.primary.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if _, err := r.fallback.PurgeOlderThan(ctx, cutoff); err != nil {
		r.logger.Warn("Failed to purge mirrored samples", zap.Error(err))
	}
	return n, nil
}

func (r *FallbackRepository) degraded(op string, err error) {
	r.logger.Warn("Primary sample store unavailable, using local store",
		zap.String("operation", op),
		zap.Error(err))
}
