package samples

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/valuation"
)

// Service handles sample management business logic
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new samples service
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateSample validates and stores a new market sample
func (s *Service) CreateSample(ctx context.Context, req CreateSampleRequest) (*valuation.Sample, error) {
	sample, err := NewSample(req, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &sample); err != nil {
		return nil, fmt.Errorf("failed to store sample: %w", err)
	}

	s.logger.Info("Sample created",
		zap.String("sample_id", sample.ID),
		zap.String("category", string(sample.Category)),
		zap.String("city", sample.City),
		zap.String("state", sample.State),
		zap.Float64("price_per_unit", sample.PricePerUnit))

	return &sample, nil
}

// GetSample retrieves a sample by ID
func (s *Service) GetSample(ctx context.Context, id string) (*valuation.Sample, error) {
	return s.repo.Get(ctx, id)
}

// ListSamples lists samples with filters and pagination
func (s *Service) ListSamples(ctx context.Context, filters ListFilters) (*ListResponse, error) {
	filters = filters.normalize()
	samples, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	return &ListResponse{
		Samples:    samples,
		TotalCount: total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
	}, nil
}

// DeleteSample removes a sample
func (s *Service) DeleteSample(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Sample deleted", zap.String("sample_id", id))
	return nil
}

// ImportSamples reads an xlsx workbook and stores every valid row in one
// batch. Invalid rows are reported and skipped.
func (s *Service) ImportSamples(ctx context.Context, r io.Reader) (*ImportResult, error) {
	requests, result, err := ParseWorkbook(r)
	if err != nil {
		return nil, err
	}

	now := s.now()
	batch := make([]valuation.Sample, 0, len(requests))
	for _, row := range requests {
		sample, err := NewSample(row.Request, now)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Row: row.Row, Message: err.Error()})
			continue
		}
		batch = append(batch, sample)
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to store imported samples: %w", err)
	}
	result.Imported = len(batch)

	s.logger.Info("Samples imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// PurgeStale deletes samples dated before now minus maxAge
func (s *Service) PurgeStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)
	n, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale samples: %w", err)
	}
	s.logger.Info("Stale samples purged", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	return n, nil
}
