package appraisals

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/reports/export"
	"avaliar/appraisal-backend/internal/valuation"
	"avaliar/appraisal-backend/pkg/geospatial"
	"avaliar/appraisal-backend/pkg/storage"
)

// Appraiser runs the valuation pipeline for one subject
type Appraiser interface {
	Appraise(ctx context.Context, subject valuation.SubjectProperty) (*valuation.ValuationResult, error)
}

// downloadLinkTTL is how long a presigned link to an archived export stays valid
const downloadLinkTTL = 15 * time.Minute

// Service handles appraisal business logic
type Service struct {
	repo     Repository
	engine   Appraiser
	archiver storage.Archiver
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new appraisal service. archiver and metrics may be nil.
func NewService(repo Repository, engine Appraiser, archiver storage.Archiver, metrics *Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if archiver == nil {
		archiver = storage.NopArchiver{}
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		archiver: archiver,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateAppraisal values the subject and stores the snapshot.
//
// Validation failures return a *valuation.ValidationError (or
// ErrInvalidBoundary) and store nothing. When no comparable is found the
// flagged snapshot is still stored and returned together with
// valuation.ErrInsufficientSamples.
func (s *Service) CreateAppraisal(ctx context.Context, req CreateAppraisalRequest) (*AppraisalView, error) {
	subject, err := s.prepareSubject(req)
	if err != nil {
		s.metrics.observeRun("invalid", string(req.Subject.Category), string(valuation.ScopeNone), false, 0)
		return nil, err
	}

	start := s.now()
	result, runErr := s.engine.Appraise(ctx, subject)
	elapsed := s.now().Sub(start)

	if runErr != nil && !errors.Is(runErr, valuation.ErrInsufficientSamples) {
		status := "error"
		if errors.Is(runErr, valuation.ErrInvalidSubjectProperty) {
			status = "invalid"
		}
		s.metrics.observeRun(status, string(subject.Category), string(valuation.ScopeNone), false, elapsed)
		return nil, runErr
	}
	s.metrics.observeRun(string(result.Status), string(subject.Category), string(result.SearchScope), result.Degraded(), elapsed)

	appraisal, err := newAppraisal(uuid.New(), req.Title, subject, result, req.Boundary, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, appraisal); err != nil {
		return nil, fmt.Errorf("failed to store appraisal: %w", err)
	}

	s.logger.Info("Appraisal stored",
		zap.String("appraisal_id", appraisal.ID.String()),
		zap.String("status", appraisal.Status),
		zap.Bool("degraded", appraisal.Degraded),
		zap.Duration("elapsed", elapsed))

	view := &AppraisalView{
		ID:        appraisal.ID.String(),
		Title:     appraisal.Title,
		Subject:   subject,
		Result:    result,
		CreatedAt: appraisal.CreatedAt,
	}
	return view, runErr
}

// prepareSubject normalizes user input and measures the boundary when the
// total area was not given.
func (s *Service) prepareSubject(req CreateAppraisalRequest) (valuation.SubjectProperty, error) {
	subject := req.Subject
	subject.Category = valuation.ParseCategory(string(subject.Category))
	subject.City = strings.TrimSpace(subject.City)
	subject.State = strings.ToUpper(strings.TrimSpace(subject.State))

	if subject.TotalArea == 0 && len(req.Boundary) > 0 {
		// rural land is priced per hectare, urban per square meter
		area, err := geospatial.BoundaryArea(req.Boundary, subject.IsRural())
		if err != nil {
			return subject, fmt.Errorf("%w: %w", ErrInvalidBoundary, err)
		}
		subject.TotalArea = area
	}

	if err := valuation.ValidateSubject(subject); err != nil {
		return subject, err
	}
	return subject, nil
}

// GetAppraisal retrieves an appraisal by ID
func (s *Service) GetAppraisal(ctx context.Context, id string) (*AppraisalView, error) {
	appraisal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return appraisal.View()
}

// ListAppraisals lists stored appraisals newest first
func (s *Service) ListAppraisals(ctx context.Context, filters ListFilters) (*ListResponse, error) {
	filters = filters.normalize()
	appraisals, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appraisals: %w", err)
	}
	return &ListResponse{
		Appraisals: appraisals,
		TotalCount: total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
	}, nil
}

// ExportAppraisal renders a stored appraisal. When an archive is configured
// the file is also uploaded; an upload failure is logged and does not fail
// the export.
func (s *Service) ExportAppraisal(ctx context.Context, id string, format export.Format) (*ExportFile, error) {
	view, err := s.GetAppraisal(ctx, id)
	if err != nil {
		return nil, err
	}

	report := export.Report{
		ID:          view.ID,
		Title:       view.Title,
		Subject:     view.Subject,
		Result:      view.Result,
		GeneratedAt: s.now().UTC(),
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, report); err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", format, err)
	}
	s.metrics.observeExport(string(format))

	file := &ExportFile{
		Name:        format.FileName(view.ID),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}

	key := path.Join(view.ID, file.Name)
	location, err := s.archiver.Archive(ctx, key, file.ContentType, bytes.NewReader(file.Data))
	switch {
	case err == nil:
		file.Location = location
		s.logger.Info("Appraisal export archived", zap.String("appraisal_id", view.ID), zap.String("location", location))
	case errors.Is(err, storage.ErrArchiveDisabled):
		return file, nil
	default:
		s.logger.Warn("Failed to archive appraisal export", zap.String("appraisal_id", view.ID), zap.Error(err))
		return file, nil
	}

	url, err := s.archiver.PresignedURL(ctx, key, downloadLinkTTL)
	if err != nil {
		s.logger.Warn("Failed to presign archived export", zap.String("appraisal_id", view.ID), zap.Error(err))
		return file, nil
	}
	file.DownloadURL = url

	return file, nil
}
