package appraisals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avaliar/appraisal-backend/internal/reports/export"
	"avaliar/appraisal-backend/internal/samples"
	"avaliar/appraisal-backend/internal/valuation"
	"avaliar/appraisal-backend/pkg/storage"
)

const squareBoundary = `{"type":"Polygon","coordinates":[[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}`

type failingSampleRepository struct{}

func (failingSampleRepository) FilterSamples(ctx context.Context, category valuation.Category, city, state, subtype string) ([]valuation.Sample, error) {
	return nil, errors.New("connection refused")
}

func (failingSampleRepository) SamplesByCities(ctx context.Context, cities []string, state string, category valuation.Category, subtype string) ([]valuation.Sample, error) {
	return nil, errors.New("connection refused")
}

type recordingArchiver struct {
	keys       []string
	err        error
	presignErr error
	expiration time.Duration
}

func (a *recordingArchiver) Archive(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	a.keys = append(a.keys, key)
	return "s3://reports/" + key, nil
}

func (a *recordingArchiver) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	if a.presignErr != nil {
		return "", a.presignErr
	}
	a.expiration = expiration
	return "https://reports.example.com/" + key + "?X-Amz-Expires=900", nil
}

func uberabaSamples(n int) []valuation.Sample {
	out := make([]valuation.Sample, n)
	for i := range out {
		out[i] = valuation.Sample{
			ID:           fmt.Sprintf("s-%d", i+1),
			Category:     valuation.CategoryRural,
			City:         "Uberaba",
			State:        "MG",
			Subtype:      "cattle",
			Price:        1000000,
			TotalArea:    100,
			PricePerUnit: 10000,
		}
	}
	return out
}

func newTestService(repo valuation.SampleRepository, archiver storage.Archiver) (*Service, *Metrics, *MemoryRepository) {
	logger := zap.NewNop()
	engine := valuation.NewEngine(
		valuation.NewCascade(repo, nil, logger),
		valuation.NewHomogenizer(valuation.DefaultTables()),
		logger,
	)
	metrics := NewMetrics(prometheus.NewRegistry())
	store := NewMemoryRepository()
	return NewService(store, engine, archiver, metrics, logger), metrics, store
}

func ruralRequest() CreateAppraisalRequest {
	return CreateAppraisalRequest{
		Title: "Fazenda Santa Rita",
		Subject: valuation.SubjectProperty{
			Category:  "rural",
			City:      " Uberaba ",
			State:     "mg",
			TotalArea: 100,
			Subtype:   "cattle",
		},
	}
}

func TestCreateAppraisal_Complete(t *testing.T) {
	service, metrics, store := newTestService(samples.NewMemoryRepository(uberabaSamples(5)...), nil)

	view, err := service.CreateAppraisal(context.Background(), ruralRequest())
	require.NoError(t, err)

	assert.Equal(t, valuation.CategoryRural, view.Subject.Category)
	assert.Equal(t, "Uberaba", view.Subject.City)
	assert.Equal(t, "MG", view.Subject.State)
	assert.Equal(t, valuation.StatusComplete, view.Result.Status)
	assert.InDelta(t, 900000.0, view.Result.MarketValue, 1e-6)

	stored, err := store.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "complete", stored.Status)
	assert.Equal(t, 5, stored.SampleCount)
	assert.False(t, stored.Degraded)

	again, err := service.GetAppraisal(context.Background(), view.ID)
	require.NoError(t, err)
	assert.InDelta(t, view.Result.MarketValue, again.Result.MarketValue, 1e-9)
	assert.Len(t, again.Result.AdjustedSamples, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.appraisals.WithLabelValues("complete", "RURAL", string(valuation.ScopeCitySubtype))))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.degraded))
}

func TestCreateAppraisal_Invalid(t *testing.T) {
	service, metrics, store := newTestService(samples.NewMemoryRepository(), nil)

	req := ruralRequest()
	req.Subject.City = ""
	_, err := service.CreateAppraisal(context.Background(), req)

	var validationErr *valuation.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "city", validationErr.Field)

	_, total, err := store.List(context.Background(), ListFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.appraisals.WithLabelValues("invalid", "RURAL", string(valuation.ScopeNone))))
}

func TestCreateAppraisal_InvalidCategoryLabelIsBounded(t *testing.T) {
	service, metrics, _ := newTestService(samples.NewMemoryRepository(), nil)

	for i := 0; i < 50; i++ {
		req := ruralRequest()
		req.Subject.Category = valuation.Category(fmt.Sprintf("bogus-%d", i))
		_, err := service.CreateAppraisal(context.Background(), req)
		require.ErrorIs(t, err, valuation.ErrInvalidSubjectProperty)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.appraisals))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
	assert.Equal(t, 50.0, testutil.ToFloat64(metrics.appraisals.WithLabelValues("invalid", "unknown", string(valuation.ScopeNone))))
}

func TestCreateAppraisal_InsufficientIsStored(t *testing.T) {
	service, _, store := newTestService(samples.NewMemoryRepository(), nil)

	view, err := service.CreateAppraisal(context.Background(), ruralRequest())
	require.ErrorIs(t, err, valuation.ErrInsufficientSamples)
	require.NotNil(t, view)
	assert.Equal(t, valuation.StatusInsufficientSamples, view.Result.Status)
	assert.False(t, view.Result.Degraded())

	stored, err := store.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, string(valuation.StatusInsufficientSamples), stored.Status)
}

func TestCreateAppraisal_DegradedSearch(t *testing.T) {
	service, metrics, _ := newTestService(failingSampleRepository{}, nil)

	view, err := service.CreateAppraisal(context.Background(), ruralRequest())
	require.ErrorIs(t, err, valuation.ErrInsufficientSamples)
	assert.True(t, view.Result.Degraded())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.degraded))
}

func TestCreateAppraisal_AreaFromBoundary(t *testing.T) {
	service, _, store := newTestService(samples.NewMemoryRepository(uberabaSamples(5)...), nil)

	req := ruralRequest()
	req.Subject.TotalArea = 0
	req.Boundary = json.RawMessage(squareBoundary)

	view, err := service.CreateAppraisal(context.Background(), req)
	require.NoError(t, err)
	assert.InEpsilon(t, 123.9, view.Subject.TotalArea, 0.02)
	assert.InEpsilon(t, 123.9, view.Result.ReferenceArea, 0.02)

	stored, err := store.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Boundary)
}

func TestCreateAppraisal_BadBoundary(t *testing.T) {
	service, _, _ := newTestService(samples.NewMemoryRepository(), nil)

	req := ruralRequest()
	req.Subject.TotalArea = 0
	req.Boundary = json.RawMessage(`{"type":"Point","coordinates":[0,0]}`)

	_, err := service.CreateAppraisal(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidBoundary)
}

func TestListAppraisals(t *testing.T) {
	service, _, _ := newTestService(samples.NewMemoryRepository(uberabaSamples(5)...), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.CreateAppraisal(ctx, ruralRequest())
		require.NoError(t, err)
	}

	resp, err := service.ListAppraisals(ctx, ListFilters{State: "mg", PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.TotalCount)
	assert.Len(t, resp.Appraisals, 2)
	assert.Equal(t, 1, resp.Page)

	resp, err = service.ListAppraisals(ctx, ListFilters{Category: valuation.CategoryUrban})
	require.NoError(t, err)
	assert.Zero(t, resp.TotalCount)
}

func TestExportAppraisal(t *testing.T) {
	archiver := &recordingArchiver{}
	service, metrics, _ := newTestService(samples.NewMemoryRepository(uberabaSamples(5)...), archiver)
	ctx := context.Background()

	view, err := service.CreateAppraisal(ctx, ruralRequest())
	require.NoError(t, err)

	file, err := service.ExportAppraisal(ctx, view.ID, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "appraisal-"+view.ID+".csv", file.Name)
	assert.Contains(t, string(file.Data), "Market Value")
	assert.Equal(t, []string{view.ID + "/" + file.Name}, archiver.keys)
	assert.Equal(t, "s3://reports/"+view.ID+"/"+file.Name, file.Location)
	assert.Equal(t, "https://reports.example.com/"+view.ID+"/"+file.Name+"?X-Amz-Expires=900", file.DownloadURL)
	assert.Equal(t, downloadLinkTTL, archiver.expiration)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exports.WithLabelValues("csv")))

	_, err = service.ExportAppraisal(ctx, "missing", export.FormatPDF)
	assert.ErrorIs(t, err, ErrAppraisalNotFound)
}

func TestExportAppraisal_ArchiveFailureIsNotFatal(t *testing.T) {
	archiver := &recordingArchiver{err: errors.New("access denied")}
	service, _, _ := newTestService(samples.NewMemoryRepository(uberabaSamples(5)...), archiver)
	ctx := context.Background()

	view, err := service.CreateAppraisal(ctx, ruralRequest())
	require.NoError(t, err)

	file, err := service.ExportAppraisal(ctx, view.ID, export.FormatXLSX)
	require.NoError(t, err)
	assert.NotEmpty(t, file.Data)
	assert.Empty(t, file.Location)
	assert.Empty(t, file.DownloadURL)
}

func TestExportAppraisal_PresignFailureKeepsLocation(t *testing.T) {
	archiver := &recordingArchiver{presignErr: errors.New("expired credentials")}
	service, _, _ := newTestService(samples.NewMemoryRepository(uberabaSamples(5)...), archiver)
	ctx := context.Background()

	view, err := service.CreateAppraisal(ctx, ruralRequest())
	require.NoError(t, err)

	file, err := service.ExportAppraisal(ctx, view.ID, export.FormatCSV)
	require.NoError(t, err)
	assert.NotEmpty(t, file.Location)
	assert.Empty(t, file.DownloadURL)
}
