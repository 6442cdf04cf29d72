package valuation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSampleRepository is a mock implementation of the SampleRepository interface
type MockSampleRepository struct {
	mock.Mock
}

func (m *MockSampleRepository) FilterSamples(ctx context.Context, category Category, city, state, subtype string) ([]Sample, error) {
	args := m.Called(ctx, category, city, state, subtype)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Sample), args.Error(1)
}

func (m *MockSampleRepository) SamplesByCities(ctx context.Context, cities []string, state string, category Category, subtype string) ([]Sample, error) {
	args := m.Called(ctx, cities, state, category, subtype)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Sample), args.Error(1)
}

// MockNeighborResolver is a mock implementation of the NeighborResolver interface
type MockNeighborResolver struct {
	mock.Mock
}

func (m *MockNeighborResolver) NeighboringLocations(ctx context.Context, city, state string) ([]string, error) {
	args := m.Called(ctx, city, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// slowRepository ignores its context and answers late
type slowRepository struct {
	delay time.Duration
}

func (r slowRepository) FilterSamples(ctx context.Context, category Category, city, state, subtype string) ([]Sample, error) {
	time.Sleep(r.delay)
	return makeSamples("slow", 5, 100), nil
}

func (r slowRepository) SamplesByCities(ctx context.Context, cities []string, state string, category Category, subtype string) ([]Sample, error) {
	time.Sleep(r.delay)
	return makeSamples("slow", 5, 100), nil
}

func makeSamples(prefix string, n int, pricePerUnit float64) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			ID:           fmt.Sprintf("%s-%d", prefix, i+1),
			Price:        pricePerUnit * 100,
			TotalArea:    100,
			PricePerUnit: pricePerUnit,
		}
	}
	return samples
}

func sampleIDs(samples []Sample) []string {
	ids := make([]string, len(samples))
	for i, s := range samples {
		ids[i] = s.ID
	}
	return ids
}

func TestSearch_FirstTierSatisfies(t *testing.T) {
	repo := new(MockSampleRepository)
	resolver := new(MockNeighborResolver)
	subject := ruralSubject()

	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "cattle").Return(makeSamples("a", 5, 100), nil)

	outcome := NewCascade(repo, resolver, zap.NewNop()).Search(context.Background(), subject)

	assert.Len(t, outcome.Samples, 5)
	assert.Equal(t, ScopeCitySubtype, outcome.Scope)
	assert.Equal(t, []string{"same_city_subtype"}, outcome.TiersRun)
	assert.Empty(t, outcome.Failures)
	repo.AssertNumberOfCalls(t, "FilterSamples", 1)
	repo.AssertNotCalled(t, "SamplesByCities", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	resolver.AssertNotCalled(t, "NeighboringLocations", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_DeduplicatesAcrossTiers(t *testing.T) {
	repo := new(MockSampleRepository)
	subject := ruralSubject()

	cityAll := append(makeSamples("a", 3, 100), makeSamples("b", 2, 100)...)
	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "cattle").Return(makeSamples("a", 3, 100), nil)
	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "").Return(cityAll, nil)

	outcome := NewCascade(repo, nil, zap.NewNop()).Search(context.Background(), subject)

	assert.Equal(t, []string{"a-1", "a-2", "a-3", "b-1", "b-2"}, sampleIDs(outcome.Samples))
	assert.Equal(t, ScopeCity, outcome.Scope)
}

func TestSearch_NeighborTierCapsAtMinimum(t *testing.T) {
	repo := new(MockSampleRepository)
	resolver := new(MockNeighborResolver)
	subject := ruralSubject()

	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "cattle").Return(makeSamples("a", 2, 100), nil)
	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "").Return(makeSamples("a", 2, 100), nil)
	resolver.On("NeighboringLocations", mock.Anything, "Uberaba", "MG").Return([]string{"Sacramento", " uberaba ", "SACRAMENTO", ""}, nil)
	repo.On("SamplesByCities", mock.Anything, []string{"Sacramento"}, "MG", CategoryRural, "cattle").Return(makeSamples("n", 2, 100), nil)
	repo.On("SamplesByCities", mock.Anything, []string{"Sacramento"}, "MG", CategoryRural, "").Return(makeSamples("g", 3, 100), nil)

	outcome := NewCascade(repo, resolver, zap.NewNop()).Search(context.Background(), subject)

	assert.Equal(t, []string{"a-1", "a-2", "n-1", "n-2", "g-1"}, sampleIDs(outcome.Samples))
	assert.Equal(t, ScopeNeighbors, outcome.Scope)
	assert.Equal(t, []string{"same_city_subtype", "same_city", "neighbors"}, outcome.TiersRun)
	repo.AssertNotCalled(t, "FilterSamples", mock.Anything, CategoryRural, "", "MG", mock.Anything)
}

func TestSearch_ResolverFailureIsAbsorbed(t *testing.T) {
	repo := new(MockSampleRepository)
	resolver := new(MockNeighborResolver)
	subject := ruralSubject()

	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "cattle").Return(makeSamples("a", 1, 100), nil)
	repo.On("FilterSamples", mock.Anything, CategoryRural, "Uberaba", "MG", "").Return(makeSamples("a", 1, 100), nil)
	resolver.On("NeighboringLocations", mock.Anything, "Uberaba", "MG").Return(nil, errors.New("upstream timeout"))
	repo.On("FilterSamples", mock.Anything, CategoryRural, "", "MG", "cattle").Return(makeSamples("st", 20, 100), nil)

	outcome := NewCascade(repo, resolver, zap.NewNop()).Search(context.Background(), subject)

	assert.Len(t, outcome.Samples, 2*MinSamples)
	assert.Equal(t, ScopeState, outcome.Scope)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "neighbors", outcome.Failures[0].Tier)
	assert.Equal(t, "neighbor_resolver", outcome.Failures[0].Operation)
	assert.Contains(t, outcome.Failures[0].Message, ErrCollaboratorUnavailable.Error())
	assert.Contains(t, outcome.Failures[0].Message, "upstream timeout")
	repo.AssertNotCalled(t, "FilterSamples", mock.Anything, CategoryRural, "", "MG", "")
}

func TestSearch_RepositoryFailureIsAbsorbed(t *testing.T) {
	repo := new(MockSampleRepository)
	subject := SubjectProperty{Category: CategoryUrban, City: "Curitiba", State: "PR", TotalArea: 100, Subtype: "apartment"}

	repo.On("FilterSamples", mock.Anything, CategoryUrban, "Curitiba", "PR", "apartment").Return(nil, errors.New("connection refused"))
	repo.On("FilterSamples", mock.Anything, CategoryUrban, "Curitiba", "PR", "").Return(makeSamples("c", 6, 100), nil)

	outcome := NewCascade(repo, nil, zap.NewNop()).Search(context.Background(), subject)

	assert.Len(t, outcome.Samples, 6)
	assert.Equal(t, ScopeCity, outcome.Scope)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "same_city_subtype", outcome.Failures[0].Tier)
	assert.Equal(t, "repository", outcome.Failures[0].Operation)
}

func TestSearch_FailureOperationIsTyped(t *testing.T) {
	repo := new(MockSampleRepository)
	subject := SubjectProperty{Category: CategoryUrban, City: "Curitiba", State: "PR", TotalArea: 100}

	repo.On("FilterSamples", mock.Anything, CategoryUrban, "Curitiba", "PR", "").
		Return(nil, errors.New("relation \"neighboring locations\" does not exist"))

	outcome := NewCascade(repo, nil, zap.NewNop()).Search(context.Background(), subject)

	require.NotEmpty(t, outcome.Failures)
	for _, f := range outcome.Failures {
		assert.Equal(t, OperationRepository, f.Operation)
	}
}

func TestCollaboratorError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(&CollaboratorError{Operation: OperationNeighborResolver, Call: "neighboring locations", Err: cause})

	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "collaborator unavailable: neighboring locations: dial tcp: refused", err.Error())

	var cerr *CollaboratorError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, OperationNeighborResolver, cerr.Operation)
}

func TestSearch_UrbanSkipsStatewide(t *testing.T) {
	repo := new(MockSampleRepository)
	resolver := new(MockNeighborResolver)
	subject := SubjectProperty{Category: CategoryUrban, City: "Curitiba", State: "PR", TotalArea: 100, Subtype: "apartment"}

	repo.On("FilterSamples", mock.Anything, CategoryUrban, "Curitiba", "PR", "apartment").Return([]Sample{}, nil)
	repo.On("FilterSamples", mock.Anything, CategoryUrban, "Curitiba", "PR", "").Return([]Sample{}, nil)
	resolver.On("NeighboringLocations", mock.Anything, "Curitiba", "PR").Return([]string{}, nil)

	outcome := NewCascade(repo, resolver, zap.NewNop()).Search(context.Background(), subject)

	assert.Empty(t, outcome.Samples)
	assert.Equal(t, ScopeNone, outcome.Scope)
	assert.Equal(t, []string{"same_city_subtype", "same_city", "neighbors"}, outcome.TiersRun)
	assert.Empty(t, outcome.Failures)
}

func TestSearch_CallTimeout(t *testing.T) {
	subject := SubjectProperty{Category: CategoryUrban, City: "Curitiba", State: "PR", TotalArea: 100}
	cascade := NewCascade(slowRepository{delay: 200 * time.Millisecond}, nil, zap.NewNop(), WithCallTimeout(10*time.Millisecond))

	start := time.Now()
	outcome := cascade.Search(context.Background(), subject)

	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Empty(t, outcome.Samples)
	require.Len(t, outcome.Failures, 2)
	for _, f := range outcome.Failures {
		assert.Contains(t, f.Message, context.DeadlineExceeded.Error())
	}
}

func TestSearch_CustomTiersAndMinimum(t *testing.T) {
	var calls []string
	tier := func(name string, n int) Tier {
		return Tier{
			Name:  name,
			Scope: SearchScope(name),
			Run: func(ctx context.Context, subject SubjectProperty, set *SampleSet) (int, error) {
				calls = append(calls, name)
				return set.AddAll(makeSamples(name, n, 10)), nil
			},
		}
	}

	cascade := NewCascade(nil, nil, nil,
		WithMinSamples(3),
		WithTiers(tier("one", 2), tier("two", 1), tier("three", 4)))

	outcome := cascade.Search(context.Background(), SubjectProperty{Category: CategoryUrban})

	assert.Equal(t, 3, cascade.MinSamples())
	assert.Equal(t, []string{"one", "two"}, calls)
	assert.Equal(t, SearchScope("two"), outcome.Scope)
	assert.Len(t, outcome.Samples, 3)
}

func TestSampleSet(t *testing.T) {
	set := NewSampleSet()

	assert.True(t, set.Add(Sample{ID: "x", PricePerUnit: 1}))
	assert.False(t, set.Add(Sample{ID: "x", PricePerUnit: 2}))
	assert.False(t, set.Add(Sample{ID: "", PricePerUnit: 1}))
	assert.False(t, set.Add(Sample{ID: "y", PricePerUnit: 0}))
	assert.False(t, set.Add(Sample{ID: "nan", PricePerUnit: math.NaN()}))
	assert.False(t, set.Add(Sample{ID: "inf", PricePerUnit: math.Inf(1)}))
	assert.Equal(t, 1, set.Len())

	added := set.AddUntil(makeSamples("s", 10, 1), 4)
	assert.Equal(t, 3, added)
	assert.Equal(t, 4, set.Len())

	samples := set.Samples()
	samples[0].ID = "mutated"
	assert.Equal(t, "x", set.Samples()[0].ID)
}
