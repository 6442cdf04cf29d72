package valuation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// MinSamples is the comparable count the cascade tries to reach
	MinSamples = 5

	// DefaultCallTimeout bounds every repository and resolver call
	DefaultCallTimeout = 10 * time.Second
)

// SearchScope describes which fallback tier produced the sample set
type SearchScope string

const (
	ScopeNone        SearchScope = "none"
	ScopeCitySubtype SearchScope = "city, same subtype"
	ScopeCity        SearchScope = "city"
	ScopeNeighbors   SearchScope = "city + neighboring municipalities"
	ScopeState       SearchScope = "statewide"
)

// SampleRepository serves comparables by location and subtype. An empty city
// means state-wide and an empty subtype means any subtype. City matching is
// exact and case-insensitive. No match yields an empty slice, not an error.
type SampleRepository interface {
	FilterSamples(ctx context.Context, category Category, city, state, subtype string) ([]Sample, error)
	SamplesByCities(ctx context.Context, cities []string, state string, category Category, subtype string) ([]Sample, error)
}

// NeighborResolver lists places near a city. It may be remote and may fail.
type NeighborResolver interface {
	NeighboringLocations(ctx context.Context, city, state string) ([]string, error)
}

// TierFunc widens the running sample set and reports how many samples it
// added. A non-nil error is absorbed by the driver; samples added before the
// error still count.
type TierFunc func(ctx context.Context, subject SubjectProperty, set *SampleSet) (int, error)

// Tier is one step of the search cascade
type Tier struct {
	Name  string
	Scope SearchScope
	// Applies filters tiers by subject; nil means the tier always applies.
	Applies func(SubjectProperty) bool
	Run     TierFunc
}

// SearchOutcome is the deduplicated sample list plus the narrative of how it
// was gathered.
type SearchOutcome struct {
	Samples  []Sample              `json:"samples"`
	Scope    SearchScope           `json:"scope"`
	TiersRun []string              `json:"tiers_run"`
	Failures []CollaboratorFailure `json:"failures,omitempty"`
}

// Cascade runs progressively broader sample queries until MinSamples is met
type Cascade struct {
	repo        SampleRepository
	resolver    NeighborResolver
	logger      *zap.Logger
	minSamples  int
	callTimeout time.Duration
	tiers       []Tier
}

// CascadeOption customizes a Cascade
type CascadeOption func(*Cascade)

// WithMinSamples overrides the target sample count
func WithMinSamples(n int) CascadeOption {
	return func(c *Cascade) {
		if n > 0 {
			c.minSamples = n
		}
	}
}

// WithCallTimeout overrides the per-call collaborator timeout
func WithCallTimeout(d time.Duration) CascadeOption {
	return func(c *Cascade) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithTiers replaces the default tier list
func WithTiers(tiers ...Tier) CascadeOption {
	return func(c *Cascade) {
		c.tiers = tiers
	}
}

// NewCascade creates a cascade over the given collaborators. resolver may be
// nil, in which case the neighboring-location tier finds nothing.
func NewCascade(repo SampleRepository, resolver NeighborResolver, logger *zap.Logger, opts ...CascadeOption) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cascade{
		repo:        repo,
		resolver:    resolver,
		logger:      logger,
		minSamples:  MinSamples,
		callTimeout: DefaultCallTimeout,
	}
	c.tiers = c.DefaultTiers()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinSamples returns the target count this cascade searches for
func (c *Cascade) MinSamples() int {
	return c.minSamples
}

// DefaultTiers returns the standard four-tier search order
func (c *Cascade) DefaultTiers() []Tier {
	return []Tier{
		{Name: "same_city_subtype", Scope: ScopeCitySubtype, Run: c.sameCitySubtype},
		{Name: "same_city", Scope: ScopeCity, Run: c.sameCity},
		{Name: "neighbors", Scope: ScopeNeighbors, Run: c.neighbors},
		{Name: "statewide", Scope: ScopeState, Applies: SubjectProperty.IsRural, Run: c.statewide},
	}
}

// Search runs tiers in order, stopping as soon as the running total reaches
// the target. Collaborator failures are logged and recorded, never returned.
func (c *Cascade) Search(ctx context.Context, subject SubjectProperty) SearchOutcome {
	set := NewSampleSet()
	out := SearchOutcome{Scope: ScopeNone}

	for _, tier := range c.tiers {
		if set.Len() >= c.minSamples {
			break
		}
		if tier.Applies != nil && !tier.Applies(subject) {
			continue
		}

		out.TiersRun = append(out.TiersRun, tier.Name)
		added, err := tier.Run(ctx, subject, set)
		if err != nil {
			c.logger.Warn("Sample search tier degraded",
				zap.String("tier", tier.Name),
				zap.String("city", subject.City),
				zap.String("state", subject.State),
				zap.Error(err))
			out.Failures = append(out.Failures, newCollaboratorFailure(tier.Name, err))
		}
		if added > 0 {
			out.Scope = tier.Scope
		}

		c.logger.Debug("Sample search tier finished",
			zap.String("tier", tier.Name),
			zap.Int("added", added),
			zap.Int("total", set.Len()))
	}

	out.Samples = set.Samples()

	c.logger.Info("Sample search finished",
		zap.String("city", subject.City),
		zap.String("state", subject.State),
		zap.String("scope", string(out.Scope)),
		zap.Int("samples", len(out.Samples)),
		zap.Strings("tiers", out.TiersRun))

	return out
}

func (c *Cascade) sameCitySubtype(ctx context.Context, subject SubjectProperty, set *SampleSet) (int, error) {
	samples, err := c.filter(ctx, subject.Category, subject.City, subject.State, subject.Subtype)
	if err != nil {
		return 0, err
	}
	return set.AddAll(samples), nil
}

func (c *Cascade) sameCity(ctx context.Context, subject SubjectProperty, set *SampleSet) (int, error) {
	samples, err := c.filter(ctx, subject.Category, subject.City, subject.State, "")
	if err != nil {
		return 0, err
	}
	return set.AddAll(samples), nil
}

func (c *Cascade) neighbors(ctx context.Context, subject SubjectProperty, set *SampleSet) (int, error) {
	if c.resolver == nil {
		return 0, nil
	}

	places, err := callWithTimeout(ctx, c.callTimeout, func(ctx context.Context) ([]string, error) {
		return c.resolver.NeighboringLocations(ctx, subject.City, subject.State)
	})
	if err != nil {
		return 0, &CollaboratorError{Operation: OperationNeighborResolver, Call: "neighboring locations", Err: err}
	}
	places = cleanNeighbors(places, subject.City)
	if len(places) == 0 {
		return 0, nil
	}

	added := 0
	for _, subtype := range subtypePasses(subject.Subtype) {
		if set.Len() >= c.minSamples {
			break
		}
		samples, err := c.byCities(ctx, places, subject.State, subject.Category, subtype)
		if err != nil {
			return added, err
		}
		added += set.AddUntil(samples, c.minSamples)
	}
	return added, nil
}

func (c *Cascade) statewide(ctx context.Context, subject SubjectProperty, set *SampleSet) (int, error) {
	limit := 2 * c.minSamples
	added := 0
	for _, subtype := range subtypePasses(subject.Subtype) {
		if set.Len() >= limit {
			break
		}
		samples, err := c.filter(ctx, subject.Category, "", subject.State, subtype)
		if err != nil {
			return added, err
		}
		added += set.AddUntil(samples, limit)
	}
	return added, nil
}

func (c *Cascade) filter(ctx context.Context, category Category, city, state, subtype string) ([]Sample, error) {
	samples, err := callWithTimeout(ctx, c.callTimeout, func(ctx context.Context) ([]Sample, error) {
		return c.repo.FilterSamples(ctx, category, city, state, subtype)
	})
	if err != nil {
		return nil, &CollaboratorError{Operation: OperationRepository, Call: "filter samples", Err: err}
	}
	return samples, nil
}

func (c *Cascade) byCities(ctx context.Context, cities []string, state string, category Category, subtype string) ([]Sample, error) {
	samples, err := callWithTimeout(ctx, c.callTimeout, func(ctx context.Context) ([]Sample, error) {
		return c.repo.SamplesByCities(ctx, cities, state, category, subtype)
	})
	if err != nil {
		return nil, &CollaboratorError{Operation: OperationRepository, Call: "samples by cities", Err: err}
	}
	return samples, nil
}

// callWithTimeout bounds fn even when it ignores its context
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// subtypePasses yields the subtype-matched query first, then the general one
func subtypePasses(subtype string) []string {
	if subtype == "" {
		return []string{""}
	}
	return []string{subtype, ""}
}

// cleanNeighbors trims names, drops blanks, the subject city and duplicates
func cleanNeighbors(places []string, city string) []string {
	seen := make(map[string]struct{}, len(places))
	out := make([]string, 0, len(places))
	for _, p := range places {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" || strings.EqualFold(p, city) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func newCollaboratorFailure(tier string, err error) CollaboratorFailure {
	op := OperationRepository
	var cerr *CollaboratorError
	if errors.As(err, &cerr) {
		op = cerr.Operation
	}
	return CollaboratorFailure{Tier: tier, Operation: op, Message: err.Error()}
}

// SampleSet accumulates samples in insertion order, keyed by identity
type SampleSet struct {
	samples []Sample
	seen    map[string]struct{}
}

// NewSampleSet creates an empty set
func NewSampleSet() *SampleSet {
	return &SampleSet{seen: make(map[string]struct{})}
}

// Add inserts a sample unless its identity is already present. Samples
// without an identity or a positive finite unit price are rejected.
func (s *SampleSet) Add(sample Sample) bool {
	if sample.ID == "" || !finite(sample.PricePerUnit) || sample.PricePerUnit <= 0 {
		return false
	}
	if _, ok := s.seen[sample.ID]; ok {
		return false
	}
	s.seen[sample.ID] = struct{}{}
	s.samples = append(s.samples, sample)
	return true
}

// AddAll inserts every new sample and returns how many were added
func (s *SampleSet) AddAll(samples []Sample) int {
	added := 0
	for _, sample := range samples {
		if s.Add(sample) {
			added++
		}
	}
	return added
}

// AddUntil inserts new samples while the set holds fewer than limit
func (s *SampleSet) AddUntil(samples []Sample, limit int) int {
	added := 0
	for _, sample := range samples {
		if s.Len() >= limit {
			break
		}
		if s.Add(sample) {
			added++
		}
	}
	return added
}

// Len returns the number of samples in the set
func (s *SampleSet) Len() int {
	return len(s.samples)
}

// Samples returns a copy of the samples in insertion order
func (s *SampleSet) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
