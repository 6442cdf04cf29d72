package valuation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Engine runs the full appraisal pipeline: validation, sample search,
// homogenization, statistics and valuation.
type Engine struct {
	cascade     *Cascade
	homogenizer *Homogenizer
	logger      *zap.Logger
}

// NewEngine creates a new valuation engine
func NewEngine(cascade *Cascade, homogenizer *Homogenizer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cascade:     cascade,
		homogenizer: homogenizer,
		logger:      logger,
	}
}

// Appraise values the subject property.
//
// An invalid subject returns a *ValidationError and no result. When no sample
// is found the result is flagged StatusInsufficientSamples and returned
// together with ErrInsufficientSamples so callers can still show the search
// narrative. Collaborator failures never abort the run; they are listed in
// the result.
func (e *Engine) Appraise(ctx context.Context, subject SubjectProperty) (*ValuationResult, error) {
	if err := ValidateSubject(subject); err != nil {
		e.logger.Debug("Rejected subject property", zap.Error(err))
		return nil, err
	}

	outcome := e.cascade.Search(ctx, subject)

	result, err := e.Evaluate(subject, outcome.Samples)
	result.SearchScope = outcome.Scope
	result.CollaboratorFailures = outcome.Failures

	if err != nil {
		e.logger.Warn("Appraisal without comparables",
			zap.String("category", string(subject.Category)),
			zap.String("city", subject.City),
			zap.String("state", subject.State),
			zap.Int("collaborator_failures", len(outcome.Failures)))
		return result, err
	}

	e.logger.Info("Appraisal completed",
		zap.String("category", string(subject.Category)),
		zap.String("city", subject.City),
		zap.String("state", subject.State),
		zap.String("scope", string(result.SearchScope)),
		zap.Int("samples", result.SampleCount),
		zap.Float64("market_value", result.MarketValue),
		zap.String("grade", string(result.PrecisionGrade)))

	return result, nil
}

// Evaluate computes the valuation for an already gathered sample set. It does
// no I/O. With no samples it returns a flagged result and
// ErrInsufficientSamples.
func (e *Engine) Evaluate(subject SubjectProperty, samples []Sample) (*ValuationResult, error) {
	result := &ValuationResult{
		SearchScope:              ScopeNone,
		ReferenceArea:            SubjectReferenceArea(subject),
		LiquidityFactor:          LiquidityFactor(),
		LiquidityDiscountPercent: LiquidityDiscountPercent(),
		AdjustedSamples:          []AdjustedSample{},
	}

	if len(samples) == 0 {
		result.Status = StatusInsufficientSamples
		return result, fmt.Errorf("%w: no comparables for %s/%s", ErrInsufficientSamples, subject.City, subject.State)
	}

	adjusted := e.homogenizer.AdjustAll(subject, samples)
	stats, _ := Summarize(adjustedPrices(adjusted))

	result.Status = StatusComplete
	result.SampleCount = len(adjusted)
	result.AdjustedSamples = adjusted
	result.MeanAdjustedUnitPrice = stats.Mean
	result.StandardDeviation = stats.StandardDeviation
	result.CoefficientOfVariation = stats.CoefficientOfVariation
	result.PrecisionGrade = stats.Grade
	result.MarketValue = MarketValue(stats.Mean, result.ReferenceArea)
	result.LiquidationValue = LiquidationValue(result.MarketValue)

	return result, nil
}
