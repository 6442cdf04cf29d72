package valuation

import "math"

const (
	// OfferFactor discounts asking prices towards likely transaction prices
	OfferFactor = 0.90

	// ScaleExponent drives the economy-of-scale correction between parcel sizes
	ScaleExponent = 0.15

	// scaleTolerance is the distance from 1.0 under which the scale factor is
	// reported as 1.00 in the audit trail.
	scaleTolerance = 0.01
)

// Factor names, in application order
const (
	FactorOffer      = "Offer"
	FactorScale      = "Scale"
	FactorTopography = "Topography"
	FactorAccess     = "Access"
	FactorSurface    = "Surface"
)

// Homogenizer adjusts sample unit prices relative to a subject property
type Homogenizer struct {
	tables CoefficientTables
}

// NewHomogenizer creates a homogenizer backed by the given coefficient tables
func NewHomogenizer(tables CoefficientTables) *Homogenizer {
	return &Homogenizer{tables: tables}
}

// Adjust applies the factor sequence to one sample. It never mutates its
// inputs; the returned factor list is in application order.
func (h *Homogenizer) Adjust(subject SubjectProperty, sample Sample) AdjustedSample {
	price := sample.PricePerUnit
	factors := make([]Factor, 0, 5)

	price *= OfferFactor
	factors = append(factors, Factor{Name: FactorOffer, Value: OfferFactor})

	if subject.IsRural() {
		if recorded, applied, ok := scaleFactor(subject.TotalArea, sample.TotalArea); ok {
			price *= applied
			factors = append(factors, Factor{Name: FactorScale, Value: recorded})
		}

		for _, attr := range []struct {
			name    string
			table   CoefficientTable
			subject string
			sample  string
		}{
			{FactorTopography, h.tables.Topography, subject.Topography, sample.Topography},
			{FactorAccess, h.tables.Access, subject.Access, sample.Access},
			{FactorSurface, h.tables.Surface, subject.Surface, sample.Surface},
		} {
			f := attributeFactor(attr.table, attr.subject, attr.sample)
			price *= f
			factors = append(factors, Factor{Name: attr.name, Value: f})
		}
	}

	return AdjustedSample{
		Sample:            sample,
		Factors:           factors,
		AdjustedUnitPrice: price,
	}
}

// AdjustAll homogenizes every sample in order
func (h *Homogenizer) AdjustAll(subject SubjectProperty, samples []Sample) []AdjustedSample {
	adjusted := make([]AdjustedSample, 0, len(samples))
	for _, s := range samples {
		adjusted = append(adjusted, h.Adjust(subject, s))
	}
	return adjusted
}

// scaleFactor returns the value to record, the value to apply, and whether
// the factor applies at all.
func scaleFactor(subjectArea, sampleArea float64) (recorded, applied float64, ok bool) {
	if subjectArea <= 0 || sampleArea <= 0 {
		return 0, 0, false
	}
	applied = math.Pow(sampleArea/subjectArea, ScaleExponent)
	recorded = applied
	if math.Abs(applied-1) <= scaleTolerance {
		recorded = 1.00
	}
	return recorded, applied, true
}

// attributeFactor compares the subject coefficient with the sample's, falling
// back to the subject's own value when the sample has none recorded.
func attributeFactor(table CoefficientTable, subjectValue, sampleValue string) float64 {
	if sampleValue == "" {
		sampleValue = subjectValue
	}
	subjectCoef := table.Coefficient(subjectValue)
	sampleCoef := table.Coefficient(sampleValue)
	if sampleCoef == 0 {
		return DefaultCoefficient
	}
	return subjectCoef / sampleCoef
}
