package valuation

import (
	"strings"
	"time"
)

// Category distinguishes urban from rural properties
type Category string

const (
	CategoryUrban Category = "URBAN"
	CategoryRural Category = "RURAL"
)

// IsValid reports whether the category is one of the supported values
func (c Category) IsValid() bool {
	return c == CategoryUrban || c == CategoryRural
}

// ParseCategory normalizes user input such as "rural" or " Urban "
func ParseCategory(s string) Category {
	return Category(strings.ToUpper(strings.TrimSpace(s)))
}

// PrecisionGrade is the categorical confidence label derived from the
// coefficient of variation of the adjusted sample set.
type PrecisionGrade string

const (
	GradeI   PrecisionGrade = "I"
	GradeII  PrecisionGrade = "II"
	GradeIII PrecisionGrade = "III"
)

// ResultStatus tells callers whether the numeric fields of a result are usable
type ResultStatus string

const (
	StatusComplete            ResultStatus = "complete"
	StatusInsufficientSamples ResultStatus = "insufficient_samples"
)

// RuralAttributes holds the optional categorical descriptors shared by
// subjects and samples. Only Topography, Access and Surface feed the
// homogenization factors; the rest are carried for the report.
type RuralAttributes struct {
	Topography         string `json:"topography,omitempty"`
	Access             string `json:"access,omitempty"`
	Surface            string `json:"surface,omitempty"`
	LandUseCapability  string `json:"land_use_capability,omitempty"`
	PublicImprovements string `json:"public_improvements,omitempty"`
	Occupation         string `json:"occupation,omitempty"`
	Improvements       string `json:"improvements,omitempty"`
}

// SubjectProperty is the property being appraised
type SubjectProperty struct {
	Category     Category `json:"category"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	TotalArea    float64  `json:"total_area"`
	BuiltArea    float64  `json:"built_area,omitempty"`
	// Subtype is the urban sub-type (apartment, lot...) or the rural activity
	// (cattle, grain...).
	Subtype string `json:"subtype,omitempty"`

	RuralAttributes
}

// IsRural reports whether the subject is a rural property
func (s SubjectProperty) IsRural() bool {
	return s.Category == CategoryRural
}

// Sample is a market comparable as served by the sample repository
type Sample struct {
	ID           string    `json:"id"`
	Category     Category  `json:"category"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Address      string    `json:"address,omitempty"`
	Subtype      string    `json:"subtype,omitempty"`
	Price        float64   `json:"price"`
	TotalArea    float64   `json:"total_area"`
	BuiltArea    float64   `json:"built_area,omitempty"`
	PricePerUnit float64   `json:"price_per_unit"`
	Source       string    `json:"source,omitempty"`
	Date         time.Time `json:"date"`

	RuralAttributes
}

// Factor is one named multiplicative adjustment applied to a sample
type Factor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// AdjustedSample is a sample after homogenization against the subject
type AdjustedSample struct {
	Sample            Sample   `json:"sample"`
	Factors           []Factor `json:"factors"`
	AdjustedUnitPrice float64  `json:"adjusted_unit_price"`
}

// CollaboratorFailure records an absorbed repository or resolver error
type CollaboratorFailure struct {
	Tier      string `json:"tier"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// ValuationResult is the structured output of one engine run. Numeric fields
// carry raw values; formatting belongs to the presentation layer.
type ValuationResult struct {
	Status                   ResultStatus          `json:"status"`
	SampleCount              int                   `json:"sample_count"`
	SearchScope              SearchScope           `json:"search_scope"`
	AdjustedSamples          []AdjustedSample      `json:"adjusted_samples"`
	MeanAdjustedUnitPrice    float64               `json:"mean_adjusted_unit_price"`
	StandardDeviation        float64               `json:"standard_deviation"`
	CoefficientOfVariation   float64               `json:"coefficient_of_variation"`
	PrecisionGrade           PrecisionGrade        `json:"precision_grade,omitempty"`
	ReferenceArea            float64               `json:"reference_area"`
	MarketValue              float64               `json:"market_value"`
	LiquidationValue         float64               `json:"liquidation_value"`
	LiquidityFactor          float64               `json:"liquidity_factor"`
	LiquidityDiscountPercent float64               `json:"liquidity_discount_percent"`
	CollaboratorFailures     []CollaboratorFailure `json:"collaborator_failures,omitempty"`
}

// IsUsable reports whether MarketValue and LiquidationValue carry an estimate
func (r *ValuationResult) IsUsable() bool {
	return r != nil && r.Status == StatusComplete && len(r.AdjustedSamples) > 0
}

// Degraded reports whether any collaborator failed during the sample search
func (r *ValuationResult) Degraded() bool {
	return r != nil && len(r.CollaboratorFailures) > 0
}
