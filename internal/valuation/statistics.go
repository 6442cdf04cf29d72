package valuation

import "math"

// Grade thresholds on the coefficient of variation
const (
	gradeIIThreshold = 0.15
	gradeIThreshold  = 0.30
)

// Statistics summarizes a set of adjusted unit prices
type Statistics struct {
	Count                  int            `json:"count"`
	Mean                   float64        `json:"mean"`
	Variance               float64        `json:"variance"`
	StandardDeviation      float64        `json:"standard_deviation"`
	CoefficientOfVariation float64        `json:"coefficient_of_variation"`
	Grade                  PrecisionGrade `json:"grade"`
}

// Summarize computes mean, sample standard deviation, coefficient of
// variation and precision grade. It returns false for an empty input since
// the mean is undefined.
func Summarize(values []float64) (Statistics, bool) {
	n := len(values)
	if n == 0 {
		return Statistics{}, false
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	if n > 1 {
		var sq float64
		for _, v := range values {
			d := v - mean
			sq += d * d
		}
		variance = sq / float64(n-1)
	}
	stdDev := math.Sqrt(variance)

	var cv float64
	if mean > 0 {
		cv = stdDev / mean
	}

	return Statistics{
		Count:                  n,
		Mean:                   mean,
		Variance:               variance,
		StandardDeviation:      stdDev,
		CoefficientOfVariation: cv,
		Grade:                  ClassifyPrecision(cv),
	}, true
}

// ClassifyPrecision maps a coefficient of variation to a grade. Checks run in
// order with later ones overriding: higher dispersion yields grade I.
func ClassifyPrecision(cv float64) PrecisionGrade {
	grade := GradeIII
	if cv > gradeIIThreshold {
		grade = GradeII
	}
	if cv > gradeIThreshold {
		grade = GradeI
	}
	return grade
}

func adjustedPrices(samples []AdjustedSample) []float64 {
	prices := make([]float64, len(samples))
	for i, s := range samples {
		prices[i] = s.AdjustedUnitPrice
	}
	return prices
}
