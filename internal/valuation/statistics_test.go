package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		stdDev float64
		grade  PrecisionGrade
	}{
		{name: "single sample", values: []float64{100}, mean: 100, stdDev: 0, grade: GradeIII},
		{name: "tight cluster", values: []float64{100, 101, 99}, mean: 100, stdDev: 1, grade: GradeIII},
		{name: "moderate spread", values: []float64{10, 12, 14}, mean: 12, stdDev: 2, grade: GradeII},
		{name: "wide spread", values: []float64{10, 20}, mean: 15, stdDev: math.Sqrt(50), grade: GradeI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, ok := Summarize(tt.values)
			require.True(t, ok)

			assert.Equal(t, len(tt.values), stats.Count)
			assert.InDelta(t, tt.mean, stats.Mean, 1e-9)
			assert.InDelta(t, tt.stdDev, stats.StandardDeviation, 1e-9)
			assert.InDelta(t, tt.stdDev/tt.mean, stats.CoefficientOfVariation, 1e-9)
			assert.Equal(t, tt.grade, stats.Grade)
		})
	}
}

func TestSummarize_Empty(t *testing.T) {
	_, ok := Summarize(nil)
	assert.False(t, ok)
}

func TestSummarize_ZeroMeanHasZeroCV(t *testing.T) {
	stats, ok := Summarize([]float64{0, 0})
	require.True(t, ok)
	assert.Equal(t, 0.0, stats.CoefficientOfVariation)
	assert.Equal(t, GradeIII, stats.Grade)
}

func TestClassifyPrecision_Boundaries(t *testing.T) {
	assert.Equal(t, GradeIII, ClassifyPrecision(0))
	assert.Equal(t, GradeIII, ClassifyPrecision(0.15))
	assert.Equal(t, GradeII, ClassifyPrecision(0.1500001))
	assert.Equal(t, GradeII, ClassifyPrecision(0.30))
	assert.Equal(t, GradeI, ClassifyPrecision(0.3000001))
	assert.Equal(t, GradeI, ClassifyPrecision(2))
}
