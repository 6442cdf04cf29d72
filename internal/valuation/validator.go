package valuation

import (
	"math"
	"strings"
)

// ValidateSubject checks the preconditions a subject must meet before any
// sample search runs.
func ValidateSubject(s SubjectProperty) error {
	if !s.Category.IsValid() {
		return &ValidationError{Field: "category", Message: "must be URBAN or RURAL"}
	}
	if strings.TrimSpace(s.City) == "" {
		return &ValidationError{Field: "city", Message: "is required"}
	}
	if strings.TrimSpace(s.State) == "" {
		return &ValidationError{Field: "state", Message: "is required"}
	}
	if !finite(s.TotalArea) || s.TotalArea <= 0 {
		return &ValidationError{Field: "total_area", Message: "must be greater than zero"}
	}
	if !finite(s.BuiltArea) || s.BuiltArea < 0 {
		return &ValidationError{Field: "built_area", Message: "must not be negative"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
