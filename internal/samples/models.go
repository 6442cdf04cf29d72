package samples

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"avaliar/appraisal-backend/internal/valuation"
)

var (
	// ErrSampleNotFound is returned when no sample has the requested identity
	ErrSampleNotFound = errors.New("sample not found")

	// ErrInvalidSample is returned for samples that cannot produce a unit price
	ErrInvalidSample = errors.New("invalid sample")

	// ErrInvalidWorkbook is returned when an import file cannot be read
	ErrInvalidWorkbook = errors.New("invalid workbook")
)

// CreateSampleRequest is the payload accepted by POST /samples
type CreateSampleRequest struct {
	Category     string     `json:"category" binding:"required"`
	City         string     `json:"city" binding:"required"`
	State        string     `json:"state" binding:"required"`
	Neighborhood string     `json:"neighborhood,omitempty"`
	Address      string     `json:"address,omitempty"`
	Subtype      string     `json:"subtype,omitempty"`
	Price        float64    `json:"price" binding:"required"`
	TotalArea    float64    `json:"total_area" binding:"required"`
	BuiltArea    float64    `json:"built_area,omitempty"`
	Source       string     `json:"source,omitempty"`
	Date         *time.Time `json:"date,omitempty"`

	valuation.RuralAttributes
}

// ListFilters narrows GET /samples
type ListFilters struct {
	Category valuation.Category
	City     string
	State    string
	Subtype  string
	Page     int
	PageSize int
}

// ListResponse is a page of samples
type ListResponse struct {
	Samples    []valuation.Sample `json:"samples"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// ImportError describes a spreadsheet row that was skipped
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarizes a spreadsheet import
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// NewSample validates a request and builds a sample with a fresh identity.
// The unit price is computed once here from the reference area.
func NewSample(req CreateSampleRequest, now time.Time) (valuation.Sample, error) {
	category := valuation.ParseCategory(req.Category)
	if !category.IsValid() {
		return valuation.Sample{}, fmt.Errorf("%w: category must be URBAN or RURAL", ErrInvalidSample)
	}
	city := strings.TrimSpace(req.City)
	state := strings.ToUpper(strings.TrimSpace(req.State))
	if city == "" || state == "" {
		return valuation.Sample{}, fmt.Errorf("%w: city and state are required", ErrInvalidSample)
	}
	if !finite(req.Price) || !finite(req.TotalArea) || !finite(req.BuiltArea) {
		return valuation.Sample{}, fmt.Errorf("%w: price and areas must be finite numbers", ErrInvalidSample)
	}
	if req.Price <= 0 {
		return valuation.Sample{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidSample)
	}
	if req.TotalArea <= 0 {
		return valuation.Sample{}, fmt.Errorf("%w: total_area must be greater than zero", ErrInvalidSample)
	}
	if req.BuiltArea < 0 {
		return valuation.Sample{}, fmt.Errorf("%w: built_area must not be negative", ErrInvalidSample)
	}

	date := now
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}

	area := valuation.ReferenceArea(category, req.TotalArea, req.BuiltArea)
	ppu := req.Price / area
	if !finite(ppu) || ppu <= 0 {
		return valuation.Sample{}, fmt.Errorf("%w: unit price is out of range", ErrInvalidSample)
	}

	return valuation.Sample{
		ID:              uuid.New().String(),
		Category:        category,
		City:            city,
		State:           state,
		Neighborhood:    strings.TrimSpace(req.Neighborhood),
		Address:         strings.TrimSpace(req.Address),
		Subtype:         strings.TrimSpace(req.Subtype),
		Price:           req.Price,
		TotalArea:       req.TotalArea,
		BuiltArea:       req.BuiltArea,
		PricePerUnit:    ppu,
		Source:          req.Source,
		Date:            date.UTC(),
		RuralAttributes: req.RuralAttributes,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// matches applies the collaborator query semantics to one sample: exact
// case-insensitive city and state, empty city or subtype meaning any.
func matches(s valuation.Sample, category valuation.Category, city, state, subtype string) bool {
	if s.Category != category || !strings.EqualFold(s.State, state) {
		return false
	}
	if city != "" && !strings.EqualFold(s.City, city) {
		return false
	}
	if subtype != "" && !strings.EqualFold(s.Subtype, subtype) {
		return false
	}
	return true
}

func (f ListFilters) normalize() ListFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 500 {
		f.PageSize = 50
	}
	return f
}
