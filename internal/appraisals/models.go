package appraisals

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"avaliar/appraisal-backend/internal/valuation"
)

var (
	ErrAppraisalNotFound = errors.New("appraisal not found")
	ErrInvalidBoundary   = errors.New("invalid boundary")
)

// Appraisal is the persisted snapshot of one engine run. Subject and result
// are stored whole as JSON; the scalar columns exist for listing and
// filtering.
type Appraisal struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string         `json:"title"`
	Category         string         `gorm:"not null;index" json:"category"`
	City             string         `gorm:"not null;index:idx_appraisal_location" json:"city"`
	State            string         `gorm:"not null;index:idx_appraisal_location" json:"state"`
	Status           string         `gorm:"not null" json:"status"`
	SearchScope      string         `json:"search_scope"`
	SampleCount      int            `json:"sample_count"`
	MarketValue      float64        `json:"market_value"`
	LiquidationValue float64        `json:"liquidation_value"`
	PrecisionGrade   string         `json:"precision_grade"`
	Degraded         bool           `json:"degraded"`
	Subject          datatypes.JSON `gorm:"not null" json:"subject"`
	Result           datatypes.JSON `gorm:"not null" json:"result"`
	Boundary         datatypes.JSON `json:"boundary,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// CreateAppraisalRequest is the body of POST /appraisals. Boundary is an
// optional GeoJSON Feature or geometry; when subject.total_area is absent the
// area is measured from it.
type CreateAppraisalRequest struct {
	Title    string                    `json:"title"`
	Subject  valuation.SubjectProperty `json:"subject"`
	Boundary json.RawMessage           `json:"boundary,omitempty"`
}

// AppraisalView is the API representation with the snapshots decoded
type AppraisalView struct {
	ID        string                     `json:"id"`
	Title     string                     `json:"title,omitempty"`
	Subject   valuation.SubjectProperty  `json:"subject"`
	Result    *valuation.ValuationResult `json:"result"`
	CreatedAt time.Time                  `json:"created_at"`
}

// ListFilters
type ListFilters struct {
	Category valuation.Category
	City     string
	State    string
	Status   string
	Page     int
	PageSize int
}

// ListResponse represents a paginated list of appraisals
type ListResponse struct {
	Appraisals []Appraisal `json:"appraisals"`
	TotalCount int64       `json:"total_count"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}

// ExportFile is a rendered appraisal report
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
	// Location is set when the file was archived
	Location string
	// DownloadURL is a time-limited link to the archived copy
	DownloadURL string
}

func newAppraisal(id uuid.UUID, title string, subject valuation.SubjectProperty, result *valuation.ValuationResult, boundary []byte, now time.Time) (*Appraisal, error) {
	subjectJSON, err := json.Marshal(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subject: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	a := &Appraisal{
		ID:               id,
		Title:            title,
		Category:         string(subject.Category),
		City:             subject.City,
		State:            subject.State,
		Status:           string(result.Status),
		SearchScope:      string(result.SearchScope),
		SampleCount:      result.SampleCount,
		MarketValue:      result.MarketValue,
		LiquidationValue: result.LiquidationValue,
		PrecisionGrade:   string(result.PrecisionGrade),
		Degraded:         result.Degraded(),
		Subject:          datatypes.JSON(subjectJSON),
		Result:           datatypes.JSON(resultJSON),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if len(boundary) > 0 {
		a.Boundary = datatypes.JSON(boundary)
	}
	return a, nil
}

// View decodes the stored snapshots
func (a *Appraisal) View() (*AppraisalView, error) {
	view := &AppraisalView{
		ID:        a.ID.String(),
		Title:     a.Title,
		CreatedAt: a.CreatedAt,
	}
	if err := json.Unmarshal(a.Subject, &view.Subject); err != nil {
		return nil, fmt.Errorf("failed to decode subject of %s: %w", a.ID, err)
	}
	view.Result = &valuation.ValuationResult{}
	if err := json.Unmarshal(a.Result, view.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", a.ID, err)
	}
	return view, nil
}

func (f ListFilters) normalize() ListFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > 200 {
		f.PageSize = 200
	}
	return f
}
