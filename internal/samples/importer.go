package samples

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook columns, matched case-insensitively against the header row
const (
	colCategory           = "category"
	colCity               = "city"
	colState              = "state"
	colNeighborhood       = "neighborhood"
	colAddress            = "address"
	colSubtype            = "subtype"
	colPrice              = "price"
	colTotalArea          = "total_area"
	colBuiltArea          = "built_area"
	colSource             = "source"
	colDate               = "date"
	colTopography         = "topography"
	colAccess             = "access"
	colSurface            = "surface"
	colLandUseCapability  = "land_use_capability"
	colPublicImprovements = "public_improvements"
	colOccupation         = "occupation"
	colImprovements       = "improvements"
)

var requiredColumns = []string{colCategory, colCity, colState, colPrice, colTotalArea}

// WorkbookRow is one parsed spreadsheet row with its 1-based row number
type WorkbookRow struct {
	Row     int
	Request CreateSampleRequest
}

// ParseWorkbook reads the first sheet of an xlsx file. The first row is the
// header. Rows with unparseable numbers are reported in the result and left
// out of the returned requests.
func ParseWorkbook(r io.Reader) ([]WorkbookRow, *ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: no sheets", ErrInvalidWorkbook)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: sheet %s: %w", ErrInvalidWorkbook, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: sheet %s is empty", ErrInvalidWorkbook, sheets[0])
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, nil, fmt.Errorf("%w: missing required column %q", ErrInvalidWorkbook, col)
		}
	}

	result := &ImportResult{}
	parsed := make([]WorkbookRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		rowNum := i + 2
		if blankRow(cells) {
			continue
		}

		cell := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}

		req, err := rowRequest(cell)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Row: rowNum, Message: err.Error()})
			continue
		}
		parsed = append(parsed, WorkbookRow{Row: rowNum, Request: req})
	}

	return parsed, result, nil
}

func rowRequest(cell func(string) string) (CreateSampleRequest, error) {
	price, err := parseNumber(cell(colPrice))
	if err != nil {
		return CreateSampleRequest{}, fmt.Errorf("price: %w", err)
	}
	totalArea, err := parseNumber(cell(colTotalArea))
	if err != nil {
		return CreateSampleRequest{}, fmt.Errorf("total_area: %w", err)
	}
	var builtArea float64
	if v := cell(colBuiltArea); v != "" {
		if builtArea, err = parseNumber(v); err != nil {
			return CreateSampleRequest{}, fmt.Errorf("built_area: %w", err)
		}
	}

	req := CreateSampleRequest{
		Category:     cell(colCategory),
		City:         cell(colCity),
		State:        cell(colState),
		Neighborhood: cell(colNeighborhood),
		Address:      cell(colAddress),
		Subtype:      cell(colSubtype),
		Price:        price,
		TotalArea:    totalArea,
		BuiltArea:    builtArea,
		Source:       cell(colSource),
	}
	req.Topography = cell(colTopography)
	req.Access = cell(colAccess)
	req.Surface = cell(colSurface)
	req.LandUseCapability = cell(colLandUseCapability)
	req.PublicImprovements = cell(colPublicImprovements)
	req.Occupation = cell(colOccupation)
	req.Improvements = cell(colImprovements)

	if v := cell(colDate); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			return CreateSampleRequest{}, fmt.Errorf("date: expected YYYY-MM-DD, got %q", v)
		}
		req.Date = &d
	}

	return req, nil
}

// parseNumber accepts plain numbers and pt-BR formatted ones (1.234,56)
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("value is required")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("number %q is not finite", s)
	}
	return v, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
