package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"avaliar/appraisal-backend/internal/valuation"
)

// ErrUnsupportedFormat is returned for unknown export formats
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat normalizes a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// FileName builds a download name for an appraisal export
func (f Format) FileName(id string) string {
	return fmt.Sprintf("appraisal-%s.%s", id, f)
}

// Report is everything an exporter renders for one appraisal
type Report struct {
	ID          string
	Title       string
	Subject     valuation.SubjectProperty
	Result      *valuation.ValuationResult
	GeneratedAt time.Time
}

// SummaryItem is one labelled line of the summary section
type SummaryItem struct {
	Label string
	Value interface{}
}

// Summary returns the summary lines in display order
func (r Report) Summary() []SummaryItem {
	res := r.Result
	if res == nil {
		res = &valuation.ValuationResult{}
	}

	items := []SummaryItem{
		{"Appraisal", r.ID},
		{"Category", string(r.Subject.Category)},
		{"Location", fmt.Sprintf("%s/%s", r.Subject.City, r.Subject.State)},
		{"Subtype", r.Subject.Subtype},
		{"Reference Area", res.ReferenceArea},
		{"Status", string(res.Status)},
		{"Search Scope", string(res.SearchScope)},
		{"Samples", res.SampleCount},
	}
	if res.IsUsable() {
		items = append(items,
			SummaryItem{"Mean Adjusted Unit Price", res.MeanAdjustedUnitPrice},
			SummaryItem{"Standard Deviation", res.StandardDeviation},
			SummaryItem{"Coefficient of Variation", res.CoefficientOfVariation},
			SummaryItem{"Precision Grade", string(res.PrecisionGrade)},
			SummaryItem{"Market Value", res.MarketValue},
			SummaryItem{"Liquidity Factor", res.LiquidityFactor},
			SummaryItem{"Liquidation Value", res.LiquidationValue},
		)
	}
	if len(res.CollaboratorFailures) > 0 {
		items = append(items, SummaryItem{"Degraded Search", len(res.CollaboratorFailures)})
	}
	return items
}

// factorColumns are the homogenization factors given their own column
var factorColumns = []string{
	valuation.FactorOffer,
	valuation.FactorScale,
	valuation.FactorTopography,
	valuation.FactorAccess,
	valuation.FactorSurface,
}

// SampleColumns returns the header of the samples table
func SampleColumns() []string {
	cols := []string{"ID", "City", "State", "Subtype", "Total Area", "Price", "Unit Price"}
	cols = append(cols, factorColumns...)
	return append(cols, "Adjusted Unit Price")
}

// SampleRows returns one row per adjusted sample. Factors that were not
// applied are nil.
func (r Report) SampleRows() [][]interface{} {
	if r.Result == nil {
		return nil
	}
	rows := make([][]interface{}, 0, len(r.Result.AdjustedSamples))
	for _, a := range r.Result.AdjustedSamples {
		s := a.Sample
		row := []interface{}{s.ID, s.City, s.State, s.Subtype, s.TotalArea, s.Price, s.PricePerUnit}
		for _, name := range factorColumns {
			row = append(row, factorValue(a.Factors, name))
		}
		rows = append(rows, append(row, a.AdjustedUnitPrice))
	}
	return rows
}

func factorValue(factors []valuation.Factor, name string) interface{} {
	for _, f := range factors {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Write renders the report in the given format
func Write(w io.Writer, format Format, report Report) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, report, DefaultCSVOptions())
	case FormatXLSX:
		return WriteExcel(w, report, DefaultExcelOptions())
	case FormatPDF:
		return WritePDF(w, report, DefaultPDFOptions())
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
