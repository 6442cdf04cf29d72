package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator renders an appraisal report as a PDF document
type PDFGenerator struct {
	pdf       *gofpdf.Fpdf
	options   PDFOptions
	translate func(string) string
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size"`   // A4, Letter, Legal
	Orientation    string     `json:"orientation"` // portrait, landscape
	DateFormat     string     `json:"date_format"`
	IncludeFooter  bool       `json:"include_footer"`
	IncludeDate    bool       `json:"include_date"`
	HeaderColor    PDFColor   `json:"header_color"`
	AlternateRows  bool       `json:"alternate_rows"`
	AlternateColor PDFColor   `json:"alternate_color"`
	FontFamily     string     `json:"font_family"`
	FontSize       float64    `json:"font_size"`
	HeaderFontSize float64    `json:"header_font_size"`
	TitleFontSize  float64    `json:"title_font_size"`
	Margins        PDFMargins `json:"margins"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "landscape",
		DateFormat:     "2006-01-02 15:04 MST",
		IncludeFooter:  true,
		IncludeDate:    true,
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       8,
		HeaderFontSize: 8,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   12,
			Right:  12,
			Top:    15,
			Bottom: 15,
		},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(true, options.Margins.Bottom)

	g := &PDFGenerator{
		pdf:     pdf,
		options: options,
		// core fonts are cp1252; city names carry accents
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if options.IncludeFooter {
		g.setFooter()
	}
	return g
}

// GenerateReport lays out title, summary and samples table
func (g *PDFGenerator) GenerateReport(report Report) error {
	g.pdf.AddPage()

	title := report.Title
	if title == "" {
		title = "Property Appraisal"
	}
	g.addTitle(title)

	if g.options.IncludeDate {
		generated := report.GeneratedAt
		if generated.IsZero() {
			generated = time.Now().UTC()
		}
		g.addDate(generated)
	}

	g.addSummarySection("Summary", report.Summary())

	if report.Result != nil && len(report.Result.CollaboratorFailures) > 0 {
		g.addFailures(report)
	}

	rows := report.SampleRows()
	if len(rows) > 0 {
		g.pdf.Ln(6)
		g.addSectionTitle("Comparable Samples")
		columns := SampleColumns()
		widths := g.calculateColumnWidths(columns, rows)
		g.addTableHeader(columns, widths)
		g.addTableData(columns, rows, widths)
	}

	return g.pdf.Error()
}

func (g *PDFGenerator) addTitle(title string) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.translate(title), "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addDate(t time.Time) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(128, 128, 128)
	dateStr := fmt.Sprintf("Generated: %s", t.Format(g.options.DateFormat))
	g.pdf.CellFormat(0, 6, dateStr, "", 1, "R", false, 0, "")
}

func (g *PDFGenerator) addSectionTitle(title string) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+3)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 8, g.translate(title), "", 1, "L", false, 0, "")
	g.pdf.Ln(1)
}

func (g *PDFGenerator) addSummarySection(title string, items []SummaryItem) {
	g.pdf.Ln(4)
	g.addSectionTitle(title)

	for _, item := range items {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+1)
		g.pdf.CellFormat(60, 6, g.translate(item.Label+":"), "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+1)
		g.pdf.CellFormat(0, 6, g.translate(g.formatValue(item.Value)), "", 1, "L", false, 0, "")
	}
}

func (g *PDFGenerator) addFailures(report Report) {
	g.pdf.Ln(4)
	g.addSectionTitle("Search Warnings")
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(160, 40, 40)
	for _, f := range report.Result.CollaboratorFailures {
		line := fmt.Sprintf("%s (%s): %s", f.Tier, f.Operation, f.Message)
		g.pdf.MultiCell(0, 5, g.translate(line), "", "L", false)
	}
	g.pdf.SetTextColor(0, 0, 0)
}

// calculateColumnWidths sizes columns to content, scaled to the page
func (g *PDFGenerator) calculateColumnWidths(columns []string, rows [][]interface{}) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	availableWidth := pageWidth - g.options.Margins.Left - g.options.Margins.Right

	widths := make([]float64, len(columns))

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	for i, label := range columns {
		widths[i] = g.pdf.GetStringWidth(label) + 4
	}

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	sampleSize := len(rows)
	if sampleSize > 100 {
		sampleSize = 100
	}
	for _, row := range rows[:sampleSize] {
		for i, val := range row {
			if w := g.pdf.GetStringWidth(g.translate(g.formatValue(val))) + 4; w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > availableWidth {
		scale := availableWidth / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

func (g *PDFGenerator) addTableHeader(labels []string, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range labels {
		g.pdf.CellFormat(widths[i], 7, label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

func (g *PDFGenerator) addTableData(columns []string, rows [][]interface{}, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)

	_, pageHeight := g.pdf.GetPageSize()
	for i, row := range rows {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(columns, widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		for j, val := range row {
			align := "L"
			if _, isNumber := val.(float64); isNumber {
				align = "R"
			}
			g.pdf.CellFormat(widths[j], 6, g.translate(g.formatValue(val)), "1", 0, align, true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

// formatValue formats a value for display
func (g *PDFGenerator) formatValue(val interface{}) string {
	if val == nil {
		return "-"
	}

	switch v := val.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(g.options.DateFormat)
	case float64:
		return fmt.Sprintf("%.4f", v)
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		g.pdf.SetY(-12)
		g.pdf.SetFont(g.options.FontFamily, "", 7)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// WritePDF renders the report as a PDF document
func WritePDF(w io.Writer, report Report, options PDFOptions) error {
	g := NewPDFGenerator(options)
	if err := g.GenerateReport(report); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	return g.WriteTo(w)
}
