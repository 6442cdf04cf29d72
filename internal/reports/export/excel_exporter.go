package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	samplesSheet = "Samples"
)

// ExcelExporter exports an appraisal to a workbook with a summary sheet and a
// samples sheet.
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions

	headerStyle int
	numberStyle int
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	NumberFormat string            `json:"number_format"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		FreezeHeader: true,
		AutoFilter:   true,
		NumberFormat: "#,##0.00##",
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "4472C4",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) (*ExcelExporter, error) {
	file := excelize.NewFile()
	e := &ExcelExporter{file: file, options: options}

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := file.NewSheet(samplesSheet); err != nil {
		return nil, fmt.Errorf("failed to create samples sheet: %w", err)
	}

	if options.HeaderStyle != nil {
		style, err := e.createStyle(options.HeaderStyle)
		if err != nil {
			return nil, fmt.Errorf("failed to create header style: %w", err)
		}
		e.headerStyle = style
	}
	if options.NumberFormat != "" {
		style, err := file.NewStyle(&excelize.Style{CustomNumFmt: &options.NumberFormat})
		if err != nil {
			return nil, fmt.Errorf("failed to create number style: %w", err)
		}
		e.numberStyle = style
	}

	return e, nil
}

// WriteReport fills both sheets from the report
func (e *ExcelExporter) WriteReport(report Report) error {
	if err := e.writeRow(summarySheet, 1, []interface{}{"Field", "Value"}, e.headerStyle); err != nil {
		return err
	}
	for i, item := range report.Summary() {
		if err := e.writeRow(summarySheet, i+2, []interface{}{item.Label, item.Value}, 0); err != nil {
			return err
		}
	}
	if err := e.file.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := e.file.SetColWidth(summarySheet, "B", "B", 36); err != nil {
		return err
	}

	columns := SampleColumns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := e.writeRow(samplesSheet, 1, header, e.headerStyle); err != nil {
		return err
	}

	rows := report.SampleRows()
	for i, row := range rows {
		if err := e.writeRow(samplesSheet, i+2, row, 0); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := e.file.SetColWidth(samplesSheet, "A", lastCol, 16); err != nil {
		return err
	}

	if e.options.FreezeHeader {
		if err := e.file.SetPanes(samplesSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header: %w", err)
		}
	}

	if e.options.AutoFilter && len(rows) > 0 {
		rangeRef := fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1)
		if err := e.file.AutoFilter(samplesSheet, rangeRef, nil); err != nil {
			return fmt.Errorf("failed to add auto filter: %w", err)
		}
	}

	return nil
}

// WriteTo writes the workbook to a writer
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	_, err := e.file.WriteTo(w)
	return err
}

// Close closes the workbook
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

func (e *ExcelExporter) writeRow(sheet string, rowNum int, values []interface{}, style int) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if val == nil {
			continue
		}
		if err := e.file.SetCellValue(sheet, cell, val); err != nil {
			return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
		}

		cellStyle := style
		if _, isFloat := val.(float64); isFloat && cellStyle == 0 {
			cellStyle = e.numberStyle
		}
		if cellStyle > 0 {
			if err := e.file.SetCellStyle(sheet, cell, cell, cellStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

// createStyle creates an Excel style from config
func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
		Alignment: &excelize.Alignment{
			Horizontal: config.Alignment,
			Vertical:   "center",
		},
	}

	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{config.FillColor},
			Pattern: 1,
		}
	}

	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	return e.file.NewStyle(style)
}

// WriteExcel renders the report as an xlsx workbook
func WriteExcel(w io.Writer, report Report, options ExcelOptions) error {
	e, err := NewExcelExporter(options)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.WriteReport(report); err != nil {
		return err
	}
	return e.WriteTo(w)
}
