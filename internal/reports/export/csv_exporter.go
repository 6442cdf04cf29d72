package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVExporter exports data to CSV format
type CSVExporter struct {
	writer  *csv.Writer
	options CSVOptions
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter       rune   `json:"delimiter"`
	UseCRLF         bool   `json:"use_crlf"`
	IncludeSummary  bool   `json:"include_summary"`
	TimestampFormat string `json:"timestamp_format"`
	// NumberPrecision is the number of decimals written; -1 keeps full precision
	NumberPrecision int    `json:"number_precision"`
	NullValue       string `json:"null_value"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		IncludeSummary:  true,
		TimestampFormat: time.RFC3339,
		NumberPrecision: -1,
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteRow writes a single row of data
func (e *CSVExporter) WriteRow(row []interface{}) error {
	record := make([]string, len(row))
	for i, val := range row {
		record[i] = e.formatValue(val)
	}

	if err := e.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// WriteStrings writes a row of plain strings
func (e *CSVExporter) WriteStrings(record []string) error {
	if err := e.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Flush flushes buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

// formatValue converts a value to its string representation
func (e *CSVExporter) formatValue(val interface{}) string {
	if val == nil {
		return e.options.NullValue
	}

	switch v := val.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', e.options.NumberPrecision, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return e.options.NullValue
		}
		return v.Format(e.options.TimestampFormat)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// WriteCSV writes the summary as label/value pairs followed by a blank line
// and the samples table.
func WriteCSV(w io.Writer, report Report, options CSVOptions) error {
	e := NewCSVExporter(w, options)

	if options.IncludeSummary {
		for _, item := range report.Summary() {
			if err := e.WriteRow([]interface{}{item.Label, item.Value}); err != nil {
				return err
			}
		}
		if err := e.WriteStrings([]string{}); err != nil {
			return err
		}
	}

	if err := e.WriteStrings(SampleColumns()); err != nil {
		return err
	}
	for _, row := range report.SampleRows() {
		if err := e.WriteRow(row); err != nil {
			return err
		}
	}

	return e.Flush()
}
