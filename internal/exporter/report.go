package exporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetcheck/pkg/contracts/domain"
)

// ErrUnsupportedExport is returned for export paths without a known extension
var ErrUnsupportedExport = errors.New("unsupported export format")

// ErrNoReport is returned when the run produced no report to export
var ErrNoReport = errors.New("run has no report")

// Workbook sheet names
const (
	SummarySheet = "Summary"
	ErrorsSheet  = "Errors"
)

var errorHeaders = []string{"Table", "Kind", "Row", "Status", "Message", "Missing Columns", "Invalid Values"}

var summaryHeaders = []string{
	"Table", "Valid", "Total Rows", "Valid Rows", "Error Rows", "Skipped Rows",
	"Validation Rate", "Missing Required Columns", "Failure",
}

// ReportExporter writes run results to CSV, XLSX or JSON files
type ReportExporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportExporter creates a report exporter
func NewReportExporter(logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{
		csv:    NewCSVWriter(logger),
		logger: logger.With(slog.String("component", "report_exporter")),
	}
}

// Export writes result to path in the format selected by its extension.
// A CSV export also writes the table summary to SummaryPath(path).
func (e *ReportExporter) Export(path string, result domain.RunResult) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = e.ExportErrorsCSV(path, result.Report)
		if err == nil {
			err = e.ExportSummaryCSV(SummaryPath(path), result.Report)
		}
	case ".xlsx":
		err = e.ExportWorkbook(path, result)
	case ".json":
		err = e.ExportJSON(path, result)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedExport, filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	e.logger.Info("Run result exported",
		slog.String("run_id", result.RunID),
		slog.String("path", path))
	return nil
}

// ExportErrorsCSV writes one line per aggregate report error
func (e *ReportExporter) ExportErrorsCSV(path string, report *domain.AggregateReport) error {
	if report == nil {
		return ErrNoReport
	}

	sw, err := e.csv.CreateStreamWriter(path, errorHeaders)
	if err != nil {
		return err
	}
	for _, re := range report.Errors {
		if err := sw.WriteRecord(errorRecord(re)); err != nil {
			sw.Close()
			return fmt.Errorf("failed to write error record: %w", err)
		}
	}
	return sw.Close()
}

// ExportJSON writes the full run result as indented JSON
func (e *ReportExporter) ExportJSON(path string, result domain.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportWorkbook writes a workbook with a per-table Summary sheet and an
// Errors sheet
func (e *ReportExporter) ExportWorkbook(path string, result domain.RunResult) error {
	if result.Report == nil {
		return ErrNoReport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(ErrorsSheet); err != nil {
		return fmt.Errorf("failed to create errors sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, result, headerStyle); err != nil {
		return err
	}
	if err := writeErrorsSheet(f, result.Report.Errors, headerStyle); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, result domain.RunResult, headerStyle int) error {
	meta := [][]interface{}{
		{"Run ID", result.RunID},
		{"Source", result.Source},
		{"Status", string(result.Status)},
		{"Decision", string(result.Decision)},
		{"Valid", result.Report.IsValid},
		{"Due Schedules", strings.Join(result.Report.DueSchedules, ", ")},
	}

	row := 1
	for _, values := range meta {
		if err := setRow(f, SummarySheet, row, values); err != nil {
			return err
		}
		row++
	}
	row++

	header := make([]interface{}, len(summaryHeaders))
	for i, h := range summaryHeaders {
		header[i] = h
	}
	if err := setRow(f, SummarySheet, row, header); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(summaryHeaders), row)
	if err := f.SetCellStyle(SummarySheet, first, last, headerStyle); err != nil {
		return fmt.Errorf("failed to style summary header: %w", err)
	}

	for _, t := range result.Report.Tables {
		row++
		values := []interface{}{
			t.TableID,
			t.IsValid,
			t.Summary.TotalRows,
			t.Summary.ValidRows,
			t.Summary.ErrorRows,
			t.Summary.SkippedRows,
			t.Summary.ValidationRate,
			strings.Join(t.Summary.MissingRequiredColumns, ", "),
			t.Failure,
		}
		if err := setRow(f, SummarySheet, row, values); err != nil {
			return err
		}
	}
	return nil
}

func writeErrorsSheet(f *excelize.File, errs []domain.ReportError, headerStyle int) error {
	sw, err := f.NewStreamWriter(ErrorsSheet)
	if err != nil {
		return fmt.Errorf("failed to open errors sheet stream: %w", err)
	}

	header := make([]interface{}, len(errorHeaders))
	for i, h := range errorHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("failed to write errors header: %w", err)
	}

	for i, re := range errs {
		record := errorRecord(re)
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if re.RowIndex > 0 {
			values[2] = re.RowIndex
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write error row %d: %w", i+1, err)
		}
	}
	return sw.Flush()
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func errorRecord(re domain.ReportError) []string {
	return []string{
		re.Table,
		string(re.Kind),
		formatRowIndex(re.RowIndex),
		string(re.Status),
		re.Message,
		strings.Join(re.MissingColumns, ", "),
		formatFindings(re.InvalidValues),
	}
}

// SummaryPath returns the summary file written next to a CSV error export
func SummaryPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_summary" + ext
}

func summaryRecords(report *domain.AggregateReport) [][]string {
	if report == nil {
		return nil
	}
	records := make([][]string, 0, len(report.Tables))
	for _, t := range report.Tables {
		records = append(records, []string{
			t.TableID,
			formatBool(t.IsValid),
			strconv.Itoa(t.Summary.TotalRows),
			strconv.Itoa(t.Summary.ValidRows),
			strconv.Itoa(t.Summary.ErrorRows),
			strconv.Itoa(t.Summary.SkippedRows),
			formatRate(t.Summary.ValidationRate),
			strings.Join(t.Summary.MissingRequiredColumns, ", "),
			t.Failure,
		})
	}
	return records
}

// ExportSummaryCSV writes the per-table summary grid
func (e *ReportExporter) ExportSummaryCSV(path string, report *domain.AggregateReport) error {
	if report == nil {
		return ErrNoReport
	}
	return e.csv.WriteCSV(path, WriteOptions{
		Headers:   summaryHeaders,
		Records:   summaryRecords(report),
		BOMPrefix: true,
	})
}
