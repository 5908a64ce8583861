// Package exporter writes validation run results to files.
//
// CSVWriter is the low-level CSV writer, with streaming support and an
// optional UTF-8 BOM so Excel opens the files with the right encoding.
//
// ReportExporter turns a run result into a file chosen by extension:
//
//	.csv   one line per report error
//	.xlsx  a workbook with a Summary sheet and an Errors sheet
//	.json  the full run result
//
// Example usage:
//
//	exp := exporter.NewReportExporter(logger)
//	if err := exp.Export("out/errors.xlsx", result); err != nil {
//		return err
//	}
package exporter
