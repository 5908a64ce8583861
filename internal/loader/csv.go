package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sheetcheck/pkg/contracts/domain"
)

// CSVLoader exposes a CSV file as a single-sheet source. The sheet is named
// after the file without its extension.
type CSVLoader struct {
	sheet   string
	records [][]string
	logger  *slog.Logger
}

// OpenCSV reads a CSV file from disk
func OpenCSV(path string, logger *slog.Logger) (*CSVLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv %s: %w", path, err)
	}
	defer f.Close()
	return OpenCSVReader(f, path, logger)
}

// OpenCSVReader reads CSV data from a stream
func OpenCSVReader(r io.Reader, source string, logger *slog.Logger) (*CSVLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %s: %w", source, err)
	}

	base := filepath.Base(source)
	return &CSVLoader{
		sheet:   strings.TrimSuffix(base, filepath.Ext(base)),
		records: records,
		logger:  logger.With(slog.String("component", "csv_loader")),
	}, nil
}

// Sheets returns the single sheet name
func (l *CSVLoader) Sheets(ctx context.Context) ([]string, error) {
	return []string{l.sheet}, ctx.Err()
}

// Load returns the table. Rows with more fields than the header are rejected.
func (l *CSVLoader) Load(ctx context.Context, sheet string) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sheet != l.sheet {
		return nil, fmt.Errorf("%w: %q (csv source has only %q)", ErrSheetNotFound, sheet, l.sheet)
	}
	if len(l.records) == 0 {
		return domain.NewTable(l.sheet), nil
	}

	header := l.records[0]
	data := make([][]domain.Value, 0, len(l.records)-1)
	for i, record := range l.records[1:] {
		if len(record) > len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", i+2, len(record), len(header))
		}
		values := make([]domain.Value, len(record))
		for j, field := range record {
			values[j] = ParseCell(field)
		}
		data = append(data, values)
	}

	table := buildTable(l.sheet, header, data)
	l.logger.DebugContext(ctx, "CSV loaded",
		slog.String("sheet", l.sheet),
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))
	return table, nil
}

// Close is a no-op; the data is read eagerly
func (l *CSVLoader) Close() error {
	return nil
}
