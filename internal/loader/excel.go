package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"sheetcheck/pkg/contracts/domain"
)

// ExcelLoader reads tables from the sheets of an Excel workbook. The first row
// of a sheet is its header.
type ExcelLoader struct {
	file   *excelize.File
	source string
	logger *slog.Logger
}

// OpenExcel opens a workbook from disk
func OpenExcel(path string, logger *slog.Logger) (*ExcelLoader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return newExcelLoader(f, path, logger), nil
}

// OpenExcelReader opens a workbook from a stream, such as an upload
func OpenExcelReader(r io.Reader, source string, logger *slog.Logger) (*ExcelLoader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	return newExcelLoader(f, source, logger), nil
}

func newExcelLoader(f *excelize.File, source string, logger *slog.Logger) *ExcelLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelLoader{
		file:   f,
		source: source,
		logger: logger.With(slog.String("component", "excel_loader")),
	}
}

// Sheets returns the sheet names in workbook order
func (l *ExcelLoader) Sheets(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.file.GetSheetList(), nil
}

// Load reads one sheet into a table
func (l *ExcelLoader) Load(ctx context.Context, sheet string) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if idx, err := l.file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, l.source)
	}

	rows, err := l.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	if len(rows) == 0 {
		l.logger.WarnContext(ctx, "Sheet is empty",
			slog.String("source", l.source),
			slog.String("sheet", sheet))
		return domain.NewTable(sheet), nil
	}

	data := make([][]domain.Value, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		values := make([]domain.Value, len(cells))
		for i, cell := range cells {
			values[i] = ParseCell(cell)
		}
		data = append(data, values)
	}

	table := buildTable(sheet, rows[0], data)

	l.logger.DebugContext(ctx, "Sheet loaded",
		slog.String("source", l.source),
		slog.String("sheet", sheet),
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

// Close releases the workbook
func (l *ExcelLoader) Close() error {
	return l.file.Close()
}
