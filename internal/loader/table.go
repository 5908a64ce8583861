// Package loader turns spreadsheet sources into tables. Excel workbooks,
// CSV files and Google Sheets spreadsheets are supported.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sheetcheck/pkg/contracts/domain"
)

// ErrSheetNotFound is returned when a requested sheet does not exist in the source
var ErrSheetNotFound = errors.New("sheet not found")

// Source is a loader bound to one opened spreadsheet
type Source interface {
	Sheets(ctx context.Context) ([]string, error)
	Load(ctx context.Context, sheet string) (*domain.Table, error)
	Close() error
}

// buildHeader names the columns of a header row. Blank names become
// "Unnamed: <index>" and repeated names get a ".<n>" suffix.
func buildHeader(cells []string) []string {
	header := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		header[i] = name
	}
	return header
}

// buildTable widens the header to the longest row and pads short rows with nulls
func buildTable(name string, headerCells []string, rows [][]domain.Value) *domain.Table {
	width := len(headerCells)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(headerCells) < width {
		headerCells = append(headerCells, "")
	}

	table := domain.NewTable(name, buildHeader(headerCells)...)
	table.Rows = make([]domain.Row, 0, len(rows))
	for _, r := range rows {
		row := make(domain.Row, width)
		copy(row, r)
		table.Rows = append(table.Rows, row)
	}
	return table
}
