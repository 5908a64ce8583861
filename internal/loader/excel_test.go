package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetcheck/pkg/contracts/domain"
)

// writeWorkbook creates a workbook with one sheet per entry, in the given order
func writeWorkbook(t *testing.T, sheets []string, rows map[string][][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelLoader_Load(t *testing.T) {
	path := writeWorkbook(t, []string{"Products", "Empty"}, map[string][][]interface{}{
		"Products": {
			{"Product", "Frequency", "Rank", "Name"},
			{"Loans", "Monthly", 3, "Alice"},
			{"Cards", "Quarterly", 7},
			{},
			{"Deposits", "Monthly", 2.5, "Dan"},
		},
	})

	l, err := OpenExcel(path, nil)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	sheets, err := l.Sheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Products", "Empty"}, sheets)

	table, err := l.Load(ctx, "Products")
	require.NoError(t, err)
	require.NoError(t, table.CheckShape())

	assert.Equal(t, "Products", table.Name)
	assert.Equal(t, []string{"Product", "Frequency", "Rank", "Name"}, table.Columns)
	require.Len(t, table.Rows, 4)

	assert.True(t, table.Rows[0][2].Equal(domain.Number(3)))
	assert.True(t, table.Rows[0][3].Equal(domain.Text("Alice")))
	assert.True(t, table.Rows[1][3].IsNull(), "short row is padded")
	for _, v := range table.Rows[2] {
		assert.True(t, v.IsNull(), "blank row is kept as nulls")
	}
	assert.True(t, table.Rows[3][2].Equal(domain.Number(2.5)))

	empty, err := l.Load(ctx, "Empty")
	require.NoError(t, err)
	assert.Empty(t, empty.Columns)
	assert.Empty(t, empty.Rows)
}

func TestExcelLoader_LoadMissingSheet(t *testing.T) {
	path := writeWorkbook(t, []string{"Data"}, map[string][][]interface{}{
		"Data": {{"ID"}, {1}},
	})

	l, err := OpenExcel(path, nil)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Load(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestOpenExcel_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	_, err := OpenExcel(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open workbook")
}

func TestOpenReader_Excel(t *testing.T) {
	path := writeWorkbook(t, []string{"Data"}, map[string][][]interface{}{
		"Data": {{"ID", "Name"}, {1, "Alice"}},
	})
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	src, err := OpenReader(bytes.NewReader(content), "upload.xlsx", FormatExcel, nil)
	require.NoError(t, err)
	defer src.Close()

	table, err := src.Load(context.Background(), "Data")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name"}, table.Columns)
	assert.Len(t, table.Rows, 1)
}

func TestOpen_UnknownFormat(t *testing.T) {
	_, err := Open("data.json", "json", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{name: "xlsx", file: "report.xlsx", want: FormatExcel},
		{name: "upper case macro workbook", file: "REPORT.XLSM", want: FormatExcel},
		{name: "csv", file: "/tmp/data.csv", want: FormatCSV},
		{name: "legacy xls", file: "old.xls", wantErr: true},
		{name: "no extension", file: "data", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromFilename(tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
