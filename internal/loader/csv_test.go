package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetcheck/pkg/contracts/domain"
)

func TestCSVLoader_Load(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantColumns   []string
		wantRows      int
		wantErr       bool
		errorContains string
	}{
		{
			name:        "header and rows",
			content:     "ID,Name,Amount\n1,Alice,100\n2,,200\n3,Carol\n",
			wantColumns: []string{"ID", "Name", "Amount"},
			wantRows:    3,
		},
		{
			name:        "header only",
			content:     "ID,Name\n",
			wantColumns: []string{"ID", "Name"},
			wantRows:    0,
		},
		{
			name:          "row wider than header",
			content:       "ID,Name\n1,Alice,extra\n",
			wantErr:       true,
			errorContains: "line 2 has 3 fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "records.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			l, err := OpenCSV(path, nil)
			require.NoError(t, err)

			sheets, err := l.Sheets(context.Background())
			require.NoError(t, err)
			require.Equal(t, []string{"records"}, sheets)

			table, err := l.Load(context.Background(), "records")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			require.NoError(t, table.CheckShape())
			assert.Equal(t, tt.wantColumns, table.Columns)
			assert.Len(t, table.Rows, tt.wantRows)
		})
	}
}

func TestCSVLoader_TypedCells(t *testing.T) {
	l, err := OpenCSVReader(strings.NewReader("ID,Name,Amount\n1,,2024-01-31\n"), "upload.csv", nil)
	require.NoError(t, err)

	table, err := l.Load(context.Background(), "upload")
	require.NoError(t, err)

	row := table.Rows[0]
	assert.True(t, row[0].Equal(domain.Number(1)))
	assert.True(t, row[1].IsNull())
	assert.Equal(t, domain.KindDate, row[2].Kind())
}

func TestCSVLoader_WrongSheet(t *testing.T) {
	l, err := OpenCSVReader(strings.NewReader("ID\n1\n"), "data.csv", nil)
	require.NoError(t, err)

	_, err = l.Load(context.Background(), "Sheet1")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}
