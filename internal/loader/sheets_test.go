package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"sheetcheck/pkg/contracts/domain"
)

func newFakeSheetsServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			assert.Equal(t, "UNFORMATTED_VALUE", r.URL.Query().Get("valueRenderOption"))
			_, _ = w.Write([]byte(`{
				"range": "Products!A1:C3",
				"majorDimension": "ROWS",
				"values": [
					["Product", "Rank", "Due"],
					["Loans", 3, "2025-05-28"],
					["Cards", 9]
				]
			}`))
		case strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-123"):
			_, _ = w.Write([]byte(`{"sheets": [
				{"properties": {"title": "Products"}},
				{"properties": {"title": "Summary"}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSheetsLoader(t *testing.T) {
	server := newFakeSheetsServer(t)
	defer server.Close()

	ctx := context.Background()
	l, err := NewSheetsLoader(ctx, "sheet-123", "", nil,
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	sheets, err := l.Sheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Products", "Summary"}, sheets)

	table, err := l.Load(ctx, "Products")
	require.NoError(t, err)
	require.NoError(t, table.CheckShape())

	assert.Equal(t, []string{"Product", "Rank", "Due"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.True(t, table.Rows[0][1].Equal(domain.Number(3)))
	assert.Equal(t, domain.KindDate, table.Rows[0][2].Kind())
	assert.True(t, table.Rows[1][2].IsNull())
}

func TestNewSheetsLoader_RequiresID(t *testing.T) {
	_, err := NewSheetsLoader(context.Background(), "", "", nil, option.WithoutAuthentication())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spreadsheet id is required")
}
