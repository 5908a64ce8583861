package loader

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"sheetcheck/pkg/contracts/domain"
)

// FormatGoogleSheet selects the Google Sheets loader
const FormatGoogleSheet = "gsheet"

// SheetsLoader reads tables from a Google Sheets spreadsheet
type SheetsLoader struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *slog.Logger
}

// NewSheetsLoader connects to the Sheets API. credentialsFile may be empty when
// the client options carry credentials or application default credentials apply.
func NewSheetsLoader(ctx context.Context, spreadsheetID, credentialsFile string, logger *slog.Logger, opts ...option.ClientOption) (*SheetsLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsLoader{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger.With(slog.String("component", "sheets_loader")),
	}, nil
}

// Sheets returns the sheet titles in spreadsheet order
func (l *SheetsLoader) Sheets(ctx context.Context) ([]string, error) {
	resp, err := l.service.Spreadsheets.Get(l.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", l.spreadsheetID, err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

// Load reads one sheet into a table. Numbers arrive unformatted and dates as
// formatted strings.
func (l *SheetsLoader) Load(ctx context.Context, sheet string) (*domain.Table, error) {
	resp, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, sheet).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	if len(resp.Values) == 0 {
		return domain.NewTable(sheet), nil
	}

	header := make([]string, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		if text, ok := cell.(string); ok {
			header[i] = text
		} else {
			header[i] = FromAny(cell).String()
		}
	}

	data := make([][]domain.Value, 0, len(resp.Values)-1)
	for _, cells := range resp.Values[1:] {
		values := make([]domain.Value, len(cells))
		for i, cell := range cells {
			values[i] = FromAny(cell)
		}
		data = append(data, values)
	}

	table := buildTable(sheet, header, data)
	l.logger.DebugContext(ctx, "Sheet loaded",
		slog.String("spreadsheet_id", l.spreadsheetID),
		slog.String("sheet", sheet),
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))
	return table, nil
}

// Close is a no-op; the HTTP client is owned by the service
func (l *SheetsLoader) Close() error {
	return nil
}
