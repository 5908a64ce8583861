package loader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sheetcheck/pkg/contracts/domain"
)

// dateLayouts are the text forms recognized as dates, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
}

// ParseCell converts the text of a spreadsheet cell into a typed value.
// Blank text is null, numeric text is a number, text in a known date layout
// is a date, and everything else is kept as text.
func ParseCell(raw string) domain.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Null()
	}

	if f, ok := parseNumber(s); ok {
		return domain.Number(f)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Date(t)
		}
	}

	return domain.Text(raw)
}

// FromAny converts a decoded JSON cell (as returned by the Sheets API) into a typed value
func FromAny(v interface{}) domain.Value {
	switch val := v.(type) {
	case nil:
		return domain.Null()
	case float64:
		return domain.Number(val)
	case int:
		return domain.Number(float64(val))
	case int64:
		return domain.Number(float64(val))
	case bool:
		return domain.Text(strconv.FormatBool(val))
	case string:
		return ParseCell(val)
	default:
		return domain.Text(fmt.Sprintf("%v", val))
	}
}

// thousandsGrouped matches numbers rendered with comma digit grouping, such
// as 1,234 or -12,345,678.90
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

func parseNumber(s string) (float64, bool) {
	candidate := s
	if thousandsGrouped.MatchString(candidate) {
		candidate = strings.ReplaceAll(candidate, ",", "")
	}
	f, err := strconv.ParseFloat(candidate, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
