package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Source formats accepted by Open and OpenReader
const (
	FormatExcel = "excel"
	FormatCSV   = "csv"
)

// ErrUnknownFormat is returned for formats other than excel and csv
var ErrUnknownFormat = errors.New("unknown source format")

// Open opens a local file as a source of the given format
func Open(path, format string, logger *slog.Logger) (Source, error) {
	switch format {
	case FormatExcel:
		l, err := OpenExcel(path, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	case FormatCSV:
		l, err := OpenCSV(path, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// OpenReader opens a stream, such as an upload, as a source of the given format
func OpenReader(r io.Reader, name, format string, logger *slog.Logger) (Source, error) {
	switch format {
	case FormatExcel:
		l, err := OpenExcelReader(r, name, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	case FormatCSV:
		l, err := OpenCSVReader(r, name, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FormatFromFilename infers the source format from a file extension
func FormatFromFilename(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatExcel, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format of %q", ErrUnknownFormat, name)
	}
}
