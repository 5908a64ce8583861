package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SourceFormat identifies how a source file is loaded
type SourceFormat string

const (
	FormatExcel SourceFormat = "excel"
	FormatCSV   SourceFormat = "csv"
)

var workbookExtensions = map[string]SourceFormat{
	".xlsx": FormatExcel,
	".xlsm": FormatExcel,
	".xltx": FormatExcel,
	".xltm": FormatExcel,
	".csv":  FormatCSV,
}

// FileValidator checks source files before they are handed to a loader
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// DetectFormat returns the source format implied by a file name
func (v *FileValidator) DetectFormat(name string) (SourceFormat, error) {
	ext := strings.ToLower(filepath.Ext(name))
	format, ok := workbookExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q (expected an Excel workbook or .csv)", ext)
	}

	// Office lock files look like workbooks but hold no data
	if strings.HasPrefix(filepath.Base(name), "~$") {
		v.logger.Warn("Rejecting temporary Excel file",
			slog.String("file", name))
		return "", fmt.Errorf("file %s is a temporary Excel file", name)
	}
	return format, nil
}

// ValidateWorkbookFile checks that path is a readable spreadsheet and returns its format
func (v *FileValidator) ValidateWorkbookFile(path string) (SourceFormat, error) {
	if err := v.ValidateFile(path); err != nil {
		return "", err
	}

	format, err := v.DetectFormat(path)
	if err != nil {
		v.logger.Error("File is not a spreadsheet",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return "", err
	}
	return format, nil
}

// ValidateOutputDirectory ensures a directory exists or can be created and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
