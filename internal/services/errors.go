package services

import "errors"

// Validation service errors
var (
	// Upload errors
	ErrEmptyUpload        = errors.New("upload is empty")
	ErrUnsupportedFormat  = errors.New("unsupported spreadsheet format")
	ErrUnreadableWorkbook = errors.New("spreadsheet could not be read")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
