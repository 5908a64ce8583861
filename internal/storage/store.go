// Package storage persists uploaded spreadsheets so runs can be repeated
// against the same bytes. Objects are addressed by a generated key and carry
// the metadata recorded at upload time.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no object exists for a key
	ErrNotFound = errors.New("upload not found")
	// ErrInvalidKey is returned for keys that were not generated by a store
	ErrInvalidKey = errors.New("invalid upload key")
	// ErrInvalidConfig is returned by store constructors
	ErrInvalidConfig = errors.New("invalid storage configuration")
)

// Object describes one stored upload
type Object struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Sheets      []string  `json:"sheets,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store keeps uploaded files and their metadata
type Store interface {
	// Put stores body under a new key. Key, Size and UploadedAt of meta are
	// filled in by the store.
	Put(ctx context.Context, meta Object, body io.Reader) (Object, error)
	// Open returns the content of a stored upload. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	// List returns every stored upload, newest first
	List(ctx context.Context) ([]Object, error)
}

// NewKey returns a fresh upload key
func NewKey() string {
	return uuid.NewString()
}

// CheckKey rejects keys that could escape the store namespace
func CheckKey(key string) error {
	if _, err := uuid.Parse(key); err != nil {
		return ErrInvalidKey
	}
	return nil
}

// ContentTypeFor guesses the content type of a spreadsheet from its file name
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xlsm":
		return "application/vnd.ms-excel.sheet.macroEnabled.12"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// cleanFilename keeps only the base name of an uploaded file
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

func prepare(meta Object, now time.Time) Object {
	meta.Key = NewKey()
	meta.Filename = cleanFilename(meta.Filename)
	if meta.ContentType == "" {
		meta.ContentType = ContentTypeFor(meta.Filename)
	}
	meta.UploadedAt = now.UTC()
	return meta
}
