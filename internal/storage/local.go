package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	contentSuffix  = ".data"
	metadataSuffix = ".json"
)

// LocalStore keeps uploads in a directory on disk. Every upload is a content
// file plus a JSON metadata file named after the key.
type LocalStore struct {
	root   string
	now    func() time.Time
	logger *slog.Logger
}

// NewLocalStore creates the root directory if needed
func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: local root directory is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{
		root:   root,
		now:    time.Now,
		logger: logger.With(slog.String("component", "local_store")),
	}, nil
}

// Put implements Store
func (s *LocalStore) Put(ctx context.Context, meta Object, body io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	meta = prepare(meta, s.now())

	contentPath := s.path(meta.Key, contentSuffix)
	f, err := os.Create(contentPath)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create upload file: %w", err)
	}

	size, err := io.Copy(f, body)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(contentPath)
		return Object{}, fmt.Errorf("failed to write upload content: %w", err)
	}
	meta.Size = size

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(contentPath)
		return Object{}, fmt.Errorf("failed to marshal upload metadata: %w", err)
	}
	if err := os.WriteFile(s.path(meta.Key, metadataSuffix), data, 0644); err != nil {
		_ = os.Remove(contentPath)
		return Object{}, fmt.Errorf("failed to write upload metadata: %w", err)
	}

	s.logger.InfoContext(ctx, "Upload stored",
		slog.String("key", meta.Key),
		slog.String("filename", meta.Filename),
		slog.Int64("size_bytes", meta.Size))
	return meta, nil
}

// Open implements Store
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	if err := CheckKey(key); err != nil {
		return nil, Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}

	meta, err := s.readMetadata(key)
	if err != nil {
		return nil, Object{}, err
	}

	f, err := os.Open(s.path(key, contentSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, Object{}, fmt.Errorf("failed to open upload: %w", err)
	}
	return f, meta, nil
}

// List implements Store
func (s *LocalStore) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	objects := make([]Object, 0, len(entries)/2)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, metadataSuffix) {
			continue
		}
		meta, err := s.readMetadata(strings.TrimSuffix(name, metadataSuffix))
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable upload metadata",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		objects = append(objects, meta)
	}

	sortNewestFirst(objects)
	return objects, nil
}

func (s *LocalStore) readMetadata(key string) (Object, error) {
	data, err := os.ReadFile(s.path(key, metadataSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Object{}, fmt.Errorf("failed to read upload metadata: %w", err)
	}
	var meta Object
	if err := json.Unmarshal(data, &meta); err != nil {
		return Object{}, fmt.Errorf("failed to parse upload metadata: %w", err)
	}
	return meta, nil
}

func (s *LocalStore) path(key, suffix string) string {
	return filepath.Join(s.root, key+suffix)
}

func sortNewestFirst(objects []Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		if objects[i].UploadedAt.Equal(objects[j].UploadedAt) {
			return objects[i].Key < objects[j].Key
		}
		return objects[i].UploadedAt.After(objects[j].UploadedAt)
	})
}
