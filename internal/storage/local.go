package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes objects under a public-served directory, e.g.
// public/uploads served at /uploads.
type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local storage path is empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	slog.Info("initializing local storage", "path", basePath, "base_url", baseURL)

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// BasePath is the directory the HTTP layer serves as static files.
func (l *LocalStorage) BasePath() string {
	return l.basePath
}

func (l *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (PutResult, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return PutResult{}, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return PutResult{}, fmt.Errorf("failed to write %s: %w", key, err)
	}

	return PutResult{
		URL:  l.PublicURL(key),
		Key:  key,
		Size: int64(len(data)),
	}, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))

	_, err := os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *LocalStorage) PublicURL(key string) string {
	return l.baseURL + "/" + filepath.ToSlash(key)
}
