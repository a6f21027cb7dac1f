package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"reviewagent"
)

type FileInputState struct {
	FilePath string
}

func NewFileInputState(filePath string) *FileInputState {
	return &FileInputState{FilePath: filePath}
}

func (p *FileInputState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(p.FilePath)
}

// FileReviewStore writes each review as indented JSON under Dir/<key>.json.
type FileReviewStore struct {
	Dir string
}

func NewFileReviewStore(dir string) *FileReviewStore {
	return &FileReviewStore{Dir: dir}
}

func (s *FileReviewStore) path(key string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(key)+".json")
}

func (s *FileReviewStore) Save(ctx context.Context, key string, review reviewagent.Review) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create review directory: %w", err)
	}

	b, err := json.MarshalIndent(review, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write review: %w", err)
	}
	return nil
}

func (s *FileReviewStore) Get(ctx context.Context, key string) (reviewagent.Review, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return reviewagent.Review{}, ErrNotFound
	}
	if err != nil {
		return reviewagent.Review{}, fmt.Errorf("failed to read review: %w", err)
	}
	return decodeReview(b)
}
