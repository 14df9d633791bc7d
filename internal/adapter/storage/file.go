package storage

import (
	"context"
	"fmt"
	"os"

	"tableside/internal/interfaces"
)

// fileStorage keeps the serialized client state in a single JSON file. A
// missing file means nothing was saved yet, not an error.
type fileStorage struct {
	path string
}

func NewFileStorage(path string) interfaces.StateStorage {
	return &fileStorage{path: path}
}

func (s *fileStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return data, nil
}

func (s *fileStorage) Save(ctx context.Context, data []byte) error {
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
