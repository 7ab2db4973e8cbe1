package voucher

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage keeps audit copies of captured images
type Storage interface {
	// Save writes data under filename and returns the stored name
	Save(filename string, data []byte) (string, error)

	// Get reads a stored file back
	Get(path string) ([]byte, error)
}

// LocalStorage stores files in a directory on disk
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates basePath if needed
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save overwrites any existing file with the same name
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	name := filepath.Base(filename)
	if err := os.WriteFile(filepath.Join(l.basePath, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

func (l *LocalStorage) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}
