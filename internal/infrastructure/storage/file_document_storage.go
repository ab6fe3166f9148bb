package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"annotation-survey/internal/domain/port"
)

// SurveyDataKey имя ключа, под которым хранится документ опроса
const SurveyDataKey = "survey_data"

// FileDocumentStorage хранит документ опроса одним JSON-файлом
type FileDocumentStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileDocumentStorage создаёт хранилище в каталоге dir, файл <dir>/survey_data.json
func NewFileDocumentStorage(dir string) *FileDocumentStorage {
	return &FileDocumentStorage{
		path: filepath.Join(dir, SurveyDataKey+".json"),
	}
}

// Path путь к файлу документа
func (s *FileDocumentStorage) Path() string {
	return s.path
}

// Load читает файл, отсутствие файла не ошибка
func (s *FileDocumentStorage) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

// Save записывает документ через временный файл, чтобы не оставить его наполовину записанным
func (s *FileDocumentStorage) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.DocumentStorage = (*FileDocumentStorage)(nil)
