package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"annotation-survey/internal/domain/entity"
)

// memStorage хранит документ в памяти, счётчик записей нужен тестам
type memStorage struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	loadErr error
}

func (m *memStorage) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data, nil
}

func (m *memStorage) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

var testEpoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestReducer() *Reducer {
	var (
		mu   sync.Mutex
		tick int64
		seq  int
	)
	r := NewReducer(entity.DefaultImageSet(), entity.DefaultImageSet())
	r.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return testEpoch.Add(time.Duration(tick) * time.Millisecond)
	}
	r.NewSessionID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("survey_test_%d", seq)
	}
	return r
}

func newTestSurvey(t *testing.T) (*Survey, *memStorage) {
	t.Helper()
	store := &memStorage{}
	return NewSurvey(newTestReducer(), store), store
}
