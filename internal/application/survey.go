package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

// Survey владеет документом опроса. Все изменения идут через Dispatch,
// после каждого перехода документ целиком записывается в локальное хранилище.
type Survey struct {
	reducer *Reducer
	storage port.DocumentStorage

	mu  sync.Mutex
	doc entity.SurveyDocument

	// persistMu берётся под mu, записи идут в порядке переходов
	persistMu sync.Mutex
}

// NewSurvey создаёт контейнер со свежим документом
func NewSurvey(reducer *Reducer, storage port.DocumentStorage) *Survey {
	return &Survey{
		reducer: reducer,
		storage: storage,
		doc:     reducer.Initial(),
	}
}

// Restore загружает сохранённый документ. Ошибки чтения и разбора только логируются,
// в этом случае остаётся свежий документ.
func (s *Survey) Restore(ctx context.Context) bool {
	if s.storage == nil {
		return false
	}

	data, err := s.storage.Load(ctx)
	if err != nil {
		log.Printf("Failed to read survey data: %v", err)
		return false
	}
	if len(data) == 0 {
		return false
	}

	var doc entity.SurveyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("Failed to load survey data: %v", err)
		return false
	}

	if err := s.Dispatch(ctx, LoadDocument{Document: doc}); err != nil {
		log.Printf("Failed to persist restored survey data: %v", err)
	}
	return true
}

// Dispatch применяет действие и сохраняет документ.
// Переход применяется даже если запись в хранилище не удалась.
func (s *Survey) Dispatch(ctx context.Context, action Action) error {
	s.mu.Lock()
	s.doc = s.reducer.Apply(s.doc, action)
	data, err := json.Marshal(s.doc)
	s.persistMu.Lock()
	s.mu.Unlock()
	defer s.persistMu.Unlock()

	if err != nil {
		return fmt.Errorf("encode survey data: %w", err)
	}
	if s.storage == nil {
		return nil
	}
	if err := s.storage.Save(ctx, data); err != nil {
		return fmt.Errorf("persist survey data: %w", err)
	}
	return nil
}

// Document возвращает копию текущего документа
func (s *Survey) Document() entity.SurveyDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Progress считает проценты выполнения по текущему документу
func (s *Survey) Progress() entity.SurveyProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Progress()
}

// Export возвращает документ в виде JSON и имя файла для скачивания
func (s *Survey) Export() (string, []byte, error) {
	doc := s.Document()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode survey data: %w", err)
	}
	return fmt.Sprintf("survey_data_%s.json", doc.SessionID), data, nil
}

// AnnotationImages изображения задачи разметки
func (s *Survey) AnnotationImages() entity.ImageSet {
	return s.reducer.AnnotationImages
}

// ClassificationImages изображения задачи оценки
func (s *Survey) ClassificationImages() entity.ImageSet {
	return s.reducer.ClassificationImages
}

// now текущее время по часам редьюсера, Unix миллисекунды
func (s *Survey) now() int64 {
	return s.reducer.Now().UnixMilli()
}
