package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

// MemorySurveyRepository in-memory хранилище опросов, используется без MySQL и в тестах
type MemorySurveyRepository struct {
	mu              sync.RWMutex
	sessions        map[string]*entity.Session
	annotations     map[string][]entity.AnnotationRecord
	classifications map[string][]entity.ClassificationRecord
}

// NewMemorySurveyRepository создаёт пустое хранилище
func NewMemorySurveyRepository() *MemorySurveyRepository {
	return &MemorySurveyRepository{
		sessions:        make(map[string]*entity.Session),
		annotations:     make(map[string][]entity.AnnotationRecord),
		classifications: make(map[string][]entity.ClassificationRecord),
	}
}

// CreateSession создаёт сессию
func (r *MemorySurveyRepository) CreateSession(ctx context.Context, startedAt time.Time) (*entity.Session, error) {
	session := &entity.Session{
		ID:        uuid.NewString(),
		StartTime: startedAt,
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	out := *session
	return &out, nil
}

// Replace заменяет записи сессии целиком под одной блокировкой
func (r *MemorySurveyRepository) Replace(ctx context.Context, sessionID string, annotations []entity.AnnotationRecord, classifications []entity.ClassificationRecord, completed bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return port.ErrSessionNotFound
	}

	r.annotations[sessionID] = append([]entity.AnnotationRecord(nil), annotations...)
	r.classifications[sessionID] = append([]entity.ClassificationRecord(nil), classifications...)

	session.Completed = completed
	session.EndTime = nil
	if completed {
		end := at
		session.EndTime = &end
	}

	return nil
}

// Session возвращает сессию с записями, упорядоченными по индексу изображения
func (r *MemorySurveyRepository) Session(ctx context.Context, sessionID string) (*entity.SessionDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, port.ErrSessionNotFound
	}

	details := &entity.SessionDetails{
		Session:         *session,
		Annotations:     append([]entity.AnnotationRecord{}, r.annotations[sessionID]...),
		Classifications: append([]entity.ClassificationRecord{}, r.classifications[sessionID]...),
	}
	sort.SliceStable(details.Annotations, func(i, j int) bool {
		return details.Annotations[i].ImageIndex < details.Annotations[j].ImageIndex
	})
	sort.SliceStable(details.Classifications, func(i, j int) bool {
		return details.Classifications[i].ImageIndex < details.Classifications[j].ImageIndex
	})

	return details, nil
}

// Stats считает статистику по всем сессиям
func (r *MemorySurveyRepository) Stats(ctx context.Context) (*entity.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &entity.Stats{
		TotalSessions:          len(r.sessions),
		ObjectTypeDistribution: []entity.CategoryCount{},
		RatingDistribution:     []entity.RatingCount{},
	}

	for _, s := range r.sessions {
		if s.Completed {
			stats.CompletedSessions++
		}
	}

	byType := make(map[entity.Category]int)
	for _, records := range r.annotations {
		stats.TotalAnnotations += len(records)
		for _, a := range records {
			byType[a.ObjectType]++
		}
	}
	for c, n := range byType {
		stats.ObjectTypeDistribution = append(stats.ObjectTypeDistribution, entity.CategoryCount{ObjectType: c, Count: n})
	}

	byRating := make(map[entity.Rating]int)
	for _, records := range r.classifications {
		stats.TotalClassifications += len(records)
		for _, c := range records {
			byRating[c.Rating]++
		}
	}
	for rt, n := range byRating {
		stats.RatingDistribution = append(stats.RatingDistribution, entity.RatingCount{Rating: rt, Count: n})
	}

	stats.SortDistributions()
	return stats, nil
}

// Проверка реализации интерфейса
var _ port.SurveyRepository = (*MemorySurveyRepository)(nil)
