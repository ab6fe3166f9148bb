package port

import (
	"context"
	"errors"
	"time"

	"annotation-survey/internal/domain/entity"
)

// ErrSessionNotFound сессия с таким id не существует
var ErrSessionNotFound = errors.New("survey session not found")

// SurveyRepository интерфейс серверного хранилища опросов
type SurveyRepository interface {
	// CreateSession создаёт сессию с временем начала и completed=false
	CreateSession(ctx context.Context, startedAt time.Time) (*entity.Session, error)

	// Replace в одной транзакции удаляет прежние записи сессии, вставляет новые
	// и обновляет признак завершения. endTime задаётся только для завершённой сессии.
	Replace(ctx context.Context, sessionID string, annotations []entity.AnnotationRecord, classifications []entity.ClassificationRecord, completed bool, at time.Time) error

	// Session возвращает сессию с записями, упорядоченными по индексу изображения
	Session(ctx context.Context, sessionID string) (*entity.SessionDetails, error)

	// Stats возвращает сводную статистику
	Stats(ctx context.Context) (*entity.Stats, error)
}
