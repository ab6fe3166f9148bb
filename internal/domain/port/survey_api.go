package port

import (
	"context"
	"errors"

	"annotation-survey/internal/domain/entity"
)

// ErrRemoteRejected сервер ответил, но отказался выполнить запрос
var ErrRemoteRejected = errors.New("remote store rejected request")

// SurveyAPI интерфейс удалённого хранилища со стороны участника
type SurveyAPI interface {
	// CreateSession регистрирует новую сессию и возвращает её id
	CreateSession(ctx context.Context) (string, error)

	// SaveSurvey отправляет все данные сессии для замены на сервере
	SaveSurvey(ctx context.Context, payload entity.SavePayload) error

	// Stats запрашивает сводную статистику
	Stats(ctx context.Context) (*entity.Stats, error)
}
