package port

import (
	"context"

	"annotation-survey/internal/domain/entity"
)

// Notifier интерфейс уведомлений о завершённых опросах
type Notifier interface {
	// SurveyCompleted сообщает, что участник закончил опрос
	SurveyCompleted(ctx context.Context, session *entity.SessionDetails) error
}
