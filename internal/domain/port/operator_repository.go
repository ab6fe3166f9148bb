package port

import (
	"context"

	"annotation-survey/internal/domain/entity"
)

// OperatorRepository интерфейс хранилища операторов бота
type OperatorRepository interface {
	// Get возвращает оператора по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error)

	// Save сохраняет состояние оператора
	Save(ctx context.Context, operator *entity.Operator) error

	// Subscribers возвращает операторов, подписанных на уведомления
	Subscribers(ctx context.Context) ([]*entity.Operator, error)
}
