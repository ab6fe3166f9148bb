package port

import "context"

// DocumentStorage локальное долговременное хранилище документа опроса под одним ключом
type DocumentStorage interface {
	// Load возвращает сохранённые байты или nil, если ничего не сохранено
	Load(ctx context.Context) ([]byte, error)

	// Save перезаписывает значение целиком
	Save(ctx context.Context, data []byte) error
}
