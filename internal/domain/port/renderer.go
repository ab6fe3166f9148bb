package port

import (
	"annotation-survey/internal/domain/entity"
)

// BoxRenderer интерфейс отрисовки рамок поверх изображения
type BoxRenderer interface {
	// Render рисует рамки цветом их типа и возвращает PNG
	Render(imageData []byte, boxes []entity.BoundingBox) ([]byte, error)
}
