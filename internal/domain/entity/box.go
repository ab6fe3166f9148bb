package entity

import (
	"errors"
	"fmt"
	"math"
)

// MinBoxSize минимальная сторона рамки в пикселях, меньшие рамки отбрасываются
const MinBoxSize = 20.0

// ErrInvalidCategory неизвестный тип объекта
var ErrInvalidCategory = errors.New("invalid object type")

// Category тип объекта, который размечает участник
type Category string

const (
	CategoryDeer Category = "deer" // Олень
	CategoryRock Category = "rock" // Камень
	CategoryBear Category = "bear" // Медведь
)

// Categories возвращает все типы объектов в порядке показа
func Categories() []Category {
	return []Category{CategoryDeer, CategoryRock, CategoryBear}
}

// ParseCategory разбирает строку в тип объекта
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate проверяет, что тип объекта из закрытого списка
func (c Category) Validate() error {
	switch c {
	case CategoryDeer, CategoryRock, CategoryBear:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
}

// Label возвращает подпись для пользователя
func (c Category) Label() string {
	switch c {
	case CategoryDeer:
		return "Deer"
	case CategoryRock:
		return "Rock"
	case CategoryBear:
		return "Bear"
	default:
		return string(c)
	}
}

// Color возвращает цвет рамки в RGB
func (c Category) Color() (r, g, b uint8) {
	switch c {
	case CategoryDeer:
		return 239, 68, 68
	case CategoryRock:
		return 59, 130, 246
	case CategoryBear:
		return 34, 197, 94
	default:
		return 250, 204, 21
	}
}

// Point точка в координатах изображения
type Point struct {
	X float64
	Y float64
}

// BoundingBox прямоугольная рамка вокруг объекта на изображении
type BoundingBox struct {
	X          float64  `json:"x"`          // координата X левого верхнего угла
	Y          float64  `json:"y"`          // координата Y левого верхнего угла
	Width      float64  `json:"width"`      // ширина рамки
	Height     float64  `json:"height"`     // высота рамки
	ID         string   `json:"id"`         // уникальный идентификатор
	ObjectType Category `json:"objectType"` // тип объекта
}

// Normalize строит рамку по двум произвольным углам.
// Левый верхний угол берётся как покомпонентный минимум, стороны как модуль разности.
func Normalize(p0, p1 Point) BoundingBox {
	return BoundingBox{
		X:      math.Min(p0.X, p1.X),
		Y:      math.Min(p0.Y, p1.Y),
		Width:  math.Abs(p1.X - p0.X),
		Height: math.Abs(p1.Y - p0.Y),
	}
}

// Contains проверяет попадание точки в рамку (границы включительно)
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Large сообщает, что обе стороны строго больше min
func (b BoundingBox) Large(min float64) bool {
	return b.Width > min && b.Height > min
}

// HitTest возвращает первую рамку в порядке списка, содержащую точку
func HitTest(boxes []BoundingBox, p Point) (BoundingBox, bool) {
	for _, b := range boxes {
		if b.Contains(p) {
			return b, true
		}
	}
	return BoundingBox{}, false
}

// RemoveBox возвращает новый список без рамки с указанным id, порядок остальных сохраняется
func RemoveBox(boxes []BoundingBox, id string) []BoundingBox {
	out := make([]BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

// CountByCategory считает рамки по типам объектов
func CountByCategory(boxes []BoundingBox) map[Category]int {
	counts := make(map[Category]int, len(Categories()))
	for _, b := range boxes {
		switch b.ObjectType {
		case CategoryDeer, CategoryRock, CategoryBear:
			counts[b.ObjectType]++
		}
	}
	return counts
}
