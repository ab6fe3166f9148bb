package vision

import (
	"image"
	"image/color"
	"math"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

// Renderer рисует рамки разметки поверх изображения для предпросмотра
type Renderer struct {
	MaxSide   int // длинная сторона результата, 0 без ограничения
	Thickness int // толщина контура в пикселях
}

// NewRenderer создаёт рендерер с ограничением размера результата
func NewRenderer(maxSide int) *Renderer {
	return &Renderer{
		MaxSide:   maxSide,
		Thickness: 2,
	}
}

// scaleFor коэффициент уменьшения, чтобы длинная сторона не превышала MaxSide
func (r *Renderer) scaleFor(width, height int) float64 {
	longest := width
	if height > longest {
		longest = height
	}
	if r.MaxSide <= 0 || longest <= r.MaxSide {
		return 1
	}
	return float64(r.MaxSide) / float64(longest)
}

// boxRect переводит рамку в пиксельный прямоугольник с учётом масштаба
func boxRect(b entity.BoundingBox, scale float64) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X*scale)),
		int(math.Round(b.Y*scale)),
		int(math.Round((b.X+b.Width)*scale)),
		int(math.Round((b.Y+b.Height)*scale)),
	)
}

func categoryColor(c entity.Category) color.RGBA {
	red, green, blue := c.Color()
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

// Проверка реализации интерфейса
var _ port.BoxRenderer = (*Renderer)(nil)
