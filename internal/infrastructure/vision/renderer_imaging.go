//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"annotation-survey/internal/domain/entity"
)

// Render декодирует изображение, рисует контуры рамок цветом их типа и возвращает PNG.
func (r *Renderer) Render(imageData []byte, boxes []entity.BoundingBox) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, errors.New("empty image")
	}

	scale := r.scaleFor(bounds.Dx(), bounds.Dy())
	if scale < 1 {
		src = imaging.Resize(src, int(float64(bounds.Dx())*scale), 0, imaging.Lanczos)
	}
	img := imaging.Clone(src)

	for _, b := range boxes {
		strokeRect(img, boxRect(b, scale), r.Thickness, image.NewUniform(categoryColor(b.ObjectType)))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// strokeRect рисует контур прямоугольника толщиной t внутрь от его границы
func strokeRect(dst draw.Image, rect image.Rectangle, t int, src image.Image) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	if t < 1 {
		t = 1
	}

	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t),
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y),
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(rect), src, image.Point{}, draw.Src)
	}
}
