//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"gocv.io/x/gocv"

	"annotation-survey/internal/domain/entity"
)

// Render рисует контуры рамок средствами OpenCV и возвращает PNG.
func (r *Renderer) Render(imageData []byte, boxes []entity.BoundingBox) ([]byte, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer func() { mat.Close() }()

	scale := r.scaleFor(mat.Cols(), mat.Rows())
	if scale < 1 {
		newW := int(float64(mat.Cols()) * scale)
		newH := int(float64(mat.Rows()) * scale)
		resized := gocv.NewMat()
		gocv.Resize(mat, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)
		mat.Close()
		mat = resized
	}

	for _, b := range boxes {
		gocv.Rectangle(&mat, boxRect(b, scale), categoryColor(b.ObjectType), r.Thickness)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}
