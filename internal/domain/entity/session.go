package entity

import (
	"fmt"
	"sort"
	"time"
)

// Session сессия опроса на стороне сервера
type Session struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Completed bool       `json:"completed"`
}

// AnnotationRecord одна рамка в плоском виде, как она лежит в хранилище
type AnnotationRecord struct {
	SessionID  string   `json:"sessionId"`
	ImageIndex int      `json:"imageIndex"`
	ImagePath  string   `json:"imagePath"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	ObjectType Category `json:"objectType"`
}

// ClassificationRecord одна оценка в плоском виде
type ClassificationRecord struct {
	SessionID  string `json:"sessionId"`
	ImageIndex int    `json:"imageIndex"`
	ImagePath  string `json:"imagePath"`
	Rating     Rating `json:"rating"`
}

// SessionDetails сессия вместе с сохранёнными данными
type SessionDetails struct {
	Session
	Annotations     []AnnotationRecord     `json:"annotations"`
	Classifications []ClassificationRecord `json:"classifications"`
}

// BoxesForImage возвращает рамки одного изображения
func (d SessionDetails) BoxesForImage(index int) []BoundingBox {
	boxes := make([]BoundingBox, 0)
	for i, a := range d.Annotations {
		if a.ImageIndex != index {
			continue
		}
		boxes = append(boxes, BoundingBox{
			X:          a.X,
			Y:          a.Y,
			Width:      a.Width,
			Height:     a.Height,
			ID:         fmt.Sprintf("%d", i),
			ObjectType: a.ObjectType,
		})
	}
	return boxes
}

// CategoryCount количество рамок одного типа
type CategoryCount struct {
	ObjectType Category `json:"objectType"`
	Count      int      `json:"count"`
}

// RatingCount количество оценок одного вида
type RatingCount struct {
	Rating Rating `json:"rating"`
	Count  int    `json:"count"`
}

// Stats сводная статистика по всем сессиям
type Stats struct {
	TotalSessions          int             `json:"totalSessions"`
	CompletedSessions      int             `json:"completedSessions"`
	TotalAnnotations       int             `json:"totalAnnotations"`
	TotalClassifications   int             `json:"totalClassifications"`
	ObjectTypeDistribution []CategoryCount `json:"objectTypeDistribution"`
	RatingDistribution     []RatingCount   `json:"ratingDistribution"`
}

// SortDistributions упорядочивает распределения по ключу для стабильного вывода
func (s *Stats) SortDistributions() {
	sort.Slice(s.ObjectTypeDistribution, func(i, j int) bool {
		return s.ObjectTypeDistribution[i].ObjectType < s.ObjectTypeDistribution[j].ObjectType
	})
	sort.Slice(s.RatingDistribution, func(i, j int) bool {
		return s.RatingDistribution[i].Rating < s.RatingDistribution[j].Rating
	})
}

// BoxPayload рамка в запросе сохранения
type BoxPayload struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	ObjectType Category `json:"objectType"`
}

// ImageAnnotationPayload рамки одного изображения в запросе сохранения
type ImageAnnotationPayload struct {
	ImageIndex int          `json:"imageIndex"`
	ImagePath  string       `json:"imagePath"`
	Boxes      []BoxPayload `json:"boxes"`
}

// ClassificationPayload оценка одного изображения в запросе сохранения
type ClassificationPayload struct {
	ImageIndex int    `json:"imageIndex"`
	ImagePath  string `json:"imagePath"`
	Rating     Rating `json:"rating"`
}

// SavePayload тело POST /survey/save
type SavePayload struct {
	SessionID       string                   `json:"sessionId"`
	Annotations     []ImageAnnotationPayload `json:"annotations"`
	Classifications []ClassificationPayload  `json:"classifications"`
	Completed       bool                     `json:"completed"`
}

// NewSavePayload переводит документ опроса в плоский запрос, упорядоченный по индексу изображения
func NewSavePayload(doc SurveyDocument, completed bool) SavePayload {
	p := SavePayload{
		SessionID:       doc.SessionID,
		Annotations:     make([]ImageAnnotationPayload, 0, len(doc.Annotations)),
		Classifications: make([]ClassificationPayload, 0, len(doc.Classifications)),
		Completed:       completed,
	}

	for _, idx := range sortedKeys(doc.Annotations) {
		a := doc.Annotations[idx]
		boxes := make([]BoxPayload, 0, len(a.BoundingBoxes))
		for _, b := range a.BoundingBoxes {
			boxes = append(boxes, BoxPayload{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, ObjectType: b.ObjectType})
		}
		p.Annotations = append(p.Annotations, ImageAnnotationPayload{
			ImageIndex: a.ImageIndex,
			ImagePath:  a.ImagePath,
			Boxes:      boxes,
		})
	}

	for _, idx := range sortedKeys(doc.Classifications) {
		c := doc.Classifications[idx]
		p.Classifications = append(p.Classifications, ClassificationPayload{
			ImageIndex: c.ImageIndex,
			ImagePath:  c.ImagePath,
			Rating:     c.Classification.Rating,
		})
	}

	return p
}

// Records проверяет запрос и разворачивает его в записи хранилища
func (p SavePayload) Records() ([]AnnotationRecord, []ClassificationRecord, error) {
	annotations := make([]AnnotationRecord, 0)
	for _, img := range p.Annotations {
		for _, b := range img.Boxes {
			if err := b.ObjectType.Validate(); err != nil {
				return nil, nil, fmt.Errorf("image %d: %w", img.ImageIndex, err)
			}
			annotations = append(annotations, AnnotationRecord{
				SessionID:  p.SessionID,
				ImageIndex: img.ImageIndex,
				ImagePath:  img.ImagePath,
				X:          b.X,
				Y:          b.Y,
				Width:      b.Width,
				Height:     b.Height,
				ObjectType: b.ObjectType,
			})
		}
	}

	classifications := make([]ClassificationRecord, 0, len(p.Classifications))
	for _, c := range p.Classifications {
		if _, err := ParseRating(string(c.Rating)); err != nil {
			return nil, nil, fmt.Errorf("image %d: %w", c.ImageIndex, err)
		}
		classifications = append(classifications, ClassificationRecord{
			SessionID:  p.SessionID,
			ImageIndex: c.ImageIndex,
			ImagePath:  c.ImagePath,
			Rating:     c.Rating,
		})
	}

	return annotations, classifications, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
