package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"annotation-survey/internal/domain/entity"
)

// Action переход состояния опроса. Набор действий закрыт.
type Action interface {
	isAction()
}

// Initialize заменяет документ новым с пустыми данными
type Initialize struct{}

// SetStep меняет только текущий шаг мастера
type SetStep struct{ Step entity.Step }

// UpdateAnnotation заменяет рамки изображения целиком
type UpdateAnnotation struct {
	ImageIndex int
	Boxes      []entity.BoundingBox
}

// UpdateClassification заменяет оценку изображения
type UpdateClassification struct {
	ImageIndex     int
	Classification entity.Classification
}

// ClearClassification удаляет оценку изображения
type ClearClassification struct{ ImageIndex int }

// SetAnnotationImage запоминает текущее изображение разметки
type SetAnnotationImage struct{ ImageIndex int }

// SetClassificationImage запоминает текущее изображение оценки
type SetClassificationImage struct{ ImageIndex int }

// CompleteSurvey переводит опрос в завершённое состояние
type CompleteSurvey struct{}

// Reset то же, что Initialize
type Reset struct{}

// LoadDocument заменяет документ целиком, используется при восстановлении
type LoadDocument struct{ Document entity.SurveyDocument }

// SetSessionID заменяет локальный id сессии на выданный сервером
type SetSessionID struct{ SessionID string }

func (Initialize) isAction()             {}
func (SetStep) isAction()                {}
func (UpdateAnnotation) isAction()       {}
func (UpdateClassification) isAction()   {}
func (ClearClassification) isAction()    {}
func (SetAnnotationImage) isAction()     {}
func (SetClassificationImage) isAction() {}
func (CompleteSurvey) isAction()         {}
func (Reset) isAction()                  {}
func (LoadDocument) isAction()           {}
func (SetSessionID) isAction()           {}

// Reducer чистая функция переходов документа опроса.
// Часы и генератор id подставляются снаружи, чтобы переходы были воспроизводимы в тестах.
type Reducer struct {
	AnnotationImages     entity.ImageSet
	ClassificationImages entity.ImageSet
	Now                  func() time.Time
	NewSessionID         func() string
}

// NewReducer создаёт редьюсер с системными часами
func NewReducer(annotationImages, classificationImages entity.ImageSet) *Reducer {
	r := &Reducer{
		AnnotationImages:     annotationImages,
		ClassificationImages: classificationImages,
		Now:                  time.Now,
	}
	r.NewSessionID = func() string {
		return fmt.Sprintf("survey_%d_%s", r.Now().UnixMilli(), uuid.NewString()[:8])
	}
	return r
}

// Initial возвращает свежий документ
func (r *Reducer) Initial() entity.SurveyDocument {
	return entity.SurveyDocument{
		SessionID:       r.NewSessionID(),
		StartedAt:       r.Now().UnixMilli(),
		Annotations:     make(map[int]entity.AnnotationData),
		Classifications: make(map[int]entity.ClassificationData),
		CurrentStep:     entity.StepStart,
		AnnotationProgress: entity.Progress{
			TotalImages:     len(r.AnnotationImages),
			CompletedImages: []int{},
		},
		ClassificationProgress: entity.Progress{
			TotalImages:     len(r.ClassificationImages),
			CompletedImages: []int{},
		},
	}
}

// Apply применяет действие и возвращает новый документ, исходный не меняется
func (r *Reducer) Apply(doc entity.SurveyDocument, action Action) entity.SurveyDocument {
	switch a := action.(type) {
	case Initialize, Reset:
		return r.Initial()

	case SetStep:
		next := doc.Clone()
		next.CurrentStep = a.Step
		return next

	case UpdateAnnotation:
		if !r.AnnotationImages.Contains(a.ImageIndex) {
			return doc
		}
		next := doc.Clone()
		boxes := make([]entity.BoundingBox, len(a.Boxes))
		copy(boxes, a.Boxes)
		now := r.Now().UnixMilli()
		next.Annotations[a.ImageIndex] = entity.AnnotationData{
			ImageIndex:    a.ImageIndex,
			ImagePath:     r.AnnotationImages.Path(a.ImageIndex),
			BoundingBoxes: boxes,
			CompletedAt:   &now,
		}
		// Изображение считается размеченным, пока на нём есть хотя бы одна рамка.
		if len(boxes) > 0 {
			next.AnnotationProgress = next.AnnotationProgress.MarkCompleted(a.ImageIndex)
		} else {
			next.AnnotationProgress = next.AnnotationProgress.Unmark(a.ImageIndex)
		}
		return next

	case UpdateClassification:
		if !r.ClassificationImages.Contains(a.ImageIndex) {
			return doc
		}
		next := doc.Clone()
		now := r.Now().UnixMilli()
		next.Classifications[a.ImageIndex] = entity.ClassificationData{
			ImageIndex:     a.ImageIndex,
			ImagePath:      r.ClassificationImages.Path(a.ImageIndex),
			Classification: a.Classification,
			CompletedAt:    &now,
		}
		next.ClassificationProgress = next.ClassificationProgress.MarkCompleted(a.ImageIndex)
		return next

	case ClearClassification:
		if _, ok := doc.Classifications[a.ImageIndex]; !ok {
			return doc
		}
		next := doc.Clone()
		delete(next.Classifications, a.ImageIndex)
		next.ClassificationProgress = next.ClassificationProgress.Unmark(a.ImageIndex)
		return next

	case SetAnnotationImage:
		next := doc.Clone()
		next.AnnotationProgress.CurrentImageIndex = a.ImageIndex
		return next

	case SetClassificationImage:
		next := doc.Clone()
		next.ClassificationProgress.CurrentImageIndex = a.ImageIndex
		return next

	case CompleteSurvey:
		next := doc.Clone()
		now := r.Now().UnixMilli()
		next.CurrentStep = entity.StepComplete
		next.CompletedAt = &now
		return next

	case LoadDocument:
		return a.Document.Clone()

	case SetSessionID:
		next := doc.Clone()
		next.SessionID = a.SessionID
		return next

	default:
		return doc
	}
}
