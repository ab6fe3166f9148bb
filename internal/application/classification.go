package app

import (
	"context"
	"fmt"

	"annotation-survey/internal/domain/entity"
)

// Classifier оценка сгенерированных изображений по одному
type Classifier struct {
	survey *Survey
	index  int
}

// NewClassifier открывает шаг оценки и продолжает с сохранённого изображения
func NewClassifier(ctx context.Context, survey *Survey) (*Classifier, error) {
	if err := survey.Dispatch(ctx, SetStep{Step: entity.StepClassification}); err != nil {
		return nil, err
	}

	c := &Classifier{survey: survey}
	c.index = survey.Document().ClassificationProgress.CurrentImageIndex
	if !survey.ClassificationImages().Contains(c.index) {
		c.index = 0
	}
	return c, nil
}

// ImageIndex текущее изображение
func (c *Classifier) ImageIndex() int {
	return c.index
}

// ImagePath путь текущего изображения
func (c *Classifier) ImagePath() string {
	return c.survey.ClassificationImages().Path(c.index)
}

// Current оценка текущего изображения, если она есть
func (c *Classifier) Current() (entity.ClassificationData, bool) {
	data, ok := c.survey.Document().Classifications[c.index]
	return data, ok
}

// Rate ставит оценку текущему изображению, прежняя оценка заменяется
func (c *Classifier) Rate(ctx context.Context, rating entity.Rating, confidence entity.Confidence) error {
	if _, err := entity.ParseRating(string(rating)); err != nil {
		return err
	}
	if _, err := entity.ParseConfidence(string(confidence)); err != nil {
		return err
	}
	return c.survey.Dispatch(ctx, UpdateClassification{
		ImageIndex: c.index,
		Classification: entity.Classification{
			Rating:     rating,
			Confidence: confidence,
			Timestamp:  c.survey.now(),
		},
	})
}

// ClearRating снимает оценку текущего изображения
func (c *Classifier) ClearRating(ctx context.Context) error {
	return c.survey.Dispatch(ctx, ClearClassification{ImageIndex: c.index})
}

// Next переходит к следующему изображению
func (c *Classifier) Next(ctx context.Context) (bool, error) {
	if c.index >= len(c.survey.ClassificationImages())-1 {
		return false, nil
	}
	return true, c.GoTo(ctx, c.index+1)
}

// Prev переходит к предыдущему изображению
func (c *Classifier) Prev(ctx context.Context) (bool, error) {
	if c.index == 0 {
		return false, nil
	}
	return true, c.GoTo(ctx, c.index-1)
}

// GoTo переходит к изображению по индексу
func (c *Classifier) GoTo(ctx context.Context, index int) error {
	if !c.survey.ClassificationImages().Contains(index) {
		return fmt.Errorf("%w: %d", ErrImageOutOfRange, index)
	}
	c.index = index
	return c.survey.Dispatch(ctx, SetClassificationImage{ImageIndex: index})
}

// KeyDown горячие клавиши: G хорошо, B плохо, R снять оценку, стрелки для навигации
func (c *Classifier) KeyDown(ctx context.Context, key string) error {
	var err error
	switch key {
	case "g", "G":
		err = c.Rate(ctx, entity.RatingGood, "")
	case "b", "B":
		err = c.Rate(ctx, entity.RatingBad, "")
	case "r", "R":
		err = c.ClearRating(ctx)
	case "ArrowLeft":
		_, err = c.Prev(ctx)
	case "ArrowRight":
		_, err = c.Next(ctx)
	}
	return err
}

// AllRated все изображения оценены
func (c *Classifier) AllRated() bool {
	doc := c.survey.Document()
	return len(doc.ClassificationProgress.CompletedImages) == len(c.survey.ClassificationImages())
}
