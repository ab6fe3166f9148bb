package entity

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidRating     = errors.New("invalid rating")
	ErrInvalidConfidence = errors.New("invalid confidence")
	ErrInvalidStep       = errors.New("invalid survey step")
)

// Step шаг мастера опроса
type Step string

const (
	StepStart          Step = "start"          // Стартовый экран
	StepAnnotation     Step = "annotation"     // Разметка рамками
	StepClassification Step = "classification" // Оценка изображений
	StepComplete       Step = "complete"       // Опрос завершён
)

// ParseStep разбирает строку в шаг мастера
func ParseStep(s string) (Step, error) {
	switch st := Step(s); st {
	case StepStart, StepAnnotation, StepClassification, StepComplete:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStep, s)
	}
}

// Rating оценка сгенерированного изображения
type Rating string

const (
	RatingGood Rating = "good"
	RatingBad  Rating = "bad"
)

// ParseRating разбирает строку в оценку
func ParseRating(s string) (Rating, error) {
	switch r := Rating(s); r {
	case RatingGood, RatingBad:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
}

// Confidence уверенность участника в оценке
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence разбирает строку в уверенность, пустая строка допустима
func ParseConfidence(s string) (Confidence, error) {
	switch c := Confidence(s); c {
	case "", ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConfidence, s)
	}
}

// Classification оценка одного изображения
type Classification struct {
	Rating     Rating     `json:"rating"`
	Confidence Confidence `json:"confidence,omitempty"`
	Timestamp  int64      `json:"timestamp"` // Unix, миллисекунды
}

// AnnotationData рамки, нарисованные на одном изображении
type AnnotationData struct {
	ImageIndex    int           `json:"imageIndex"`
	ImagePath     string        `json:"imagePath"`
	BoundingBoxes []BoundingBox `json:"boundingBoxes"`
	CompletedAt   *int64        `json:"completedAt,omitempty"`
}

// ClassificationData оценка, сохранённая для одного изображения
type ClassificationData struct {
	ImageIndex     int            `json:"imageIndex"`
	ImagePath      string         `json:"imagePath"`
	Classification Classification `json:"classification"`
	CompletedAt    *int64         `json:"completedAt,omitempty"`
}

// Progress прогресс по одной задаче
type Progress struct {
	CurrentImageIndex int   `json:"currentImageIndex"`
	TotalImages       int   `json:"totalImages"`
	CompletedImages   []int `json:"completedImages"` // отсортированное множество индексов
}

// IsCompleted проверяет, входит ли индекс в множество завершённых
func (p Progress) IsCompleted(index int) bool {
	i := sort.SearchInts(p.CompletedImages, index)
	return i < len(p.CompletedImages) && p.CompletedImages[i] == index
}

// Percent доля завершённых изображений в процентах
func (p Progress) Percent() float64 {
	if p.TotalImages <= 0 {
		return 0
	}
	return float64(len(p.CompletedImages)) / float64(p.TotalImages) * 100
}

// withCompleted возвращает копию прогресса, где index входит или не входит в множество
func (p Progress) withCompleted(index int, completed bool) Progress {
	out := make([]int, 0, len(p.CompletedImages)+1)
	for _, i := range p.CompletedImages {
		if i != index {
			out = append(out, i)
		}
	}
	if completed {
		out = append(out, index)
		sort.Ints(out)
	}
	p.CompletedImages = out
	return p
}

// MarkCompleted добавляет индекс в множество завершённых
func (p Progress) MarkCompleted(index int) Progress {
	return p.withCompleted(index, true)
}

// Unmark убирает индекс из множества завершённых
func (p Progress) Unmark(index int) Progress {
	return p.withCompleted(index, false)
}

// SurveyDocument единственный документ состояния опроса
type SurveyDocument struct {
	SessionID              string                     `json:"sessionId"`
	StartedAt              int64                      `json:"startedAt"`
	Annotations            map[int]AnnotationData     `json:"annotations"`
	Classifications        map[int]ClassificationData `json:"classifications"`
	CurrentStep            Step                       `json:"currentStep"`
	AnnotationProgress     Progress                   `json:"annotationProgress"`
	ClassificationProgress Progress                   `json:"classificationProgress"`
	CompletedAt            *int64                     `json:"completedAt,omitempty"`
}

// IsComplete документ в терминальном состоянии
func (d SurveyDocument) IsComplete() bool {
	return d.CurrentStep == StepComplete
}

// Clone возвращает глубокую копию документа
func (d SurveyDocument) Clone() SurveyDocument {
	out := d

	out.Annotations = make(map[int]AnnotationData, len(d.Annotations))
	for k, v := range d.Annotations {
		boxes := make([]BoundingBox, len(v.BoundingBoxes))
		copy(boxes, v.BoundingBoxes)
		v.BoundingBoxes = boxes
		v.CompletedAt = cloneInt64(v.CompletedAt)
		out.Annotations[k] = v
	}

	out.Classifications = make(map[int]ClassificationData, len(d.Classifications))
	for k, v := range d.Classifications {
		v.CompletedAt = cloneInt64(v.CompletedAt)
		out.Classifications[k] = v
	}

	out.AnnotationProgress.CompletedImages = cloneInts(d.AnnotationProgress.CompletedImages)
	out.ClassificationProgress.CompletedImages = cloneInts(d.ClassificationProgress.CompletedImages)
	out.CompletedAt = cloneInt64(d.CompletedAt)

	return out
}

// SurveyProgress проценты выполнения, вычисляются по запросу
type SurveyProgress struct {
	Annotation     float64 `json:"annotationProgress"`
	Classification float64 `json:"classificationProgress"`
	Overall        float64 `json:"overallProgress"`
}

// Progress считает проценты по обеим задачам
func (d SurveyDocument) Progress() SurveyProgress {
	a := d.AnnotationProgress.Percent()
	c := d.ClassificationProgress.Percent()
	return SurveyProgress{
		Annotation:     a,
		Classification: c,
		Overall:        (a + c) / 2,
	}
}

// SurveySummary итоги завершённого опроса
type SurveySummary struct {
	AnnotatedImages int
	TotalBoxes      int
	BoxesByCategory map[Category]int
	RatedImages     int
	GoodRatings     int
	BadRatings      int
	DurationMinutes int64 // 0, пока опрос не завершён
}

// Summary считает итоги по документу
func (d SurveyDocument) Summary() SurveySummary {
	sum := SurveySummary{
		AnnotatedImages: len(d.Annotations),
		RatedImages:     len(d.Classifications),
	}

	var boxes []BoundingBox
	for _, a := range d.Annotations {
		boxes = append(boxes, a.BoundingBoxes...)
	}
	sum.TotalBoxes = len(boxes)
	sum.BoxesByCategory = CountByCategory(boxes)

	for _, c := range d.Classifications {
		switch c.Classification.Rating {
		case RatingGood:
			sum.GoodRatings++
		case RatingBad:
			sum.BadRatings++
		}
	}

	if d.CompletedAt != nil {
		sum.DurationMinutes = int64(math.Round(float64(*d.CompletedAt-d.StartedAt) / 60000))
	}
	return sum
}

// ImageSet упорядоченный список изображений задачи
type ImageSet []string

// DefaultImageSet восемь изображений, общие для обеих задач
func DefaultImageSet() ImageSet {
	return ImageSet{"/1.png", "/2.png", "/3.png", "/4.png", "/5.png", "/6.png", "/7.png", "/8.png"}
}

// Path возвращает путь изображения или пустую строку, если индекса нет
func (s ImageSet) Path(index int) string {
	if index < 0 || index >= len(s) {
		return ""
	}
	return s[index]
}

// Contains проверяет, что индекс внутри набора
func (s ImageSet) Contains(index int) bool {
	return index >= 0 && index < len(s)
}

func cloneInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
