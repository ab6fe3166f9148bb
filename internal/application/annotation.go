package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"annotation-survey/internal/domain/entity"
)

// ErrImageOutOfRange индекс изображения вне набора
var ErrImageOutOfRange = errors.New("image index out of range")

// ToolMode инструмент разметки
type ToolMode string

const (
	ToolSelect ToolMode = "select" // Выбор рамок
	ToolDraw   ToolMode = "draw"   // Рисование рамок
)

// DragState незавершённое перетаскивание
type DragState struct {
	Anchor  entity.Point
	Current entity.Point
}

// Interaction состояние взаимодействия: инструмент, выбранная рамка и перетаскивание
type Interaction struct {
	Tool      ToolMode
	Selection string     // id выбранной рамки, пусто если ничего не выбрано
	Drag      *DragState // nil вне перетаскивания
}

// Annotator автомат разметки одного изображения за раз
type Annotator struct {
	survey *Survey
	newID  func() string

	index    int
	boxes    []entity.BoundingBox
	category entity.Category
	state    Interaction
}

// NewAnnotator открывает шаг разметки и продолжает с сохранённого изображения
func NewAnnotator(ctx context.Context, survey *Survey) (*Annotator, error) {
	a := &Annotator{
		survey:   survey,
		newID:    uuid.NewString,
		category: entity.CategoryDeer,
		state:    Interaction{Tool: ToolSelect},
	}

	if err := survey.Dispatch(ctx, SetStep{Step: entity.StepAnnotation}); err != nil {
		return nil, err
	}

	doc := survey.Document()
	a.index = doc.AnnotationProgress.CurrentImageIndex
	if !survey.AnnotationImages().Contains(a.index) {
		a.index = 0
	}
	a.load(doc)

	return a, nil
}

// ImageIndex текущее изображение
func (a *Annotator) ImageIndex() int {
	return a.index
}

// ImagePath путь текущего изображения
func (a *Annotator) ImagePath() string {
	return a.survey.AnnotationImages().Path(a.index)
}

// IsLastImage текущее изображение последнее в наборе
func (a *Annotator) IsLastImage() bool {
	return a.index == len(a.survey.AnnotationImages())-1
}

// Boxes копия зафиксированных рамок текущего изображения
func (a *Annotator) Boxes() []entity.BoundingBox {
	out := make([]entity.BoundingBox, len(a.boxes))
	copy(out, a.boxes)
	return out
}

// State текущее состояние взаимодействия
func (a *Annotator) State() Interaction {
	s := a.state
	if s.Drag != nil {
		d := *s.Drag
		s.Drag = &d
	}
	return s
}

// Category тип объекта для новых рамок
func (a *Annotator) Category() entity.Category {
	return a.category
}

// SetCategory меняет тип для новых рамок, уже нарисованные не меняются
func (a *Annotator) SetCategory(c entity.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	a.category = c
	return nil
}

// SetTool переключает инструмент, незавершённое перетаскивание отменяется
func (a *Annotator) SetTool(tool ToolMode) error {
	switch tool {
	case ToolSelect, ToolDraw:
	default:
		return fmt.Errorf("unknown tool %q", string(tool))
	}
	a.state.Tool = tool
	a.state.Drag = nil
	return nil
}

// Preview рамка, которую сейчас рисуют. Она никогда не попадает в список.
func (a *Annotator) Preview() (entity.BoundingBox, bool) {
	if a.state.Drag == nil {
		return entity.BoundingBox{}, false
	}
	b := entity.Normalize(a.state.Drag.Anchor, a.state.Drag.Current)
	b.ObjectType = a.category
	return b, true
}

// PointerDown нажатие на изображении
func (a *Annotator) PointerDown(p entity.Point) {
	switch a.state.Tool {
	case ToolSelect:
		if box, ok := entity.HitTest(a.boxes, p); ok {
			a.state.Selection = box.ID
		} else {
			a.state.Selection = ""
		}
	case ToolDraw:
		a.state.Drag = &DragState{Anchor: p, Current: p}
		a.state.Selection = ""
	}
}

// PointerMove движение указателя, обновляет только предпросмотр
func (a *Annotator) PointerMove(p entity.Point) {
	if a.state.Drag == nil {
		return
	}
	a.state.Drag.Current = p
}

// PointerUp завершает перетаскивание. Рамка фиксируется и сохраняется,
// только если обе стороны больше порога.
func (a *Annotator) PointerUp(ctx context.Context, p entity.Point) (entity.BoundingBox, bool, error) {
	if a.state.Drag == nil {
		return entity.BoundingBox{}, false, nil
	}

	box := entity.Normalize(a.state.Drag.Anchor, p)
	a.state.Drag = nil

	if !box.Large(entity.MinBoxSize) {
		return entity.BoundingBox{}, false, nil
	}

	box.ID = a.newID()
	box.ObjectType = a.category
	a.boxes = append(a.Boxes(), box)

	if err := a.save(ctx); err != nil {
		return box, true, err
	}
	return box, true, nil
}

// Delete удаляет рамку по id
func (a *Annotator) Delete(ctx context.Context, id string) error {
	a.boxes = entity.RemoveBox(a.boxes, id)
	a.state.Selection = ""
	return a.save(ctx)
}

// DeleteSelected удаляет выбранную рамку, если она есть
func (a *Annotator) DeleteSelected(ctx context.Context) error {
	if a.state.Selection == "" {
		return nil
	}
	return a.Delete(ctx, a.state.Selection)
}

// ClearAll удаляет все рамки текущего изображения
func (a *Annotator) ClearAll(ctx context.Context) error {
	a.boxes = []entity.BoundingBox{}
	a.state.Selection = ""
	return a.save(ctx)
}

// Escape снимает выделение и возвращает инструмент выбора
func (a *Annotator) Escape() {
	a.state = Interaction{Tool: ToolSelect}
}

// KeyDown обрабатывает клавиши Delete, Backspace и Escape
func (a *Annotator) KeyDown(ctx context.Context, key string) error {
	switch key {
	case "Delete", "Backspace":
		return a.DeleteSelected(ctx)
	case "Escape":
		a.Escape()
	}
	return nil
}

// Next сохраняет рамки и переходит к следующему изображению
func (a *Annotator) Next(ctx context.Context) (bool, error) {
	if a.IsLastImage() {
		return false, a.save(ctx)
	}
	return true, a.GoTo(ctx, a.index+1)
}

// Prev сохраняет рамки и переходит к предыдущему изображению
func (a *Annotator) Prev(ctx context.Context) (bool, error) {
	if a.index == 0 {
		return false, a.save(ctx)
	}
	return true, a.GoTo(ctx, a.index-1)
}

// GoTo сохраняет рамки текущего изображения и загружает рамки другого
func (a *Annotator) GoTo(ctx context.Context, index int) error {
	if !a.survey.AnnotationImages().Contains(index) {
		return fmt.Errorf("%w: %d", ErrImageOutOfRange, index)
	}
	if err := a.save(ctx); err != nil {
		return err
	}

	a.index = index
	a.load(a.survey.Document())

	return a.survey.Dispatch(ctx, SetAnnotationImage{ImageIndex: index})
}

// Complete все изображения размечены
func (a *Annotator) Complete() bool {
	doc := a.survey.Document()
	return len(doc.AnnotationProgress.CompletedImages) == len(a.survey.AnnotationImages())
}

func (a *Annotator) load(doc entity.SurveyDocument) {
	a.boxes = []entity.BoundingBox{}
	if data, ok := doc.Annotations[a.index]; ok {
		a.boxes = append(a.boxes, data.BoundingBoxes...)
	}
	a.state.Selection = ""
	a.state.Drag = nil
}

func (a *Annotator) save(ctx context.Context) error {
	return a.survey.Dispatch(ctx, UpdateAnnotation{ImageIndex: a.index, Boxes: a.Boxes()})
}
