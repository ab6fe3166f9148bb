package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"annotation-survey/internal/domain/entity"
)

func TestSurvey_DispatchPersists(t *testing.T) {
	survey, store := newTestSurvey(t)
	ctx := context.Background()

	require.NoError(t, survey.Dispatch(ctx, UpdateAnnotation{ImageIndex: 0, Boxes: []entity.BoundingBox{deerBox("a")}}))
	require.Equal(t, 1, store.saves)

	var saved entity.SurveyDocument
	require.NoError(t, json.Unmarshal(store.data, &saved))
	require.Equal(t, survey.Document(), saved)
}

func TestSurvey_Restore(t *testing.T) {
	survey, store := newTestSurvey(t)
	ctx := context.Background()

	require.NoError(t, survey.Dispatch(ctx, SetStep{Step: entity.StepAnnotation}))
	require.NoError(t, survey.Dispatch(ctx, UpdateAnnotation{ImageIndex: 1, Boxes: []entity.BoundingBox{deerBox("a")}}))
	want := survey.Document()

	restored := NewSurvey(newTestReducer(), store)
	require.True(t, restored.Restore(ctx))
	require.Equal(t, want, restored.Document())
}

func TestSurvey_RestoreCorruptKeepsFreshDocument(t *testing.T) {
	store := &memStorage{data: []byte("{not json")}
	survey := NewSurvey(newTestReducer(), store)

	require.False(t, survey.Restore(context.Background()))
	doc := survey.Document()
	require.Equal(t, entity.StepStart, doc.CurrentStep)
	require.Empty(t, doc.Annotations)
}

func TestSurvey_RestoreReadError(t *testing.T) {
	store := &memStorage{loadErr: errors.New("disk gone")}
	survey := NewSurvey(newTestReducer(), store)

	require.False(t, survey.Restore(context.Background()))
	require.Equal(t, entity.StepStart, survey.Document().CurrentStep)
}

func TestSurvey_ExportAfterClear(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()

	require.NoError(t, survey.Dispatch(ctx, UpdateAnnotation{ImageIndex: 0, Boxes: []entity.BoundingBox{deerBox("a")}}))
	require.NoError(t, survey.Dispatch(ctx, UpdateAnnotation{ImageIndex: 0, Boxes: nil}))

	name, data, err := survey.Export()
	require.NoError(t, err)
	require.Equal(t, "survey_data_"+survey.Document().SessionID+".json", name)

	var exported entity.SurveyDocument
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Empty(t, exported.Annotations[0].BoundingBoxes)
	require.Empty(t, exported.AnnotationProgress.CompletedImages)
}

func TestSurvey_Progress(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, survey.Dispatch(ctx, UpdateAnnotation{ImageIndex: i, Boxes: []entity.BoundingBox{deerBox("a")}}))
	}

	p := survey.Progress()
	require.Equal(t, 50.0, p.Annotation)
	require.Equal(t, 0.0, p.Classification)
	require.Equal(t, 25.0, p.Overall)
}

// gatedStorage задерживает первую запись до закрытия release
type gatedStorage struct {
	memStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStorage) Save(ctx context.Context, data []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memStorage.Save(ctx, data)
}

func TestSurvey_ConcurrentDispatchPersistsInOrder(t *testing.T) {
	store := &gatedStorage{entered: make(chan struct{}), release: make(chan struct{})}
	survey := NewSurvey(newTestReducer(), store)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- survey.Dispatch(ctx, SetAnnotationImage{ImageIndex: 1}) }()
	<-store.entered

	secondDone := make(chan error, 1)
	go func() { secondDone <- survey.Dispatch(ctx, SetAnnotationImage{ImageIndex: 5}) }()

	select {
	case <-secondDone:
		t.Fatal("second dispatch persisted while the first write was still pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	var saved entity.SurveyDocument
	data, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Equal(t, 5, survey.Document().AnnotationProgress.CurrentImageIndex)
	require.Equal(t, survey.Document(), saved)
	require.Equal(t, 2, store.saves)
}
