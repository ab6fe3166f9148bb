package console

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	app "annotation-survey/internal/application"
	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/infrastructure/storage"
)

func newTestConsole(t *testing.T) (*Console, *app.Survey, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	survey := app.NewSurvey(
		app.NewReducer(entity.DefaultImageSet(), entity.DefaultImageSet()),
		storage.NewFileDocumentStorage(dir),
	)
	sync := app.NewSyncService(survey, nil)
	out := &bytes.Buffer{}
	return New(survey, sync, out, dir), survey, out, dir
}

func TestConsole_Scenario(t *testing.T) {
	c, survey, out, dir := newTestConsole(t)
	exportPath := filepath.Join(dir, "export.json")

	script := strings.Join([]string{
		"boxes",
		"start",
		"tool draw",
		"down 110 90",
		"move 50 50",
		"up 10 10",
		"down 0 0",
		"up 15 15",
		"boxes",
		"next",
		"prev",
		"boxes",
		"classify",
		"rate good high",
		"key ArrowRight",
		"key b",
		"progress",
		"finish",
	}, "\n")
	for i := 0; i < 6; i++ {
		script += "\nkey ArrowRight\nkey g"
	}
	script += "\n" + strings.Join([]string{
		"finish",
		"export " + exportPath,
		"quit",
		"bogus",
	}, "\n")

	require.NoError(t, c.Run(context.Background(), strings.NewReader(script)))

	text := out.String()
	require.Contains(t, text, "error: survey is not started")
	require.Contains(t, text, "Preview Deer at (50, 50) 60x40")
	require.Contains(t, text, "Deer at (10, 10) 100x80")
	require.Equal(t, 1, strings.Count(text, "Added "))
	require.Equal(t, 2, strings.Count(text, "Image 1 /1.png: 1 boxes"))
	require.Contains(t, text, "Classification: image 2/8 /2.png, bad")
	require.Contains(t, text, "classification 25%")
	require.Contains(t, text, "Continuing with 1 of 8 images annotated")
	require.Contains(t, text, "error: rate every image before finishing")
	require.Equal(t, 1, strings.Count(text, "Survey complete"))
	require.Contains(t, text, "Annotated images: 2, boxes: 1 (Deer 1, Rock 0, Bear 0)")
	require.Contains(t, text, "Rated images: 8 (good 7, bad 1)")
	require.Contains(t, text, "Duration: 0 min")
	require.Contains(t, text, "Sync: Failed to save survey data")
	require.NotContains(t, text, "unknown command")

	doc := survey.Document()
	require.True(t, doc.IsComplete())
	require.Len(t, doc.Annotations[0].BoundingBoxes, 1)
	require.Equal(t, entity.ConfidenceHigh, doc.Classifications[0].Classification.Confidence)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var exported entity.SurveyDocument
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Equal(t, doc, exported)
}

func TestConsole_SelectAndDelete(t *testing.T) {
	c, survey, _, _ := newTestConsole(t)
	ctx := context.Background()

	for _, line := range []string{
		"start",
		"tool draw",
		"category rock",
		"down 0 0", "up 50 50",
		"down 100 100", "up 160 160",
		"tool select",
		"down 120 130",
		"key Delete",
	} {
		_, err := c.Execute(ctx, line)
		require.NoError(t, err, line)
	}

	boxes := survey.Document().Annotations[0].BoundingBoxes
	require.Len(t, boxes, 1)
	require.Equal(t, 50.0, boxes[0].Width)
	require.Equal(t, entity.CategoryRock, boxes[0].ObjectType)

	_, err := c.Execute(ctx, "clear")
	require.NoError(t, err)
	require.Empty(t, survey.Document().Annotations[0].BoundingBoxes)
	require.Empty(t, survey.Document().AnnotationProgress.CompletedImages)
}

func TestConsole_UsageErrors(t *testing.T) {
	c, _, _, _ := newTestConsole(t)
	ctx := context.Background()

	_, err := c.Execute(ctx, "teleport")
	require.Error(t, err)

	_, err = c.Execute(ctx, "start")
	require.NoError(t, err)

	_, err = c.Execute(ctx, "down 1")
	require.Error(t, err)
	_, err = c.Execute(ctx, "category wolf")
	require.ErrorIs(t, err, entity.ErrInvalidCategory)
	_, err = c.Execute(ctx, "rate good")
	require.Error(t, err)
	_, err = c.Execute(ctx, "image 9")
	require.ErrorIs(t, err, app.ErrImageOutOfRange)

	quit, err := c.Execute(ctx, "  ")
	require.NoError(t, err)
	require.False(t, quit)
}

func TestConsole_Reset(t *testing.T) {
	c, survey, out, _ := newTestConsole(t)
	ctx := context.Background()

	_, err := c.Execute(ctx, "start")
	require.NoError(t, err)
	before := survey.Document().SessionID

	_, err = c.Execute(ctx, "reset")
	require.NoError(t, err)
	require.NotEqual(t, before, survey.Document().SessionID)
	require.Equal(t, entity.StepStart, survey.Document().CurrentStep)
	require.Contains(t, out.String(), "Survey reset")

	_, err = c.Execute(ctx, "boxes")
	require.Error(t, err)
}

func TestConsole_FinishRequiresAllRatings(t *testing.T) {
	c, survey, _, _ := newTestConsole(t)
	ctx := context.Background()

	_, err := c.Execute(ctx, "start")
	require.NoError(t, err)

	_, err = c.Execute(ctx, "finish")
	require.ErrorIs(t, err, errNotAllRated)

	_, err = c.Execute(ctx, "classify")
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err = c.Execute(ctx, "key g")
		require.NoError(t, err)
		_, err = c.Execute(ctx, "next")
		require.NoError(t, err)
	}

	_, err = c.Execute(ctx, "finish")
	require.ErrorIs(t, err, errNotAllRated)
	require.False(t, survey.Document().IsComplete())

	_, err = c.Execute(ctx, "rate bad")
	require.NoError(t, err)
	_, err = c.Execute(ctx, "finish")
	require.NoError(t, err)
	require.True(t, survey.Document().IsComplete())
}
