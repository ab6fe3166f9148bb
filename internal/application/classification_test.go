package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"annotation-survey/internal/domain/entity"
)

func TestClassifier_RateAndReplace(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()

	c, err := NewClassifier(ctx, survey)
	require.NoError(t, err)
	require.Equal(t, entity.StepClassification, survey.Document().CurrentStep)

	require.NoError(t, c.Rate(ctx, entity.RatingGood, entity.ConfidenceHigh))
	require.NoError(t, c.Rate(ctx, entity.RatingBad, ""))

	current, ok := c.Current()
	require.True(t, ok)
	require.Equal(t, entity.RatingBad, current.Classification.Rating)
	require.Empty(t, current.Classification.Confidence)
	require.Equal(t, "/1.png", current.ImagePath)
	require.Equal(t, []int{0}, survey.Document().ClassificationProgress.CompletedImages)
}

func TestClassifier_RejectsInvalidInput(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()
	c, err := NewClassifier(ctx, survey)
	require.NoError(t, err)

	require.ErrorIs(t, c.Rate(ctx, "meh", ""), entity.ErrInvalidRating)
	require.ErrorIs(t, c.Rate(ctx, entity.RatingGood, "total"), entity.ErrInvalidConfidence)
	require.Empty(t, survey.Document().Classifications)
}

func TestClassifier_ClearRating(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()
	c, err := NewClassifier(ctx, survey)
	require.NoError(t, err)

	require.NoError(t, c.KeyDown(ctx, "g"))
	require.NoError(t, c.KeyDown(ctx, "R"))

	_, ok := c.Current()
	require.False(t, ok)
	require.Empty(t, survey.Document().ClassificationProgress.CompletedImages)
}

func TestClassifier_KeyboardNavigation(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()
	c, err := NewClassifier(ctx, survey)
	require.NoError(t, err)

	require.NoError(t, c.KeyDown(ctx, "ArrowLeft"))
	require.Equal(t, 0, c.ImageIndex())

	require.NoError(t, c.KeyDown(ctx, "B"))
	require.NoError(t, c.KeyDown(ctx, "ArrowRight"))
	require.Equal(t, 1, c.ImageIndex())
	require.Equal(t, "/2.png", c.ImagePath())
	require.Equal(t, 1, survey.Document().ClassificationProgress.CurrentImageIndex)

	doc := survey.Document()
	require.Equal(t, entity.RatingBad, doc.Classifications[0].Classification.Rating)
	require.NotContains(t, doc.Classifications, 1)

	require.NoError(t, c.KeyDown(ctx, "x"))
	require.ErrorIs(t, c.GoTo(ctx, -1), ErrImageOutOfRange)
}

func TestClassifier_AllRated(t *testing.T) {
	survey, _ := newTestSurvey(t)
	ctx := context.Background()
	c, err := NewClassifier(ctx, survey)
	require.NoError(t, err)

	for {
		require.False(t, c.AllRated())
		require.NoError(t, c.Rate(ctx, entity.RatingGood, entity.ConfidenceMedium))
		moved, err := c.Next(ctx)
		require.NoError(t, err)
		if !moved {
			break
		}
	}

	require.True(t, c.AllRated())
	require.Equal(t, 7, c.ImageIndex())
	require.Equal(t, 50.0, survey.Progress().Overall)
}
