package container

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"annotation-survey/config"
	app "annotation-survey/internal/application"
	"annotation-survey/internal/domain/entity"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		StoreDriver: config.DriverMemory,
		DataDir:     t.TempDir(),
		HTTPTimeout: time.Second,
		Images:      entity.DefaultImageSet(),
	}
}

func TestNewServer_Memory(t *testing.T) {
	server, err := NewServer(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer server.Close()

	session, err := server.SurveyService.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Len(t, server.Images, 8)
}

func TestNewClient_RestoresDocument(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := NewClient(ctx, cfg)
	require.NoError(t, first.Survey.Dispatch(ctx, app.SetStep{Step: entity.StepClassification}))
	id := first.Survey.Document().SessionID

	second := NewClient(ctx, cfg)
	require.Equal(t, id, second.Survey.Document().SessionID)
	require.Equal(t, entity.StepClassification, second.Survey.Document().CurrentStep)

	_, err := second.Sync.Stats(ctx)
	require.ErrorIs(t, err, app.ErrRemoteDisabled)
}

func TestNewClient_EmptyServerURLFromEnv(t *testing.T) {
	t.Setenv("SERVER_URL", "")
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)

	client := NewClient(context.Background(), cfg)
	_, err = client.Sync.Stats(context.Background())
	require.ErrorIs(t, err, app.ErrRemoteDisabled)
}
