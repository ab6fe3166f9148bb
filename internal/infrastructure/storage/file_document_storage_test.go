package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileDocumentStorage_LoadMissing(t *testing.T) {
	s := NewFileDocumentStorage(t.TempDir())

	data, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestFileDocumentStorage_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := NewFileDocumentStorage(dir)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []byte(`{"sessionId":"a"}`)))
	require.NoError(t, s.Save(ctx, []byte(`{"sessionId":"b"}`)))

	data, err := s.Load(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"sessionId":"b"}`, string(data))
	require.Equal(t, filepath.Join(dir, "survey_data.json"), s.Path())

	_, err = os.Stat(s.Path() + ".tmp")
	require.True(t, os.IsNotExist(err))
}
