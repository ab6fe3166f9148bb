package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

func TestClient_CreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/survey/start", r.URL.Path)
		w.Write([]byte(`{"success":true,"sessionId":"abc"}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL+"/", time.Second).CreateSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", id)
}

func TestClient_SaveSurvey(t *testing.T) {
	var got entity.SavePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/survey/save", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	payload := entity.SavePayload{
		SessionID: "abc",
		Annotations: []entity.ImageAnnotationPayload{
			{ImageIndex: 0, ImagePath: "/1.png", Boxes: []entity.BoxPayload{{X: 1, Y: 2, Width: 30, Height: 40, ObjectType: entity.CategoryRock}}},
		},
		Classifications: []entity.ClassificationPayload{},
		Completed:       true,
	}
	require.NoError(t, NewClient(srv.URL, time.Second).SaveSurvey(context.Background(), payload))
	require.Equal(t, payload, got)
}

func TestClient_ServerErrorIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"Failed to save survey data"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).SaveSurvey(context.Background(), entity.SavePayload{SessionID: "x"})
	require.ErrorIs(t, err, port.ErrRemoteRejected)
	require.Contains(t, err.Error(), "Failed to save survey data")
}

func TestClient_UnsuccessfulBodyIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).CreateSession(context.Background())
	require.ErrorIs(t, err, port.ErrRemoteRejected)
}

func TestClient_NetworkErrorIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).CreateSession(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, port.ErrRemoteRejected)
}

func TestClient_Stats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"success":true,"stats":{"totalSessions":5,"completedSessions":2,"totalAnnotations":9,"totalClassifications":4,
			"objectTypeDistribution":[{"objectType":"deer","count":9}],"ratingDistribution":[{"rating":"good","count":4}]}}`))
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL, time.Second).Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, stats.TotalSessions)
	require.Equal(t, []entity.CategoryCount{{ObjectType: entity.CategoryDeer, Count: 9}}, stats.ObjectTypeDistribution)
}
