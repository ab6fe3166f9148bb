package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	app "annotation-survey/internal/application"
	"annotation-survey/internal/infrastructure/storage"
)

type response struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	SessionID string          `json:"sessionId"`
	Session   json.RawMessage `json:"session"`
	Stats     json.RawMessage `json:"stats"`
}

func newTestServer(t *testing.T, imageDir string) *httptest.Server {
	t.Helper()
	svc := app.NewSurveyService(storage.NewMemorySurveyRepository())
	srv := httptest.NewServer(NewHandler(svc).Routes(imageDir))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, method, url, body string) (int, response) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHandler_StartSaveFetch(t *testing.T) {
	srv := newTestServer(t, "")

	status, started := call(t, http.MethodPost, srv.URL+"/survey/start", "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, started.Success)
	require.NotEmpty(t, started.SessionID)

	body := `{"sessionId":"` + started.SessionID + `",
		"annotations":[{"imageIndex":0,"imagePath":"/1.png","boxes":[{"x":10,"y":10,"width":100,"height":80,"objectType":"deer"}]}],
		"classifications":[{"imageIndex":0,"imagePath":"/1.png","rating":"good"}],
		"completed":true}`
	for i := 0; i < 2; i++ {
		status, saved := call(t, http.MethodPost, srv.URL+"/survey/save", body)
		require.Equal(t, http.StatusOK, status)
		require.True(t, saved.Success)
	}

	status, fetched := call(t, http.MethodGet, srv.URL+"/survey/"+started.SessionID, "")
	require.Equal(t, http.StatusOK, status)

	var session struct {
		ID          string `json:"id"`
		Completed   bool   `json:"completed"`
		Annotations []struct {
			ObjectType string `json:"objectType"`
		} `json:"annotations"`
		Classifications []struct {
			Rating string `json:"rating"`
		} `json:"classifications"`
	}
	require.NoError(t, json.Unmarshal(fetched.Session, &session))
	require.Equal(t, started.SessionID, session.ID)
	require.True(t, session.Completed)
	require.Len(t, session.Annotations, 1)
	require.Equal(t, "deer", session.Annotations[0].ObjectType)
	require.Len(t, session.Classifications, 1)

	status, stats := call(t, http.MethodGet, srv.URL+"/survey/stats", "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"totalSessions":1,"completedSessions":1,"totalAnnotations":1,"totalClassifications":1,
		"objectTypeDistribution":[{"objectType":"deer","count":1}],"ratingDistribution":[{"rating":"good","count":1}]}`, string(stats.Stats))
}

func TestHandler_SaveErrors(t *testing.T) {
	srv := newTestServer(t, "")

	status, resp := call(t, http.MethodPost, srv.URL+"/survey/save", "{broken")
	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, resp.Success)

	status, resp = call(t, http.MethodPost, srv.URL+"/survey/save", `{"sessionId":"","completed":false}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, resp.Error)

	status, resp = call(t, http.MethodPost, srv.URL+"/survey/save", `{"sessionId":"missing","completed":false}`)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Survey session not found", resp.Error)

	_, started := call(t, http.MethodPost, srv.URL+"/survey/start", "")
	status, _ = call(t, http.MethodPost, srv.URL+"/survey/save",
		`{"sessionId":"`+started.SessionID+`","annotations":[{"imageIndex":0,"imagePath":"/1.png","boxes":[{"x":0,"y":0,"width":30,"height":30,"objectType":"wolf"}]}]}`)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestHandler_SessionNotFound(t *testing.T) {
	srv := newTestServer(t, "")

	status, resp := call(t, http.MethodGet, srv.URL+"/survey/unknown", "")
	require.Equal(t, http.StatusNotFound, status)
	require.False(t, resp.Success)
}

func TestHandler_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, "")

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/survey/save", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandler_HealthAndImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.png"), []byte("png"), 0644))
	srv := newTestServer(t, dir)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/images/1.png")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
