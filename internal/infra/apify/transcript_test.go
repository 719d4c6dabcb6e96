package apify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func apifyServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.URL.Query().Get("token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func newTestClient(baseURL string) *Client {
	return New(Config{Token: "secret-token", ActorID: "actor1", BaseURL: baseURL, TimeoutSeconds: 5}, zap.NewNop())
}

func TestFetchTranscript_NormalizesShape(t *testing.T) {
	body := `[{
		"videoId": "abc123",
		"title": "my video",
		"duration": 300,
		"subtitles": [
			{"start": 0, "text": "hello"},
			{"start": "12.5", "text": "world"},
			{"start": 20, "text": "   "},
			{"offset": 30, "text": "offset shaped"}
		]
	}]`
	srv := apifyServer(t, http.StatusOK, body)
	defer srv.Close()

	tr, err := newTestClient(srv.URL).FetchTranscript(context.Background(), "https://youtube.com/watch?v=abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", tr.VideoID)
	assert.Equal(t, "my video", tr.Title)
	assert.Equal(t, 300.0, tr.DurationSeconds)
	require.Len(t, tr.Segments, 3) // blank line dropped
	assert.Equal(t, 0.0, tr.Segments[0].OffsetSeconds)
	assert.Equal(t, 12.5, tr.Segments[1].OffsetSeconds)
	assert.Equal(t, 30.0, tr.Segments[2].OffsetSeconds)
}

func TestFetchTranscript_SynthesizesDuration(t *testing.T) {
	body := `[{
		"videoId": "abc123",
		"title": "no duration",
		"subtitles": [
			{"start": 0, "text": "a"},
			{"start": 95, "text": "b"}
		]
	}]`
	srv := apifyServer(t, http.StatusOK, body)
	defer srv.Close()

	tr, err := newTestClient(srv.URL).FetchTranscript(context.Background(), "url")
	require.NoError(t, err)
	assert.Equal(t, 100.0, tr.DurationSeconds) // last offset + buffer
}

func TestFetchTranscript_NoItems(t *testing.T) {
	srv := apifyServer(t, http.StatusOK, `[]`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTranscript(context.Background(), "url")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrTranscriptUnavailable))
}

func TestFetchTranscript_NoUsableSegments(t *testing.T) {
	srv := apifyServer(t, http.StatusOK, `[{"videoId": "x", "title": "t", "duration": 60, "subtitles": []}]`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTranscript(context.Background(), "url")
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrTranscriptUnavailable))
}

func TestFetchTranscript_UpstreamErrorRedactsToken(t *testing.T) {
	srv := apifyServer(t, http.StatusUnauthorized, `{"error": "invalid token secret-token"}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTranscript(context.Background(), "url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestFetchTranscript_TranscriptFieldFallback(t *testing.T) {
	body := `[{"videoId": "x", "title": "t", "duration": 50, "transcript": [{"start": 1, "text": "alt field"}]}]`
	srv := apifyServer(t, http.StatusOK, body)
	defer srv.Close()

	tr, err := newTestClient(srv.URL).FetchTranscript(context.Background(), "url")
	require.NoError(t, err)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "alt field", tr.Segments[0].Text)
}
