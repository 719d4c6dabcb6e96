package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	jobs  map[uuid.UUID]*entity.ProcessingJob
	clips map[uuid.UUID][]*entity.ViralClip
	byID  map[uuid.UUID]*entity.ViralClip

	createErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		jobs:  make(map[uuid.UUID]*entity.ProcessingJob),
		clips: make(map[uuid.UUID][]*entity.ViralClip),
		byID:  make(map[uuid.UUID]*entity.ViralClip),
	}
}

func (r *stubRepo) CreateJob(_ context.Context, job *entity.ProcessingJob) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *stubRepo) UpdateJob(_ context.Context, job *entity.ProcessingJob) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *stubRepo) FindJobByID(_ context.Context, id uuid.UUID) (*entity.ProcessingJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *stubRepo) ListJobs(_ context.Context, limit, offset int) ([]*entity.ProcessingJob, int, error) {
	var all []*entity.ProcessingJob
	for _, j := range r.jobs {
		all = append(all, j)
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *stubRepo) CreateClips(_ context.Context, clips []*entity.ViralClip) error {
	for _, c := range clips {
		r.clips[c.JobID] = append(r.clips[c.JobID], c)
		r.byID[c.ID] = c
	}
	return nil
}

func (r *stubRepo) FindClipByID(_ context.Context, id uuid.UUID) (*entity.ViralClip, error) {
	clip, ok := r.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return clip, nil
}

func (r *stubRepo) ListClipsByJob(_ context.Context, jobID uuid.UUID) ([]*entity.ViralClip, error) {
	return r.clips[jobID], nil
}

func (r *stubRepo) CountClipsByJob(_ context.Context, jobID uuid.UUID) (int, error) {
	return len(r.clips[jobID]), nil
}

type stubPublisher struct {
	messages [][]byte
	err      error
}

func (p *stubPublisher) PublishClipRequest(_ context.Context, msg []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type testEnv struct {
	app       *fiber.App
	repo      *stubRepo
	publisher *stubPublisher
	clipsDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newStubRepo()
	publisher := &stubPublisher{}
	clipsDir := t.TempDir()
	h := NewHandler(repo, publisher, nil, clipsDir, zap.NewNop())
	return &testEnv{app: NewApp(h), repo: repo, publisher: publisher, clipsDir: clipsDir}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(raw) > 0 && resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func seedCompletedJob(t *testing.T, repo *stubRepo, scores []float64) *entity.ProcessingJob {
	t.Helper()
	job := entity.NewProcessingJob("https://youtube.com/watch?v=abc", 30)
	require.NoError(t, job.MarkProcessing())

	var clips []*entity.ViralClip
	for i, score := range scores {
		clips = append(clips, &entity.ViralClip{
			ID:              uuid.New(),
			JobID:           job.ID,
			StartSeconds:    float64(i * 40),
			EndSeconds:      float64(i*40 + 30),
			ViralityScore:   score,
			Grade:           "B",
			Justification:   "test",
			MediaKey:        job.ID.String() + "/clip_01.mp4",
			DurationSeconds: 30,
			Resolution:      "1280x720",
			CreatedAt:       time.Now().UTC(),
		})
	}
	require.NoError(t, repo.CreateClips(context.Background(), clips))
	require.NoError(t, job.MarkCompleted(entity.ProcessingStats{TotalClips: len(clips)}, entity.VideoInfo{VideoID: "abc"}))
	require.NoError(t, repo.CreateJob(context.Background(), job))
	return job
}

func TestSubmitJob_Accepted(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.request(t, http.MethodPost, "/process", map[string]any{
		"youtube_url":   "https://youtube.com/watch?v=abc",
		"clip_duration": 45,
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	processingID, err := uuid.Parse(body["processing_id"].(string))
	require.NoError(t, err)

	require.Len(t, e.publisher.messages, 1)
	var msg entity.ClipRequestMessage
	require.NoError(t, json.Unmarshal(e.publisher.messages[0], &msg))
	assert.Equal(t, processingID, msg.JobID)
	assert.Equal(t, "https://youtube.com/watch?v=abc", msg.SourceURL)
	assert.Equal(t, 45, msg.TargetClipSeconds)
	assert.Contains(t, e.repo.jobs, msg.JobID)
}

func TestSubmitJob_DefaultsClipLength(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.request(t, http.MethodPost, "/process", map[string]any{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	processingID, err := uuid.Parse(body["processing_id"].(string))
	require.NoError(t, err)
	job := e.repo.jobs[processingID]
	require.NotNil(t, job)
	assert.Equal(t, 30, job.TargetClipSeconds)
}

func TestSubmitJob_Validation(t *testing.T) {
	cases := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{"missing url", map[string]any{"clip_duration": 30}, "'youtube_url' is required"},
		{"bad url", map[string]any{"youtube_url": "not a url"}, "'youtube_url' must be a valid URL"},
		{"too short", map[string]any{"youtube_url": "https://youtube.com/watch?v=abc", "clip_duration": 3}, "'clip_duration' must be between 5 and 60"},
		{"too long", map[string]any{"youtube_url": "https://youtube.com/watch?v=abc", "clip_duration": 90}, "'clip_duration' must be between 5 and 60"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			resp, body := e.request(t, http.MethodPost, "/process", tc.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tc.wantErr, body["error"])
			assert.Empty(t, e.publisher.messages)
		})
	}
}

func TestSubmitJob_PublishFailure(t *testing.T) {
	e := newTestEnv(t)
	e.publisher.err = errors.New("broker down")
	resp, body := e.request(t, http.MethodPost, "/process", map[string]any{
		"youtube_url": "https://youtube.com/watch?v=abc",
	})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestJobStatus(t *testing.T) {
	e := newTestEnv(t)
	job := entity.NewProcessingJob("https://youtube.com/watch?v=abc", 30)
	require.NoError(t, e.repo.CreateJob(context.Background(), job))

	resp, body := e.request(t, http.MethodGet, "/status/"+job.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, job.ID.String(), body["processing_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Nil(t, body["error_message"])
	assert.Equal(t, float64(0), body["total_clips"])
	assert.IsType(t, map[string]any{}, body["processing_stats"])
	assert.IsType(t, map[string]any{}, body["video_info"])
	assert.Equal(t, job.SourceURL, body["youtube_url"])
}

func TestJobStatus_CompletedCarriesStats(t *testing.T) {
	e := newTestEnv(t)
	job := seedCompletedJob(t, e.repo, []float64{0.95, 0.82})

	resp, body := e.request(t, http.MethodGet, "/status/"+job.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Nil(t, body["error_message"])
	assert.Equal(t, float64(2), body["total_clips"])

	stats := body["processing_stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total_clips"])
	video := body["video_info"].(map[string]any)
	assert.Equal(t, "abc", video["video_id"])
}

func TestJobStatus_FailedJobCarriesErrorDetail(t *testing.T) {
	e := newTestEnv(t)
	job := entity.NewProcessingJob("https://youtube.com/watch?v=abc", 30)
	require.NoError(t, job.MarkProcessing())
	require.NoError(t, job.MarkFailed(entity.StageTranscriptFetch, "transcript unavailable: no captions"))
	require.NoError(t, e.repo.CreateJob(context.Background(), job))

	resp, body := e.request(t, http.MethodGet, "/status/"+job.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "transcript_fetch", body["failed_stage"])
	assert.Contains(t, body["error_message"], "no captions")
}

func TestJobStatus_NotFoundAndBadID(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.request(t, http.MethodGet, "/status/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = e.request(t, http.MethodGet, "/status/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestJobResults_Completed(t *testing.T) {
	e := newTestEnv(t)
	job := seedCompletedJob(t, e.repo, []float64{0.95, 0.82, 0.70})

	resp, body := e.request(t, http.MethodGet, "/results/"+job.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, job.ID.String(), body["processing_id"])

	clips := body["clips"].([]any)
	require.Len(t, clips, 3)

	// scores exposed as 0..100 integers, order preserved
	first := clips[0].(map[string]any)
	assert.Equal(t, float64(95), first["score"])
	assert.Equal(t, float64(0), first["start"])
	assert.Equal(t, float64(30), first["end"])
	assert.NotNil(t, first["justification"])
	assert.Contains(t, first, "media_url")
	assert.Contains(t, first["download_path"], "/download")

	agg := body["aggregates"].(map[string]any)
	assert.Equal(t, float64(3), agg["total_clips"])
	assert.Equal(t, float64(82), agg["average_score"]) // round((0.95+0.82+0.70)/3 * 100)
	assert.InDelta(t, 1.0/3.0, agg["success_rate"], 0.0001)
}

func TestJobResults_Pagination(t *testing.T) {
	e := newTestEnv(t)
	job := seedCompletedJob(t, e.repo, []float64{0.9, 0.8, 0.7, 0.6, 0.5})

	resp, body := e.request(t, http.MethodGet, "/results/"+job.ID.String()+"?page=2&per_page=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	clips := body["clips"].([]any)
	require.Len(t, clips, 2)
	assert.Equal(t, float64(70), clips[0].(map[string]any)["score"])

	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(5), pagination["total"])
	assert.Equal(t, float64(3), pagination["total_pages"])
}

func TestJobResults_NotFinished(t *testing.T) {
	e := newTestEnv(t)
	job := entity.NewProcessingJob("https://youtube.com/watch?v=abc", 30)
	require.NoError(t, e.repo.CreateJob(context.Background(), job))

	resp, body := e.request(t, http.MethodGet, "/results/"+job.ID.String(), nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestJobResults_FailedJob(t *testing.T) {
	e := newTestEnv(t)
	job := entity.NewProcessingJob("https://youtube.com/watch?v=abc", 30)
	require.NoError(t, job.MarkProcessing())
	require.NoError(t, job.MarkFailed(entity.StageMediaFetch, "media fetch failed: 403"))
	require.NoError(t, e.repo.CreateJob(context.Background(), job))

	resp, body := e.request(t, http.MethodGet, "/results/"+job.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "media_fetch", body["failed_stage"])
	assert.Contains(t, body["error_message"], "403")
}

func TestClipDetail(t *testing.T) {
	e := newTestEnv(t)
	job := seedCompletedJob(t, e.repo, []float64{0.88})
	clip := e.repo.clips[job.ID][0]

	resp, body := e.request(t, http.MethodGet, "/clips/"+clip.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["clip"].(map[string]any)
	assert.Equal(t, float64(88), data["score"])
	assert.Equal(t, "B", data["grade"])
}

func TestDownloadClip_LocalMode(t *testing.T) {
	e := newTestEnv(t)
	job := seedCompletedJob(t, e.repo, []float64{0.88})
	clip := e.repo.clips[job.ID][0]

	localPath := filepath.Join(e.clipsDir, filepath.FromSlash(clip.MediaKey))
	require.NoError(t, os.MkdirAll(filepath.Dir(localPath), 0o755))
	require.NoError(t, os.WriteFile(localPath, []byte("clip bytes"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/clips/"+clip.ID.String()+"/download", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "clip bytes", string(payload))
}

func TestDownloadClip_MissingFile(t *testing.T) {
	e := newTestEnv(t)
	job := seedCompletedJob(t, e.repo, []float64{0.88})
	clip := e.repo.clips[job.ID][0]

	resp, _ := e.request(t, http.MethodGet, "/clips/"+clip.ID.String()+"/download", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHistory(t *testing.T) {
	e := newTestEnv(t)
	seedCompletedJob(t, e.repo, []float64{0.9})
	seedCompletedJob(t, e.repo, []float64{0.8})

	resp, body := e.request(t, http.MethodGet, "/history", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	jobs := body["jobs"].([]any)
	assert.Len(t, jobs, 2)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, body := e.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
