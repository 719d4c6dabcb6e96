package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingJob_Lifecycle(t *testing.T) {
	job := NewProcessingJob("https://youtube.com/watch?v=abc", 30)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.IsTerminal())
	assert.NotEqual(t, job.ID.String(), "00000000-0000-0000-0000-000000000000")

	require.NoError(t, job.MarkProcessing())
	assert.Equal(t, JobStatusProcessing, job.Status)

	stats := ProcessingStats{TotalClips: 3, AverageScore: 0.8, TopGrade: "A"}
	info := VideoInfo{VideoID: "abc", DurationSeconds: 120}
	require.NoError(t, job.MarkCompleted(stats, info))
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.True(t, job.IsTerminal())
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, 3, job.Stats.TotalClips)
	assert.Equal(t, "abc", job.VideoInfo.VideoID)
}

func TestProcessingJob_GuardedTransitions(t *testing.T) {
	t.Run("cannot complete from pending", func(t *testing.T) {
		job := NewProcessingJob("url", 30)
		assert.Error(t, job.MarkCompleted(ProcessingStats{}, VideoInfo{}))
	})

	t.Run("cannot start processing twice", func(t *testing.T) {
		job := NewProcessingJob("url", 30)
		require.NoError(t, job.MarkProcessing())
		assert.Error(t, job.MarkProcessing())
	})

	t.Run("terminal states are final", func(t *testing.T) {
		job := NewProcessingJob("url", 30)
		require.NoError(t, job.MarkProcessing())
		require.NoError(t, job.MarkFailed(StageAnalysis, "boom"))
		assert.Error(t, job.MarkFailed(StageAnalysis, "again"))
		assert.Error(t, job.MarkProcessing())
		assert.Error(t, job.MarkCompleted(ProcessingStats{}, VideoInfo{}))
	})
}

func TestProcessingJob_MarkFailedRecordsStage(t *testing.T) {
	job := NewProcessingJob("url", 30)
	require.NoError(t, job.MarkProcessing())
	require.NoError(t, job.MarkFailed(StageMediaFetch, "media fetch failed: 403"))

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, StageMediaFetch, job.FailedStage)
	assert.Equal(t, "media fetch failed: 403", job.ErrorMessage)
	assert.Nil(t, job.Stats)
	assert.Nil(t, job.VideoInfo)
	require.NotNil(t, job.CompletedAt)
}

func TestPipelineError_WrapsStageAndCause(t *testing.T) {
	err := NewPipelineError(StageTranscriptFetch, ErrTranscriptUnavailable)
	assert.Contains(t, err.Error(), "transcript_fetch")
	assert.ErrorIs(t, err, ErrTranscriptUnavailable)
}
