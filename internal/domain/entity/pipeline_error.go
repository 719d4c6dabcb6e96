package entity

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline step a failure occurred at.
type Stage string

const (
	StageDependencyCheck Stage = "dependency_check"
	StageTranscriptFetch Stage = "transcript_fetch"
	StageAnalysis        Stage = "analysis"
	StageMediaFetch      Stage = "media_fetch"
	StageClipExtraction  Stage = "clip_extraction"
	StagePersistence     Stage = "persistence"
)

var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrAnalysisFailed        = errors.New("analysis failed")
	ErrMediaFetchFailed      = errors.New("media fetch failed")
	ErrEncodeFailed          = errors.New("encode failed")
	ErrNoClipsProduced       = errors.New("no clips produced")
	ErrPersistenceFailed     = errors.New("persistence failed")
)

// PipelineError wraps a stage failure so the job record can report
// both the failing step and the original error text.
type PipelineError struct {
	Stage Stage
	Err   error
}

func NewPipelineError(stage Stage, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
