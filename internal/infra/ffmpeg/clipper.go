package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"go.uber.org/zap"
)

var _ port.ClipExtractor = (*Extractor)(nil)

// Extractor cuts clips out of a source file with the ffmpeg binary.
// Clips are re-encoded rather than stream-copied so cut points land
// exactly on the requested timestamps instead of the nearest keyframe.
type Extractor struct {
	ffmpegPath    string
	ffprobePath   string
	encodeTimeout time.Duration
	probeTimeout  time.Duration
	logger        *zap.Logger
}

type Config struct {
	FFmpegPath           string
	FFprobePath          string
	EncodeTimeoutSeconds int
	ProbeTimeoutSeconds  int
}

func New(cfg Config, logger *zap.Logger) *Extractor {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	encodeTimeout := time.Duration(cfg.EncodeTimeoutSeconds) * time.Second
	if encodeTimeout <= 0 {
		encodeTimeout = 300 * time.Second
	}
	probeTimeout := time.Duration(cfg.ProbeTimeoutSeconds) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 30 * time.Second
	}
	return &Extractor{
		ffmpegPath:    ffmpegPath,
		ffprobePath:   ffprobePath,
		encodeTimeout: encodeTimeout,
		probeTimeout:  probeTimeout,
		logger:        logger,
	}
}

// IsAvailable reports whether the ffmpeg binary responds to -version.
// It never returns an error; an unusable binary simply reads as
// unavailable.
func (e *Extractor) IsAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return exec.CommandContext(checkCtx, e.ffmpegPath, "-version").Run() == nil
}

func (e *Extractor) CreateClip(ctx context.Context, sourcePath string, startSeconds, endSeconds float64, outputPath string) (*port.ClipArtifact, error) {
	duration := endSeconds - startSeconds
	if duration <= 0 {
		return nil, fmt.Errorf("%w: clip window %.2f..%.2f is empty", entity.ErrInvalidArgument, startSeconds, endSeconds)
	}

	encodeCtx, cancel := context.WithTimeout(ctx, e.encodeTimeout)
	defer cancel()

	args := []string{
		"-ss", formatSeconds(startSeconds),
		"-i", sourcePath,
		"-t", formatSeconds(duration),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "fast",
		"-crf", "23",
		"-movflags", "+faststart",
		"-avoid_negative_ts", "make_zero",
		"-y",
		outputPath,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(encodeCtx, e.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		if encodeCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: encode timed out after %s", entity.ErrEncodeFailed, e.encodeTimeout)
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", entity.ErrEncodeFailed, err, truncate(stderr.String(), 500))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: output missing after encode: %v", entity.ErrEncodeFailed, err)
	}
	if info.Size() == 0 {
		os.Remove(outputPath)
		return nil, fmt.Errorf("%w: encode produced an empty file", entity.ErrEncodeFailed)
	}

	artifact := &port.ClipArtifact{
		Path:            outputPath,
		FileSizeBytes:   info.Size(),
		DurationSeconds: duration,
		Resolution:      e.probeResolution(ctx, outputPath),
	}

	e.logger.Debug("clip encoded",
		zap.String("path", outputPath),
		zap.Float64("start", startSeconds),
		zap.Float64("duration", duration),
		zap.Int64("size_bytes", info.Size()),
		zap.String("resolution", artifact.Resolution),
	)
	return artifact, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// probeResolution reads the video stream dimensions with ffprobe. Any
// failure degrades to "unknown"; metadata never fails an extraction.
func (e *Extractor) probeResolution(ctx context.Context, path string) string {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		e.logger.Debug("resolution probe failed", zap.String("path", path), zap.Error(err))
		return "unknown"
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return "unknown"
	}
	for _, s := range probe.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return fmt.Sprintf("%dx%d", s.Width, s.Height)
		}
	}
	return "unknown"
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
