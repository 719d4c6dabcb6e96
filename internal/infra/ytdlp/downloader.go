package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"go.uber.org/zap"
)

var _ port.MediaFetcher = (*Downloader)(nil)

// formatChains are tried in order. The first prefers a merged
// video+audio pair under the quality ceiling, the later ones relax the
// constraint so an odd upstream format table still yields a file.
var formatChains = []string{
	"bestvideo[height<=%d]+bestaudio/best[height<=%d]",
	"best[height<=%d]/best",
	"b",
}

// Downloader fetches source videos with the yt-dlp binary.
type Downloader struct {
	binPath     string
	qualityCeil int
	timeout     time.Duration
	logger      *zap.Logger
}

type Config struct {
	BinPath        string
	QualityCeiling int
	TimeoutSeconds int
}

func New(cfg Config, logger *zap.Logger) *Downloader {
	binPath := cfg.BinPath
	if binPath == "" {
		binPath = "yt-dlp"
	}
	ceil := cfg.QualityCeiling
	if ceil <= 0 {
		ceil = 720
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 900 * time.Second
	}
	return &Downloader{binPath: binPath, qualityCeil: ceil, timeout: timeout, logger: logger}
}

// IsAvailable reports whether the yt-dlp binary responds to --version.
func (d *Downloader) IsAvailable(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return exec.CommandContext(checkCtx, d.binPath, "--version").Run() == nil
}

// FetchMedia downloads the source video into destDir and returns the
// local file path. Partial output is removed before an error returns.
func (d *Downloader) FetchMedia(ctx context.Context, sourceURL, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create download dir: %v", entity.ErrMediaFetchFailed, err)
	}

	outputPath := filepath.Join(destDir, "source.mp4")

	var lastErr error
	for _, chain := range formatChains {
		format := chain
		if format != "b" {
			format = fmt.Sprintf(chain, d.qualityCeil, d.qualityCeil)
		}

		if err := d.run(ctx, sourceURL, format, outputPath); err != nil {
			lastErr = err
			d.removePartials(destDir)
			continue
		}

		info, err := os.Stat(outputPath)
		if err != nil || info.Size() == 0 {
			lastErr = fmt.Errorf("%w: download produced no output", entity.ErrMediaFetchFailed)
			d.removePartials(destDir)
			continue
		}

		d.logger.Info("media downloaded",
			zap.String("path", outputPath),
			zap.Int64("size_bytes", info.Size()),
			zap.String("format", format),
		)
		return outputPath, nil
	}

	return "", lastErr
}

func (d *Downloader) run(ctx context.Context, sourceURL, format, outputPath string) error {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	args := []string{
		"--format", format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-progress",
		"--output", outputPath,
		sourceURL,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, d.binPath, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: download timed out after %s", entity.ErrMediaFetchFailed, d.timeout)
		}
		return fmt.Errorf("%w: yt-dlp: %v: %s", entity.ErrMediaFetchFailed, err, truncate(stderr.String(), 500))
	}
	return nil
}

// removePartials drops yt-dlp work files (.part, .ytdl, the output
// itself) so a failed attempt never leaves a corrupt source behind.
func (d *Downloader) removePartials(destDir string) {
	for _, pattern := range []string{"*.part", "*.ytdl", "source.mp4"} {
		matches, _ := filepath.Glob(filepath.Join(destDir, pattern))
		for _, m := range matches {
			os.Remove(m)
		}
	}
}

// Cleanup removes a previously downloaded file. A missing file is not
// an error.
func (d *Downloader) Cleanup(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove downloaded media: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
