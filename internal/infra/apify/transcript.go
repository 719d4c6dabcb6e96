package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"go.uber.org/zap"
)

var _ port.TranscriptSource = (*Client)(nil)

// durationBuffer pads a synthesized duration when the upstream item
// carries none; the last segment's offset is where its line starts,
// not where the video ends.
const durationBuffer = 5.0

// Client fetches transcripts through an Apify scraper actor using the
// synchronous run endpoint.
type Client struct {
	token   string
	actorID string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

type Config struct {
	Token          string
	ActorID        string
	BaseURL        string
	TimeoutSeconds int
}

func New(cfg Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.apify.com"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		token:   cfg.Token,
		actorID: cfg.ActorID,
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout + 10*time.Second},
		logger:  logger,
	}
}

// actorItem is the raw dataset item. Upstream shapes vary between
// actor versions, so numeric fields and the segment list both come in
// more than one spelling.
type actorItem struct {
	VideoID    string          `json:"videoId"`
	Title      string          `json:"title"`
	Duration   json.RawMessage `json:"duration"`
	Subtitles  []actorSegment  `json:"subtitles"`
	Transcript []actorSegment  `json:"transcript"`
}

type actorSegment struct {
	Start  json.RawMessage `json:"start"`
	Offset json.RawMessage `json:"offset"`
	Text   string          `json:"text"`
}

func (c *Client) FetchTranscript(ctx context.Context, sourceURL string) (entity.Transcript, error) {
	body, err := json.Marshal(map[string]string{"videoUrl": sourceURL})
	if err != nil {
		return entity.Transcript{}, fmt.Errorf("marshal actor input: %w", err)
	}

	url := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items?token=%s", c.baseURL, c.actorID, c.token)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return entity.Transcript{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return entity.Transcript{}, fmt.Errorf("apify request: %w", c.redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return entity.Transcript{}, fmt.Errorf("apify status %d: %s", resp.StatusCode, c.redactString(string(rb)))
	}

	var items []actorItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return entity.Transcript{}, fmt.Errorf("decode apify response: %w", err)
	}
	if len(items) == 0 {
		return entity.Transcript{}, fmt.Errorf("%w: actor returned no items for %s", entity.ErrTranscriptUnavailable, sourceURL)
	}

	tr := normalizeItem(items[0])
	if len(tr.Segments) == 0 {
		return entity.Transcript{}, fmt.Errorf("%w: no usable segments for %s", entity.ErrTranscriptUnavailable, sourceURL)
	}

	c.logger.Debug("transcript fetched",
		zap.String("video_id", tr.VideoID),
		zap.Int("segments", len(tr.Segments)),
		zap.Float64("duration_seconds", tr.DurationSeconds),
	)
	return tr, nil
}

// normalizeItem coerces whichever shape the actor produced into the
// fixed transcript contract, synthesizing the duration from the last
// segment when the item omits it.
func normalizeItem(item actorItem) entity.Transcript {
	raw := item.Subtitles
	if len(raw) == 0 {
		raw = item.Transcript
	}

	segments := make([]entity.Segment, 0, len(raw))
	for _, s := range raw {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		offset, ok := toSeconds(s.Start)
		if !ok {
			offset, ok = toSeconds(s.Offset)
		}
		if !ok || offset < 0 {
			continue
		}
		segments = append(segments, entity.Segment{OffsetSeconds: offset, Text: text})
	}

	duration, ok := toSeconds(item.Duration)
	if (!ok || duration <= 0) && len(segments) > 0 {
		duration = segments[len(segments)-1].OffsetSeconds + durationBuffer
	}

	return entity.Transcript{
		VideoID:         item.VideoID,
		Title:           item.Title,
		DurationSeconds: duration,
		Segments:        segments,
	}
}

func toSeconds(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (c *Client) redact(err error) error {
	if c.token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), c.token, "[REDACTED]"))
}

func (c *Client) redactString(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "[REDACTED]")
}
