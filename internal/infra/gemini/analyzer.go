package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shanyukollipara/clips-ai/internal/domain/entity"
	"github.com/shanyukollipara/clips-ai/internal/domain/grading"
	"github.com/shanyukollipara/clips-ai/internal/domain/port"
	"go.uber.org/zap"
)

var _ port.MomentAnalyzer = (*Analyzer)(nil)

// Analyzer finds viral moments in a transcript with a single Gemini
// generateContent call per invocation. Transport errors surface to
// the caller; unusable model output does not, because the tiered
// parser and the structural fallback keep the result set non-empty.
type Analyzer struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	maxMoments int
	client     *http.Client
	logger     *zap.Logger
}

type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
	MaxMoments     int
}

func New(cfg Config, logger *zap.Logger) *Analyzer {
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-pro"
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxMoments := cfg.MaxMoments
	if maxMoments <= 0 {
		maxMoments = 5
	}
	return &Analyzer{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		timeout:    timeout,
		maxMoments: maxMoments,
		client:     &http.Client{Timeout: timeout + 10*time.Second},
		logger:     logger,
	}
}

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (a *Analyzer) ExtractMoments(ctx context.Context, tr entity.Transcript, targetSeconds int) ([]entity.Moment, error) {
	if len(tr.Segments) == 0 {
		return nil, fmt.Errorf("%w: transcript has no segments", entity.ErrInvalidArgument)
	}

	content, err := a.complete(ctx, buildPrompt(tr, targetSeconds, a.maxMoments))
	if err != nil {
		return nil, err
	}

	raws := parseMoments(content)
	moments := validateMoments(raws, tr.DurationSeconds, targetSeconds)
	if len(moments) == 0 {
		a.logger.Warn("no parseable moments in model output, synthesizing fallback",
			zap.Int("raw_candidates", len(raws)),
		)
		moments = validateMoments(fallbackMoments(tr.DurationSeconds, targetSeconds), tr.DurationSeconds, targetSeconds)
	}

	sort.SliceStable(moments, func(i, j int) bool {
		return moments[i].ViralityScore > moments[j].ViralityScore
	})
	if len(moments) > a.maxMoments {
		moments = moments[:a.maxMoments]
	}
	return moments, nil
}

func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.3,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 3000,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", a.redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, truncate(a.redactString(string(rb)), 400))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response has no candidates")
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func buildPrompt(tr entity.Transcript, targetSeconds, topN int) string {
	var lines strings.Builder
	for _, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&lines, "[%.1fs] %s\n", seg.OffsetSeconds, text)
	}

	return fmt.Sprintf(`Analyze this video transcript and identify the TOP %d most viral moments that would make great short clips.

VIDEO TRANSCRIPT WITH TIMESTAMPS:
%s
CLIP REQUIREMENTS:
- Each clip should be exactly %d seconds long
- Focus on moments with high engagement potential (humor, shock, emotion, valuable insights)
- Consider viral elements: hooks, punchlines, dramatic reveals, strong emotions, quotable moments

For each viral moment, provide:
1. start_timestamp and end_timestamp (in seconds) for a %d-second clip
2. virality_score (0.0 to 1.0 scale where 1.0 = extremely viral)
3. grade (A+, A, A-, B+, B, B-, C+, C, C-, D+, D, F)
4. justification (why this moment is viral - specific reasons)
5. emotional_keywords (3-5 words describing the emotion/hook)
6. urgency_indicators (what makes people want to share immediately)

IMPORTANT: Respond ONLY with valid JSON. Do not include any text before or after the JSON. Do not use markdown formatting.

{
  "viral_moments": [
    {
      "start_timestamp": 45.2,
      "end_timestamp": 75.2,
      "virality_score": 0.92,
      "grade": "A",
      "justification": "Unexpected plot twist with strong emotional reaction",
      "emotional_keywords": ["shocking", "unexpected", "emotional"],
      "urgency_indicators": ["plot twist", "quotable line"]
    }
  ]
}`, topN, lines.String(), targetSeconds, targetSeconds)
}

var validGrades = map[string]bool{
	"A+": true, "A": true, "A-": true,
	"B+": true, "B": true, "B-": true,
	"C+": true, "C": true, "C-": true,
	"D+": true, "D": true, "F": true,
}

// validateMoments clamps every candidate into bounds and fills
// defaults. Only candidates whose numeric fields cannot be coerced at
// all are discarded.
func validateMoments(raws []rawMoment, totalDuration float64, targetSeconds int) []entity.Moment {
	target := float64(targetSeconds)
	out := make([]entity.Moment, 0, len(raws))

	for _, raw := range raws {
		if raw.StartTimestamp.Invalid || raw.EndTimestamp.Invalid || raw.ViralityScore.Invalid {
			continue
		}

		start := raw.StartTimestamp.Value
		if start < 0 {
			start = 0
		}
		if totalDuration > 0 && start > totalDuration-target {
			start = totalDuration - target
			if start < 0 {
				start = 0
			}
		}

		end := raw.EndTimestamp.Value
		if !raw.EndTimestamp.Set || end <= start {
			end = start + target
		}
		if totalDuration > 0 && end > totalDuration {
			end = totalDuration
		}
		if end <= start {
			continue
		}

		score := 0.7
		if raw.ViralityScore.Set {
			score = grading.Clamp(raw.ViralityScore.Value)
		}

		grade := strings.TrimSpace(raw.Grade)
		if !validGrades[grade] {
			grade = grading.ForScore(score)
		}

		justification := strings.TrimSpace(raw.Justification)
		if justification == "" {
			justification = "Viral potential detected"
		}
		keywords := raw.EmotionalKeywords
		if len(keywords) == 0 {
			keywords = []string{"engaging"}
		}
		indicators := raw.UrgencyIndicators
		if len(indicators) == 0 {
			indicators = []string{"interesting"}
		}

		out = append(out, entity.Moment{
			StartSeconds:      start,
			EndSeconds:        end,
			ViralityScore:     score,
			Grade:             grade,
			Justification:     justification,
			EmotionalKeywords: keywords,
			UrgencyIndicators: indicators,
		})
	}
	return out
}

// fallbackMoments synthesizes three structural candidates (near the
// start, the midpoint, near the end) so the pipeline never ends up
// empty purely because the model was unavailable or unusable.
func fallbackMoments(totalDuration float64, targetSeconds int) []rawMoment {
	target := float64(targetSeconds)
	positions := []struct {
		name  string
		start float64
	}{
		{"beginning", 10},
		{"middle", totalDuration/2 - target/2},
		{"end", totalDuration - target - 10},
	}

	out := make([]rawMoment, 0, len(positions))
	for i, p := range positions {
		start := p.start
		if start < 0 {
			start = 0
		}
		end := start + target
		if end > totalDuration {
			end = totalDuration
		}
		if end <= start {
			continue
		}
		out = append(out, rawMoment{
			StartTimestamp:    flexFloat{Value: start, Set: true},
			EndTimestamp:      flexFloat{Value: end, Set: true},
			ViralityScore:     flexFloat{Value: 0.7 - float64(i)*0.1, Set: true},
			Grade:             "B",
			Justification:     fmt.Sprintf("Fallback clip from %s of video", p.name),
			EmotionalKeywords: []string{"engaging", "content"},
			UrgencyIndicators: []string{"interesting", "moment"},
		})
	}
	return out
}

func (a *Analyzer) redact(err error) error {
	if a.apiKey == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), a.apiKey, "[REDACTED]"))
}

func (a *Analyzer) redactString(s string) string {
	if a.apiKey == "" {
		return s
	}
	return strings.ReplaceAll(s, a.apiKey, "[REDACTED]")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
