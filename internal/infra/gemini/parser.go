package gemini

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Model output is free text that only usually contains the JSON we
// asked for. Parsing is tiered: strict decode, then the first object
// carrying the "viral_moments" key, then per-field regex salvage for
// truncated output. Each tier feeds the same rawMoment shape so the
// validation pass can treat all sources uniformly.

// flexFloat tolerates numbers delivered as JSON strings. A present
// but uncoercible value marks the field invalid so the candidate can
// be discarded; absence leaves Set false so defaults apply.
type flexFloat struct {
	Value   float64
	Set     bool
	Invalid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.Invalid = true
		return nil
	}
	f.Value = v
	f.Set = true
	return nil
}

type rawMoment struct {
	StartTimestamp    flexFloat `json:"start_timestamp"`
	EndTimestamp      flexFloat `json:"end_timestamp"`
	ViralityScore     flexFloat `json:"virality_score"`
	Grade             string    `json:"grade"`
	Justification     string    `json:"justification"`
	EmotionalKeywords []string  `json:"emotional_keywords"`
	UrgencyIndicators []string  `json:"urgency_indicators"`
}

type momentsEnvelope struct {
	ViralMoments []rawMoment `json:"viral_moments"`
}

var (
	momentsBlockRE = regexp.MustCompile(`(?s)\{.*"viral_moments".*\}`)
	momentFieldsRE = regexp.MustCompile(`(?s)"start_timestamp":\s*([0-9.]+).*?"end_timestamp":\s*([0-9.]+).*?"virality_score":\s*([0-9.]+)(?:.*?"grade":\s*"([^"]*)")?(?:.*?"justification":\s*"([^"]*)")?`)
	keywordsRE     = regexp.MustCompile(`"emotional_keywords":\s*\[(.*?)\]`)
	indicatorsRE   = regexp.MustCompile(`"urgency_indicators":\s*\[(.*?)\]`)
)

// parseMoments extracts candidate moments from raw model output.
// Returns nil when no tier finds anything parseable.
func parseMoments(content string) []rawMoment {
	cleaned := stripCodeFences(content)

	var env momentsEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err == nil && len(env.ViralMoments) > 0 {
		return env.ViralMoments
	}

	if block := momentsBlockRE.FindString(cleaned); block != "" {
		if err := json.Unmarshal([]byte(block), &env); err == nil && len(env.ViralMoments) > 0 {
			return env.ViralMoments
		}
	}

	return salvageMoments(cleaned)
}

func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	}
	if j := strings.LastIndex(t, "```"); j >= 0 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// salvageMoments pulls individual candidates out of malformed or
// truncated JSON field by field. Array fields are best-effort; absent
// ones stay empty rather than failing the candidate.
func salvageMoments(content string) []rawMoment {
	matches := momentFieldsRE.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	keywords := salvageStringArray(keywordsRE, content)
	indicators := salvageStringArray(indicatorsRE, content)

	out := make([]rawMoment, 0, len(matches))
	for _, m := range matches {
		var raw rawMoment
		raw.StartTimestamp = coerceFloat(m[1])
		raw.EndTimestamp = coerceFloat(m[2])
		raw.ViralityScore = coerceFloat(m[3])
		raw.Grade = m[4]
		raw.Justification = m[5]
		raw.EmotionalKeywords = keywords
		raw.UrgencyIndicators = indicators
		out = append(out, raw)
	}
	return out
}

func coerceFloat(s string) flexFloat {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return flexFloat{Invalid: true}
	}
	return flexFloat{Value: v, Set: true}
}

func salvageStringArray(re *regexp.Regexp, content string) []string {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(m[1], ",") {
		if s := strings.Trim(strings.TrimSpace(part), `"`); s != "" {
			out = append(out, s)
		}
	}
	return out
}
