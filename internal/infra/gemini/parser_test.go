package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedResponse = `{
  "viral_moments": [
    {
      "start_timestamp": 45.2,
      "end_timestamp": 75.2,
      "virality_score": 0.92,
      "grade": "A",
      "justification": "Plot twist",
      "emotional_keywords": ["shocking", "unexpected"],
      "urgency_indicators": ["plot twist"]
    },
    {
      "start_timestamp": 10.0,
      "end_timestamp": 40.0,
      "virality_score": 0.81,
      "grade": "B-",
      "justification": "Strong hook",
      "emotional_keywords": ["funny"],
      "urgency_indicators": ["quotable"]
    }
  ]
}`

func TestParseMoments_StrictJSON(t *testing.T) {
	raws := parseMoments(wellFormedResponse)
	require.Len(t, raws, 2)
	assert.Equal(t, 45.2, raws[0].StartTimestamp.Value)
	assert.Equal(t, 75.2, raws[0].EndTimestamp.Value)
	assert.Equal(t, 0.92, raws[0].ViralityScore.Value)
	assert.Equal(t, "A", raws[0].Grade)
	assert.Equal(t, []string{"shocking", "unexpected"}, raws[0].EmotionalKeywords)
}

func TestParseMoments_MarkdownFenced(t *testing.T) {
	fenced := "```json\n" + wellFormedResponse + "\n```"
	raws := parseMoments(fenced)
	require.Len(t, raws, 2)
	assert.Equal(t, 0.92, raws[0].ViralityScore.Value)
}

func TestParseMoments_EmbeddedInProse(t *testing.T) {
	content := "Sure! Here are the viral moments you asked for:\n\n" +
		wellFormedResponse +
		"\n\nLet me know if you need anything else."
	raws := parseMoments(content)
	require.Len(t, raws, 2)
	assert.Equal(t, 45.2, raws[0].StartTimestamp.Value)
}

func TestParseMoments_TruncatedJSONSalvage(t *testing.T) {
	// Output cut off mid-array: strict and block parses both fail,
	// field salvage still recovers the complete candidate.
	truncated := `{
  "viral_moments": [
    {
      "start_timestamp": 12.5,
      "end_timestamp": 42.5,
      "virality_score": 0.88,
      "grade": "B+",
      "justification": "Dramatic reveal",
      "emotional_keywords": ["tense", "dramatic"],
      "urgency_indicators": ["reveal"]
    },
    {
      "start_timestamp": 90.0,
      "end_timestamp": 120.0,
      "virality_sc`
	raws := parseMoments(truncated)
	require.NotEmpty(t, raws)
	assert.Equal(t, 12.5, raws[0].StartTimestamp.Value)
	assert.Equal(t, 0.88, raws[0].ViralityScore.Value)
	assert.Equal(t, "B+", raws[0].Grade)
	assert.Equal(t, []string{"tense", "dramatic"}, raws[0].EmotionalKeywords)
}

func TestParseMoments_NoJSONAtAll(t *testing.T) {
	assert.Empty(t, parseMoments("I could not find any viral moments in this transcript."))
	assert.Empty(t, parseMoments(""))
}

func TestParseMoments_MissingViralMomentsKey(t *testing.T) {
	assert.Empty(t, parseMoments(`{"moments": [{"start": 1}]}`))
}

func TestParseMoments_StringNumbers(t *testing.T) {
	content := `{"viral_moments": [{"start_timestamp": "15.5", "end_timestamp": "45.5", "virality_score": "0.75"}]}`
	raws := parseMoments(content)
	require.Len(t, raws, 1)
	assert.True(t, raws[0].StartTimestamp.Set)
	assert.Equal(t, 15.5, raws[0].StartTimestamp.Value)
	assert.Equal(t, 0.75, raws[0].ViralityScore.Value)
}

func TestParseMoments_UncoercibleNumberMarkedInvalid(t *testing.T) {
	content := `{"viral_moments": [{"start_timestamp": "soon", "end_timestamp": 30, "virality_score": 0.8}]}`
	raws := parseMoments(content)
	require.Len(t, raws, 1)
	assert.True(t, raws[0].StartTimestamp.Invalid)
	assert.True(t, raws[0].EndTimestamp.Set)
}
