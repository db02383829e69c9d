package judge

import (
	"encoding/json"
	"testing"

	"github.com/athleon/perform/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounded by prose", `Sure! Here you go: {"a":1} hope that helps`, `{"a":1}`, true},
		{"nested objects", `{"a":{"b":2}} trailing`, `{"a":{"b":2}}`, true},
		{"brace inside string", `{"a":"}"}`, `{"a":"}"}`, true},
		{"no object", "just some words", "", false},
		{"unterminated", `{"a":1`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAnalysisSuccess(t *testing.T) {
	raw := `{"isRelated":true,"score":83,"insights":["Good form","Work on balance"],` +
		`"skillBreakdown":[{"skill":"Speed","value":70}],"improvement":5}`

	result := NormalizeAnalysis(raw, models.DefaultSkillBreakdown())

	assert.True(t, result.IsRelated)
	assert.Equal(t, 83, result.Score)
	assert.Equal(t, 5, result.Improvement)
	assert.Equal(t, []string{"Good form", "Work on balance"}, result.Insights)
	// A declared single-skill list passes through as-is, no backfill.
	require.Len(t, result.SkillBreakdown, 1)
	assert.Equal(t, models.SkillScore{Skill: "Speed", Value: 70, FullMark: 100}, result.SkillBreakdown[0])
}

func TestNormalizeAnalysisClampsAdversarialValues(t *testing.T) {
	raw := `{"isRelated":true,"score":999,"insights":["x"],` +
		`"skillBreakdown":[{"skill":"Speed","value":-40},{"skill":"Power","value":300}],"improvement":-99}`

	result := NormalizeAnalysis(raw, models.DefaultSkillBreakdown())

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, -20, result.Improvement)
	assert.Equal(t, 0, result.SkillBreakdown[0].Value)
	assert.Equal(t, 100, result.SkillBreakdown[1].Value)

	raw = `{"isRelated":true,"score":-5}`
	assert.Equal(t, 0, NormalizeAnalysis(raw, models.DefaultSkillBreakdown()).Score)
}

func TestNormalizeAnalysisDefaults(t *testing.T) {
	result := NormalizeAnalysis(`{"isRelated":true}`, models.DefaultSkillBreakdown())

	assert.Equal(t, 75, result.Score)
	assert.Equal(t, 0, result.Improvement)
	assert.Equal(t, []string{"Performance analysis completed"}, result.Insights)
	assert.Equal(t, models.DefaultSkillBreakdown(), result.SkillBreakdown)
}

func TestNormalizeAnalysisUnrelated(t *testing.T) {
	raw := `{"isRelated":false,"rejectionReason":"This is a cooking video."}`

	result := NormalizeAnalysis(raw, models.DefaultSkillBreakdown())

	assert.False(t, result.IsRelated)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, []string{"This is a cooking video."}, result.Insights)
	assert.Equal(t, "This is a cooking video.", result.RejectionReason)
	for _, s := range result.SkillBreakdown {
		assert.Equal(t, 0, s.Value)
	}
}

func TestNormalizeAnalysisUnrelatedGenericReason(t *testing.T) {
	result := NormalizeAnalysis(`{"isRelated":false}`, models.DefaultSkillBreakdown())

	assert.False(t, result.IsRelated)
	assert.Equal(t, []string{genericRejection}, result.Insights)
	assert.Empty(t, result.RejectionReason)
}

func TestNormalizeAnalysisProseFallback(t *testing.T) {
	raw := "Sure! Here's your analysis. Great job overall."

	result := NormalizeAnalysis(raw, models.DefaultSkillBreakdown())

	assert.True(t, result.IsRelated)
	assert.Equal(t, 75, result.Score)
	assert.Equal(t, []string{raw}, result.Insights)
	assert.Equal(t, models.DefaultSkillBreakdown(), result.SkillBreakdown)
}

func TestNormalizeAnalysisProseTakesFirstFourLines(t *testing.T) {
	raw := "one\n\ntwo\nthree\nfour\nfive"

	result := NormalizeAnalysis(raw, models.DefaultSkillBreakdown())

	assert.Equal(t, []string{"one", "two", "three", "four"}, result.Insights)
}

func TestNormalizeAnalysisIdempotent(t *testing.T) {
	inputs := []string{
		`{"isRelated":true,"score":83,"insights":["Good form"],"skillBreakdown":[{"skill":"Speed","value":70}],"improvement":5}`,
		`{"isRelated":false,"rejectionReason":"not sports"}`,
		`{"isRelated":true,"score":999,"improvement":40}`,
	}

	for _, raw := range inputs {
		once := NormalizeAnalysis(raw, models.DefaultSkillBreakdown())
		encoded, err := json.Marshal(once)
		require.NoError(t, err)
		twice := NormalizeAnalysis(string(encoded), models.DefaultSkillBreakdown())
		assert.Equal(t, once, twice, "normalizer not idempotent for %q", raw)
	}
}
