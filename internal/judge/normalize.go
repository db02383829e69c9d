package judge

import (
	"encoding/json"
	"strings"

	"github.com/athleon/perform/internal/models"
)

const genericRejection = "Video content does not appear to be sports-related."

// rawAnalysis is the loosely-typed document the model is asked to produce.
// Every field is optional; NormalizeAnalysis supplies defaults and clamps.
type rawAnalysis struct {
	IsRelated       *bool      `json:"isRelated"`
	RejectionReason string     `json:"rejectionReason"`
	Score           *float64   `json:"score"`
	Insights        []any      `json:"insights"`
	SkillBreakdown  []rawSkill `json:"skillBreakdown"`
	Improvement     *float64   `json:"improvement"`
}

type rawSkill struct {
	Skill string   `json:"skill"`
	Value *float64 `json:"value"`
}

// ExtractJSON returns the first balanced top-level {...} span in text,
// tolerating surrounding prose. ok is false when no complete object exists.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// NormalizeAnalysis is the single schema-validation-with-defaults step turning
// raw model output into a well-formed AnalysisResult. Unparseable text
// degrades to prose insights rather than failing; an explicit non-relevance
// judgment yields an all-zero result. The function is idempotent: feeding a
// normalized result's JSON back in reproduces it.
func NormalizeAnalysis(raw string, defaults []models.SkillScore) models.AnalysisResult {
	span, ok := ExtractJSON(raw)
	if !ok {
		return proseResult(raw, defaults)
	}

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return proseResult(raw, defaults)
	}

	if parsed.IsRelated != nil && !*parsed.IsRelated {
		reason := parsed.RejectionReason
		if reason == "" {
			reason = genericRejection
		}
		return models.AnalysisResult{
			Score:           0,
			Insights:        []string{reason},
			SkillBreakdown:  zeroed(defaults),
			Improvement:     0,
			IsRelated:       false,
			RejectionReason: parsed.RejectionReason,
		}
	}

	return models.AnalysisResult{
		Score:          clampScore(parsed.Score, 75),
		Insights:       normalizeInsights(parsed.Insights),
		SkillBreakdown: normalizeSkills(parsed.SkillBreakdown, defaults),
		Improvement:    clampInt(parsed.Improvement, 0, -20, 20),
		IsRelated:      true,
	}
}

// proseResult treats the raw text as plain prose: up to the first four
// non-empty lines become insights around an otherwise default result.
func proseResult(raw string, defaults []models.SkillScore) models.AnalysisResult {
	var insights []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		insights = append(insights, line)
		if len(insights) == 4 {
			break
		}
	}
	if len(insights) == 0 {
		insights = []string{"AI analysis completed successfully"}
	}

	return models.AnalysisResult{
		Score:          75,
		Insights:       insights,
		SkillBreakdown: cloneSkills(defaults),
		Improvement:    0,
		IsRelated:      true,
	}
}

func normalizeInsights(raw []any) []string {
	var insights []string
	for _, entry := range raw {
		if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
			insights = append(insights, s)
		}
	}
	if len(insights) == 0 {
		return []string{"Performance analysis completed"}
	}
	return insights
}

// normalizeSkills clamps each declared skill entry; a missing or malformed
// list substitutes the canonical defaults. Declared lists pass through with
// their own cardinality - no backfill of absent skills.
func normalizeSkills(raw []rawSkill, defaults []models.SkillScore) []models.SkillScore {
	if len(raw) == 0 {
		return cloneSkills(defaults)
	}
	out := make([]models.SkillScore, 0, len(raw))
	for _, s := range raw {
		name := s.Skill
		if name == "" {
			name = "Unknown"
		}
		out = append(out, models.SkillScore{
			Skill:    name,
			Value:    clampScore(s.Value, 75),
			FullMark: 100,
		})
	}
	return out
}

func clampScore(v *float64, fallback int) int {
	return clampInt(v, fallback, 0, 100)
}

func clampInt(v *float64, fallback, min, max int) int {
	if v == nil {
		return fallback
	}
	n := int(*v)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func zeroed(skills []models.SkillScore) []models.SkillScore {
	out := make([]models.SkillScore, len(skills))
	for i, s := range skills {
		out[i] = models.SkillScore{Skill: s.Skill, Value: 0, FullMark: 100}
	}
	return out
}

func cloneSkills(skills []models.SkillScore) []models.SkillScore {
	out := make([]models.SkillScore, len(skills))
	copy(out, skills)
	return out
}
