package models

import "time"

// SkillScore is one axis of a performance breakdown. FullMark is always 100.
type SkillScore struct {
	Skill    string `json:"skill"`
	Value    int    `json:"value"`
	FullMark int    `json:"fullMark"`
}

// VideoSkills is the canonical skill ordering for video analysis.
var VideoSkills = []string{"Speed", "Technique", "Endurance", "Accuracy", "Power", "Agility"}

// TextSkills is the canonical skill ordering for text-based analysis.
var TextSkills = []string{"Technique", "Power", "Speed", "Accuracy", "Consistency"}

// AnalysisResult is the structured outcome of a performance analysis.
// IsRelated=false means the content was judged not to be sports performance;
// in that case Score is 0 and every skill value is 0.
type AnalysisResult struct {
	Score           int          `json:"score"`
	Insights        []string     `json:"insights"`
	SkillBreakdown  []SkillScore `json:"skillBreakdown"`
	Improvement     int          `json:"improvement"`
	IsRelated       bool         `json:"isRelated"`
	RejectionReason string       `json:"rejectionReason,omitempty"`
}

// ChatContext carries the acting user's most recent analysis into a chat turn.
type ChatContext struct {
	UserName    string
	RecentScore int
	Skills      []SkillScore
	VideoTitle  string
	Insights    []string
}

// UsageLog is one persisted video analysis.
type UsageLog struct {
	ID             int64        `json:"id"`
	UserID         string       `json:"userId"`
	VideoTitle     string       `json:"videoTitle"`
	VideoURL       string       `json:"videoUrl"`
	Score          int          `json:"score"`
	Insights       []string     `json:"insights"`
	SkillBreakdown []SkillScore `json:"skillBreakdown"`
	CreatedAt      time.Time    `json:"analyzedAt"`
}

// TrendPoint is one entry of a user's score history.
type TrendPoint struct {
	Score int       `json:"score"`
	Date  time.Time `json:"date"`
}

// ResultPage is one page of analysis history plus the score trend.
type ResultPage struct {
	Results    []UsageLog   `json:"results"`
	Trend      []TrendPoint `json:"performanceTrend"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// DefaultSkillBreakdown returns the canonical video breakdown at 75 each.
func DefaultSkillBreakdown() []SkillScore {
	return breakdownAt(VideoSkills, 75)
}

// ZeroSkillBreakdown returns the canonical video breakdown at 0 each.
func ZeroSkillBreakdown() []SkillScore {
	return breakdownAt(VideoSkills, 0)
}

// DefaultTextSkillBreakdown returns the canonical text breakdown at 75 each.
func DefaultTextSkillBreakdown() []SkillScore {
	return breakdownAt(TextSkills, 75)
}

func breakdownAt(skills []string, value int) []SkillScore {
	out := make([]SkillScore, 0, len(skills))
	for _, s := range skills {
		out = append(out, SkillScore{Skill: s, Value: value, FullMark: 100})
	}
	return out
}
