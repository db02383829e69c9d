package judge

import (
	"fmt"
	"strings"

	"github.com/athleon/perform/internal/models"
)

// Analysis runs at low temperature for consistent scoring; text analysis is
// slightly warmer. Chat stays at the service default.
var (
	AnalysisTemperature     = 0.2
	TextAnalysisTemperature = 0.3
)

// VideoSystemPrompt instructs the model to run a relevance check and then
// score the frames, answering in the AnalysisResult JSON shape.
const VideoSystemPrompt = `You are an expert sports performance analyst.
Your task is to analyze the visual content of the provided video frames to determine if it depicts a sports performance.

1. **Relevance Check**: First, determine if the images show a sport, athlete, or physical exercise.
   - If NO: Return JSON with "isRelated": false and a "rejectionReason".
   - If YES: Proceed to full analysis.

2. **Full Analysis**:
   - Provide an overall performance score (0-100).
   - List 4-5 specific insights based on the VISUAL evidence (posture, form, technique).
   - Break down skills (Speed, Technique, Endurance, Accuracy, Power, Agility).
   - Suggest improvements.

Response Format (JSON ONLY):
{
  "isRelated": boolean,
  "rejectionReason": string (optional, only if isRelated is false),
  "score": number (0-100),
  "insights": ["insight1", "insight2", ...],
  "skillBreakdown": [
    {"skill": "Speed", "value": number},
    {"skill": "Technique", "value": number},
    {"skill": "Endurance", "value": number},
    {"skill": "Accuracy", "value": number},
    {"skill": "Power", "value": number},
    {"skill": "Agility", "value": number}
  ],
  "improvement": number (-20 to 20)
}`

// VideoUserPrompt captions the frame sequence for the model.
func VideoUserPrompt(title string) string {
	if title == "" {
		title = "Unknown"
	}
	return fmt.Sprintf("Analyze this video titled %q. These are key frames from the video.", title)
}

// TextAnalysisPrompt asks for a description-based judgment over the text
// skill set.
func TextAnalysisPrompt(sport, description string) string {
	return fmt.Sprintf(`As an AI Sports Coach, analyze this %s performance based on the description:

%q

Provide a JSON response with:
1. An overall performance score (0-100)
2. 4-5 key insights about the performance
3. A skill breakdown for: Technique, Power, Speed, Accuracy, Consistency

Respond ONLY with valid JSON in this exact format:
{
  "score": 85,
  "insights": ["insight1", "insight2", "insight3", "insight4"],
  "skillBreakdown": [
    {"skill": "Technique", "value": 80, "fullMark": 100},
    {"skill": "Power", "value": 75, "fullMark": 100},
    {"skill": "Speed", "value": 85, "fullMark": 100},
    {"skill": "Accuracy", "value": 70, "fullMark": 100},
    {"skill": "Consistency", "value": 78, "fullMark": 100}
  ],
  "improvement": 0,
  "isRelated": true
}`, sport, description)
}

// ChatSystemPrompt folds the user's most recent analysis into the coach
// persona for a chat turn.
func ChatSystemPrompt(chatCtx models.ChatContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI Sports Coach helping %s. ", firstName(chatCtx.UserName))

	if chatCtx.RecentScore > 0 {
		title := chatCtx.VideoTitle
		if title == "" {
			title = "Untitled Video"
		}
		fmt.Fprintf(&b, "\nMost recent video analysis: %q", title)
		fmt.Fprintf(&b, "\n- Score: %d/100", chatCtx.RecentScore)
	}

	if len(chatCtx.Skills) > 0 {
		details := make([]string, 0, len(chatCtx.Skills))
		for _, s := range chatCtx.Skills {
			details = append(details, fmt.Sprintf("%s: %d%%", s.Skill, s.Value))
		}
		fmt.Fprintf(&b, "\n- Skill Breakdown: %s", strings.Join(details, ", "))
	}

	if len(chatCtx.Insights) > 0 {
		fmt.Fprintf(&b, "\n- Key Insights: %s", strings.Join(chatCtx.Insights, "; "))
	}

	b.WriteString("\nProvide a helpful, encouraging, and specific response as their AI Sports Coach. " +
		"Be conversational, supportive, and provide actionable advice. " +
		"Keep your response concise (2-4 sentences) but informative.")
	return b.String()
}

func firstName(name string) string {
	if first, _, found := strings.Cut(strings.TrimSpace(name), " "); found || first != "" {
		return first
	}
	return "there"
}
