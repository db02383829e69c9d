package coach

import (
	"fmt"
	"strings"

	"github.com/athleon/perform/internal/models"
)

// RuleBasedReply is the fully-offline chat responder. It keys on substring
// matches in the message and folds in the caller's name and most recent
// analysis when available. Pure string templating, no external calls.
func RuleBasedReply(message string, chatCtx models.ChatContext) string {
	firstName := firstNameOf(chatCtx.UserName)
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "improve") || strings.Contains(lower, "better"):
		if len(chatCtx.Skills) > 0 {
			weakest := weakestSkill(chatCtx.Skills)
			skill := strings.ToLower(weakest.Skill)
			return fmt.Sprintf("Hi %s! Based on your recent analysis, I'd recommend focusing on %s. Here are some exercises:\n\n"+
				"1. Start with warm-up drills\n"+
				"2. Practice specific %s exercises for 20 minutes daily\n"+
				"3. Record yourself and compare with previous sessions\n\n"+
				"Would you like me to suggest specific drills?", firstName, skill, skill)
		}
		return fmt.Sprintf("Hi %s! To improve, I recommend uploading your performance videos for AI analysis. "+
			"This will help me give you personalized advice based on your actual performance data.", firstName)

	case strings.Contains(lower, "score") || strings.Contains(lower, "performance") || strings.Contains(lower, "how am i"):
		if chatCtx.RecentScore > 0 {
			var assessment string
			switch {
			case chatCtx.RecentScore >= 80:
				assessment = "excellent"
			case chatCtx.RecentScore >= 65:
				assessment = "good with room for growth"
			default:
				assessment = "showing steady progress"
			}
			return fmt.Sprintf("Your recent performance score is %d, which is %s. "+
				"Keep up your training routine and we should see continued improvement!", chatCtx.RecentScore, assessment)
		}
		return "I don't have recent performance data for you. Upload a video for AI analysis to get your performance score!"

	case strings.Contains(lower, "drill") || strings.Contains(lower, "exercise") || strings.Contains(lower, "practice"):
		return "Here are some recommended drills based on your profile:\n\n" +
			"Speed Drills\n- Sprint intervals (6x50m)\n- Ladder drills\n\n" +
			"Technique Work\n- Slow-motion form practice\n- Mirror training\n\n" +
			"Accuracy Training\n- Target practice\n- Precision exercises\n\n" +
			"Want me to create a weekly training plan for you?"

	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi") || strings.Contains(lower, "hey"):
		return fmt.Sprintf("Hello %s! I'm your AI Coach. I can help you with:\n\n"+
			"- Analyzing your performance videos\n"+
			"- Suggesting improvement areas\n"+
			"- Creating training plans\n"+
			"- Answering sports-related questions\n\n"+
			"How can I help you today?", firstName)

	default:
		return fmt.Sprintf("Thanks for your message, %s! I'm here to help with your athletic performance. "+
			"You can ask me about:\n\n"+
			"- Your performance scores and trends\n"+
			"- Improvement suggestions\n"+
			"- Training drills and exercises\n"+
			"- Analyzing your uploaded videos\n\n"+
			"What would you like to know?", firstName)
	}
}

func weakestSkill(skills []models.SkillScore) models.SkillScore {
	weakest := skills[0]
	for _, s := range skills[1:] {
		if s.Value < weakest.Value {
			weakest = s
		}
	}
	return weakest
}

func firstNameOf(name string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")
	if first == "" {
		return "there"
	}
	return first
}
