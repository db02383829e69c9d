package coach

import (
	"context"
	"log/slog"
	"testing"

	"github.com/athleon/perform/internal/judge"
	"github.com/athleon/perform/internal/media"
	"github.com/athleon/perform/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func syntheticResult() models.AnalysisResult {
	return models.AnalysisResult{
		Score:          72,
		Insights:       []string{"synthetic insight"},
		SkillBreakdown: models.DefaultSkillBreakdown(),
		Improvement:    3,
		IsRelated:      true,
	}
}

func newTestService() (*Service, *MockJudgmentClient, *MockPreprocessor, *MockSynthesizer) {
	judgeClient := new(MockJudgmentClient)
	preprocessor := new(MockPreprocessor)
	synth := new(MockSynthesizer)
	svc := NewService(judgeClient, preprocessor, synth, slog.New(slog.DiscardHandler))
	return svc, judgeClient, preprocessor, synth
}

func TestAnalyzeVideoNotConfigured(t *testing.T) {
	svc, judgeClient, preprocessor, synth := newTestService()

	judgeClient.On("Configured").Return(false)
	synth.On("Synthesize").Return(syntheticResult())

	result, err := svc.AnalyzeVideo(context.Background(), "/tmp/clip.mp4", "Sprint session")

	require.NoError(t, err)
	assert.True(t, result.IsRelated)
	assert.Len(t, result.SkillBreakdown, 6)
	// No preprocessing and no network call happens without a credential.
	preprocessor.AssertNotCalled(t, "ExtractFrames", mock.Anything, mock.Anything)
	judgeClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnalyzeVideoDurationExceededPropagates(t *testing.T) {
	svc, judgeClient, preprocessor, synth := newTestService()

	judgeClient.On("Configured").Return(true)
	preprocessor.On("ExtractFrames", mock.Anything, "/tmp/long.mp4").
		Return(nil, media.ErrDurationExceeded)

	_, err := svc.AnalyzeVideo(context.Background(), "/tmp/long.mp4", "Marathon")

	assert.ErrorIs(t, err, media.ErrDurationExceeded)
	judgeClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	synth.AssertNotCalled(t, "Synthesize")
}

func TestAnalyzeVideoPreprocessFailureDegrades(t *testing.T) {
	svc, judgeClient, preprocessor, synth := newTestService()

	judgeClient.On("Configured").Return(true)
	preprocessor.On("ExtractFrames", mock.Anything, mock.Anything).
		Return(nil, media.ErrExtraction)
	synth.On("Synthesize").Return(syntheticResult())

	result, err := svc.AnalyzeVideo(context.Background(), "/tmp/broken.mp4", "Broken")

	require.NoError(t, err)
	assert.Equal(t, syntheticResult(), result)
	judgeClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestAnalyzeVideoJudged(t *testing.T) {
	svc, judgeClient, preprocessor, synth := newTestService()

	frames := []media.Frame{{Base64: "QUFB", Offset: 0.1}, {Base64: "QkJC", Offset: 0.3}}
	judgeClient.On("Configured").Return(true)
	preprocessor.On("ExtractFrames", mock.Anything, "/tmp/clip.mp4").Return(frames, nil)
	judgeClient.On("Complete", mock.Anything, mock.MatchedBy(func(req judge.Request) bool {
		return len(req.Frames) == 2 &&
			req.Frames[0] == "QUFB" &&
			req.System == judge.VideoSystemPrompt &&
			req.Temperature != nil && *req.Temperature == judge.AnalysisTemperature
	})).Return(`{"isRelated":true,"score":83,"insights":["Good form","Work on balance"],`+
		`"skillBreakdown":[{"skill":"Speed","value":70}],"improvement":5}`, nil)

	result, err := svc.AnalyzeVideo(context.Background(), "/tmp/clip.mp4", "Sprint session")

	require.NoError(t, err)
	assert.Equal(t, 83, result.Score)
	assert.Equal(t, 5, result.Improvement)
	assert.Equal(t, []string{"Good form", "Work on balance"}, result.Insights)
	require.Len(t, result.SkillBreakdown, 1)
	assert.Equal(t, models.SkillScore{Skill: "Speed", Value: 70, FullMark: 100}, result.SkillBreakdown[0])
	synth.AssertNotCalled(t, "Synthesize")
}

func TestAnalyzeVideoUpstreamFailureDegrades(t *testing.T) {
	svc, judgeClient, preprocessor, synth := newTestService()

	judgeClient.On("Configured").Return(true)
	preprocessor.On("ExtractFrames", mock.Anything, mock.Anything).
		Return([]media.Frame{{Base64: "QUFB"}}, nil)
	judgeClient.On("Complete", mock.Anything, mock.Anything).Return("", judge.ErrUpstream)
	synth.On("Synthesize").Return(syntheticResult())

	result, err := svc.AnalyzeVideo(context.Background(), "/tmp/clip.mp4", "Sprint")

	require.NoError(t, err)
	assert.Equal(t, syntheticResult(), result)
}

func TestAnalyzeTextNotConfigured(t *testing.T) {
	svc, judgeClient, _, synth := newTestService()

	textResult := syntheticResult()
	textResult.SkillBreakdown = models.DefaultTextSkillBreakdown()

	judgeClient.On("Configured").Return(false)
	synth.On("SynthesizeText").Return(textResult)

	result, err := svc.AnalyzeText(context.Background(), "tennis", "solid backhand day")

	require.NoError(t, err)
	assert.True(t, result.IsRelated)
	assert.Len(t, result.SkillBreakdown, 5)
	judgeClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	synth.AssertNotCalled(t, "Synthesize")
}

func TestAnalyzeTextJudged(t *testing.T) {
	svc, judgeClient, _, _ := newTestService()

	judgeClient.On("Configured").Return(true)
	judgeClient.On("Complete", mock.Anything, mock.MatchedBy(func(req judge.Request) bool {
		return len(req.Frames) == 0 && req.System == "" &&
			req.Temperature != nil && *req.Temperature == judge.TextAnalysisTemperature
	})).Return(`{"isRelated":true,"score":81,"insights":["Strong serve"],`+
		`"skillBreakdown":[{"skill":"Technique","value":80},{"skill":"Consistency","value":77}]}`, nil)

	result, err := svc.AnalyzeText(context.Background(), "tennis", "strong serving practice")

	require.NoError(t, err)
	assert.Equal(t, 81, result.Score)
	require.Len(t, result.SkillBreakdown, 2)
}

func TestAnalyzeTextMalformedBreakdownUsesTextDefaults(t *testing.T) {
	svc, judgeClient, _, _ := newTestService()

	judgeClient.On("Configured").Return(true)
	judgeClient.On("Complete", mock.Anything, mock.Anything).
		Return(`{"isRelated":true,"score":70,"skillBreakdown":"oops"}`, nil)

	result, err := svc.AnalyzeText(context.Background(), "tennis", "desc")

	require.NoError(t, err)
	assert.Equal(t, models.DefaultTextSkillBreakdown(), result.SkillBreakdown)
}

func TestChatModelReply(t *testing.T) {
	svc, judgeClient, _, _ := newTestService()

	judgeClient.On("Configured").Return(true)
	judgeClient.On("Complete", mock.Anything, mock.MatchedBy(func(req judge.Request) bool {
		// Chat leaves temperature at the service default.
		return req.Temperature == nil && req.User == "how do I get faster?"
	})).Return("Work on stride turnover with interval sprints.", nil)

	reply := svc.Chat(context.Background(), "how do I get faster?", models.ChatContext{UserName: "Asha Rao"})

	assert.Equal(t, "Work on stride turnover with interval sprints.", reply)
}

func TestChatNotConfiguredUsesRules(t *testing.T) {
	svc, judgeClient, _, _ := newTestService()

	judgeClient.On("Configured").Return(false)

	reply := svc.Chat(context.Background(), "hello coach", models.ChatContext{UserName: "Asha Rao"})

	assert.Contains(t, reply, "Hello Asha!")
	judgeClient.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestChatUpstreamFailureUsesRules(t *testing.T) {
	svc, judgeClient, _, _ := newTestService()

	judgeClient.On("Configured").Return(true)
	judgeClient.On("Complete", mock.Anything, mock.Anything).Return("", judge.ErrUpstream)

	reply := svc.Chat(context.Background(), "what's my score?", models.ChatContext{
		UserName:    "Asha Rao",
		RecentScore: 82,
	})

	assert.Contains(t, reply, "82")
	assert.Contains(t, reply, "excellent")
}

func TestChatEmptyResponse(t *testing.T) {
	svc, judgeClient, _, _ := newTestService()

	judgeClient.On("Configured").Return(true)
	judgeClient.On("Complete", mock.Anything, mock.Anything).Return("", judge.ErrEmptyResponse)

	reply := svc.Chat(context.Background(), "anything", models.ChatContext{UserName: "Asha"})

	assert.Equal(t, chatUnavailableReply, reply)
}
