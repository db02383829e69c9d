// Package coach runs the performance analysis pipeline: preprocess, judge,
// normalize, and degrade to synthetic results when a stage fails.
package coach

import (
	"context"
	"errors"
	"log/slog"

	"github.com/athleon/perform/internal/judge"
	"github.com/athleon/perform/internal/media"
	"github.com/athleon/perform/internal/models"
)

const chatUnavailableReply = "I couldn't process that request right now."

// JudgmentClient is the remote vision-language client.
type JudgmentClient interface {
	Configured() bool
	Complete(ctx context.Context, req judge.Request) (string, error)
}

// Preprocessor turns a video file into inline frames.
type Preprocessor interface {
	ExtractFrames(ctx context.Context, videoPath string) ([]media.Frame, error)
}

// Synthesizer produces a structurally valid synthetic analysis.
type Synthesizer interface {
	Synthesize() models.AnalysisResult
	SynthesizeText() models.AnalysisResult
}

// Service orchestrates one analysis or chat turn at a time. Each request is
// a single sequential flow; the only error that escapes is the video
// duration limit.
type Service struct {
	judge  JudgmentClient
	media  Preprocessor
	synth  Synthesizer
	logger *slog.Logger
}

func NewService(judgeClient JudgmentClient, preprocessor Preprocessor, synth Synthesizer, logger *slog.Logger) *Service {
	return &Service{
		judge:  judgeClient,
		media:  preprocessor,
		synth:  synth,
		logger: logger.With("component", "coach"),
	}
}

// AnalyzeVideo scores a stored video. Every failure except the duration
// ceiling degrades to a synthetic result; the caller always gets a
// well-formed analysis or the duration error, nothing else.
func (s *Service) AnalyzeVideo(ctx context.Context, videoPath, title string) (models.AnalysisResult, error) {
	if !s.judge.Configured() {
		return s.fallback("video", "not_configured"), nil
	}
	if videoPath == "" {
		return s.fallback("video", "no_media"), nil
	}

	frames, err := s.media.ExtractFrames(ctx, videoPath)
	if err != nil {
		if errors.Is(err, media.ErrDurationExceeded) {
			analysesTotal.WithLabelValues("video", "rejected").Inc()
			return models.AnalysisResult{}, err
		}
		s.logger.Warn("preprocessing failed, degrading to synthetic analysis", "video", videoPath, "error", err)
		return s.fallback("video", "preprocess_failed"), nil
	}

	payloads := make([]string, len(frames))
	for i, frame := range frames {
		payloads[i] = frame.Base64
	}

	temp := judge.AnalysisTemperature
	raw, err := s.judge.Complete(ctx, judge.Request{
		System:      judge.VideoSystemPrompt,
		User:        judge.VideoUserPrompt(title),
		Frames:      payloads,
		Temperature: &temp,
	})
	if err != nil {
		s.logger.Warn("judgment call failed, degrading to synthetic analysis", "video", videoPath, "error", err)
		return s.fallback("video", "upstream_failed"), nil
	}

	result := judge.NormalizeAnalysis(raw, models.DefaultSkillBreakdown())
	analysesTotal.WithLabelValues("video", outcome(result)).Inc()
	return result, nil
}

// AnalyzeText scores a free-text performance description. Text analysis
// never fails: any upstream problem degrades to a synthetic result.
func (s *Service) AnalyzeText(ctx context.Context, sport, description string) (models.AnalysisResult, error) {
	if !s.judge.Configured() {
		return s.fallback("text", "not_configured"), nil
	}

	temp := judge.TextAnalysisTemperature
	raw, err := s.judge.Complete(ctx, judge.Request{
		User:        judge.TextAnalysisPrompt(sport, description),
		Temperature: &temp,
	})
	if err != nil {
		s.logger.Warn("text judgment call failed, degrading to synthetic analysis", "sport", sport, "error", err)
		return s.fallback("text", "upstream_failed"), nil
	}

	result := judge.NormalizeAnalysis(raw, models.DefaultTextSkillBreakdown())
	analysesTotal.WithLabelValues("text", outcome(result)).Inc()
	return result, nil
}

// Chat answers one coaching message. Offline or failing upstream falls back
// to the rule-based responder, so chat always returns something.
func (s *Service) Chat(ctx context.Context, message string, chatCtx models.ChatContext) string {
	if !s.judge.Configured() {
		analysesTotal.WithLabelValues("chat", "fallback").Inc()
		return RuleBasedReply(message, chatCtx)
	}

	reply, err := s.judge.Complete(ctx, judge.Request{
		System: judge.ChatSystemPrompt(chatCtx),
		User:   message,
	})
	switch {
	case errors.Is(err, judge.ErrEmptyResponse):
		analysesTotal.WithLabelValues("chat", "empty").Inc()
		return chatUnavailableReply
	case err != nil:
		s.logger.Warn("chat judgment call failed, using rule-based reply", "error", err)
		analysesTotal.WithLabelValues("chat", "fallback").Inc()
		return RuleBasedReply(message, chatCtx)
	}

	analysesTotal.WithLabelValues("chat", "model").Inc()
	return reply
}

func (s *Service) fallback(mode, reason string) models.AnalysisResult {
	analysesTotal.WithLabelValues(mode, "synthetic").Inc()
	fallbacksTotal.WithLabelValues(reason).Inc()
	if mode == "text" {
		return s.synth.SynthesizeText()
	}
	return s.synth.Synthesize()
}

func outcome(result models.AnalysisResult) string {
	if !result.IsRelated {
		return "unrelated"
	}
	return "model"
}
