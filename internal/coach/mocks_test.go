package coach

import (
	"context"

	"github.com/athleon/perform/internal/judge"
	"github.com/athleon/perform/internal/media"
	"github.com/athleon/perform/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockJudgmentClient struct {
	mock.Mock
}

func (m *MockJudgmentClient) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockJudgmentClient) Complete(ctx context.Context, req judge.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockPreprocessor struct {
	mock.Mock
}

func (m *MockPreprocessor) ExtractFrames(ctx context.Context, videoPath string) ([]media.Frame, error) {
	args := m.Called(ctx, videoPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]media.Frame), args.Error(1)
}

type MockSynthesizer struct {
	mock.Mock
}

func (m *MockSynthesizer) Synthesize() models.AnalysisResult {
	return m.Called().Get(0).(models.AnalysisResult)
}

func (m *MockSynthesizer) SynthesizeText() models.AnalysisResult {
	return m.Called().Get(0).(models.AnalysisResult)
}
