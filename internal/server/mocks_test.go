package server

import (
	"context"

	"github.com/athleon/perform/internal/models"
	"github.com/athleon/perform/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) AnalyzeVideo(ctx context.Context, videoPath, title string) (models.AnalysisResult, error) {
	args := m.Called(ctx, videoPath, title)
	return args.Get(0).(models.AnalysisResult), args.Error(1)
}

func (m *MockAnalyzer) AnalyzeText(ctx context.Context, sport, description string) (models.AnalysisResult, error) {
	args := m.Called(ctx, sport, description)
	return args.Get(0).(models.AnalysisResult), args.Error(1)
}

func (m *MockAnalyzer) Chat(ctx context.Context, message string, chatCtx models.ChatContext) string {
	return m.Called(ctx, message, chatCtx).String(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveVideoAnalysis(ctx context.Context, userID, title, videoURL string, result models.AnalysisResult) (int64, error) {
	args := m.Called(ctx, userID, title, videoURL, result)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Results(ctx context.Context, userID string, page, limit int) (models.ResultPage, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).(models.ResultPage), args.Error(1)
}

func (m *MockStore) LatestResult(ctx context.Context, userID string) (*models.UsageLog, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageLog), args.Error(1)
}

func (m *MockStore) MonthlyCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Balance(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) DebitCredit(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) GrantCredits(ctx context.Context, userID string, amount int) (int, error) {
	args := m.Called(ctx, userID, amount)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) SearchSimilarAnalyses(ctx context.Context, query string, limit int) ([]storage.SimilarAnalysis, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.SimilarAnalysis), args.Error(1)
}
