// Package storage persists analysis results and credit balances to Postgres.
package storage

import (
	"context"
	"errors"

	"github.com/athleon/perform/internal/models"
)

// ErrInsufficientCredits means a debit was attempted on an empty wallet.
var ErrInsufficientCredits = errors.New("no AI credits remaining")

// SimilarAnalysis is one hit of an insight-similarity search.
type SimilarAnalysis struct {
	LogID      int64   `json:"id"`
	UserID     string  `json:"userId"`
	VideoTitle string  `json:"videoTitle"`
	Score      int     `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Store is the persistence boundary of the analysis pipeline.
type Store interface {
	// SaveVideoAnalysis writes one usage-log record and one per-skill
	// performance snapshot, returning the usage-log id. Text analyses are
	// never persisted.
	SaveVideoAnalysis(ctx context.Context, userID, title, videoURL string, result models.AnalysisResult) (int64, error)

	// Results returns one newest-first page of a user's analysis history
	// plus an ascending 12-point score trend.
	Results(ctx context.Context, userID string, page, limit int) (models.ResultPage, error)

	// LatestResult returns the user's most recent analysis, or nil when
	// they have none.
	LatestResult(ctx context.Context, userID string) (*models.UsageLog, error)

	// MonthlyCount counts the user's analyses since the start of the
	// current month.
	MonthlyCount(ctx context.Context, userID string) (int, error)

	// Balance reports the user's credit balance, creating an empty wallet
	// on first sight.
	Balance(ctx context.Context, userID string) (int, error)

	// DebitCredit atomically deducts one credit, failing with
	// ErrInsufficientCredits on an empty wallet.
	DebitCredit(ctx context.Context, userID string) (int, error)

	// GrantCredits adds credits to a user's wallet.
	GrantCredits(ctx context.Context, userID string, amount int) (int, error)

	// SearchSimilarAnalyses ranks stored analyses by insight similarity to
	// the query text.
	SearchSimilarAnalyses(ctx context.Context, query string, limit int) ([]SimilarAnalysis, error)
}

// skillValue picks a named skill out of a breakdown, defaulting to 0 when
// the skill is absent.
func skillValue(breakdown []models.SkillScore, skill string) int {
	for _, s := range breakdown {
		if s.Skill == skill {
			return s.Value
		}
	}
	return 0
}
