package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/athleon/perform/internal/embeddings"
	"github.com/athleon/perform/internal/models"
)

const embeddingTimeout = 2 * time.Second

// PostgresStore manages interaction with PostgreSQL.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder *embeddings.Service
	logger   *slog.Logger
}

// NewPostgresStore connects a pool and verifies it. The embedder turns
// insight text into vectors for similarity search; it may be nil, in which
// case rows are stored without embeddings.
func NewPostgresStore(ctx context.Context, dsn string, embedder *embeddings.Service, logger *slog.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{
		pool:     pool,
		embedder: embedder,
		logger:   logger.With("component", "storage"),
	}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema creates the database schema if it doesn't exist.
func InitSchema(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ai_credit_wallets (
            user_id VARCHAR(64) PRIMARY KEY,
            balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
            updated_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS ai_usage_logs (
            id BIGSERIAL PRIMARY KEY,
            user_id VARCHAR(64) NOT NULL,
            video_title TEXT NOT NULL,
            video_url TEXT NOT NULL,
            score INTEGER NOT NULL,
            insights TEXT[] NOT NULL,
            skill_breakdown JSONB NOT NULL,
            insight_embedding vector(64),
            created_at TIMESTAMPTZ NOT NULL
        );

        CREATE TABLE IF NOT EXISTS performance_snapshots (
            id BIGSERIAL PRIMARY KEY,
            user_id VARCHAR(64) NOT NULL,
            overall_score INTEGER NOT NULL,
            speed_score INTEGER NOT NULL DEFAULT 0,
            technique_score INTEGER NOT NULL DEFAULT 0,
            endurance_score INTEGER NOT NULL DEFAULT 0,
            accuracy_score INTEGER NOT NULL DEFAULT 0,
            power_score INTEGER NOT NULL DEFAULT 0,
            agility_score INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_usage_logs_user_created ON ai_usage_logs(user_id, created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_snapshots_user_created ON performance_snapshots(user_id, created_at DESC);
        CREATE INDEX IF NOT EXISTS idx_usage_logs_embedding ON ai_usage_logs USING ivfflat (insight_embedding vector_cosine_ops) WITH (lists = 100);
    `)
	if err != nil {
		return fmt.Errorf("failed to create database indexes: %w", err)
	}

	return nil
}

// SaveVideoAnalysis writes the usage log and the denormalized skill snapshot
// in one transaction.
func (s *PostgresStore) SaveVideoAnalysis(ctx context.Context, userID, title, videoURL string, result models.AnalysisResult) (int64, error) {
	breakdown, err := json.Marshal(result.SkillBreakdown)
	if err != nil {
		return 0, fmt.Errorf("encoding skill breakdown: %w", err)
	}

	embedding := s.insightEmbedding(ctx, result.Insights)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var logID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO ai_usage_logs
        (user_id, video_title, video_url, score, insights, skill_breakdown, insight_embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`,
		userID, title, videoURL, result.Score, result.Insights, breakdown, embedding, time.Now()).Scan(&logID)
	if err != nil {
		return 0, fmt.Errorf("failed to store usage log: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO performance_snapshots
        (user_id, overall_score, speed_score, technique_score, endurance_score, accuracy_score, power_score, agility_score, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID,
		result.Score,
		skillValue(result.SkillBreakdown, "Speed"),
		skillValue(result.SkillBreakdown, "Technique"),
		skillValue(result.SkillBreakdown, "Endurance"),
		skillValue(result.SkillBreakdown, "Accuracy"),
		skillValue(result.SkillBreakdown, "Power"),
		skillValue(result.SkillBreakdown, "Agility"),
		time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to store performance snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing analysis write: %w", err)
	}
	return logID, nil
}

// insightEmbedding asks the embedder for a vector over the joined insight
// text. Failures are logged and the row is stored without an embedding.
func (s *PostgresStore) insightEmbedding(ctx context.Context, insights []string) *pgvector.Vector {
	if s.embedder == nil || len(insights) == 0 {
		return nil
	}

	content := ""
	for i, insight := range insights {
		if i > 0 {
			content += "\n"
		}
		content += insight
	}

	select {
	case result := <-s.embedder.GetEmbedding(content):
		if result.Error != nil {
			s.logger.Warn("failed to generate insight embedding", "error", result.Error)
			return nil
		}
		v := pgvector.NewVector(result.Embedding)
		return &v
	case <-time.After(embeddingTimeout):
		s.logger.Warn("insight embedding timed out")
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Results returns one page of analysis history plus the score trend.
func (s *PostgresStore) Results(ctx context.Context, userID string, page, limit int) (models.ResultPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, video_title, video_url, score, insights, skill_breakdown, created_at
        FROM ai_usage_logs
        WHERE user_id = $1
        ORDER BY created_at DESC
        OFFSET $2 LIMIT $3`,
		userID, (page-1)*limit, limit)
	if err != nil {
		return models.ResultPage{}, fmt.Errorf("querying usage logs: %w", err)
	}
	defer rows.Close()

	results := []models.UsageLog{}
	for rows.Next() {
		entry, err := scanUsageLog(rows)
		if err != nil {
			return models.ResultPage{}, err
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return models.ResultPage{}, fmt.Errorf("reading usage logs: %w", err)
	}

	var total int
	err = s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ai_usage_logs WHERE user_id = $1", userID).Scan(&total)
	if err != nil {
		return models.ResultPage{}, fmt.Errorf("counting usage logs: %w", err)
	}

	trendRows, err := s.pool.Query(ctx,
		`SELECT score, created_at FROM ai_usage_logs
        WHERE user_id = $1
        ORDER BY created_at ASC
        LIMIT 12`,
		userID)
	if err != nil {
		return models.ResultPage{}, fmt.Errorf("querying score trend: %w", err)
	}
	defer trendRows.Close()

	trend := []models.TrendPoint{}
	for trendRows.Next() {
		var point models.TrendPoint
		if err := trendRows.Scan(&point.Score, &point.Date); err != nil {
			return models.ResultPage{}, fmt.Errorf("scanning trend point: %w", err)
		}
		trend = append(trend, point)
	}
	if err := trendRows.Err(); err != nil {
		return models.ResultPage{}, fmt.Errorf("reading score trend: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	return models.ResultPage{
		Results:    results,
		Trend:      trend,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// LatestResult returns the most recent analysis, or nil when none exists.
func (s *PostgresStore) LatestResult(ctx context.Context, userID string) (*models.UsageLog, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, video_title, video_url, score, insights, skill_breakdown, created_at
        FROM ai_usage_logs
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT 1`,
		userID)

	entry, err := scanUsageLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MonthlyCount counts analyses since the start of the current month.
func (s *PostgresStore) MonthlyCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ai_usage_logs
        WHERE user_id = $1 AND created_at >= date_trunc('month', now())`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting monthly analyses: %w", err)
	}
	return count, nil
}

// Balance reports the credit balance, creating an empty wallet if needed.
func (s *PostgresStore) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx,
		"SELECT balance FROM ai_credit_wallets WHERE user_id = $1", userID).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reading wallet: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO ai_credit_wallets (user_id, balance, updated_at)
        VALUES ($1, 0, $2)
        ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING balance`,
		userID, time.Now()).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("creating wallet: %w", err)
	}
	return balance, nil
}

// DebitCredit deducts one credit; the balance never goes negative.
func (s *PostgresStore) DebitCredit(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx,
		`UPDATE ai_credit_wallets
        SET balance = balance - 1, updated_at = $2
        WHERE user_id = $1 AND balance > 0
        RETURNING balance`,
		userID, time.Now()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, fmt.Errorf("debiting wallet: %w", err)
	}
	return balance, nil
}

// GrantCredits adds credits, creating the wallet if needed.
func (s *PostgresStore) GrantCredits(ctx context.Context, userID string, amount int) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ai_credit_wallets (user_id, balance, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
        SET balance = ai_credit_wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
        RETURNING balance`,
		userID, amount, time.Now()).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("granting credits: %w", err)
	}
	return balance, nil
}

// SearchSimilarAnalyses ranks stored analyses by cosine similarity between
// their insight embeddings and the query text.
func (s *PostgresStore) SearchSimilarAnalyses(ctx context.Context, query string, limit int) ([]SimilarAnalysis, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("similarity search requires an embedder")
	}
	if limit < 1 {
		limit = 5
	}

	result := <-s.embedder.GetEmbedding(query)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", result.Error)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, video_title, score,
        1 - (insight_embedding <=> $1) AS similarity
        FROM ai_usage_logs
        WHERE insight_embedding IS NOT NULL
        ORDER BY insight_embedding <=> $1
        LIMIT $2`,
		pgvector.NewVector(result.Embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar analyses: %w", err)
	}
	defer rows.Close()

	var hits []SimilarAnalysis
	for rows.Next() {
		var hit SimilarAnalysis
		if err := rows.Scan(&hit.LogID, &hit.UserID, &hit.VideoTitle, &hit.Score, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func scanUsageLog(row pgx.Row) (models.UsageLog, error) {
	var entry models.UsageLog
	var breakdown []byte
	err := row.Scan(&entry.ID, &entry.UserID, &entry.VideoTitle, &entry.VideoURL,
		&entry.Score, &entry.Insights, &breakdown, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UsageLog{}, err
		}
		return models.UsageLog{}, fmt.Errorf("scanning usage log: %w", err)
	}
	if err := json.Unmarshal(breakdown, &entry.SkillBreakdown); err != nil {
		return models.UsageLog{}, fmt.Errorf("decoding skill breakdown: %w", err)
	}
	return entry, nil
}
