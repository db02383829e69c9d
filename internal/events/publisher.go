// Package events publishes analysis lifecycle notifications over NATS.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const SubjectAnalysisCompleted = "perform.analysis.completed"

// AnalysisCompleted is emitted after a video analysis is persisted.
type AnalysisCompleted struct {
	UserID     string `json:"user_id"`
	LogID      int64  `json:"log_id"`
	VideoTitle string `json:"video_title"`
	Score      int    `json:"score"`
}

// Publisher emits events to NATS. A nil Publisher is a valid no-op, so
// callers never need to branch on whether messaging is configured.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// Connect dials NATS. Callers treat a connection failure as a degraded mode
// and run without a publisher.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("performd"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Publisher{
		conn:   conn,
		logger: logger.With("component", "events"),
	}, nil
}

// PublishAnalysisCompleted emits one completion event. Publish failures are
// logged, never surfaced: notifications must not fail the request.
func (p *Publisher) PublishAnalysisCompleted(event AnalysisCompleted) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to encode analysis event", "error", err)
		return
	}
	if err := p.conn.Publish(SubjectAnalysisCompleted, payload); err != nil {
		p.logger.Warn("failed to publish analysis event", "subject", SubjectAnalysisCompleted, "error", err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain NATS connection", "error", err)
	}
}
