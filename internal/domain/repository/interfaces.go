package repository

import (
	"context"
	"time"

	"FinFolio/internal/domain/models"
)

// PriceSource returns the daily closing history of one symbol.
// An empty series with a nil error means the symbol had no data in range.
type PriceSource interface {
	History(ctx context.Context, symbol string, r models.DateRange) (models.PriceSeries, error)
}

// BetaSource supplies an externally published beta. A nil coefficient with a
// nil error means the source has no value for the symbol.
type BetaSource interface {
	Beta(ctx context.Context, symbol string) (*float64, error)
}

// NewsSource returns a plain-text digest of search results for query.
type NewsSource interface {
	News(ctx context.Context, query string) (string, error)
}

// RunResult is the persisted outcome of one pipeline run.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	Failed     bool
	Error      string
	Report     string
	Allocation models.Allocation
	Metrics    *models.Bundle
}

type ArtifactStore interface {
	Save(ctx context.Context, result *RunResult) (string, error)
}

// RunSummary is the event published after a run finishes.
type RunSummary struct {
	RunID       string            `json:"run_id"`
	Status      string            `json:"status"`
	Step        string            `json:"step"`
	Error       string            `json:"error,omitempty"`
	Universe    []string          `json:"universe"`
	Allocation  models.Allocation `json:"allocation,omitempty"`
	Validation  string            `json:"validation,omitempty"`
	Transitions int               `json:"transitions"`
	OutputDir   string            `json:"output_dir,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

type RunPublisher interface {
	Publish(ctx context.Context, s *RunSummary) error
	Close() error
}

type Metrics interface {
	RecordStage(stage, outcome string, seconds float64)
	RecordRun(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
