package repository

import (
	"context"
	"errors"

	"ORBLab/internal/domain/models"
)

// ErrDiagnosticRow is returned when a friction-free diagnostic row reaches persistence.
var ErrDiagnosticRow = errors.New("diagnostic row refused by persistence")

// StrategyRegistry is the authoritative, fail-closed source of strategy parameters.
type StrategyRegistry interface {
	Resolve(instrument, anchor string) (models.StrategyConfig, error)
	Keys() []models.StrategyKey
}

// CostRegistry maps an instrument to its friction definition.
type CostRegistry interface {
	Lookup(instrument string) (models.CostSpec, error)
}

// OutcomeSink receives outcome rows. Upsert is keyed by (trade_date, strategy_id, track)
// so re-running a unit overwrites rather than duplicates.
type OutcomeSink interface {
	Upsert(ctx context.Context, rows []models.OutcomeRow) error
	Close() error
}

// OutcomeQuery filters persisted rows.
type OutcomeQuery struct {
	StrategyID string
	Track      models.Track
	From, To   string // trade dates, inclusive
	Limit      int
}

type OutcomeReader interface {
	Query(ctx context.Context, q OutcomeQuery) ([]models.OutcomeRow, error)
}

// OutcomeStorage is a sink that can also be read back.
type OutcomeStorage interface {
	Init(ctx context.Context) error
	OutcomeSink
	OutcomeReader
	Health(ctx context.Context) error
}

type Metrics interface {
	RecordUnit(status string)
	RecordOutcome(track models.Track, status models.OutcomeStatus)
	RecordAmbiguity(instrument string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
