package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ORBLab/internal/domain/models"
	drepo "ORBLab/internal/domain/repository"
)

// ErrNoReader is returned by Query when the backend cannot be read back (kafka).
var ErrNoReader = errors.New("outcome backend is write-only")

// Backends accepted by OutcomeRouter.
const (
	BackendClickHouse = "clickhouse"
	BackendKafka      = "kafka"
	BackendMemory     = "memory"
)

// OutcomeRouter sends outcome rows to the configured backend.
type OutcomeRouter struct {
	pub     drepo.OutcomeSink
	store   drepo.OutcomeStorage
	metrics drepo.Metrics
	backend string
}

var _ drepo.OutcomeSink = (*OutcomeRouter)(nil)

// NewOutcomeRouter creates a router. pub serves the kafka backend, store the
// clickhouse and memory backends; either may be nil when unused.
func NewOutcomeRouter(pub drepo.OutcomeSink, store drepo.OutcomeStorage, metrics drepo.Metrics, backend string) (*OutcomeRouter, error) {
	switch backend {
	case BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("backend %s: no publisher", backend)
		}
	case BackendClickHouse, BackendMemory:
		if store == nil {
			return nil, fmt.Errorf("backend %s: no storage", backend)
		}
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
	return &OutcomeRouter{pub: pub, store: store, metrics: metrics, backend: backend}, nil
}

func (r *OutcomeRouter) Backend() string { return r.backend }

// Upsert routes a unit's rows. Rows of one unit always travel together.
func (r *OutcomeRouter) Upsert(ctx context.Context, rows []models.OutcomeRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	if r.backend == BackendKafka {
		err = r.pub.Upsert(ctx, rows)
	} else {
		err = r.store.Upsert(ctx, rows)
	}
	if err != nil {
		r.metrics.RecordError("upsert_" + r.backend)
		return fmt.Errorf("route outcomes: %w", err)
	}
	r.metrics.RecordLatency("upsert_"+r.backend, time.Since(start).Seconds())
	return nil
}

// Query reads rows back from the storage backend.
func (r *OutcomeRouter) Query(ctx context.Context, q drepo.OutcomeQuery) ([]models.OutcomeRow, error) {
	if r.store == nil {
		return nil, ErrNoReader
	}
	return r.store.Query(ctx, q)
}

func (r *OutcomeRouter) Health(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.store.Health(ctx)
}

// Close closes underlying resources if available.
func (r *OutcomeRouter) Close() error {
	var errs []error
	if r.pub != nil {
		errs = append(errs, r.pub.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}
