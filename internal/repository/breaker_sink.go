package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
	applogger "ORBLab/pkg/logger"
)

// BreakerSink guards an OutcomeSink with a circuit breaker. While open,
// Upsert fails fast with gobreaker.ErrOpenState and units report failed.
type BreakerSink struct {
	next domrepo.OutcomeSink
	cb   *gobreaker.CircuitBreaker
}

var _ domrepo.OutcomeSink = (*BreakerSink)(nil)

type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32
	Timeout             time.Duration
	HalfOpenRequests    uint32
}

func NewBreakerSink(next domrepo.OutcomeSink, cfg BreakerConfig, l *applogger.Logger) *BreakerSink {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	return &BreakerSink{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= cfg.ConsecutiveFailures
			},
			// a refused diagnostic row says nothing about sink health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, domrepo.ErrDiagnosticRow)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				l.Warn("outcome sink breaker state change",
					applogger.String("breaker", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			},
		}),
	}
}

func (b *BreakerSink) Upsert(ctx context.Context, rows []models.OutcomeRow) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Upsert(ctx, rows)
	})
	return err
}

// State reports the breaker state (closed, half-open, open).
func (b *BreakerSink) State() string { return b.cb.State().String() }

func (b *BreakerSink) Close() error { return b.next.Close() }
