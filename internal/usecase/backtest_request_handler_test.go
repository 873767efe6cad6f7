package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBLab/internal/repository"
	pkgkafka "ORBLab/pkg/kafka"
	applogger "ORBLab/pkg/logger"
)

func TestBacktestRequestHandlerPersists(t *testing.T) {
	store := repository.NewMemoryOutcomeStorage()
	h := NewBacktestRequestHandler("orb.backtest.requests", newUseCase(t, store, 1), applogger.Nop())
	assert.Equal(t, "orb.backtest.requests", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"instrument":"MGC","anchors":["09:00"],"from":"2024-03-04","to":"2024-03-04"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestBacktestRequestHandlerPermanentFailures(t *testing.T) {
	h := NewBacktestRequestHandler("orb.backtest.requests", newUseCase(t, repository.NewMemoryOutcomeStorage(), 1), applogger.Nop())

	for name, payload := range map[string]string{
		"malformed json":     `{"instrument":`,
		"missing instrument": `{"from":"2024-03-04","to":"2024-03-04"}`,
		"bad anchor":         `{"instrument":"MGC","anchors":["9"],"from":"2024-03-04","to":"2024-03-04"}`,
		"diagnostic":         `{"instrument":"MGC","from":"2024-03-04","to":"2024-03-04","diagnostic":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, h.Handle(context.Background(), []byte(payload)), pkgkafka.ErrPermanent)
		})
	}
}

func TestBacktestRequestHandlerRetriesSinkFailures(t *testing.T) {
	h := NewBacktestRequestHandler("orb.backtest.requests", newUseCase(t, errSink{err: assert.AnError}, 1), applogger.Nop())

	err := h.Handle(context.Background(), []byte(`{"instrument":"MGC","anchors":["09:00"],"from":"2024-03-04","to":"2024-03-04"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, pkgkafka.ErrPermanent)
}

func TestBacktestRequestHandlerDoesNotRetryBadData(t *testing.T) {
	store := repository.NewMemoryOutcomeStorage()
	uc := newUseCaseWithBars(t, store, sliceBarStore{"MGC": invertedBars()}, 1)
	h := NewBacktestRequestHandler("orb.backtest.requests", uc, applogger.Nop())

	err := h.Handle(context.Background(), []byte(`{"instrument":"MGC","anchors":["09:00"],"from":"2024-03-04","to":"2024-03-04"}`))
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}
