package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBLab/internal/domain/models"
)

func upCandidate(t *testing.T) models.TradeCandidate {
	t.Helper()
	c, err := ComputeTrade(tradeParams(models.DirUp, 2654.6, 2.0, models.StopFull))
	require.NoError(t, err)
	return c
}

func TestClassifyWin(t *testing.T) {
	bars := scenarioBars()
	c := upCandidate(t)

	out := Classify(bars, 6, at(13, 5), c, mgcCost.PointValue)
	require.Equal(t, models.OutcomeWin, out.Status)
	require.NotNil(t, out.ExitPrice)
	require.NotNil(t, out.ExitTime)

	assert.Equal(t, 2657.6, *out.ExitPrice)
	assert.Equal(t, at(9, 9), *out.ExitTime)
	assert.Equal(t, 4, out.BarsHeld)
	assert.InDelta(t, 25.76/19.24, out.RMultiple, 1e-12)
	assert.Less(t, out.RMultiple, 2.0, "friction pulls realized R below rr target")
	assert.False(t, out.Ambiguous)

	// favorable excursion is capped at the target distance
	assert.InDelta(t, 3.0*10/19.24, out.MFE, 1e-9)
	assert.InDelta(t, 0.2*10/19.24, out.MAE, 1e-9)
}

func TestClassifyLoss(t *testing.T) {
	bars := append(scenarioBars()[:7],
		bar(at(9, 7), 2654.9, 2655.0, 2653.0, 2653.2),
	)
	c := upCandidate(t)

	out := Classify(bars, 6, at(13, 5), c, mgcCost.PointValue)
	require.Equal(t, models.OutcomeLoss, out.Status)
	assert.Equal(t, 2653.1, *out.ExitPrice)
	assert.Equal(t, -1.0, out.RMultiple)
	assert.False(t, out.Ambiguous)
	assert.InDelta(t, 1.5*10/19.24, out.MAE, 1e-9, "adverse excursion is capped at the stop")
}

func TestClassifySameBarAmbiguity(t *testing.T) {
	bars := append(scenarioBars()[:7],
		bar(at(9, 7), 2654.9, 2658.0, 2653.0, 2655.0),
	)
	c := upCandidate(t)

	out := Classify(bars, 6, at(13, 5), c, mgcCost.PointValue)
	assert.Equal(t, models.OutcomeLoss, out.Status)
	assert.True(t, out.Ambiguous)
	assert.Equal(t, 2653.1, *out.ExitPrice)
	assert.Equal(t, -1.0, out.RMultiple)
}

func TestClassifyOpen(t *testing.T) {
	bars := scenarioBars()[:8]
	c := upCandidate(t)

	out := Classify(bars, 6, at(13, 5), c, mgcCost.PointValue)
	assert.Equal(t, models.OutcomeOpen, out.Status)
	assert.Nil(t, out.ExitPrice)
	assert.Nil(t, out.ExitTime)
	assert.Zero(t, out.RMultiple)
	assert.Equal(t, 2, out.BarsHeld)
}

func TestClassifyStopsAtHorizon(t *testing.T) {
	bars := scenarioBars()
	c := upCandidate(t)

	// target is touched at 09:09, outside a horizon ending at 09:09
	out := Classify(bars, 6, at(9, 9), c, mgcCost.PointValue)
	assert.Equal(t, models.OutcomeOpen, out.Status)
	assert.Equal(t, 3, out.BarsHeld)
}

func TestClassifyDown(t *testing.T) {
	c, err := ComputeTrade(tradeParams(models.DirDown, 2652.9, 1.0, models.StopFull))
	require.NoError(t, err)
	bars := []models.Bar{
		bar(at(9, 6), 2652.9, 2653.0, 2652.2, 2652.4),
		bar(at(9, 7), 2652.4, 2652.5, 2651.4, 2651.6),
	}

	out := Classify(bars, 0, at(13, 5), c, mgcCost.PointValue)
	assert.Equal(t, models.OutcomeWin, out.Status)
	assert.Equal(t, 2651.5, *out.ExitPrice)
	assert.Equal(t, at(9, 7), *out.ExitTime)
}
