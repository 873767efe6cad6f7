package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ORBLab/internal/domain/models"
)

func tradeParams(dir models.Direction, entry, rr float64, mode models.StopMode) TradeParams {
	return TradeParams{
		Direction:  dir,
		EntryTime:  at(9, 6),
		EntryPrice: entry,
		Range:      models.OpeningRange{Start: at(9, 0), High: 2654.3, Low: 2653.1, Size: 1.2, Bars: 5},
		Config: models.StrategyConfig{
			Instrument: "MGC",
			Anchor:     "09:00",
			RRTarget:   rr,
			StopMode:   mode,
		},
		Cost:     mgcCost,
		Friction: ComputeFriction(mgcCost),
	}
}

func TestComputeTradeUp(t *testing.T) {
	c, err := ComputeTrade(tradeParams(models.DirUp, 2654.6, 2.0, models.StopFull))
	require.NoError(t, err)

	assert.Equal(t, 2653.1, c.StopPrice)
	assert.Equal(t, 1.5, c.RiskPoints)
	assert.Equal(t, 3.0, c.TargetPoints)
	assert.Equal(t, 2657.6, c.TargetPrice)
	assert.Equal(t, 15.0, c.NominalRiskDollars)
	assert.Equal(t, 30.0, c.NominalRewardDollars)
	assert.Equal(t, 19.24, c.RealizedRiskDollars)
	assert.Equal(t, 25.76, c.RealizedRewardDollars)
}

func TestComputeTradeDown(t *testing.T) {
	c, err := ComputeTrade(tradeParams(models.DirDown, 2652.9, 1.5, models.StopFull))
	require.NoError(t, err)

	assert.Equal(t, 2654.3, c.StopPrice)
	assert.Equal(t, 1.4, c.RiskPoints)
	assert.Equal(t, 2.1, c.TargetPoints)
	assert.Equal(t, 2650.8, c.TargetPrice)
}

func TestComputeTradeHalfStop(t *testing.T) {
	c, err := ComputeTrade(tradeParams(models.DirUp, 2654.3, 1.0, models.StopHalf))
	require.NoError(t, err)

	assert.Equal(t, 2653.7, c.StopPrice)
	assert.Equal(t, 0.6, c.RiskPoints)
	assert.Equal(t, 2654.9, c.TargetPrice)
}

func TestComputeTradeRiskTooSmall(t *testing.T) {
	// 0.04 points is less than half a 0.1 tick
	_, err := ComputeTrade(tradeParams(models.DirUp, 2653.74, 2.0, models.StopHalf))
	assert.ErrorIs(t, err, ErrRiskTooSmall)

	_, err = ComputeTrade(tradeParams(models.DirUp, 2653.7, 2.0, models.StopHalf))
	assert.ErrorIs(t, err, ErrRiskTooSmall)
}

func TestComputeTradeFillThroughStop(t *testing.T) {
	_, err := ComputeTrade(tradeParams(models.DirUp, 2652.8, 2.0, models.StopFull))
	assert.ErrorIs(t, err, ErrFillThroughStop)

	_, err = ComputeTrade(tradeParams(models.DirDown, 2654.6, 2.0, models.StopFull))
	assert.ErrorIs(t, err, ErrFillThroughStop)
}

func TestComputeTradeRejectsInvalidRR(t *testing.T) {
	for _, rr := range []float64{0, -1} {
		_, err := ComputeTrade(tradeParams(models.DirUp, 2654.6, rr, models.StopFull))
		assert.True(t, IsConfigurationError(err), "rr=%v", rr)
	}
}

func TestComputeTradeCostProperties(t *testing.T) {
	entries := []float64{2654.4, 2654.6, 2655.3, 2657.0}
	rrs := []float64{0.5, 1.0, 1.5, 2.0, 3.0, 4.5}
	modes := []models.StopMode{models.StopFull, models.StopHalf}

	for _, mode := range modes {
		for _, entry := range entries {
			for _, rr := range rrs {
				c, err := ComputeTrade(tradeParams(models.DirUp, entry, rr, mode))
				require.NoError(t, err)

				assert.InDelta(t, c.RiskPoints*rr, c.TargetPoints, 1e-9)
				assert.InDelta(t, c.TargetPoints, c.TargetPrice-c.EntryPrice, 1e-9)
				assert.Greater(t, c.RealizedRiskDollars, c.NominalRiskDollars)
				assert.Less(t, c.RealizedRewardDollars, c.NominalRewardDollars)
			}
		}
	}
}
