package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"ORBLab/internal/domain/models"
)

// TradeParams are the inputs of the risk/target calculation.
type TradeParams struct {
	Direction  models.Direction
	EntryTime  time.Time
	EntryPrice float64
	Range      models.OpeningRange
	Config     models.StrategyConfig
	Cost       models.CostSpec
	Friction   Friction
}

// StopPrice places the stop on the opposite boundary (full) or the midpoint (half).
func StopPrice(rng models.OpeningRange, dir models.Direction, mode models.StopMode) decimal.Decimal {
	if mode == models.StopHalf {
		return mid(rng.High, rng.Low)
	}
	if dir == models.DirUp {
		return dec(rng.Low)
	}
	return dec(rng.High)
}

// ComputeTrade derives stop, target and cost-adjusted risk/reward.
// It returns ErrRiskTooSmall when the stop distance rounds to zero ticks and
// ErrFillThroughStop when the entry already sits on the losing side of the stop.
func ComputeTrade(p TradeParams) (models.TradeCandidate, error) {
	if !validRR(p.Config.RRTarget) {
		return models.TradeCandidate{}, &ConfigurationError{
			Instrument: p.Config.Instrument,
			Anchor:     p.Config.Anchor,
			Reason:     "rr_target must be positive",
		}
	}

	entry := dec(p.EntryPrice)
	stop := StopPrice(p.Range, p.Direction, p.Config.StopMode)
	signed := entry.Sub(stop)
	if p.Direction == models.DirDown {
		signed = signed.Neg()
	}
	risk := signed.Abs()
	if ticks(risk, p.Cost.TickSize) == 0 {
		return models.TradeCandidate{}, ErrRiskTooSmall
	}
	if signed.IsNegative() {
		return models.TradeCandidate{}, ErrFillThroughStop
	}

	targetPts := risk.Mul(dec(p.Config.RRTarget))
	target := entry.Add(targetPts)
	if p.Direction == models.DirDown {
		target = entry.Sub(targetPts)
	}

	pv := dec(p.Cost.PointValue)
	friction := dec(p.Friction.Dollars)
	nominalRisk := risk.Mul(pv)
	nominalReward := targetPts.Mul(pv)

	return models.TradeCandidate{
		Direction:             p.Direction,
		EntryTime:             p.EntryTime,
		EntryPrice:            p.EntryPrice,
		StopPrice:             toFloat(stop),
		TargetPrice:           toFloat(target),
		RiskPoints:            toFloat(risk),
		TargetPoints:          toFloat(targetPts),
		FrictionDollars:       p.Friction.Dollars,
		NominalRiskDollars:    toFloat(nominalRisk),
		NominalRewardDollars:  toFloat(nominalReward),
		RealizedRiskDollars:   toFloat(nominalRisk.Add(friction)),
		RealizedRewardDollars: toFloat(nominalReward.Sub(friction)),
	}, nil
}
