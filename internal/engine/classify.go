package engine

import (
	"time"

	"ORBLab/internal/domain/models"
)

// StatePending is the classifier state between entry and resolution.
const StatePending models.OutcomeStatus = "PENDING"

// Classify scans bars[from:] up to horizonEnd and resolves the trade.
// A bar crossing both target and stop resolves LOSS and is flagged ambiguous:
// base bars carry no intrabar ordering, so the adverse level is assumed first.
func Classify(bars []models.Bar, from int, horizonEnd time.Time, t models.TradeCandidate, pointValue float64) models.TradeOutcome {
	out := models.TradeOutcome{Status: StatePending}
	var favPts, advPts float64

	for i := from; out.Status == StatePending && i < len(bars); i++ {
		b := bars[i]
		if !b.Time.Before(horizonEnd) {
			break
		}
		out.BarsHeld++

		fav, adv := excursions(b, t)
		favPts = max(favPts, fav)
		advPts = max(advPts, adv)

		hitTarget, hitStop := crosses(b, t)
		switch {
		case hitTarget && hitStop:
			out.Ambiguous = true
			resolve(&out, models.OutcomeLoss, t.StopPrice, b.Time)
		case hitTarget:
			resolve(&out, models.OutcomeWin, t.TargetPrice, b.Time)
		case hitStop:
			resolve(&out, models.OutcomeLoss, t.StopPrice, b.Time)
		}
	}

	switch out.Status {
	case StatePending:
		out.Status = models.OutcomeOpen
	case models.OutcomeWin:
		out.RMultiple = t.RealizedRewardDollars / t.RealizedRiskDollars
	case models.OutcomeLoss:
		out.RMultiple = -1
	}

	// Exits happen at the level, so excursions never run past it.
	favPts = min(favPts, t.TargetPoints)
	advPts = min(advPts, t.RiskPoints)
	if t.RealizedRiskDollars > 0 {
		out.MFE = favPts * pointValue / t.RealizedRiskDollars
		out.MAE = advPts * pointValue / t.RealizedRiskDollars
	}
	return out
}

func resolve(out *models.TradeOutcome, status models.OutcomeStatus, price float64, at time.Time) {
	out.Status = status
	p, ts := price, at
	out.ExitPrice = &p
	out.ExitTime = &ts
}

func crosses(b models.Bar, t models.TradeCandidate) (target, stop bool) {
	if t.Direction == models.DirUp {
		return b.High >= t.TargetPrice, b.Low <= t.StopPrice
	}
	return b.Low <= t.TargetPrice, b.High >= t.StopPrice
}

func excursions(b models.Bar, t models.TradeCandidate) (fav, adv float64) {
	if t.Direction == models.DirUp {
		fav, adv = sub(b.High, t.EntryPrice), sub(t.EntryPrice, b.Low)
	} else {
		fav, adv = sub(t.EntryPrice, b.Low), sub(b.High, t.EntryPrice)
	}
	return max(fav, 0), max(adv, 0)
}
