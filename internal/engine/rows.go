package engine

import (
	"ORBLab/internal/domain/models"
)

// BuildRows flattens a dual result into one row per track, structural first.
func BuildRows(u Unit, res DualResult) []models.OutcomeRow {
	return []models.OutcomeRow{
		buildRow(u, res, res.Structural),
		buildRow(u, res, res.Tradeable),
	}
}

func buildRow(u Unit, res DualResult, tr TrackResult) models.OutcomeRow {
	row := models.OutcomeRow{
		TradeDate:  u.Session.DateKey(),
		StrategyID: u.StrategyID,
		Track:      tr.Track,
		Instrument: u.Config.Instrument,
		Anchor:     u.Config.Anchor,
		RRTarget:   u.Config.RRTarget,
		StopMode:   u.Config.StopMode,
		Outcome:    tr.Outcome.Status,
		Reason:     tr.Outcome.Reason,
		RMultiple:  tr.Outcome.RMultiple,
		ExitPrice:  tr.Outcome.ExitPrice,
		ExitTime:   tr.Outcome.ExitTime,
		MAE:        tr.Outcome.MAE,
		MFE:        tr.Outcome.MFE,
		Ambiguous:  tr.Outcome.Ambiguous,
		Diagnostic: u.Friction.Diagnostic,
	}
	if res.Range != nil {
		row.RangeHigh = res.Range.High
		row.RangeLow = res.Range.Low
		row.RangeSize = res.Range.Size
	}
	if res.Entry != nil {
		row.Direction = res.Entry.Direction
	}
	if c := tr.Candidate; c != nil {
		entryTime := c.EntryTime
		row.EntryTime = &entryTime
		row.EntryPrice = c.EntryPrice
		row.StopPrice = c.StopPrice
		row.TargetPrice = c.TargetPrice
		row.RiskPoints = c.RiskPoints
		row.TargetPoints = c.TargetPoints
		row.RiskDollars = c.RealizedRiskDollars
		row.RewardDollars = c.RealizedRewardDollars
		row.FrictionDollars = c.FrictionDollars
	}
	return row
}

// Stats summarizes rows of one track. OPEN, NO_TRADE and RISK_TOO_SMALL rows
// are counted but excluded from win rate and expectancy.
type Stats struct {
	Track        models.Track `json:"track"`
	Units        int          `json:"units"`
	Wins         int          `json:"wins"`
	Losses       int          `json:"losses"`
	Open         int          `json:"open"`
	NoTrade      int          `json:"no_trade"`
	RiskTooSmall int          `json:"risk_too_small"`
	Ambiguous    int          `json:"ambiguous"`
	WinRate      float64      `json:"win_rate"`
	ExpectancyR  float64      `json:"expectancy_r"`
	TotalR       float64      `json:"total_r"`
}

// Summarize computes per-track statistics over rows.
func Summarize(track models.Track, rows []models.OutcomeRow) Stats {
	st := Stats{Track: track}
	for _, r := range rows {
		if r.Track != track {
			continue
		}
		st.Units++
		switch r.Outcome {
		case models.OutcomeWin:
			st.Wins++
			st.TotalR += r.RMultiple
		case models.OutcomeLoss:
			st.Losses++
			st.TotalR += r.RMultiple
		case models.OutcomeOpen:
			st.Open++
		case models.OutcomeNoTrade:
			st.NoTrade++
		case models.OutcomeRiskTooSmall:
			st.RiskTooSmall++
		}
		if r.Ambiguous {
			st.Ambiguous++
		}
	}
	if resolved := st.Wins + st.Losses; resolved > 0 {
		st.WinRate = float64(st.Wins) / float64(resolved)
		st.ExpectancyR = st.TotalR / float64(resolved)
	}
	return st
}
