package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ORBLab/internal/domain/models"
)

// Unit is one fully resolved (date, strategy) unit of work. It carries every
// input the engine needs; nothing is read from shared state.
type Unit struct {
	Session       models.Session
	StrategyID    string
	RangeDuration time.Duration
	ScanHorizon   time.Duration
	Rule          ConfirmationRule
	Config        models.StrategyConfig
	Cost          models.CostSpec
	Friction      Friction
	Bars          []models.Bar
}

// TrackResult is the candidate (if any) and outcome of one track.
type TrackResult struct {
	Track     models.Track
	Candidate *models.TradeCandidate
	Outcome   models.TradeOutcome
}

// DualResult holds both tracks derived from the same range and bars.
type DualResult struct {
	Range      *models.OpeningRange
	Entry      *Entry
	Structural TrackResult
	Tradeable  TrackResult
}

// StrategyID builds the stable id <instrument>_<HHMM>_<rule>_O<minutes>.
func StrategyID(instrument string, anchor time.Time, rule ConfirmationRule, rangeDuration time.Duration) string {
	return fmt.Sprintf("%s_%s_%s_O%d", instrument, anchor.Format("1504"), rule.Code(), int(rangeDuration/time.Minute))
}

// Evaluate runs range, entry, risk and classification for both tracks.
// Errors are limited to ConfigurationError and malformed bar input; data gaps
// and degenerate risk resolve to NO_TRADE and RISK_TOO_SMALL outcomes.
func Evaluate(u Unit) (DualResult, error) {
	if err := validateUnit(u); err != nil {
		return DualResult{}, err
	}
	if err := checkBars(u.Bars); err != nil {
		return DualResult{}, err
	}

	res := DualResult{
		Structural: TrackResult{Track: models.TrackStructural},
		Tradeable:  TrackResult{Track: models.TrackTradeable},
	}

	rng, ok := BuildRange(u.Bars, u.Session.Anchor, u.RangeDuration)
	if !ok {
		res.noTrade(ReasonNoRange)
		return res, nil
	}
	res.Range = &rng

	if f := u.Config.SizeFilter; f != nil && rng.Size < *f {
		res.noTrade(ReasonSizeFilter)
		return res, nil
	}

	horizonEnd := rng.End().Add(u.ScanHorizon)
	entry, reason := ResolveEntry(u.Bars, rng, u.Rule, horizonEnd)
	if reason != "" {
		res.noTrade(reason)
		return res, nil
	}
	res.Entry = &entry

	boundary := rng.High
	if entry.Direction == models.DirDown {
		boundary = rng.Low
	}
	res.Structural = runTrack(u, models.TrackStructural, rng, entry, boundary, horizonEnd)
	res.Tradeable = runTrack(u, models.TrackTradeable, rng, entry, entry.FillPrice, horizonEnd)
	return res, nil
}

// runTrack prices and classifies one track. Both tracks scan from the fill bar.
func runTrack(u Unit, track models.Track, rng models.OpeningRange, entry Entry, entryPrice float64, horizonEnd time.Time) TrackResult {
	tr := TrackResult{Track: track}
	cand, err := ComputeTrade(TradeParams{
		Direction:  entry.Direction,
		EntryTime:  entry.FillTime,
		EntryPrice: entryPrice,
		Range:      rng,
		Config:     u.Config,
		Cost:       u.Cost,
		Friction:   u.Friction,
	})
	switch {
	case errors.Is(err, ErrRiskTooSmall):
		tr.Outcome = models.TradeOutcome{Status: models.OutcomeRiskTooSmall, Reason: ReasonRiskTooSmall}
		return tr
	case errors.Is(err, ErrFillThroughStop):
		tr.Outcome = models.TradeOutcome{Status: models.OutcomeNoTrade, Reason: ReasonFillThroughStop}
		return tr
	case err != nil:
		// validateUnit already rejected non-positive rr
		tr.Outcome = models.TradeOutcome{Status: models.OutcomeNoTrade, Reason: err.Error()}
		return tr
	}
	tr.Candidate = &cand
	tr.Outcome = Classify(u.Bars, entry.FillIndex, horizonEnd, cand, u.Cost.PointValue)
	return tr
}

func (r *DualResult) noTrade(reason string) {
	out := models.TradeOutcome{Status: models.OutcomeNoTrade, Reason: reason}
	r.Structural.Outcome = out
	r.Tradeable.Outcome = out
}

func validateUnit(u Unit) error {
	cfgErr := func(reason string) error {
		return &ConfigurationError{Instrument: u.Config.Instrument, Anchor: u.Config.Anchor, Reason: reason}
	}
	switch {
	case !validRR(u.Config.RRTarget):
		return cfgErr("rr_target must be a positive finite number")
	case u.Config.StopMode != models.StopFull && u.Config.StopMode != models.StopHalf:
		return cfgErr(fmt.Sprintf("invalid stop_mode %q", u.Config.StopMode))
	case u.Rule == nil:
		return cfgErr("confirmation rule not set")
	case u.Cost.PointValue <= 0:
		return cfgErr("cost spec missing point_value")
	case u.RangeDuration <= 0 || u.ScanHorizon <= 0:
		return cfgErr("range duration and scan horizon must be positive")
	}
	return nil
}

func validRR(rr float64) bool {
	return rr > 0 && !math.IsInf(rr, 1)
}

// checkBars enforces strictly increasing timestamps and finite prices.
func checkBars(bars []models.Bar) error {
	for i, b := range bars {
		for _, v := range [4]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite price at %s", ErrInvalidBars, b.Time.Format(time.RFC3339))
			}
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: high < low at %s", ErrInvalidBars, b.Time.Format(time.RFC3339))
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: timestamps not strictly increasing at %s", ErrInvalidBars, b.Time.Format(time.RFC3339))
		}
	}
	return nil
}
